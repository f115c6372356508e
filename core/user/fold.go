package user

import (
	"fmt"

	"github.com/RHeactorJS/rheactor-server/core/es"
)

// Fold is the user projector: it maps (prior state or nil, event) to the
// next state. It is pure and deterministic - replaying the same stream
// twice yields identical state. Preconditions (no-op guards, format checks)
// are the command handlers' business; Fold only defines what each event
// does to state. Every transition stamps Meta.UpdatedAt with the event time
// and bumps Meta.Version by exactly 1.
func Fold(prior *User, event any, env es.Envelope) (*User, error) {
	if e, ok := event.(*CreatedEvent); ok {
		if prior != nil {
			return nil, fmt.Errorf("%s event on existing aggregate %d", es.EventTypeOf(e), env.AggregateID)
		}
		u := &User{
			Meta:         es.NewMeta(env.AggregateID, env.OccurredAt),
			Email:        e.Email,
			Firstname:    e.Firstname,
			Lastname:     e.Lastname,
			PasswordHash: e.Password,
			IsActive:     e.IsActive,
			Avatar:       e.Avatar,
			Preferences:  map[string]any{},
		}
		if e.IsActive {
			u.ActivatedAt = env.OccurredAt
		}
		return u, nil
	}

	if prior == nil {
		return nil, fmt.Errorf("%s event on uncreated aggregate %d", es.EventTypeOf(event), env.AggregateID)
	}

	next := prior.clone()
	switch e := event.(type) {
	case *PasswordChangedEvent:
		next.PasswordHash = e.Password
	case *EmailChangedEvent:
		next.Email = e.Email
	case *ActivatedEvent:
		next.IsActive = true
		next.ActivatedAt = env.OccurredAt
	case *DeactivatedEvent:
		next.IsActive = false
		next.DeactivatedAt = env.OccurredAt
	case *AvatarUpdatedEvent:
		next.Avatar = e.Avatar
	case *SuperUserGrantedEvent:
		next.SuperUser = true
	case *SuperUserRevokedEvent:
		next.SuperUser = false
	case *PropertyChangedEvent:
		switch e.Property {
		case "firstname":
			next.Firstname = e.Value
		case "lastname":
			next.Lastname = e.Value
		default:
			return nil, fmt.Errorf("%w: property %q", es.ErrUnhandledDomainEvent, e.Property)
		}
	case *PreferencesChangedEvent:
		next.Preferences = make(map[string]any, len(e.Preferences))
		for k, v := range e.Preferences {
			next.Preferences[k] = v
		}
	default:
		return nil, fmt.Errorf("%w: %T", es.ErrUnhandledDomainEvent, event)
	}

	next.Meta = prior.Meta.Updated(env.OccurredAt)
	return next, nil
}

var _ es.FoldFunc[User] = Fold
