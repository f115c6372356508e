package user

import "github.com/RHeactorJS/rheactor-server/core/es"

// The closed enumeration of user domain events. Type names and payload
// fields are the wire format of the journal; changing either is a breaking
// change for persisted streams.
type (
	CreatedEvent struct {
		Email     string `json:"email"`
		Firstname string `json:"firstname"`
		Lastname  string `json:"lastname"`
		Password  string `json:"password"`
		IsActive  bool   `json:"isActive"`
		Avatar    string `json:"avatar,omitempty"`
	}

	PasswordChangedEvent struct {
		Password string `json:"password"`
	}

	// EmailChangedEvent captures the old email for audit.
	EmailChangedEvent struct {
		Email    string `json:"email"`
		OldEmail string `json:"oldemail,omitempty"`
	}

	ActivatedEvent   struct{}
	DeactivatedEvent struct{}

	AvatarUpdatedEvent struct {
		Avatar string `json:"avatar"`
	}

	SuperUserGrantedEvent struct{}
	SuperUserRevokedEvent struct{}

	PropertyChangedEvent struct {
		Property string `json:"property"`
		Value    string `json:"value"`
	}

	PreferencesChangedEvent struct {
		Preferences map[string]any `json:"preferences"`
	}
)

func (CreatedEvent) EventType() string            { return "UserCreatedEvent" }
func (PasswordChangedEvent) EventType() string    { return "UserPasswordChangedEvent" }
func (EmailChangedEvent) EventType() string       { return "UserEmailChangedEvent" }
func (ActivatedEvent) EventType() string          { return "UserActivatedEvent" }
func (DeactivatedEvent) EventType() string        { return "UserDeactivatedEvent" }
func (AvatarUpdatedEvent) EventType() string      { return "UserAvatarUpdatedEvent" }
func (SuperUserGrantedEvent) EventType() string   { return "SuperUserPermissionsGrantedEvent" }
func (SuperUserRevokedEvent) EventType() string   { return "SuperUserPermissionsRevokedEvent" }
func (PropertyChangedEvent) EventType() string    { return "UserPropertyChangedEvent" }
func (PreferencesChangedEvent) EventType() string { return "UserPreferencesChangedEvent" }

// RegisterEvents registers all user event constructors with a registry.
func RegisterEvents(r es.Registrar) {
	es.RegisterEvents(r,
		es.Event[CreatedEvent](),
		es.Event[PasswordChangedEvent](),
		es.Event[EmailChangedEvent](),
		es.Event[ActivatedEvent](),
		es.Event[DeactivatedEvent](),
		es.Event[AvatarUpdatedEvent](),
		es.Event[SuperUserGrantedEvent](),
		es.Event[SuperUserRevokedEvent](),
		es.Event[PropertyChangedEvent](),
		es.Event[PreferencesChangedEvent](),
	)
}
