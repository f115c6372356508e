package user

import (
	"fmt"
	"strings"

	"github.com/RHeactorJS/rheactor-server/core/es"
)

// Command guards. Each method validates the requested change against current
// state and either returns the event to append or fails without emitting:
// a no-op change or a flag already in the target state is ErrConflict, a
// malformed value is ErrValidationFailed. These business-rule guards run
// logically before the optimistic-concurrency check the repository performs
// at append time.

// SetPassword replaces the password hash. The hash must match the recognized
// format; anything else - notably a plaintext password - is rejected.
func (u *User) SetPassword(hash string) (any, error) {
	if !IsPasswordHash(hash) {
		return nil, fmt.Errorf("%w: password hash does not match the required format", es.ErrValidationFailed)
	}
	return &PasswordChangedEvent{Password: hash}, nil
}

// SetEmail changes the account email. The old email is captured in the
// event payload for audit.
func (u *User) SetEmail(email string) (any, error) {
	email = strings.ToLower(email)
	if !IsEmail(email) {
		return nil, fmt.Errorf("%w: email %q is not an email address", es.ErrValidationFailed, email)
	}
	if email == u.Email {
		return nil, fmt.Errorf("%w: email not changed", es.ErrConflict)
	}
	return &EmailChangedEvent{Email: email, OldEmail: u.Email}, nil
}

func (u *User) Activate() (any, error) {
	if u.IsActive {
		return nil, fmt.Errorf("%w: already activated", es.ErrConflict)
	}
	return &ActivatedEvent{}, nil
}

func (u *User) Deactivate() (any, error) {
	if !u.IsActive {
		return nil, fmt.Errorf("%w: not activated", es.ErrConflict)
	}
	return &DeactivatedEvent{}, nil
}

func (u *User) SetAvatar(avatar string) (any, error) {
	if err := validateURI(avatar); err != nil {
		return nil, err
	}
	return &AvatarUpdatedEvent{Avatar: avatar}, nil
}

func (u *User) GrantSuperUser() (any, error) {
	if u.SuperUser {
		return nil, fmt.Errorf("%w: already superuser", es.ErrConflict)
	}
	return &SuperUserGrantedEvent{}, nil
}

func (u *User) RevokeSuperUser() (any, error) {
	if !u.SuperUser {
		return nil, fmt.Errorf("%w: not superuser", es.ErrConflict)
	}
	return &SuperUserRevokedEvent{}, nil
}

func (u *User) SetFirstname(firstname string) (any, error) {
	return u.propertyChange("firstname", u.Firstname, firstname)
}

func (u *User) SetLastname(lastname string) (any, error) {
	return u.propertyChange("lastname", u.Lastname, lastname)
}

func (u *User) propertyChange(property, current, value string) (any, error) {
	if strings.TrimSpace(value) == "" {
		return nil, fmt.Errorf("%w: %s is required", es.ErrValidationFailed, property)
	}
	if value == current {
		return nil, fmt.Errorf("%w: %s not changed", es.ErrConflict, property)
	}
	return &PropertyChangedEvent{Property: property, Value: value}, nil
}

// SetPreferences replaces the entire preferences map.
func (u *User) SetPreferences(preferences map[string]any) (any, error) {
	copied := make(map[string]any, len(preferences))
	for k, v := range preferences {
		copied[k] = v
	}
	return &PreferencesChangedEvent{Preferences: copied}, nil
}
