// Package user implements the user-account aggregate: its state, the closed
// enumeration of domain events, the pure fold that projects an event stream
// into state, the command guards that decide which events are legal, and the
// repository that ties id allocation, the email uniqueness index and the
// event journal together.
package user

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/RHeactorJS/rheactor-server/core/es"
)

// AggregateType is the stream type name for user accounts.
const AggregateType = "user"

var (
	// passwordHashRe matches bcrypt hashes as produced by the password helper.
	passwordHashRe = regexp.MustCompile(`^\$2a\$\d+\$.+`)
	emailRe        = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
)

// IsPasswordHash reports whether s matches the recognized hash-scheme prefix.
// Plaintext passwords never pass this check, which keeps them out of the
// journal by construction.
func IsPasswordHash(s string) bool { return passwordHashRe.MatchString(s) }

// IsEmail reports whether s looks like an email address.
func IsEmail(s string) bool { return emailRe.MatchString(s) }

// User is the reconstructed state of a user account. It is never persisted
// directly - always derived by folding the account's event stream.
type User struct {
	Meta es.Meta `json:"meta"`

	Email         string         `json:"email"`
	Firstname     string         `json:"firstname"`
	Lastname      string         `json:"lastname"`
	PasswordHash  string         `json:"-"`
	IsActive      bool           `json:"isActive"`
	ActivatedAt   time.Time      `json:"activatedAt,omitzero"`
	DeactivatedAt time.Time      `json:"deactivatedAt,omitzero"`
	Avatar        string         `json:"avatar,omitempty"`
	SuperUser     bool           `json:"superUser"`
	Preferences   map[string]any `json:"preferences"`
}

// Name returns the display name.
func (u *User) Name() string { return u.Firstname + " " + u.Lastname }

// clone returns a copy safe to mutate; prior states handed out by the fold
// stay untouched.
func (u *User) clone() *User {
	next := *u
	next.Preferences = make(map[string]any, len(u.Preferences))
	for k, v := range u.Preferences {
		next.Preferences[k] = v
	}
	return &next
}

// Draft is the candidate state for a new user account, validated before the
// Created event is emitted.
type Draft struct {
	Email     string
	Firstname string
	Lastname  string
	// PasswordHash must already be hashed; plaintext is rejected.
	PasswordHash string
	IsActive     bool
	Avatar       string
}

func (d Draft) Validate() error {
	if !IsEmail(d.Email) {
		return fmt.Errorf("%w: email %q is not an email address", es.ErrValidationFailed, d.Email)
	}
	if strings.TrimSpace(d.Firstname) == "" {
		return fmt.Errorf("%w: firstname is required", es.ErrValidationFailed)
	}
	if strings.TrimSpace(d.Lastname) == "" {
		return fmt.Errorf("%w: lastname is required", es.ErrValidationFailed)
	}
	if !IsPasswordHash(d.PasswordHash) {
		return fmt.Errorf("%w: password hash does not match the required format", es.ErrValidationFailed)
	}
	if d.Avatar != "" {
		if err := validateURI(d.Avatar); err != nil {
			return err
		}
	}
	return nil
}

func (d Draft) createdEvent() *CreatedEvent {
	return &CreatedEvent{
		Email:     strings.ToLower(d.Email),
		Firstname: d.Firstname,
		Lastname:  d.Lastname,
		Password:  d.PasswordHash,
		IsActive:  d.IsActive,
		Avatar:    d.Avatar,
	}
}

func validateURI(s string) error {
	u, err := url.Parse(s)
	if err != nil || !u.IsAbs() {
		return fmt.Errorf("%w: %q is not an absolute URI", es.ErrValidationFailed, s)
	}
	return nil
}
