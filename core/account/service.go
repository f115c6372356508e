// Package account is the application service over the user aggregate:
// registration, login-token issuance, account activation, password reset,
// email change, profile management and admin user search. It composes the
// user repository with token issuance and mail delivery; all state changes
// go through the aggregate's command guards and the repository's
// optimistic-concurrency append.
package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"

	"github.com/RHeactorJS/rheactor-server/core/es"
	"github.com/RHeactorJS/rheactor-server/core/user"
	"github.com/RHeactorJS/rheactor-server/internal/password"
	"github.com/RHeactorJS/rheactor-server/internal/tokens"
)

// ErrAccessDenied marks an operation the acting user is not allowed to
// perform, including logins with bad credentials.
var ErrAccessDenied = errors.New("access denied")

// defaultPasswordHash is the well-known password ("12345678") admin-created
// accounts start with; such accounts are expected to change it immediately.
const defaultPasswordHash = "$2a$04$9J9g5cfQKyf1bMCQZg7oGua.CjHe5lfOQs4jW5fwGN/Gm5zTxPqh2"

type Option func(*Service)

func WithBcryptCost(cost int) Option {
	return func(s *Service) { s.bcryptCost = cost }
}

type Service struct {
	log        *slog.Logger
	users      *user.Repository
	tokens     *tokens.Service
	mailer     Mailer
	validate   *validator.Validate
	bcryptCost int
}

func New(log *slog.Logger, users *user.Repository, tok *tokens.Service, mailer Mailer, opts ...Option) *Service {
	s := &Service{
		log:        log.With(slog.String("service", "account")),
		users:      users,
		tokens:     tok,
		mailer:     mailer,
		validate:   validator.New(validator.WithRequiredStructEnabled()),
		bcryptCost: password.DefaultCost,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Users exposes the underlying repository, e.g. for wiring post-append
// hooks.
func (s *Service) Users() *user.Repository { return s.users }

type RegisterInput struct {
	Email     string `validate:"required,email"`
	Firstname string `validate:"required"`
	Lastname  string `validate:"required"`
	Password  string `validate:"required,min=8"`
}

// Register creates an inactive account and mails an activation token to its
// address. The password is hashed before it gets anywhere near the journal.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*user.User, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %w", es.ErrValidationFailed, err)
	}

	hash, err := password.Hash(in.Password, s.bcryptCost)
	if err != nil {
		return nil, err
	}

	u, err := s.users.Add(ctx, user.Draft{
		Email:        in.Email,
		Firstname:    in.Firstname,
		Lastname:     in.Lastname,
		PasswordHash: hash,
	})
	if err != nil {
		return nil, err
	}

	token, err := s.tokens.Sign(tokens.IssuerAccountActivation, metaOf(u))
	if err != nil {
		return nil, err
	}
	s.send(ctx, u.Email, "Account activation", "Activate your account: "+token)

	s.log.Info("user registered", slog.Int64("id", u.Meta.ID))
	return u, nil
}

// CreateUser lets an admin create an already-activated account. It starts
// with a well-known default password.
func (s *Service) CreateUser(ctx context.Context, author *user.User, email, firstname, lastname string) (*user.User, error) {
	if err := requireSuperUser(author); err != nil {
		return nil, err
	}
	return s.users.Add(ctx, user.Draft{
		Email:        email,
		Firstname:    firstname,
		Lastname:     lastname,
		PasswordHash: defaultPasswordHash,
		IsActive:     true,
	})
}

// Activate confirms an account-activation token and activates the account.
func (s *Service) Activate(ctx context.Context, token string) (*user.User, error) {
	claims, err := s.tokens.Verify(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAccessDenied, err)
	}
	if !claims.IsAccountActivationToken() {
		return nil, fmt.Errorf("%w: not an account activation token", ErrAccessDenied)
	}

	u, err := s.users.GetByID(ctx, claims.Meta.ID)
	if err != nil {
		return nil, err
	}

	ev, err := u.Activate()
	if err != nil {
		return nil, err
	}
	return s.users.ApplyCommand(ctx, u, u.Meta.ID, ev)
}

// Login checks credentials and issues a login token. Every failure mode -
// unknown email, wrong password, inactive account - is the same
// ErrAccessDenied so callers cannot probe which addresses exist.
func (s *Service) Login(ctx context.Context, email, plain string) (string, *user.User, error) {
	u, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return "", nil, err
	}
	if u == nil || !password.Verify(u.PasswordHash, plain) {
		return "", nil, fmt.Errorf("%w: invalid credentials", ErrAccessDenied)
	}
	if !u.IsActive {
		return "", nil, fmt.Errorf("%w: account is not active", ErrAccessDenied)
	}

	token, err := s.tokens.Sign(tokens.IssuerLogin, metaOf(u))
	if err != nil {
		return "", nil, err
	}
	return token, u, nil
}

// RenewToken issues a fresh login token for an authenticated user.
func (s *Service) RenewToken(u *user.User) (string, error) {
	return s.tokens.Sign(tokens.IssuerLogin, metaOf(u))
}

// RequestPasswordChange mails a lost-password token to the account's
// address.
func (s *Service) RequestPasswordChange(ctx context.Context, email string) error {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return err
	}

	token, err := s.tokens.Sign(tokens.IssuerLostPassword, metaOf(u))
	if err != nil {
		return err
	}
	s.send(ctx, u.Email, "Password change", "Confirm your password change: "+token)
	return nil
}

// ConfirmPasswordChange verifies a lost-password token and sets the new
// password. The token is pinned to the aggregate version it was issued for;
// if the account changed in the meantime the token is stale and the change
// is rejected with ErrConflict.
func (s *Service) ConfirmPasswordChange(ctx context.Context, token, plain string) (*user.User, error) {
	if len(plain) < 8 {
		return nil, fmt.Errorf("%w: password must have at least 8 characters", es.ErrValidationFailed)
	}

	claims, err := s.tokens.Verify(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAccessDenied, err)
	}
	if !claims.IsLostPasswordToken() {
		return nil, fmt.Errorf("%w: not a password change token", ErrAccessDenied)
	}

	u, err := s.users.GetByID(ctx, claims.Meta.ID)
	if err != nil {
		return nil, err
	}
	if err := checkVersionImmutable(claims, u); err != nil {
		return nil, err
	}

	hash, err := password.Hash(plain, s.bcryptCost)
	if err != nil {
		return nil, err
	}
	ev, err := u.SetPassword(hash)
	if err != nil {
		return nil, err
	}
	return s.users.ApplyCommand(ctx, u, u.Meta.ID, ev)
}

// RequestEmailChange mails an email-change token to the new address. The
// new address must not belong to another account.
func (s *Service) RequestEmailChange(ctx context.Context, u *user.User, newEmail string) error {
	existing, err := s.users.FindByEmail(ctx, newEmail)
	if err != nil {
		return err
	}
	if existing != nil {
		return fmt.Errorf("%w: user with email %q", es.ErrEntryAlreadyExists, newEmail)
	}

	token, err := s.tokens.Sign(tokens.IssuerEmailChange, metaOf(u), tokens.WithEmail(newEmail))
	if err != nil {
		return err
	}
	s.send(ctx, newEmail, "Email change", "Confirm your new email address: "+token)
	return nil
}

// ConfirmEmailChange verifies an email-change token and moves the account to
// the address the token carries.
func (s *Service) ConfirmEmailChange(ctx context.Context, token string) (*user.User, error) {
	claims, err := s.tokens.Verify(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAccessDenied, err)
	}
	if !claims.IsEmailChangeToken() {
		return nil, fmt.Errorf("%w: not an email change token", ErrAccessDenied)
	}

	u, err := s.users.GetByID(ctx, claims.Meta.ID)
	if err != nil {
		return nil, err
	}
	if err := checkVersionImmutable(claims, u); err != nil {
		return nil, err
	}

	ev, err := u.SetEmail(claims.Email)
	if err != nil {
		return nil, err
	}
	return s.users.ApplyCommand(ctx, u, u.Meta.ID, ev)
}

// === Profile ===

func (s *Service) ChangeFirstname(ctx context.Context, author, u *user.User, v string) (*user.User, error) {
	return s.profileChange(ctx, author, u, func() (any, error) { return u.SetFirstname(v) })
}

func (s *Service) ChangeLastname(ctx context.Context, author, u *user.User, v string) (*user.User, error) {
	return s.profileChange(ctx, author, u, func() (any, error) { return u.SetLastname(v) })
}

func (s *Service) ChangeAvatar(ctx context.Context, author, u *user.User, avatar string) (*user.User, error) {
	return s.profileChange(ctx, author, u, func() (any, error) { return u.SetAvatar(avatar) })
}

func (s *Service) ChangePreferences(ctx context.Context, author, u *user.User, prefs map[string]any) (*user.User, error) {
	return s.profileChange(ctx, author, u, func() (any, error) { return u.SetPreferences(prefs) })
}

func (s *Service) Deactivate(ctx context.Context, author, u *user.User) (*user.User, error) {
	return s.profileChange(ctx, author, u, u.Deactivate)
}

// profileChange applies a command to u on behalf of author. Users manage
// their own profile; admins manage everyone's.
func (s *Service) profileChange(ctx context.Context, author, u *user.User, command func() (any, error)) (*user.User, error) {
	if author.Meta.ID != u.Meta.ID && !author.SuperUser {
		return nil, fmt.Errorf("%w: not your account", ErrAccessDenied)
	}
	ev, err := command()
	if err != nil {
		return nil, err
	}
	return s.users.ApplyCommand(ctx, u, author.Meta.ID, ev)
}

// === Admin ===

func (s *Service) GrantSuperUser(ctx context.Context, author, target *user.User) (*user.User, error) {
	if err := requireSuperUser(author); err != nil {
		return nil, err
	}
	ev, err := target.GrantSuperUser()
	if err != nil {
		return nil, err
	}
	return s.users.ApplyCommand(ctx, target, author.Meta.ID, ev)
}

func (s *Service) RevokeSuperUser(ctx context.Context, author, target *user.User) (*user.User, error) {
	if err := requireSuperUser(author); err != nil {
		return nil, err
	}
	ev, err := target.RevokeSuperUser()
	if err != nil {
		return nil, err
	}
	return s.users.ApplyCommand(ctx, target, author.Meta.ID, ev)
}

type SearchQuery struct {
	// Email narrows the search to a single exact address.
	Email  string
	Offset int
}

// Search lists user accounts for admins. With an email the result is the
// single matching account, if any; otherwise a page of all accounts.
func (s *Service) Search(ctx context.Context, author *user.User, q SearchQuery) (*PaginatedResult, error) {
	if err := requireSuperUser(author); err != nil {
		return nil, err
	}

	p := NewPagination(q.Offset)

	if q.Email != "" {
		u, err := s.users.FindByEmail(ctx, q.Email)
		if err != nil {
			return nil, err
		}
		items := []*user.User{}
		if u != nil {
			items = append(items, u)
		}
		return &PaginatedResult{Items: items, Total: len(items), Offset: p.Offset, ItemsPerPage: p.ItemsPerPage}, nil
	}

	items, total, err := s.users.ListAll(ctx, p.Offset, p.ItemsPerPage)
	if err != nil {
		return nil, err
	}
	return &PaginatedResult{Items: items, Total: total, Offset: p.Offset, ItemsPerPage: p.ItemsPerPage}, nil
}

// === Helpers ===

func metaOf(u *user.User) tokens.Meta {
	return tokens.Meta{ID: u.Meta.ID, Version: u.Meta.Version}
}

func requireSuperUser(author *user.User) error {
	if author == nil || !author.SuperUser {
		return fmt.Errorf("%w: superuser required", ErrAccessDenied)
	}
	return nil
}

// checkVersionImmutable rejects a token issued against an older version of
// the aggregate: any change since issuance invalidates it.
func checkVersionImmutable(claims *tokens.Claims, u *user.User) error {
	if claims.Meta.Version != u.Meta.Version {
		return fmt.Errorf("%w: user has changed since token was issued (version %d, token %d)",
			es.ErrConflict, u.Meta.Version, claims.Meta.Version)
	}
	return nil
}

func (s *Service) send(ctx context.Context, to, subject, text string) {
	if err := s.mailer.Send(ctx, to, subject, text); err != nil {
		s.log.Warn("mail delivery failed",
			slog.String("to", to),
			slog.String("subject", subject),
			slog.Any("error", err),
		)
	}
}
