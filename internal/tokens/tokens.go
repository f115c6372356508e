// Package tokens issues and verifies the RS256 JSON web tokens the account
// service hands out. Besides the regular login token there are three
// special-purpose tokens distinguished by issuer: password change, account
// activation and email change. Every token carries the aggregate meta
// (id and version) of the user it was issued for, so state-changing
// confirmations can detect that the account moved on since the token was
// issued.
package tokens

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/RHeactorJS/rheactor-server/core/es"
)

// Token issuers.
const (
	IssuerLogin             = "login"
	IssuerLostPassword      = "password-change"
	IssuerAccountActivation = "account-activation"
	IssuerEmailChange       = "email-change"
)

var (
	ErrInvalidToken = errors.New("invalid token")
)

// Meta pins a token to the aggregate id and version it was issued for.
type Meta struct {
	ID      int64      `json:"id"`
	Version es.Version `json:"version"`
}

type Claims struct {
	jwt.RegisteredClaims
	Meta Meta `json:"meta"`
	// Email carries the target address of an email-change token.
	Email string `json:"email,omitempty"`
}

func (c *Claims) IsLoginToken() bool             { return c.Issuer == IssuerLogin }
func (c *Claims) IsLostPasswordToken() bool      { return c.Issuer == IssuerLostPassword }
func (c *Claims) IsAccountActivationToken() bool { return c.Issuer == IssuerAccountActivation }
func (c *Claims) IsEmailChangeToken() bool       { return c.Issuer == IssuerEmailChange }

type Service struct {
	priv     *rsa.PrivateKey
	pub      *rsa.PublicKey
	apiHost  string
	lifetime time.Duration
}

// NewService creates a token service that can sign and verify.
func NewService(priv *rsa.PrivateKey, apiHost string, lifetime time.Duration) *Service {
	return &Service{priv: priv, pub: &priv.PublicKey, apiHost: apiHost, lifetime: lifetime}
}

// NewVerifier creates a verify-only token service (no private key).
func NewVerifier(pub *rsa.PublicKey, apiHost string) *Service {
	return &Service{pub: pub, apiHost: apiHost}
}

// UserURI returns the canonical subject URI for a user id.
func (s *Service) UserURI(id int64) string {
	return s.apiHost + "/user/" + strconv.FormatInt(id, 10)
}

type signOpts struct{ email string }

type SignOption func(*signOpts)

// WithEmail attaches the target address to an email-change token.
func WithEmail(email string) SignOption {
	return func(o *signOpts) { o.email = email }
}

// Sign issues a token for the user identified by meta.
func (s *Service) Sign(issuer string, meta Meta, opts ...SignOption) (string, error) {
	if s.priv == nil {
		return "", errors.New("token service has no private key")
	}

	var options signOpts
	for _, opt := range opts {
		opt(&options)
	}

	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   s.UserURI(meta.ID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.lifetime)),
		},
		Meta:  meta,
		Email: options.email,
	}

	return jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(s.priv)
}

// Verify parses and validates a token, accepting RS256 only.
func (s *Service) Verify(token string) (*Claims, error) {
	claims := &Claims{}
	t, err := jwt.ParseWithClaims(
		token,
		claims,
		func(t *jwt.Token) (any, error) { return s.pub, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !t.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
