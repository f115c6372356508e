package tokens

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	privPEM, _, err := GenerateKeyPair(2048)
	require.NoError(t, err)

	priv, err := ParsePrivateKey(privPEM)
	require.NoError(t, err)

	return NewService(priv, "https://api.example.com", time.Hour)
}

func TestSignAndVerify(t *testing.T) {
	svc := newTestService(t)
	meta := Meta{ID: 17, Version: 3}

	token, err := svc.Sign(IssuerLogin, meta)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.Verify(token)
	require.NoError(t, err)
	require.Equal(t, meta, claims.Meta)
	require.Equal(t, "https://api.example.com/user/17", claims.Subject)
	require.True(t, claims.IsLoginToken())
	require.False(t, claims.IsLostPasswordToken())
	require.False(t, claims.IsAccountActivationToken())
	require.False(t, claims.IsEmailChangeToken())
}

func TestIssuers(t *testing.T) {
	svc := newTestService(t)

	for issuer, check := range map[string]func(*Claims) bool{
		IssuerLostPassword:      (*Claims).IsLostPasswordToken,
		IssuerAccountActivation: (*Claims).IsAccountActivationToken,
		IssuerEmailChange:       (*Claims).IsEmailChangeToken,
	} {
		token, err := svc.Sign(issuer, Meta{ID: 1, Version: 1})
		require.NoError(t, err)

		claims, err := svc.Verify(token)
		require.NoError(t, err)
		require.True(t, check(claims), issuer)
		require.False(t, claims.IsLoginToken(), issuer)
	}
}

func TestEmailChangeTokenCarriesTarget(t *testing.T) {
	svc := newTestService(t)

	token, err := svc.Sign(IssuerEmailChange, Meta{ID: 1, Version: 2}, WithEmail("new@example.com"))
	require.NoError(t, err)

	claims, err := svc.Verify(token)
	require.NoError(t, err)
	require.Equal(t, "new@example.com", claims.Email)
}

func TestVerify_Rejections(t *testing.T) {
	svc := newTestService(t)

	t.Run("garbage", func(t *testing.T) {
		_, err := svc.Verify("not.a.token")
		require.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("foreign key", func(t *testing.T) {
		other := newTestService(t)
		token, err := other.Sign(IssuerLogin, Meta{ID: 1, Version: 1})
		require.NoError(t, err)

		_, err = svc.Verify(token)
		require.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("verifier cannot sign", func(t *testing.T) {
		privPEM, pubPEM, err := GenerateKeyPair(2048)
		require.NoError(t, err)
		priv, err := ParsePrivateKey(privPEM)
		require.NoError(t, err)
		pub, err := ParsePublicKey(pubPEM)
		require.NoError(t, err)

		verifier := NewVerifier(pub, "https://api.example.com")
		_, err = verifier.Sign(IssuerLogin, Meta{ID: 1, Version: 1})
		require.Error(t, err)

		signer := NewService(priv, "https://api.example.com", time.Hour)
		token, err := signer.Sign(IssuerLogin, Meta{ID: 1, Version: 1})
		require.NoError(t, err)

		claims, err := verifier.Verify(token)
		require.NoError(t, err)
		require.EqualValues(t, 1, claims.Meta.ID)
	})
}
