package anchor

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_NewJWTManager_rejectsShortSecret(t *testing.T) {
	_, err := NewJWTManager(strings.Repeat("a", MinJWTSecretLength-1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least 32 octets")
}

func Test_NewJWTManager_acceptsMinimumLength(t *testing.T) {
	m, err := NewJWTManager(strings.Repeat("a", MinJWTSecretLength))
	require.NoError(t, err)
	require.NotNil(t, m)
}

func Test_JWTManager_IssueAndVerify(t *testing.T) {
	m, err := NewJWTManager(strings.Repeat("a", MinJWTSecretLength))
	require.NoError(t, err)

	token, err := m.Issue("anchor.example.com", "GABCD")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := m.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "anchor.example.com", claims.Issuer)
	assert.Equal(t, "GABCD", claims.Subject)
}

func Test_JWTManager_Verify_rejectsWrongSecret(t *testing.T) {
	m1, err := NewJWTManager(strings.Repeat("a", MinJWTSecretLength))
	require.NoError(t, err)
	m2, err := NewJWTManager(strings.Repeat("b", MinJWTSecretLength))
	require.NoError(t, err)

	token, err := m1.Issue("anchor.example.com", "GABCD")
	require.NoError(t, err)

	_, err = m2.Verify(token)
	assert.Error(t, err)
}

func Test_JWTManager_Verify_rejectsExpiredToken(t *testing.T) {
	m, err := NewJWTManager(strings.Repeat("a", MinJWTSecretLength))
	require.NoError(t, err)

	past := time.Now().Add(-time.Hour)
	claims := BearerClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "anchor.example.com",
			Subject:   "GABCD",
			IssuedAt:  jwt.NewNumericDate(past.Add(-BearerTokenTTL)),
			ExpiresAt: jwt.NewNumericDate(past),
		},
	}
	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	require.NoError(t, err)

	_, err = m.Verify(expired)
	assert.Error(t, err)
}

func Test_JWTManager_Verify_rejectsNonHMACAlg(t *testing.T) {
	m, err := NewJWTManager(strings.Repeat("a", MinJWTSecretLength))
	require.NoError(t, err)

	claims := BearerClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "anchor.example.com",
			Subject:   "GABCD",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodNone, claims)
	signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = m.Verify(signed)
	assert.Error(t, err)
}
