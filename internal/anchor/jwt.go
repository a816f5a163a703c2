package anchor

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// MinJWTSecretLength is the minimum shared-secret length accepted by
// NewJWTManager (§3 "Bearer token", §6.3 boundary behavior: 31 octets
// fails, 32 succeeds).
const MinJWTSecretLength = 32

// BearerTokenTTL is the lifetime of a minted bearer token (§3).
const BearerTokenTTL = 24 * time.Hour

// BearerClaims is the signed claim set described in §3: issuer = operator
// domain, subject = authenticated account address, standard iat/exp.
type BearerClaims struct {
	jwt.RegisteredClaims
}

// JWTManager mints and verifies bearer tokens with HMAC-SHA256.
type JWTManager struct {
	secret []byte
}

// NewJWTManager validates the secret length and returns a manager. A secret
// shorter than MinJWTSecretLength is a startup configuration error (§6.3).
func NewJWTManager(secret string) (*JWTManager, error) {
	if len(secret) < MinJWTSecretLength {
		return nil, fmt.Errorf("jwt_secret must be at least %d octets, got %d", MinJWTSecretLength, len(secret))
	}
	return &JWTManager{secret: []byte(secret)}, nil
}

// Issue mints a bearer token for subject, signed by issuer's domain.
func (m *JWTManager) Issue(issuer, subject string) (string, error) {
	now := time.Now()
	claims := BearerClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(BearerTokenTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// Verify parses and validates tokenString, rejecting a non-HMAC alg,
// a bad signature, or an expired token (P4).
func (m *JWTManager) Verify(tokenString string) (*BearerClaims, error) {
	claims := &BearerClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid bearer token")
	}
	return claims, nil
}
