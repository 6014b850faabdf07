package engine

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	dErrors "oidcgate/pkg/domain-errors"
)

// AccessClaims are the claims minted into access tokens.
type AccessClaims struct {
	ClientID string `json:"client_id"`
	Scope    string `json:"scope"`
	jwt.RegisteredClaims
}

// IDClaims are the claims minted into ID tokens.
type IDClaims struct {
	Nonce    string `json:"nonce,omitempty"`
	AuthTime int64  `json:"auth_time,omitempty"`
	jwt.RegisteredClaims
}

// Signer mints and verifies the provider's HS256 tokens.
type Signer struct {
	signingKey []byte
	issuer     string
	audience   string
}

// NewSigner builds a signer. audience, when non-empty, is minted into access
// tokens so resource servers can check they are the intended recipient.
func NewSigner(signingKey, issuer, audience string) *Signer {
	return &Signer{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		audience:   audience,
	}
}

// SignAccessToken mints a compact access token bound to the subject, client
// and scope. Returns the signed value and its jti.
func (s *Signer) SignAccessToken(accountID, clientID, scope string, now time.Time, ttl time.Duration) (string, string, error) {
	jti := uuid.NewString()
	registered := jwt.RegisteredClaims{
		Subject:   accountID,
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		IssuedAt:  jwt.NewNumericDate(now),
		Issuer:    s.issuer,
		ID:        jti,
	}
	if s.audience != "" {
		registered.Audience = []string{s.audience}
	}
	newToken := jwt.NewWithClaims(jwt.SigningMethodHS256, AccessClaims{
		ClientID:         clientID,
		Scope:            scope,
		RegisteredClaims: registered,
	})

	signed, err := newToken.SignedString(s.signingKey)
	if err != nil {
		return "", "", err
	}
	return signed, jti, nil
}

// SignIDToken mints the ID token for a code exchange. The audience is the
// requesting client.
func (s *Signer) SignIDToken(accountID, clientID, nonce string, authTime, now time.Time, ttl time.Duration) (string, error) {
	newToken := jwt.NewWithClaims(jwt.SigningMethodHS256, IDClaims{
		Nonce:    nonce,
		AuthTime: authTime.Unix(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.issuer,
			Audience:  []string{clientID},
			ID:        uuid.NewString(),
		},
	})
	return newToken.SignedString(s.signingKey)
}

// Verify parses and validates a signed access token.
func (s *Signer) Verify(tokenString string) (*AccessClaims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &AccessClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	if !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	claims, ok := parsed.Claims.(*AccessClaims)
	if !ok {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	return claims, nil
}
