package security

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/arad71/Vendor-saas-mvp/internal/app/policies"
)

// TokenVerifier validates HMAC-signed bearer tokens issued by the
// identity provider and extracts the caller identity the services trust
// as requester id.
type TokenVerifier struct {
	secret []byte
}

func NewTokenVerifier(secret string) *TokenVerifier {
	return &TokenVerifier{secret: []byte(secret)}
}

func (v *TokenVerifier) Verify(token string) (policies.Identity, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return v.secret, nil
	})
	if err != nil || !parsed.Valid {
		return policies.Identity{}, fmt.Errorf("%w: %v", policies.ErrUnauthorized, err)
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return policies.Identity{}, policies.ErrUnauthorized
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return policies.Identity{}, policies.ErrUnauthorized
	}
	role, _ := claims["role"].(string)
	return policies.Identity{ID: sub, Role: role}, nil
}

var _ policies.TokenVerifier = (*TokenVerifier)(nil)
