package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"restaurant-ops/internal/domain"
)

type AuthenticationFailedError struct {
	Reason string
}

func (e *AuthenticationFailedError) Error() string {
	return "authentication failed: " + e.Reason
}

type claims struct {
	UserID    string `json:"user_id"`
	CompanyID string `json:"company_id"`
	Role      string `json:"role"`
	Username  string `json:"username"`
	jwt.RegisteredClaims
}

// Verifier issues and validates the bearer tokens shared by the REST API and
// the realtime handshake.
type Verifier struct {
	secret []byte
	ttl    time.Duration
}

func NewVerifier(secret string, ttl time.Duration) *Verifier {
	return &Verifier{secret: []byte(secret), ttl: ttl}
}

func (v *Verifier) Issue(id domain.Identity) (string, error) {
	now := time.Now().UTC()
	c := claims{
		UserID:    id.UserID,
		CompanyID: id.CompanyID,
		Role:      string(id.Role),
		Username:  id.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(v.ttl)),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := t.SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func (v *Verifier) Verify(token string) (domain.Identity, error) {
	var c claims
	parsed, err := jwt.ParseWithClaims(token, &c, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return v.secret, nil
	})
	if err != nil || !parsed.Valid {
		return domain.Identity{}, &AuthenticationFailedError{Reason: "invalid or expired token"}
	}
	id := domain.Identity{
		UserID:    c.UserID,
		CompanyID: c.CompanyID,
		Role:      domain.Role(c.Role),
		Username:  c.Username,
	}
	if id.UserID == "" || id.CompanyID == "" || !id.Role.Valid() {
		return domain.Identity{}, &AuthenticationFailedError{Reason: "incomplete claims"}
	}
	return id, nil
}
