package authclient

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"retensync.io/internal/rbac"
)

const demoIssuer = "retensync-demo"

// ErrInvalidDemoToken indicates a demo token failed verification.
var ErrInvalidDemoToken = errors.New("authclient: invalid demo token")

type demoClaims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// mintDemoToken signs an HS256 token for a synthesized demo session.
func (c *Client) mintDemoToken(userID, email string, role rbac.Role) (string, time.Time, error) {
	if len(c.demoSecret) == 0 {
		return "", time.Time{}, errors.New("authclient: demo secret is not configured")
	}
	now := c.now().UTC()
	expiresAt := now.Add(c.tokenTTL)
	claims := demoClaims{
		Email: email,
		Role:  string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    demoIssuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.demoSecret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// ParseDemoToken verifies a locally synthesized token and returns the
// identity it carries.
func (c *Client) ParseDemoToken(token string) (userID, email string, role rbac.Role, err error) {
	parsed, err := jwt.ParseWithClaims(token, &demoClaims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, ErrInvalidDemoToken
		}
		return c.demoSecret, nil
	}, jwt.WithIssuer(demoIssuer), jwt.WithExpirationRequired())
	if err != nil {
		return "", "", "", ErrInvalidDemoToken
	}
	claims, ok := parsed.Claims.(*demoClaims)
	if !ok || !parsed.Valid {
		return "", "", "", ErrInvalidDemoToken
	}
	parsedRole, ok := rbac.Parse(claims.Role)
	if !ok {
		return "", "", "", ErrInvalidDemoToken
	}
	return claims.Subject, claims.Email, parsedRole, nil
}
