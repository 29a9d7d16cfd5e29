// Package session identifies the signed-in user.
package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/zombor/billed/internal/route"
)

// UserType is the role of a user
type UserType string

const (
	Employee UserType = "Employee"
	Admin    UserType = "Admin"
)

// User is the signed-in user
type User struct {
	Type  UserType `json:"type"`
	Email string   `json:"email"`
}

// Home returns the view a user lands on after signing in
func (u User) Home() route.Path {
	if u.Type == Admin {
		return route.PathDashboard
	}
	return route.PathBills
}

// ErrInvalidToken is returned for tokens that are malformed, forged or expired
var ErrInvalidToken = errors.New("invalid session token")

// Claims are the JWT claims carried by the session cookie
type Claims struct {
	Type UserType `json:"type"`
	jwt.RegisteredClaims
}

// Issuer signs and verifies session tokens
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewIssuer creates an Issuer signing with secret. Tokens expire after ttl.
func NewIssuer(secret string, ttl time.Duration) (*Issuer, error) {
	if secret == "" {
		return nil, errors.New("session secret is required")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Issuer{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// Issue returns a signed token for u and its expiry
func (i *Issuer) Issue(u User) (string, time.Time, error) {
	now := i.now()
	expiresAt := now.Add(i.ttl)

	claims := Claims{
		Type: u.Type,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.Email,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing session token: %w", err)
	}
	return token, expiresAt, nil
}

// Parse verifies a token and returns the user it was issued for
func (i *Issuer) Parse(token string) (User, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil || !parsed.Valid {
		return User{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return User{Type: claims.Type, Email: claims.Subject}, nil
}
