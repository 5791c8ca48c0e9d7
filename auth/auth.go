/*
Package auth is the authentication collaborator: a caller presents a
credential pair and receives a bearer token carrying a role tag.

PURPOSE:
  The core only needs the role tag (Owner or Manager) to decide whether
  structural room edits (label/rate), the customer directory, and
  clearing notifications are permitted. Token mechanics are contained
  here.

TOKENS:
  HS256 JWTs with a role claim, 24h expiry. Credentials are verified
  against bcrypt hashes held in memory; accounts are seeded at startup
  from the environment.

SEE ALSO:
  - api/server.go: middleware extracting the role from the token
*/
package auth

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/lakeview/frontdesk-engine/core"
)

var (
	// ErrInvalidCredentials is returned for an unknown user or wrong
	// password. The two cases are deliberately indistinguishable.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrTokenInvalid is returned for a missing, malformed, expired, or
	// tampered bearer token.
	ErrTokenInvalid = errors.New("invalid or expired token")
)

// Claims is the JWT payload: the username and its role tag.
type Claims struct {
	Username string    `json:"username"`
	Role     core.Role `json:"role"`
	jwt.RegisteredClaims
}

type account struct {
	hash []byte
	role core.Role
}

// Service verifies credentials and issues/parses bearer tokens.
type Service struct {
	secret []byte
	ttl    time.Duration

	mu       sync.RWMutex
	accounts map[string]account
}

// NewService creates a Service signing tokens with secret.
func NewService(secret string) *Service {
	return &Service{
		secret:   []byte(secret),
		ttl:      24 * time.Hour,
		accounts: make(map[string]account),
	}
}

// AddUser registers a credential pair with the given role. The password
// is stored as a bcrypt hash only.
func (s *Service) AddUser(username, password string, role core.Role) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	s.mu.Lock()
	s.accounts[username] = account{hash: hash, role: role}
	s.mu.Unlock()
	return nil
}

// Authenticate verifies the credential pair and returns a signed bearer
// token plus the account's role tag.
func (s *Service) Authenticate(username, password string) (token string, role core.Role, err error) {
	s.mu.RLock()
	acct, ok := s.accounts[username]
	s.mu.RUnlock()
	if !ok {
		return "", "", ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword(acct.hash, []byte(password)) != nil {
		return "", "", ErrInvalidCredentials
	}

	now := time.Now()
	claims := &Claims{
		Username: username,
		Role:     acct.role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	token, err = jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", "", err
	}
	return token, acct.role, nil
}

// ParseToken validates a bearer token and returns its claims.
func (s *Service) ParseToken(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrTokenInvalid
	}
	claims, ok := token.Claims.(*Claims)
	if !ok {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}
