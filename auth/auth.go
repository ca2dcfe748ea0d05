// Package auth provides the authentication collaborator: user registration,
// token issuance, and token validation, backed by bcrypt-hashed credentials
// and HMAC-signed JWTs.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// minSecretLen is the minimum JWT secret length accepted.
const minSecretLen = 32

// Error reports an authentication failure: bad credentials, an invalid or
// expired token, or a duplicate registration.
type Error struct {
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Provider issues and validates access tokens for the HTTP layer. The
// workflow core never sees tokens; it assumes callers are authenticated.
type Provider struct {
	users    UserStore
	secret   []byte
	tokenTTL time.Duration
}

// claims are the JWT claims carried by issued tokens.
type claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// NewProvider creates a Provider signing tokens with HMAC-SHA256. The secret
// must be at least 32 bytes.
func NewProvider(users UserStore, secret string, tokenTTL time.Duration) (*Provider, error) {
	if len(secret) < minSecretLen {
		return nil, fmt.Errorf("jwt secret must be at least %d characters", minSecretLen)
	}
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	return &Provider{users: users, secret: []byte(secret), tokenTTL: tokenTTL}, nil
}

// Register creates a user with a bcrypt-hashed password.
func (p *Provider) Register(ctx context.Context, email, password string) (User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return User{}, &Error{Message: "email is required"}
	}
	if len(password) < 8 {
		return User{}, &Error{Message: "password must be at least 8 characters"}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, fmt.Errorf("failed to hash password: %w", err)
	}

	user := User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}
	if err := p.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, ErrUserExists) {
			return User{}, &Error{Message: "user already registered"}
		}
		return User{}, err
	}
	return user, nil
}

// IssueToken verifies credentials and returns a signed access token.
func (p *Provider) IssueToken(ctx context.Context, email, password string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := p.users.GetUser(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return "", &Error{Message: "invalid credentials"}
		}
		return "", err
	}

	if bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)) != nil {
		return "", &Error{Message: "invalid credentials"}
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Email: user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(p.tokenTTL)),
		},
	})

	signed, err := token.SignedString(p.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken checks a token's signature and expiry and returns the user ID
// it was issued to.
func (p *Provider) ValidateToken(tokenString string) (string, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return p.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", &Error{Message: "token expired"}
		}
		return "", &Error{Message: "invalid token"}
	}

	c, ok := parsed.Claims.(*claims)
	if !ok || !parsed.Valid || c.Subject == "" {
		return "", &Error{Message: "invalid token"}
	}
	return c.Subject, nil
}
