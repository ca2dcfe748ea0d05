package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

// ErrUserExists is returned when registering an email that is already taken.
var ErrUserExists = errors.New("user already exists")

// ErrUserNotFound is returned when a lookup misses.
var ErrUserNotFound = errors.New("user not found")

// User is one registered account.
type User struct {
	ID           string
	Email        string
	PasswordHash []byte
	CreatedAt    time.Time
}

// UserStore is the opaque user persistence collaborator.
type UserStore interface {
	// CreateUser stores a new user; ErrUserExists if the email is taken.
	CreateUser(ctx context.Context, user User) error

	// GetUser looks a user up by email; ErrUserNotFound on miss.
	GetUser(ctx context.Context, email string) (User, error)
}

// SQLUserStore persists users through database/sql. It works with both the
// sqlite and mysql drivers used by the run store.
type SQLUserStore struct {
	db *sql.DB
}

// NewSQLUserStore creates the users table if needed and returns the store.
func NewSQLUserStore(db *sql.DB) (*SQLUserStore, error) {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS users (
		id            VARCHAR(64) PRIMARY KEY,
		email         VARCHAR(255) NOT NULL UNIQUE,
		password_hash VARCHAR(255) NOT NULL,
		created_at    TIMESTAMP NOT NULL
	)`)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize users table: %w", err)
	}
	return &SQLUserStore{db: db}, nil
}

// CreateUser implements UserStore.
func (s *SQLUserStore) CreateUser(ctx context.Context, user User) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, email, password_hash, created_at) VALUES (?, ?, ?, ?)`,
		user.ID, user.Email, string(user.PasswordHash), user.CreatedAt)
	if err != nil {
		// Both drivers report unique violations with "UNIQUE"/"Duplicate"
		// in the message.
		msg := strings.ToLower(err.Error())
		if strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate") {
			return ErrUserExists
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetUser implements UserStore.
func (s *SQLUserStore) GetUser(ctx context.Context, email string) (User, error) {
	var user User
	var hash string

	row := s.db.QueryRowContext(ctx,
		`SELECT id, email, password_hash, created_at FROM users WHERE email = ?`, email)
	err := row.Scan(&user.ID, &user.Email, &hash, &user.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrUserNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("failed to load user: %w", err)
	}

	user.PasswordHash = []byte(hash)
	return user, nil
}

// MemUserStore is an in-memory UserStore for tests and the memory store
// driver.
type MemUserStore struct {
	mu    sync.RWMutex
	users map[string]User
}

// NewMemUserStore creates an empty in-memory user store.
func NewMemUserStore() *MemUserStore {
	return &MemUserStore{users: make(map[string]User)}
}

// CreateUser implements UserStore.
func (m *MemUserStore) CreateUser(_ context.Context, user User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.users[user.Email]; exists {
		return ErrUserExists
	}
	m.users[user.Email] = user
	return nil
}

// GetUser implements UserStore.
func (m *MemUserStore) GetUser(_ context.Context, email string) (User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	user, exists := m.users[email]
	if !exists {
		return User{}, ErrUserNotFound
	}
	return user, nil
}
