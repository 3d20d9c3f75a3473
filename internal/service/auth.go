package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"riffd/internal/model"
	"riffd/internal/pkg/token"
	"riffd/internal/repository"
)

var (
	usernameRe = regexp.MustCompile(`^[A-Za-z0-9_]{3,20}$`)
	emailRe    = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

const minPasswordLen = 6

// UserStore is the persistence contract for accounts.
type UserStore interface {
	Create(ctx context.Context, username, email, passwordHash string) (*model.User, error)
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
}

// Auth handles registration and login. The riff engine itself never
// authenticates; it consumes the identity this service establishes.
type Auth struct {
	users      UserStore
	tokens     *token.Manager
	bcryptCost int
}

// NewAuth creates an Auth service.
func NewAuth(users UserStore, tokens *token.Manager, bcryptCost int) *Auth {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Auth{users: users, tokens: tokens, bcryptCost: bcryptCost}
}

// Register creates an account and returns the user with a signed token.
func (a *Auth) Register(ctx context.Context, email, password, username string) (*model.User, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	username = strings.TrimSpace(username)

	if !usernameRe.MatchString(username) {
		return nil, "", ErrInvalidUsername
	}
	if !emailRe.MatchString(email) {
		return nil, "", ErrInvalidEmail
	}
	if len(password) < minPasswordLen {
		return nil, "", ErrWeakPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), a.bcryptCost)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := a.users.Create(ctx, username, email, string(hash))
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrUsernameTaken):
			return nil, "", ErrUsernameTaken
		case errors.Is(err, repository.ErrEmailTaken):
			return nil, "", ErrEmailTaken
		}
		return nil, "", fmt.Errorf("failed to create user: %w", err)
	}

	signed, err := a.tokens.Issue(user.ID, user.Username)
	if err != nil {
		return nil, "", fmt.Errorf("failed to issue token: %w", err)
	}
	return user, signed, nil
}

// Login verifies credentials and returns the user with a signed token.
// Unknown email and wrong password are indistinguishable to the caller.
func (a *Auth) Login(ctx context.Context, email, password string) (*model.User, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := a.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", fmt.Errorf("failed to load user: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, "", ErrInvalidCredentials
	}

	signed, err := a.tokens.Issue(user.ID, user.Username)
	if err != nil {
		return nil, "", fmt.Errorf("failed to issue token: %w", err)
	}
	return user, signed, nil
}

// Profile returns a user's public profile including the medal tally.
func (a *Auth) Profile(ctx context.Context, userID string) (*model.User, error) {
	user, err := a.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return user, nil
}
