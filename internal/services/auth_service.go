package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/credential"
	applog "fintrack/internal/log"
	"fintrack/internal/store"
	"fintrack/internal/token"
)

const (
	msgEmailTaken   = "Email already registered"
	msgInvalidLogin = "Invalid email or password"
)

// Session is what register and login hand back to the client.
type Session struct {
	Token     string
	ExpiresAt time.Time
	User      core.User
}

// AuthService registers users, checks their credentials and issues tokens.
type AuthService struct {
	users  store.UserStore
	hasher *credential.Hasher
	tokens *token.Issuer
	logger *applog.Logger
}

func NewAuthService(users store.UserStore, hasher *credential.Hasher, tokens *token.Issuer, logger *applog.Logger) *AuthService {
	return &AuthService{
		users:  users,
		hasher: hasher,
		tokens: tokens,
		logger: logger.WithComponent(applog.ComponentAuth),
	}
}

func (s *AuthService) Register(ctx context.Context, name, email, password string) (Session, error) {
	name, email = strings.TrimSpace(name), strings.TrimSpace(email)
	if name == "" {
		return Session{}, core.Invalid("Name is required")
	}
	if email == "" {
		return Session{}, core.Invalid("Email is required")
	}

	// A taken email is reported before password problems. The unique
	// constraint in CreateUser covers concurrent registrations.
	switch _, err := s.users.FindUserByEmail(ctx, email); {
	case err == nil:
		return Session{}, emailTaken()
	case !errors.Is(err, core.ErrNotFound):
		return Session{}, fmt.Errorf("lookup user: %w", err)
	}

	if err := credential.ValidatePassword(password); err != nil {
		return Session{}, err
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return Session{}, err
	}

	user, err := s.users.CreateUser(ctx, name, email, hash)
	if errors.Is(err, core.ErrDuplicateEmail) {
		return Session{}, emailTaken()
	}
	if err != nil {
		return Session{}, fmt.Errorf("create user: %w", err)
	}

	s.logger.InfoContext(ctx, "User registered", applog.FieldUserID, user.ID, applog.FieldOperation, applog.OpRegister)
	return s.session(user)
}

// Login reports unknown emails and wrong passwords identically.
func (s *AuthService) Login(ctx context.Context, email, password string) (Session, error) {
	user, err := s.users.FindUserByEmail(ctx, strings.TrimSpace(email))
	if errors.Is(err, core.ErrNotFound) {
		return Session{}, core.Unauthorized(msgInvalidLogin)
	}
	if err != nil {
		return Session{}, fmt.Errorf("lookup user: %w", err)
	}
	if !s.hasher.Verify(password, user.PasswordHash) {
		s.logger.WarnContext(ctx, "Login rejected", applog.FieldUserID, user.ID, applog.FieldOperation, applog.OpLogin)
		return Session{}, core.Unauthorized(msgInvalidLogin)
	}
	return s.session(user)
}

// Me returns the acting user. A token whose user is gone is unauthorized.
func (s *AuthService) Me(ctx context.Context, userID int64) (core.User, error) {
	user, err := s.users.FindUserByID(ctx, userID)
	if errors.Is(err, core.ErrNotFound) {
		return core.User{}, core.Unauthorized("Not authenticated")
	}
	return user, err
}

// Resolve maps a bearer token to the user id it was issued for.
func (s *AuthService) Resolve(raw string) (int64, error) {
	return s.tokens.Resolve(raw)
}

func (s *AuthService) session(user core.User) (Session, error) {
	tok, exp, err := s.tokens.Issue(user.ID)
	if err != nil {
		return Session{}, fmt.Errorf("issue token: %w", err)
	}
	return Session{Token: tok, ExpiresAt: exp, User: user}, nil
}

func emailTaken() error {
	return &core.Error{Kind: core.ErrDuplicateEmail, Message: msgEmailTaken}
}
