// Package service provides authentication business logic,
// delegating persistence to user and session repositories.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/atinyakov/gophlogin/internal/form"
	"github.com/atinyakov/gophlogin/internal/logger"
	"github.com/atinyakov/gophlogin/internal/models"
	"github.com/atinyakov/gophlogin/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrUserExists is returned by Register for an email already taken.
	ErrUserExists = errors.New("user already exists")
	// ErrInvalidCredentials is returned by Login for an unknown email or
	// a wrong password. The two cases are not distinguished.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrSessionRevoked is returned by Authenticate when the token's
	// session no longer exists.
	ErrSessionRevoked = errors.New("session revoked")
)

// UserRepository defines the user persistence operations
// required by the authentication service.
type UserRepository interface {
	// CreateUser stores a new user. It returns repository.ErrUserExists
	// for a duplicate email.
	CreateUser(ctx context.Context, u models.User) error
	// GetUserByEmail returns repository.ErrUserNotFound when absent.
	GetUserByEmail(ctx context.Context, email string) (models.User, error)
}

// SessionRepository defines the session persistence operations.
type SessionRepository interface {
	SaveSession(ctx context.Context, s models.Session) error
	SessionExists(ctx context.Context, id string) (bool, error)
	DeleteSession(ctx context.Context, id string) error
}

// Service implements authentication operations by delegating
// to the repositories and the token issuer.
type Service struct {
	users    UserRepository
	sessions SessionRepository
	tokens   *TokenIssuer
	log      *zap.Logger
	hashCost int
	now      func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithHashCost overrides the bcrypt cost.
func WithHashCost(cost int) Option {
	return func(s *Service) { s.hashCost = cost }
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(log *zap.Logger) Option {
	return func(s *Service) { s.log = logger.OrNop(log) }
}

// NewAuthService constructs a new Service.
func NewAuthService(users UserRepository, sessions SessionRepository, tokens *TokenIssuer, opts ...Option) *Service {
	s := &Service{
		users:    users,
		sessions: sessions,
		tokens:   tokens,
		log:      zap.NewNop(),
		hashCost: bcrypt.DefaultCost,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register validates the credentials with the same rules as the client
// form and creates the account. Invalid input yields *form.ValidationError.
func (s *Service) Register(ctx context.Context, creds models.Credentials) (models.User, error) {
	if res := form.Validate(form.Values{Email: creds.Email, Password: creds.Password}); !res.Valid() {
		return models.User{}, &form.ValidationError{Result: res}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(creds.Password), s.hashCost)
	if err != nil {
		return models.User{}, fmt.Errorf("hash password: %w", err)
	}
	u := models.User{
		ID:           uuid.NewString(),
		Email:        normalizeEmail(creds.Email),
		PasswordHash: hash,
	}
	if err := s.users.CreateUser(ctx, u); err != nil {
		if errors.Is(err, repository.ErrUserExists) {
			return models.User{}, ErrUserExists
		}
		return models.User{}, err
	}
	s.log.Info("user registered", zap.String("user_id", u.ID))
	return u, nil
}

// Login checks creds, opens a session and returns a signed access token.
func (s *Service) Login(ctx context.Context, creds models.Credentials) (string, error) {
	u, err := s.users.GetUserByEmail(ctx, normalizeEmail(creds.Email))
	if errors.Is(err, repository.ErrUserNotFound) {
		return "", ErrInvalidCredentials
	}
	if err != nil {
		return "", err
	}
	if err := bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(creds.Password)); err != nil {
		return "", ErrInvalidCredentials
	}

	sess := models.Session{ID: uuid.NewString(), UserID: u.ID, CreatedAt: s.now().UTC()}
	if err := s.sessions.SaveSession(ctx, sess); err != nil {
		return "", err
	}
	token, err := s.tokens.Issue(u.ID, u.Email, sess.ID)
	if err != nil {
		return "", err
	}
	s.log.Debug("session opened", zap.String("user_id", u.ID), zap.String("session_id", sess.ID))
	return token, nil
}

// Authenticate verifies the token and that its session is still open.
func (s *Service) Authenticate(ctx context.Context, token string) (*Claims, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil, err
	}
	ok, err := s.sessions.SessionExists(ctx, claims.SessionID())
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrSessionRevoked
	}
	return claims, nil
}

// Logout closes the session the claims belong to.
func (s *Service) Logout(ctx context.Context, claims *Claims) error {
	return s.sessions.DeleteSession(ctx, claims.SessionID())
}
