package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/atinyakov/gophlogin/internal/form"
	"github.com/atinyakov/gophlogin/internal/models"
	"github.com/atinyakov/gophlogin/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

type mockUserRepo struct {
	CreateUserFunc     func(ctx context.Context, u models.User) error
	GetUserByEmailFunc func(ctx context.Context, email string) (models.User, error)
}

func (m *mockUserRepo) CreateUser(ctx context.Context, u models.User) error {
	return m.CreateUserFunc(ctx, u)
}
func (m *mockUserRepo) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	return m.GetUserByEmailFunc(ctx, email)
}

// memSessions is an in-memory SessionRepository.
type memSessions struct {
	saved map[string]models.Session
	err   error
}

func newMemSessions() *memSessions { return &memSessions{saved: map[string]models.Session{}} }

func (m *memSessions) SaveSession(_ context.Context, s models.Session) error {
	if m.err != nil {
		return m.err
	}
	m.saved[s.ID] = s
	return nil
}
func (m *memSessions) SessionExists(_ context.Context, id string) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	_, ok := m.saved[id]
	return ok, nil
}
func (m *memSessions) DeleteSession(_ context.Context, id string) error {
	delete(m.saved, id)
	return nil
}

func newTestService(users UserRepository, sessions SessionRepository) *Service {
	return NewAuthService(users, sessions, NewTokenIssuer([]byte("test-secret"), time.Hour), WithHashCost(bcrypt.MinCost))
}

func hashed(t *testing.T, password string) []byte {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	return h
}

func TestRegister_Success(t *testing.T) {
	var stored models.User
	repo := &mockUserRepo{
		CreateUserFunc: func(ctx context.Context, u models.User) error {
			stored = u
			return nil
		},
	}
	svc := newTestService(repo, newMemSessions())

	u, err := svc.Register(context.Background(), models.Credentials{Email: " Alice@Example.com ", Password: "secret1"})
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if u.ID == "" || u.ID != stored.ID {
		t.Errorf("Register returned id %q, repo got %q", u.ID, stored.ID)
	}
	if stored.Email != "alice@example.com" {
		t.Errorf("stored email = %q; want normalized", stored.Email)
	}
	if err := bcrypt.CompareHashAndPassword(stored.PasswordHash, []byte("secret1")); err != nil {
		t.Errorf("stored hash does not match password: %v", err)
	}
}

func TestRegister_InvalidForm(t *testing.T) {
	repo := &mockUserRepo{
		CreateUserFunc: func(ctx context.Context, u models.User) error {
			t.Fatal("CreateUser must not be called for invalid input")
			return nil
		},
	}
	svc := newTestService(repo, newMemSessions())

	_, err := svc.Register(context.Background(), models.Credentials{Email: "nope", Password: "123"})
	var verr *form.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Register error = %v; want *form.ValidationError", err)
	}
	if verr.Result.Error(form.FieldEmail) == "" || verr.Result.Error(form.FieldPassword) == "" {
		t.Errorf("expected both fields to fail, got %v", verr.Result)
	}
}

func TestRegister_Duplicate(t *testing.T) {
	repo := &mockUserRepo{
		CreateUserFunc: func(ctx context.Context, u models.User) error {
			return repository.ErrUserExists
		},
	}
	svc := newTestService(repo, newMemSessions())

	_, err := svc.Register(context.Background(), models.Credentials{Email: "alice@example.com", Password: "secret1"})
	if !errors.Is(err, ErrUserExists) {
		t.Fatalf("Register error = %v; want ErrUserExists", err)
	}
}

func TestLogin_IssuesTokenForOpenSession(t *testing.T) {
	repo := &mockUserRepo{
		GetUserByEmailFunc: func(ctx context.Context, email string) (models.User, error) {
			if email != "alice@example.com" {
				t.Errorf("GetUserByEmail received %q", email)
			}
			return models.User{ID: "u1", Email: email, PasswordHash: hashed(t, "secret1")}, nil
		},
	}
	sessions := newMemSessions()
	svc := newTestService(repo, sessions)

	token, err := svc.Login(context.Background(), models.Credentials{Email: "Alice@example.com", Password: "secret1"})
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	if len(sessions.saved) != 1 {
		t.Fatalf("expected one session, got %d", len(sessions.saved))
	}

	claims, err := svc.Authenticate(context.Background(), token)
	if err != nil {
		t.Fatalf("Authenticate returned error: %v", err)
	}
	if claims.UserID() != "u1" || claims.Email != "alice@example.com" {
		t.Errorf("unexpected claims %+v", claims)
	}
	if _, ok := sessions.saved[claims.SessionID()]; !ok {
		t.Errorf("token jti %q does not name the saved session", claims.SessionID())
	}

	if err := svc.Logout(context.Background(), claims); err != nil {
		t.Fatalf("Logout returned error: %v", err)
	}
	if _, err := svc.Authenticate(context.Background(), token); !errors.Is(err, ErrSessionRevoked) {
		t.Errorf("Authenticate after logout = %v; want ErrSessionRevoked", err)
	}
}

func TestLogin_InvalidCredentials(t *testing.T) {
	cases := []struct {
		name     string
		password string
		lookup   error
	}{
		{"unknown email", "secret1", repository.ErrUserNotFound},
		{"wrong password", "wrong12", nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := &mockUserRepo{
				GetUserByEmailFunc: func(ctx context.Context, email string) (models.User, error) {
					if tc.lookup != nil {
						return models.User{}, tc.lookup
					}
					return models.User{ID: "u1", Email: email, PasswordHash: hashed(t, "secret1")}, nil
				},
			}
			sessions := newMemSessions()
			svc := newTestService(repo, sessions)

			_, err := svc.Login(context.Background(), models.Credentials{Email: "alice@example.com", Password: tc.password})
			if !errors.Is(err, ErrInvalidCredentials) {
				t.Fatalf("Login error = %v; want ErrInvalidCredentials", err)
			}
			if len(sessions.saved) != 0 {
				t.Errorf("no session must be opened on failure")
			}
		})
	}
}

func TestLogin_RepositoryError(t *testing.T) {
	wantErr := errors.New("db error")
	repo := &mockUserRepo{
		GetUserByEmailFunc: func(ctx context.Context, email string) (models.User, error) {
			return models.User{}, wantErr
		},
	}
	svc := newTestService(repo, newMemSessions())

	_, err := svc.Login(context.Background(), models.Credentials{Email: "alice@example.com", Password: "secret1"})
	if !errors.Is(err, wantErr) {
		t.Fatalf("Login error = %v; want %v", err, wantErr)
	}
}

func TestAuthenticate_GarbageToken(t *testing.T) {
	svc := newTestService(&mockUserRepo{}, newMemSessions())

	if _, err := svc.Authenticate(context.Background(), "not-a-jwt"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Authenticate error = %v; want ErrInvalidToken", err)
	}
}
