// Package login submits validated credentials to the authentication
// endpoint and hands the issued token to persistence and session state.
package login

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"

	"github.com/atinyakov/gophlogin/internal/client/session"
	"github.com/atinyakov/gophlogin/internal/form"
	"github.com/atinyakov/gophlogin/internal/logger"
	"github.com/atinyakov/gophlogin/internal/models"
	"go.uber.org/zap"
)

var (
	// ErrSubmitInFlight is returned when Submit is called while a previous
	// submission has not resolved yet.
	ErrSubmitInFlight = errors.New("login already in progress")
	// ErrRequestFailed wraps transport failures talking to the endpoint.
	ErrRequestFailed = errors.New("login request failed")
	// ErrMissingToken is returned when a success response carries no token.
	ErrMissingToken = errors.New("success response without access token")
)

// RejectedError reports a response whose statusCode is not 200.
type RejectedError struct {
	StatusCode int
	Message    string
}

func (e *RejectedError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("login rejected with status %d", e.StatusCode)
	}
	return fmt.Sprintf("login rejected with status %d: %s", e.StatusCode, e.Message)
}

// Authenticator performs the outbound authentication request.
type Authenticator interface {
	Login(ctx context.Context, creds models.Credentials) (*models.LoginResponse, error)
}

// TokenWriter persists an issued token.
type TokenWriter interface {
	Set(ctx context.Context, token string) error
}

// Result is the outcome of a successful submission.
type Result struct {
	AccessToken string
}

// Controller wires the authenticator to persistence. It allows one
// submission at a time.
type Controller struct {
	auth    Authenticator
	tokens  TokenWriter
	session *session.State
	log     *zap.Logger

	inFlight atomic.Bool
}

// Option configures a Controller.
type Option func(*Controller)

// WithSession mirrors issued tokens into s.
func WithSession(s *session.State) Option {
	return func(c *Controller) { c.session = s }
}

// WithLogger sets the diagnostic logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Controller) { c.log = logger.OrNop(l) }
}

// NewController returns a Controller using auth and tokens.
func NewController(auth Authenticator, tokens TokenWriter, opts ...Option) *Controller {
	c := &Controller{auth: auth, tokens: tokens, log: zap.NewNop()}
	for _, o := range opts {
		o(c)
	}
	return c
}

// InFlight reports whether a submission is currently running.
func (c *Controller) InFlight() bool { return c.inFlight.Load() }

// Submit validates creds, issues one authentication request and, only on
// statusCode 200, stores the returned token.
func (c *Controller) Submit(ctx context.Context, creds models.Credentials) (Result, error) {
	if res := form.Validate(form.Values{Email: creds.Email, Password: creds.Password}); !res.Valid() {
		return Result{}, &form.ValidationError{Result: res}
	}

	if !c.inFlight.CompareAndSwap(false, true) {
		return Result{}, ErrSubmitInFlight
	}
	defer c.inFlight.Store(false)

	log := c.log.With(zap.String("email", creds.Email))

	resp, err := c.auth.Login(ctx, creds)
	if err != nil {
		log.Error("login request failed", zap.Error(err))
		return Result{}, fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}
	if resp == nil {
		log.Error("login request returned no response")
		return Result{}, fmt.Errorf("%w: empty response", ErrRequestFailed)
	}

	if resp.StatusCode != http.StatusOK {
		log.Warn("login rejected",
			zap.Int("status_code", resp.StatusCode),
			zap.String("message", resp.Message),
		)
		return Result{}, &RejectedError{StatusCode: resp.StatusCode, Message: resp.Message}
	}

	token := resp.Content.AccessToken
	if token == "" {
		log.Error("login response without access token")
		return Result{}, ErrMissingToken
	}

	if err := c.tokens.Set(ctx, token); err != nil {
		return Result{}, err
	}

	if c.session != nil {
		if err := c.session.Dispatch(session.Event{Type: session.ActionSetAccessToken, Payload: token}); err != nil {
			log.Error("failed to update session state", zap.Error(err))
			return Result{}, err
		}
	}

	log.Info("login succeeded")
	return Result{AccessToken: token}, nil
}
