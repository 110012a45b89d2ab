// Package social runs a third-party login flow and reports its outcome.
package social

import (
	"context"
	"fmt"

	"github.com/atinyakov/gophlogin/internal/logger"
	"go.uber.org/zap"
)

// Result is what an SDK reports when its flow completes without error.
type Result struct {
	IsCancelled bool
	AccessToken string
}

// Callback receives the SDK completion. Exactly one of err or result is
// meaningful; result may be nil when err is set.
type Callback func(err error, result *Result)

// SDK starts an external login flow and invokes cb once it resolves.
type SDK interface {
	Login(ctx context.Context, cb Callback)
}

// Kind tags an Outcome.
type Kind int

const (
	KindError Kind = iota
	KindCancelled
	KindSuccess
)

func (k Kind) String() string {
	switch k {
	case KindSuccess:
		return "success"
	case KindCancelled:
		return "cancelled"
	default:
		return "error"
	}
}

// Outcome is the tagged result of a social login:
// Success(Token) | Cancelled | Error(Message).
type Outcome struct {
	Kind    Kind
	Token   string
	Message string
}

// TokenWriter persists a token obtained from a successful flow.
type TokenWriter interface {
	Set(ctx context.Context, token string) error
}

// Adapter turns SDK callbacks into Outcomes.
type Adapter struct {
	provider string
	sdk      SDK
	tokens   TokenWriter
	log      *zap.Logger
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithTokenStore forwards tokens from successful flows to w. Without it a
// success is reported but nothing is persisted.
func WithTokenStore(w TokenWriter) Option {
	return func(a *Adapter) { a.tokens = w }
}

// WithLogger sets the diagnostic logger.
func WithLogger(l *zap.Logger) Option {
	return func(a *Adapter) { a.log = logger.OrNop(l) }
}

// NewAdapter returns an adapter for the named provider.
func NewAdapter(provider string, sdk SDK, opts ...Option) *Adapter {
	a := &Adapter{provider: provider, sdk: sdk, log: zap.NewNop()}
	for _, o := range opts {
		o(a)
	}
	a.log = a.log.With(zap.String("provider", provider))
	return a
}

// Handle classifies one SDK completion.
func (a *Adapter) Handle(err error, result *Result) Outcome {
	switch {
	case err != nil:
		a.log.Error("social login failed", zap.Error(err))
		return Outcome{Kind: KindError, Message: err.Error()}
	case result == nil:
		a.log.Error("social login returned no result")
		return Outcome{Kind: KindError, Message: "no result"}
	case result.IsCancelled:
		a.log.Info("social login cancelled")
		return Outcome{Kind: KindCancelled}
	case result.AccessToken == "":
		a.log.Error("social login succeeded without token")
		return Outcome{Kind: KindError, Message: "no access token"}
	}
	a.log.Info("social login succeeded")
	return Outcome{Kind: KindSuccess, Token: result.AccessToken}
}

// Login runs the SDK flow and waits for its completion or for ctx.
// The returned error is non-nil only when the token could not be
// persisted or ctx ended first; SDK failures are reported in the Outcome.
func (a *Adapter) Login(ctx context.Context) (Outcome, error) {
	done := make(chan Outcome, 1)
	a.sdk.Login(ctx, func(err error, result *Result) {
		select {
		case done <- a.Handle(err, result):
		default:
			a.log.Warn("duplicate social login callback ignored")
		}
	})

	var out Outcome
	select {
	case out = <-done:
	case <-ctx.Done():
		return Outcome{Kind: KindError, Message: ctx.Err().Error()}, ctx.Err()
	}

	if out.Kind != KindSuccess || a.tokens == nil {
		return out, nil
	}
	if err := a.tokens.Set(ctx, out.Token); err != nil {
		return out, fmt.Errorf("persist social token: %w", err)
	}
	return out, nil
}
