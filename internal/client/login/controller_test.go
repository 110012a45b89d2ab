package login

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/atinyakov/gophlogin/internal/client/session"
	"github.com/atinyakov/gophlogin/internal/client/storage"
	"github.com/atinyakov/gophlogin/internal/form"
	"github.com/atinyakov/gophlogin/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

var validCreds = models.Credentials{Email: "alice@example.com", Password: "secret1"}

// fakeAuth returns a canned response and counts calls. When release is
// set, Login blocks until it is closed.
type fakeAuth struct {
	mu      sync.Mutex
	calls   int
	resp    *models.LoginResponse
	err     error
	started chan struct{}
	release chan struct{}
}

func (f *fakeAuth) Login(ctx context.Context, creds models.Credentials) (*models.LoginResponse, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.release != nil {
		close(f.started)
		<-f.release
	}
	return f.resp, f.err
}

type recordingKV struct {
	mu     sync.Mutex
	writes map[string]string
	err    error
}

func (r *recordingKV) Get(_ context.Context, key string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.writes[key]
	if !ok {
		return "", storage.ErrNotFound
	}
	return v, nil
}

func (r *recordingKV) Set(_ context.Context, key, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	if r.writes == nil {
		r.writes = map[string]string{}
	}
	r.writes[key] = value
	return nil
}

func (r *recordingKV) Delete(_ context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.writes, key)
	return nil
}

func (r *recordingKV) Close() error { return nil }

func ok(token string) *models.LoginResponse {
	return &models.LoginResponse{StatusCode: 200, Content: models.LoginContent{AccessToken: token}}
}

func TestSubmit_SuccessStoresToken(t *testing.T) {
	kv := &recordingKV{}
	auth := &fakeAuth{resp: ok("abc123")}
	c := NewController(auth, storage.NewTokenStore(kv, nil))

	res, err := c.Submit(context.Background(), validCreds)
	require.NoError(t, err)
	assert.Equal(t, "abc123", res.AccessToken)
	assert.Equal(t, map[string]string{"accessToken": "abc123"}, kv.writes)
	assert.Equal(t, 1, auth.calls)
}

func TestSubmit_SuccessWithFileStore(t *testing.T) {
	fs, err := storage.NewFileStore(filepath.Join(t.TempDir(), "storage.json"), nil)
	require.NoError(t, err)
	tokens := storage.NewTokenStore(fs, nil)
	c := NewController(&fakeAuth{resp: ok("abc123")}, tokens)

	_, err = c.Submit(context.Background(), validCreds)
	require.NoError(t, err)

	got, err := fs.Get(context.Background(), "accessToken")
	require.NoError(t, err)
	assert.Equal(t, "abc123", got)
}

func TestSubmit_RejectedWritesNothing(t *testing.T) {
	for _, status := range []int{401, 403, 500, 201} {
		kv := &recordingKV{}
		resp := &models.LoginResponse{StatusCode: status, Message: "nope", Content: models.LoginContent{AccessToken: "leaked"}}
		c := NewController(&fakeAuth{resp: resp}, storage.NewTokenStore(kv, nil))

		_, err := c.Submit(context.Background(), validCreds)
		var rej *RejectedError
		require.True(t, errors.As(err, &rej), "status %d: %v", status, err)
		assert.Equal(t, status, rej.StatusCode)
		assert.Equal(t, "nope", rej.Message)
		assert.Empty(t, kv.writes, "status %d", status)
	}
}

func TestSubmit_InvalidFormSkipsRequest(t *testing.T) {
	auth := &fakeAuth{resp: ok("abc123")}
	kv := &recordingKV{}
	c := NewController(auth, storage.NewTokenStore(kv, nil))

	_, err := c.Submit(context.Background(), models.Credentials{Email: "nope", Password: "123"})
	var verr *form.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, form.MsgEmailInvalid, verr.Result.Error(form.FieldEmail))
	assert.Equal(t, form.MsgPasswordShort, verr.Result.Error(form.FieldPassword))
	assert.Zero(t, auth.calls)
	assert.Empty(t, kv.writes)
}

func TestSubmit_NetworkErrorIsLoggedAndReturned(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	boom := errors.New("connection refused")
	kv := &recordingKV{}
	c := NewController(&fakeAuth{err: boom}, storage.NewTokenStore(kv, nil), WithLogger(zap.New(core)))

	_, err := c.Submit(context.Background(), validCreds)
	assert.ErrorIs(t, err, ErrRequestFailed)
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, kv.writes)
	require.Equal(t, 1, logs.FilterMessage("login request failed").Len())
	assert.False(t, c.InFlight())
}

func TestSubmit_NilResponseIsRequestFailure(t *testing.T) {
	kv := &recordingKV{}
	c := NewController(&fakeAuth{}, storage.NewTokenStore(kv, nil))

	var err error
	require.NotPanics(t, func() {
		_, err = c.Submit(context.Background(), validCreds)
	})
	assert.ErrorIs(t, err, ErrRequestFailed)
	assert.Empty(t, kv.writes)
	assert.False(t, c.InFlight())
}

func TestSubmit_MissingToken(t *testing.T) {
	kv := &recordingKV{}
	c := NewController(&fakeAuth{resp: ok("")}, storage.NewTokenStore(kv, nil))

	_, err := c.Submit(context.Background(), validCreds)
	assert.ErrorIs(t, err, ErrMissingToken)
	assert.Empty(t, kv.writes)
}

func TestSubmit_StoreFailure(t *testing.T) {
	boom := errors.New("read-only file system")
	st := session.NewState()
	c := NewController(&fakeAuth{resp: ok("abc123")}, storage.NewTokenStore(&recordingKV{err: boom}, nil), WithSession(st))

	_, err := c.Submit(context.Background(), validCreds)
	assert.ErrorIs(t, err, boom)
	_, has := st.AccessToken()
	assert.False(t, has, "session must not see a token that was not persisted")
}

func TestSubmit_MirrorsIntoSession(t *testing.T) {
	st := session.NewState()
	c := NewController(&fakeAuth{resp: ok("abc123")}, storage.NewTokenStore(&recordingKV{}, nil), WithSession(st))

	_, err := c.Submit(context.Background(), validCreds)
	require.NoError(t, err)

	token, has := st.AccessToken()
	require.True(t, has)
	assert.Equal(t, "abc123", token)
}

func TestSubmit_RejectsConcurrentSubmit(t *testing.T) {
	auth := &fakeAuth{
		resp:    ok("abc123"),
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	kv := &recordingKV{}
	c := NewController(auth, storage.NewTokenStore(kv, nil))

	done := make(chan error, 1)
	go func() {
		_, err := c.Submit(context.Background(), validCreds)
		done <- err
	}()

	<-auth.started
	assert.True(t, c.InFlight())
	_, err := c.Submit(context.Background(), validCreds)
	assert.ErrorIs(t, err, ErrSubmitInFlight)

	close(auth.release)
	require.NoError(t, <-done)
	assert.Equal(t, 1, auth.calls)
	assert.False(t, c.InFlight())

	// once resolved, a new submit is accepted again
	auth.release = nil
	_, err = c.Submit(context.Background(), validCreds)
	require.NoError(t, err)
	assert.Equal(t, 2, auth.calls)
}
