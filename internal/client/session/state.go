// Package session holds authentication-derived values in memory for the
// lifetime of the process. A State is created explicitly and passed to
// whoever needs it; there is no package-level instance.
package session

import (
	"errors"
	"fmt"
	"sync"

	"github.com/atinyakov/gophlogin/internal/models"
	gocache "github.com/patrickmn/go-cache"
)

// Action types accepted by Dispatch.
const (
	ActionSetAccessToken   = "SET_ACCESS_TOKEN"
	ActionClearAccessToken = "CLEAR_ACCESS_TOKEN"
)

// ErrUnknownAction is returned by Dispatch for unsupported event types.
var ErrUnknownAction = errors.New("unknown session action")

// Event is a state change request.
type Event struct {
	Type    string
	Payload string
}

// Listener is notified after an event has been applied.
type Listener func(Event)

// State is an in-memory store of session values.
type State struct {
	values *gocache.Cache

	mu        sync.RWMutex
	listeners []Listener
}

// NewState returns an empty state. Values never expire.
func NewState() *State {
	return &State{values: gocache.New(gocache.NoExpiration, 0)}
}

// Dispatch applies ev and notifies listeners.
func (s *State) Dispatch(ev Event) error {
	switch ev.Type {
	case ActionSetAccessToken:
		if ev.Payload == "" {
			return fmt.Errorf("%s: empty token", ev.Type)
		}
		s.values.Set(models.AccessTokenKey, ev.Payload, gocache.NoExpiration)
	case ActionClearAccessToken:
		s.values.Delete(models.AccessTokenKey)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownAction, ev.Type)
	}

	s.mu.RLock()
	listeners := append([]Listener(nil), s.listeners...)
	s.mu.RUnlock()
	for _, l := range listeners {
		l(ev)
	}
	return nil
}

// AccessToken returns the current token, if any.
func (s *State) AccessToken() (string, bool) {
	v, ok := s.values.Get(models.AccessTokenKey)
	if !ok {
		return "", false
	}
	token, ok := v.(string)
	return token, ok
}

// Subscribe registers l for every subsequently applied event.
func (s *State) Subscribe(l Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}
