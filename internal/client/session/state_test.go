package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestState_SetAndClear(t *testing.T) {
	s := NewState()

	_, ok := s.AccessToken()
	assert.False(t, ok)

	require.NoError(t, s.Dispatch(Event{Type: ActionSetAccessToken, Payload: "abc123"}))
	token, ok := s.AccessToken()
	require.True(t, ok)
	assert.Equal(t, "abc123", token)

	require.NoError(t, s.Dispatch(Event{Type: ActionClearAccessToken}))
	_, ok = s.AccessToken()
	assert.False(t, ok)
}

func TestState_Rejects(t *testing.T) {
	s := NewState()

	err := s.Dispatch(Event{Type: "SET_USER"})
	assert.ErrorIs(t, err, ErrUnknownAction)

	err = s.Dispatch(Event{Type: ActionSetAccessToken})
	assert.Error(t, err)
	_, ok := s.AccessToken()
	assert.False(t, ok)
}

func TestState_StatesAreIndependent(t *testing.T) {
	a, b := NewState(), NewState()
	require.NoError(t, a.Dispatch(Event{Type: ActionSetAccessToken, Payload: "abc123"}))

	_, ok := b.AccessToken()
	assert.False(t, ok)
}

func TestState_Subscribe(t *testing.T) {
	s := NewState()
	var seen []Event
	s.Subscribe(func(ev Event) { seen = append(seen, ev) })

	require.NoError(t, s.Dispatch(Event{Type: ActionSetAccessToken, Payload: "abc123"}))
	_ = s.Dispatch(Event{Type: "bogus"})
	require.NoError(t, s.Dispatch(Event{Type: ActionClearAccessToken}))

	assert.Equal(t, []Event{
		{Type: ActionSetAccessToken, Payload: "abc123"},
		{Type: ActionClearAccessToken},
	}, seen)
}
