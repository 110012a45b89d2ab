package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAEADFromPassphrase_Deterministic(t *testing.T) {
	aead1, err := NewAEADFromPassphrase([]byte("correct horse"))
	require.NoError(t, err)
	aead2, err := NewAEADFromPassphrase([]byte("correct horse"))
	require.NoError(t, err)

	// same passphrase => same key, so a value sealed by one opens with the other
	sealed, err := seal(aead1, "helloworld")
	require.NoError(t, err)
	plain, err := open(aead2, sealed)
	require.NoError(t, err)
	assert.Equal(t, "helloworld", plain)
}

func TestNewAEADFromPassphrase_Empty(t *testing.T) {
	_, err := NewAEADFromPassphrase(nil)
	assert.Error(t, err)
}

func TestOpen_WrongKey(t *testing.T) {
	a, err := NewAEADFromPassphrase([]byte("one"))
	require.NoError(t, err)
	b, err := NewAEADFromPassphrase([]byte("two"))
	require.NoError(t, err)

	sealed, err := seal(a, "abc123")
	require.NoError(t, err)
	_, err = open(b, sealed)
	assert.ErrorContains(t, err, "decrypt value")
}

func TestOpen_Malformed(t *testing.T) {
	a, err := NewAEADFromPassphrase([]byte("one"))
	require.NoError(t, err)

	_, err = open(a, "%%%")
	assert.ErrorContains(t, err, "decode value")

	_, err = open(a, "AAAA")
	assert.ErrorContains(t, err, "too short")
}
