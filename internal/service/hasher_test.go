package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestBcryptHasher(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost, false)

	digest, err := h.Hash("secret")
	require.NoError(t, err)
	assert.NotEqual(t, "secret", digest)
	assert.True(t, h.Verify("secret", digest))
	assert.False(t, h.Verify("Secret", digest))
}

func TestLegacyPlaintextDigests(t *testing.T) {
	strict := NewBcryptHasher(bcrypt.MinCost, false)
	legacy := NewBcryptHasher(bcrypt.MinCost, true)

	assert.False(t, strict.Verify("pw1", "pw1"))
	assert.True(t, legacy.Verify("pw1", " pw1 "))
	assert.False(t, legacy.Verify("pw2", "pw1"))
}

func TestDefaultCost(t *testing.T) {
	assert.Equal(t, bcrypt.DefaultCost, NewBcryptHasher(0, false).Cost)
}
