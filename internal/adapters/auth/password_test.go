package auth

import (
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBcryptHasher(t *testing.T) {
	hasher := NewBcryptHasher(bcrypt.MinCost)

	salt, err := hasher.GenerateSalt()
	require.NoError(t, err)
	assert.Len(t, salt, 32)

	other, err := hasher.GenerateSalt()
	require.NoError(t, err)
	assert.NotEqual(t, salt, other)

	hash, err := hasher.Hash(salt, "password123")
	require.NoError(t, err)

	assert.NoError(t, hasher.Compare(hash, salt, "password123"))
	assert.Error(t, hasher.Compare(hash, salt, "wrong-password"))
	assert.Error(t, hasher.Compare(hash, other, "password123"))
}
