package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestBcryptHasher(t *testing.T) {
	h := BcryptHasher{Cost: bcrypt.MinCost}
	hash, err := h.Hash("correct horse")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse", hash)

	assert.NoError(t, h.Compare(hash, "correct horse"))
	assert.ErrorIs(t, h.Compare(hash, "wrong horse"), ErrPasswordMismatch)
}

func TestSessionTokensAreUnique(t *testing.T) {
	g := SessionTokens{}
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		token, err := g.NewToken()
		require.NoError(t, err)
		assert.Len(t, token, 43)
		assert.False(t, seen[token])
		seen[token] = true
	}
}
