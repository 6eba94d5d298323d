package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("correct horse", 4)
	require.NoError(t, err)
	require.NotEqual(t, "correct horse", hash)

	assert.True(t, VerifyPassword(hash, "correct horse"))
	assert.False(t, VerifyPassword(hash, "wrong horse"))
	assert.False(t, VerifyPassword("not a hash", "correct horse"))
}

func TestHashPasswordClampsBelowMinCost(t *testing.T) {
	hash, err := HashPassword("pw", 0)
	require.NoError(t, err)
	assert.True(t, VerifyPassword(hash, "pw"))
}
