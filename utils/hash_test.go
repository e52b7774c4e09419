package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHashPassword(t *testing.T) {
	t.Parallel()

	digest := HashPassword("private-key", "s3cret")
	assert.Len(t, digest, 64)
	assert.Equal(t, digest, HashPassword("private-key", "s3cret"))
	assert.NotEqual(t, digest, HashPassword("other-key", "s3cret"))
	assert.NotEqual(t, digest, HashPassword("private-key", "other"))
}

func TestSecureCompare(t *testing.T) {
	t.Parallel()

	assert.True(t, SecureCompare("abc", "abc"))
	assert.False(t, SecureCompare("abc", "abd"))
	assert.False(t, SecureCompare("abc", "abcd"))
	assert.True(t, SecureCompare("", ""))
}
