package password

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashVerify(t *testing.T) {
	h := NewBcrypt(bcrypt.MinCost)

	digest, err := h.Hash("s3cret")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret", digest)

	ok, err := h.Verify("s3cret", digest)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.Verify("wrong", digest)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerifyMalformedDigest(t *testing.T) {
	ok, err := NewBcrypt(bcrypt.MinCost).Verify("x", "not-a-digest")
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestCostOutOfRangeFallsBack(t *testing.T) {
	assert.Equal(t, bcrypt.DefaultCost, NewBcrypt(99).cost)
	assert.Equal(t, bcrypt.DefaultCost, NewBcrypt(0).cost)
}

func TestHashRejectsLongPassword(t *testing.T) {
	h := NewBcrypt(bcrypt.MinCost)

	_, err := h.Hash(strings.Repeat("a", MaxLength+1))
	assert.ErrorIs(t, err, ErrTooLong)

	digest, err := h.Hash(strings.Repeat("a", MaxLength))
	require.NoError(t, err)
	ok, err := h.Verify(strings.Repeat("a", MaxLength), digest)
	require.NoError(t, err)
	assert.True(t, ok)
}
