package cryptox

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey() []byte {
	return bytes.Repeat([]byte{7}, keySize)
}

func TestCipherRoundTrip(t *testing.T) {
	c, err := New(testKey())
	require.NoError(t, err)

	sealed, err := c.Encrypt([]byte("%PDF-1.7 contract"))
	require.NoError(t, err)
	assert.NotContains(t, string(sealed), "contract")

	opened, err := c.Decrypt(sealed)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.7 contract", string(opened))
}

func TestCipherNonceIsRandom(t *testing.T) {
	c, err := New(testKey())
	require.NoError(t, err)

	a, err := c.Encrypt([]byte("same"))
	require.NoError(t, err)
	b, err := c.Encrypt([]byte("same"))
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestCipherRejectsBadInput(t *testing.T) {
	_, err := New([]byte("short"))
	require.Error(t, err)

	_, err = NewFromHex("zz")
	require.Error(t, err)

	c, err := NewFromHex(strings.Repeat("ab", keySize))
	require.NoError(t, err)
	_, err = c.Decrypt([]byte{1, 2})
	require.ErrorIs(t, err, ErrCiphertextTooShort)

	sealed, err := c.Encrypt([]byte("payload"))
	require.NoError(t, err)
	sealed[len(sealed)-1] ^= 0xff
	_, err = c.Decrypt(sealed)
	require.Error(t, err)
}

func TestForTenantIsolatesKeys(t *testing.T) {
	master, err := New(testKey())
	require.NoError(t, err)

	alice, err := master.ForTenant("alice@example.com")
	require.NoError(t, err)
	bob, err := master.ForTenant("bob@example.com")
	require.NoError(t, err)
	again, err := master.ForTenant("alice@example.com")
	require.NoError(t, err)

	sealed, err := alice.Encrypt([]byte("index"))
	require.NoError(t, err)

	_, err = bob.Decrypt(sealed)
	require.Error(t, err)

	opened, err := again.Decrypt(sealed)
	require.NoError(t, err)
	assert.Equal(t, "index", string(opened))
}
