package storage

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSignedURLSignerGenerateAndParse(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	token, expiresAt, err := signer.Generate("alice@example.com", "alice@example.com/files/contracts/nda.pdf", 0)
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.False(t, expiresAt.IsZero())

	subject, key, parsedExpiry, err := signer.Parse(token, false)
	require.NoError(t, err)
	require.Equal(t, "alice@example.com", subject)
	require.Equal(t, "alice@example.com/files/contracts/nda.pdf", key)
	require.WithinDuration(t, expiresAt, parsedExpiry, time.Second)
}

func TestSignedURLSignerExpired(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	token, _, err := signer.Generate("alice@example.com", "alice@example.com/files/a.pdf", 10*time.Millisecond)
	require.NoError(t, err)
	// expiry is stored with second precision
	time.Sleep(1100 * time.Millisecond)

	_, _, _, err = signer.Parse(token, false)
	require.Error(t, err)

	subject, key, _, err := signer.Parse(token, true)
	require.NoError(t, err)
	require.Equal(t, "alice@example.com", subject)
	require.Equal(t, "alice@example.com/files/a.pdf", key)
}

func TestSignedURLSignerRejectsTampering(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	token, _, err := signer.Generate("alice@example.com", "alice@example.com/files/a.pdf", time.Minute)
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	other, _, err := signer.Generate("bob@example.com", "bob@example.com/files/b.pdf", time.Minute)
	require.NoError(t, err)
	parts[2] = strings.Split(other, ".")[2]

	_, _, _, err = signer.Parse(strings.Join(parts, "."), false)
	require.Error(t, err)

	_, _, _, err = NewSignedURLSigner("other", time.Hour).Parse(token, false)
	require.Error(t, err)
}
