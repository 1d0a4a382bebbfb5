package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

const keySize = 32

// ErrCiphertextTooShort is returned when the payload cannot hold a nonce.
var ErrCiphertextTooShort = errors.New("ciphertext too short")

// Cipher seals and opens byte payloads with AES-256-GCM.
//
// The random 12-byte nonce is prepended to the ciphertext so a sealed payload
// is self-contained and can be stored as a single object.
type Cipher struct {
	aead cipher.AEAD
	key  []byte
}

// New builds a cipher from a 32-byte key.
func New(key []byte) (*Cipher, error) {
	if len(key) != keySize {
		return nil, fmt.Errorf("cipher key must be %d bytes, got %d", keySize, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	owned := make([]byte, keySize)
	copy(owned, key)
	return &Cipher{aead: aead, key: owned}, nil
}

// NewFromHex decodes a hex encoded master key.
func NewFromHex(raw string) (*Cipher, error) {
	key, err := hex.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("decode cipher key: %w", err)
	}
	return New(key)
}

// Encrypt seals plaintext, returning nonce||ciphertext.
func (c *Cipher) Encrypt(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	return c.aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Decrypt opens a payload produced by Encrypt.
func (c *Cipher) Decrypt(payload []byte) ([]byte, error) {
	ns := c.aead.NonceSize()
	if len(payload) < ns {
		return nil, ErrCiphertextTooShort
	}
	return c.aead.Open(nil, payload[:ns], payload[ns:], nil)
}

// ForTenant derives a tenant scoped cipher with HKDF-SHA256.
func (c *Cipher) ForTenant(tenant string) (*Cipher, error) {
	reader := hkdf.New(sha256.New, c.key, nil, []byte("doculan/tenant/"+tenant))
	derived := make([]byte, keySize)
	if _, err := io.ReadFull(reader, derived); err != nil {
		return nil, fmt.Errorf("derive tenant key: %w", err)
	}
	return New(derived)
}
