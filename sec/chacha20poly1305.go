package sec

import (
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// Read https://pkg.go.dev/golang.org/x/crypto/chacha20poly1305

// XChaCha20Poly1305Cipher seals blobs as nonce||ciphertext||tag
type XChaCha20Poly1305Cipher struct {
	aead cipher.AEAD
}

var ErrSealedTooShort = errors.New("sealed data too short")

func NewXChaCha20Poly1305Cipher(key []byte) (*XChaCha20Poly1305Cipher, error) {
	if len(key) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("key must be %d bytes, got %d", chacha20poly1305.KeySize, len(key))
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	return &XChaCha20Poly1305Cipher{aead: aead}, nil
}

// NewXChaCha20Poly1305CipherHex takes the key as 64 hex chars, the way it sits in config files
func NewXChaCha20Poly1305CipherHex(hexKey string) (*XChaCha20Poly1305Cipher, error) {
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("decode hex key: %w", err)
	}
	return NewXChaCha20Poly1305Cipher(key)
}

// Seal encrypts plaintext with a fresh random nonce. aad is authenticated, not encrypted.
func (c *XChaCha20Poly1305Cipher) Seal(plaintext []byte, aad []byte) ([]byte, error) {
	// leave capacity for the ciphertext after the nonce
	nonce := make([]byte, c.aead.NonceSize(), c.aead.NonceSize()+len(plaintext)+c.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	return c.aead.Seal(nonce, nonce, plaintext, aad), nil
}

// Open reverses Seal and fails if the data or aad were tampered with
func (c *XChaCha20Poly1305Cipher) Open(sealed []byte, aad []byte) ([]byte, error) {
	nonceSize := c.aead.NonceSize()
	if len(sealed) < nonceSize+c.aead.Overhead() {
		return nil, ErrSealedTooShort
	}
	nonce, ciphertext := sealed[:nonceSize], sealed[nonceSize:]
	return c.aead.Open(nil, nonce, ciphertext, aad)
}
