// Package crypt seals short secrets with AES-256-GCM for storage in a DB
// column. Output is base64url(nonce || ciphertext || tag).
//
//	box := crypt.NewBox(config.AppKey())
//	enc, err := box.Seal("JBSWY3DPEHPK3PXP")
//	plain, err := box.Open(enc)
package crypt

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
)

// ErrDecrypt is returned when decryption or authentication fails.
var ErrDecrypt = errors.New("crypt: decryption failed")

// Box encrypts with a key derived from an application secret.
type Box struct {
	aead cipher.AEAD
}

// NewBox derives a 32 byte key from secret via SHA-256.
func NewBox(secret string) *Box {
	k := sha256.Sum256([]byte(secret))
	block, err := aes.NewCipher(k[:])
	if err != nil {
		panic(fmt.Sprintf("crypt: new cipher: %v", err)) // 32 byte key is always valid
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		panic(fmt.Sprintf("crypt: new GCM: %v", err))
	}
	return &Box{aead: gcm}
}

func (b *Box) Seal(plaintext string) (string, error) {
	nonce := make([]byte, b.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("crypt: nonce: %w", err)
	}
	return base64.URLEncoding.EncodeToString(b.aead.Seal(nonce, nonce, []byte(plaintext), nil)), nil
}

func (b *Box) Open(encoded string) (string, error) {
	data, err := base64.URLEncoding.DecodeString(encoded)
	if err != nil {
		return "", ErrDecrypt
	}

	n := b.aead.NonceSize()
	if len(data) < n {
		return "", ErrDecrypt
	}
	plain, err := b.aead.Open(nil, data[:n], data[n:], nil)
	if err != nil {
		return "", ErrDecrypt
	}
	return string(plain), nil
}
