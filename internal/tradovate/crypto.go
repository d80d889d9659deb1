package tradovate

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

const gcmNonceSize = 12

var ErrInvalidKey = errors.New("encryption key must be 32 bytes of hex")

// TokenCipher encrypts broker token bundles at rest with AES-256-GCM.
// The stored form is base64(nonce || ciphertext). Legacy rows that were
// written before encryption was introduced hold plain JSON; Decrypt
// falls back to parsing those directly.
type TokenCipher struct {
	key []byte
}

// NewTokenCipher builds a cipher from a 64-character hex key.
func NewTokenCipher(hexKey string) (*TokenCipher, error) {
	key, err := hex.DecodeString(hexKey)
	if err != nil || len(key) != 32 {
		return nil, ErrInvalidKey
	}
	return &TokenCipher{key: key}, nil
}

func (tc *TokenCipher) gcm() (cipher.AEAD, error) {
	block, err := aes.NewCipher(tc.key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// Encrypt serializes the tokens and seals them.
func (tc *TokenCipher) Encrypt(tokens Tokens) (string, error) {
	plain, err := json.Marshal(tokens)
	if err != nil {
		return "", err
	}
	aead, err := tc.gcm()
	if err != nil {
		return "", err
	}
	nonce := make([]byte, gcmNonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}
	sealed := aead.Seal(nonce, nonce, plain, nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a stored token bundle, accepting plaintext JSON as a
// fallback for rows written before encryption.
func (tc *TokenCipher) Decrypt(stored string) (Tokens, error) {
	var tokens Tokens
	if json.Unmarshal([]byte(stored), &tokens) == nil && tokens.AccessToken != "" {
		return tokens, nil
	}

	raw, err := base64.StdEncoding.DecodeString(stored)
	if err != nil {
		return Tokens{}, fmt.Errorf("decode token bundle: %w", err)
	}
	aead, err := tc.gcm()
	if err != nil {
		return Tokens{}, err
	}
	if len(raw) < gcmNonceSize {
		return Tokens{}, errors.New("token bundle too short")
	}
	plain, err := aead.Open(nil, raw[:gcmNonceSize], raw[gcmNonceSize:], nil)
	if err != nil {
		return Tokens{}, fmt.Errorf("open token bundle: %w", err)
	}
	if err := json.Unmarshal(plain, &tokens); err != nil {
		return Tokens{}, err
	}
	return tokens, nil
}
