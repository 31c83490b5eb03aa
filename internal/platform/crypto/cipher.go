// Package crypto holds the symmetric cipher used for partner NID credentials
// at rest and the masking helper used when those credentials are displayed.
package crypto

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// KeySize is the required key length for AES-256.
const KeySize = 32

var (
	// ErrInvalidKey signals a missing or wrong-length encryption key. This is
	// a fatal configuration error, not a runtime one.
	ErrInvalidKey = errors.New("encryption key must be exactly 32 bytes")

	// ErrMalformedEnvelope signals a ciphertext envelope that does not parse
	// (wrong separator count, non-hex payload, truncated IV). Returned instead
	// of silently producing garbage plaintext.
	ErrMalformedEnvelope = errors.New("malformed ciphertext envelope")
)

// Cipher encrypts and decrypts short secrets with AES-256-CBC. The envelope is
// hex(iv) + ":" + hex(ciphertext); a fresh random IV per call means identical
// plaintexts never produce identical envelopes.
type Cipher struct {
	block cipher.Block
}

// NewCipher validates the key and builds the cipher. Callers should treat an
// error here as fatal at startup.
func NewCipher(key []byte) (*Cipher, error) {
	if len(key) != KeySize {
		return nil, ErrInvalidKey
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("init aes cipher: %w", err)
	}
	return &Cipher{block: block}, nil
}

// Encrypt seals plaintext into a hex envelope.
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	iv := make([]byte, aes.BlockSize)
	if _, err := rand.Read(iv); err != nil {
		return "", fmt.Errorf("generate iv: %w", err)
	}

	padded := pkcs7Pad([]byte(plaintext), aes.BlockSize)
	encrypted := make([]byte, len(padded))
	cipher.NewCBCEncrypter(c.block, iv).CryptBlocks(encrypted, padded)

	return hex.EncodeToString(iv) + ":" + hex.EncodeToString(encrypted), nil
}

// Decrypt opens an envelope produced by Encrypt. Malformed envelopes return
// ErrMalformedEnvelope (possibly wrapped with detail).
func (c *Cipher) Decrypt(envelope string) (string, error) {
	parts := strings.Split(envelope, ":")
	if len(parts) != 2 {
		return "", fmt.Errorf("%w: expected iv:ciphertext", ErrMalformedEnvelope)
	}

	iv, err := hex.DecodeString(parts[0])
	if err != nil {
		return "", fmt.Errorf("%w: iv is not hex", ErrMalformedEnvelope)
	}
	if len(iv) != aes.BlockSize {
		return "", fmt.Errorf("%w: iv must be %d bytes", ErrMalformedEnvelope, aes.BlockSize)
	}

	encrypted, err := hex.DecodeString(parts[1])
	if err != nil {
		return "", fmt.Errorf("%w: ciphertext is not hex", ErrMalformedEnvelope)
	}
	if len(encrypted) == 0 || len(encrypted)%aes.BlockSize != 0 {
		return "", fmt.Errorf("%w: ciphertext length not a block multiple", ErrMalformedEnvelope)
	}

	decrypted := make([]byte, len(encrypted))
	cipher.NewCBCDecrypter(c.block, iv).CryptBlocks(decrypted, encrypted)

	plaintext, err := pkcs7Unpad(decrypted, aes.BlockSize)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}
	return string(plaintext), nil
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	padding := blockSize - len(data)%blockSize
	return append(data, bytes.Repeat([]byte{byte(padding)}, padding)...)
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, errors.New("invalid padded length")
	}
	padding := int(data[len(data)-1])
	if padding == 0 || padding > blockSize {
		return nil, errors.New("invalid padding byte")
	}
	for _, b := range data[len(data)-padding:] {
		if int(b) != padding {
			return nil, errors.New("inconsistent padding")
		}
	}
	return data[:len(data)-padding], nil
}
