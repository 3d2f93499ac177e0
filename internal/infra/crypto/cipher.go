// Package crypto encrypts OAuth tokens before they reach storage.
package crypto

import (
	"errors"
	"fmt"
	"time"

	"github.com/fernet/fernet-go"
)

var ErrDecrypt = errors.New("token decryption failed")

// FernetCipher produces Fernet tokens, readable by any Fernet
// implementation holding the same key.
type FernetCipher struct {
	keys []*fernet.Key
}

func NewFernetCipher(encodedKey string) (*FernetCipher, error) {
	k, err := fernet.DecodeKey(encodedKey)
	if err != nil {
		return nil, fmt.Errorf("invalid ENC_KEY: %w", err)
	}
	return &FernetCipher{keys: []*fernet.Key{k}}, nil
}

func (c *FernetCipher) Encrypt(plain string) (string, error) {
	tok, err := fernet.EncryptAndSign([]byte(plain), c.keys[0])
	if err != nil {
		return "", fmt.Errorf("encrypt token: %w", err)
	}
	return string(tok), nil
}

// Decrypt never applies a TTL; expiry is tracked by the connection itself.
func (c *FernetCipher) Decrypt(cipherText string) (string, error) {
	msg := fernet.VerifyAndDecrypt([]byte(cipherText), -1*time.Second, c.keys)
	if msg == nil {
		return "", ErrDecrypt
	}
	return string(msg), nil
}

// PlainCipher stores tokens as-is. Used when no key is configured.
type PlainCipher struct{}

func (PlainCipher) Encrypt(plain string) (string, error)      { return plain, nil }
func (PlainCipher) Decrypt(cipherText string) (string, error) { return cipherText, nil }
