package crypto

import (
	"testing"

	"github.com/fernet/fernet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newKey(t *testing.T) string {
	t.Helper()
	var k fernet.Key
	require.NoError(t, k.Generate())
	return k.Encode()
}

func TestFernetCipher_RoundTrip(t *testing.T) {
	c, err := NewFernetCipher(newKey(t))
	require.NoError(t, err)

	enc, err := c.Encrypt("at-123")
	require.NoError(t, err)
	assert.NotEqual(t, "at-123", enc)

	dec, err := c.Decrypt(enc)
	require.NoError(t, err)
	assert.Equal(t, "at-123", dec)
}

func TestFernetCipher_WrongKey(t *testing.T) {
	a, err := NewFernetCipher(newKey(t))
	require.NoError(t, err)
	b, err := NewFernetCipher(newKey(t))
	require.NoError(t, err)

	enc, err := a.Encrypt("secret")
	require.NoError(t, err)

	_, err = b.Decrypt(enc)
	assert.ErrorIs(t, err, ErrDecrypt)
}

func TestNewFernetCipher_BadKey(t *testing.T) {
	_, err := NewFernetCipher("not-a-key")
	assert.Error(t, err)
}

func TestPlainCipher(t *testing.T) {
	var c PlainCipher
	enc, _ := c.Encrypt("x")
	dec, _ := c.Decrypt(enc)
	assert.Equal(t, "x", dec)
}
