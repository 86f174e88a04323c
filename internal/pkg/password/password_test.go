package password

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndVerify(t *testing.T) {
	hash, err := Hash("correct horse battery staple")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$argon2id$"))

	ok, err := Verify("correct horse battery staple", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Verify("wrong password", hash)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHashIsSalted(t *testing.T) {
	h1, err := Hash("same password")
	require.NoError(t, err)
	h2, err := Hash("same password")
	require.NoError(t, err)

	assert.NotEqual(t, h1, h2)
}

func TestVerifyMalformedHash(t *testing.T) {
	cases := []string{
		"",
		"not a hash",
		"$argon2id$v=19$m=65536,t=1,p=4$onlysalt",
		"$bcrypt$something",
		"$argon2id$v=19$m=65536,t=1,p=4$!!badsalt!!$hash",
	}

	for _, malformed := range cases {
		ok, err := Verify("whatever", malformed)
		assert.ErrorIs(t, err, ErrInvalidHash, "hash: %q", malformed)
		assert.False(t, ok)
	}
}

func TestGenerateToken(t *testing.T) {
	t1, err := GenerateToken()
	require.NoError(t, err)
	t2, err := GenerateToken()
	require.NoError(t, err)

	assert.Len(t, t1, 64)
	assert.NotEqual(t, t1, t2)
}

func TestTokenHashRoundTrip(t *testing.T) {
	token, err := GenerateToken()
	require.NoError(t, err)

	stored := HashToken(token)
	assert.NotEqual(t, token, stored)
	assert.True(t, CompareTokenHash(token, stored))
	assert.False(t, CompareTokenHash(token+"x", stored))
}

func TestValidatePassword(t *testing.T) {
	assert.ErrorIs(t, ValidatePassword("short"), ErrPasswordTooShort)
	assert.ErrorIs(t, ValidatePassword("1234567"), ErrPasswordTooShort)
	assert.NoError(t, ValidatePassword("12345678"))
}
