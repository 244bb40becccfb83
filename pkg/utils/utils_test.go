package utils

import (
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestBcrypt_HashAndCompare(t *testing.T) {
	h := Bcrypt{Cost: bcrypt.MinCost}
	digest, err := h.Hash("S3cret!pass")
	require.NoError(t, err)
	assert.NotEqual(t, "S3cret!pass", digest)
	assert.True(t, strings.HasPrefix(digest, "$2a$"))

	assert.True(t, h.Compare("S3cret!pass", digest))
	assert.False(t, h.Compare("wrong", digest))
	assert.False(t, h.Compare("S3cret!pass", "not-a-hash"))
}

func TestBcrypt_SaltedDigestsDiffer(t *testing.T) {
	h := Bcrypt{Cost: bcrypt.MinCost}
	a, err := h.Hash("same")
	require.NoError(t, err)
	b, err := h.Hash("same")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestIsValidEmail(t *testing.T) {
	assert.True(t, IsValidEmail("alice@example.com"))
	assert.False(t, IsValidEmail(""))
	assert.False(t, IsValidEmail("alice"))
	assert.False(t, IsValidEmail("alice@"))
	assert.False(t, IsValidEmail("a b@example.com"))
}

func TestIsStrongPassword(t *testing.T) {
	tests := []struct {
		pw   string
		want bool
	}{
		{"Passw0rd!", true},
		{"Pa0!", false},
		{"password1!", false},
		{"PASSWORD1!", false},
		{"Password!!", false},
		{"Password12", false},
	}
	for _, tt := range tests {
		t.Run(tt.pw, func(t *testing.T) {
			assert.Equal(t, tt.want, IsStrongPassword(tt.pw, 8))
		})
	}
	assert.False(t, IsStrongPassword("Passw0rd!", 12))
}

func TestUsernameFromEmail(t *testing.T) {
	u := UsernameFromEmail("John.Doe+x@example.com")
	assert.Regexp(t, regexp.MustCompile(`^johndoex_[0-9a-f]{6}$`), u)

	u = UsernameFromEmail("...@example.com")
	assert.True(t, strings.HasPrefix(u, "user_"))
}

func TestReferenceID(t *testing.T) {
	now := time.UnixMilli(1700000000123)
	ref := ReferenceID("ORD", now)
	assert.Regexp(t, regexp.MustCompile(`^ORD_1700000000123_[A-Z0-9]{6}$`), ref)
}
