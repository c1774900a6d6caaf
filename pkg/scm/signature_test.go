package scm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVerifyHmacSha256Hex(t *testing.T) {
	body := []byte(`{"handle":"q-1"}`)
	sig := SignHmacSha256Hex(body, "s3cret")

	tests := []struct {
		name    string
		secret  string
		header  string
		prefix  string
		wantErr error
	}{
		{"prefixed", "s3cret", "sha256=" + sig, "sha256=", nil},
		{"bare", "s3cret", sig, "", nil},
		{"bare with prefix configured", "s3cret", sig, "sha256=", nil},
		{"wrong secret", "other", "sha256=" + sig, "sha256=", ErrSignatureMismatch},
		{"not hex", "s3cret", "sha256=zz", "sha256=", ErrSignatureMismatch},
		{"missing header", "s3cret", "  ", "sha256=", ErrSignatureMissing},
		{"no secret", "", sig, "", ErrSecretMissing},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, VerifyHmacSha256Hex(body, tt.secret, tt.header, tt.prefix), tt.wantErr)
		})
	}
}

func TestVerifyHmacSha256Hex_TamperedBody(t *testing.T) {
	sig := SignHmacSha256Hex([]byte("a"), "s3cret")
	assert.ErrorIs(t, VerifyHmacSha256Hex([]byte("b"), "s3cret", sig, ""), ErrSignatureMismatch)
}

func TestVerifyTokenHeader(t *testing.T) {
	assert.NoError(t, VerifyTokenHeader("token", " token "))
	assert.ErrorIs(t, VerifyTokenHeader("token", "bad"), ErrSignatureMismatch)
	assert.ErrorIs(t, VerifyTokenHeader("token", ""), ErrSignatureMissing)
	assert.ErrorIs(t, VerifyTokenHeader(" ", "token"), ErrSecretMissing)
}
