package scm

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"strings"
)

var (
	ErrSecretMissing     = errors.New("webhook secret is required")
	ErrSignatureMissing  = errors.New("signature header is missing")
	ErrSignatureMismatch = errors.New("signature mismatch")
)

// VerifyHmacSha256Hex checks a hex HMAC-SHA256 of body. prefix, e.g. "sha256=",
// is stripped from the header value when present.
func VerifyHmacSha256Hex(body []byte, secret, headerValue, prefix string) error {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return ErrSecretMissing
	}
	got := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(headerValue), prefix))
	if got == "" {
		return ErrSignatureMissing
	}
	sig, err := hex.DecodeString(got)
	if err != nil || !hmac.Equal(sum(body, secret), sig) {
		return ErrSignatureMismatch
	}
	return nil
}

// VerifyTokenHeader checks a shared token sent verbatim in a header.
func VerifyTokenHeader(secret, got string) error {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return ErrSecretMissing
	}
	got = strings.TrimSpace(got)
	if got == "" {
		return ErrSignatureMissing
	}
	if subtle.ConstantTimeCompare([]byte(secret), []byte(got)) != 1 {
		return ErrSignatureMismatch
	}
	return nil
}

// SignHmacSha256Hex signs outgoing bodies; the result has no prefix.
func SignHmacSha256Hex(body []byte, secret string) string {
	return hex.EncodeToString(sum(body, strings.TrimSpace(secret)))
}

func sum(body []byte, secret string) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write(body)
	return mac.Sum(nil)
}
