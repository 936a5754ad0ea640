// Package signature verifies and produces HMAC signatures over raw webhook bodies.
//
// Providers do not agree on one algorithm or encoding, so Verify accepts SHA-1 or
// SHA-256 digests encoded as hex or base64. Every candidate is still an HMAC under
// the same shared secret.
package signature

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"hash"
	"strings"
)

var prefixes = []string{"sha256=", "sha256:", "sha1=", "sha1:"}

type candidate struct {
	newHash func() hash.Hash
	decode  func(string) ([]byte, error)
}

// Tried in this order; the first match wins.
var candidates = []candidate{
	{sha1.New, hex.DecodeString},
	{sha1.New, decodeBase64},
	{sha256.New, hex.DecodeString},
	{sha256.New, decodeBase64},
}

var base64Encodings = []*base64.Encoding{
	base64.StdEncoding,
	base64.RawStdEncoding,
	base64.URLEncoding,
	base64.RawURLEncoding,
}

// decodeBase64 accepts standard or URL-safe base64, padded or not.
func decodeBase64(s string) ([]byte, error) {
	var err error
	for _, enc := range base64Encodings {
		var b []byte
		if b, err = enc.DecodeString(s); err == nil {
			return b, nil
		}
	}
	return nil, err
}

// Verify reports whether header carries a valid HMAC of payload under secret.
// An optional case-insensitive algorithm prefix (sha1=, sha256=, sha1:, sha256:)
// is stripped first. Empty arguments never verify.
func Verify(payload []byte, header, secret string) bool {
	if len(payload) == 0 || secret == "" {
		return false
	}
	sig := StripPrefix(header)
	if sig == "" {
		return false
	}

	for _, c := range candidates {
		if match(payload, sig, secret, c) {
			return true
		}
	}
	return false
}

// VerifySHA256Hex is the restricted check used for our own internal marker:
// HMAC-SHA256, hex encoded, no prefix handling.
func VerifySHA256Hex(payload []byte, header, secret string) bool {
	if len(payload) == 0 || secret == "" {
		return false
	}
	sig := strings.TrimSpace(header)
	if sig == "" {
		return false
	}
	return match(payload, sig, secret, candidate{sha256.New, hex.DecodeString})
}

// Sign returns the hex HMAC-SHA256 of payload under secret.
func Sign(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// StripPrefix trims whitespace and removes a leading algorithm prefix.
func StripPrefix(header string) string {
	sig := strings.TrimSpace(header)
	lower := strings.ToLower(sig)
	for _, p := range prefixes {
		if strings.HasPrefix(lower, p) {
			return sig[len(p):]
		}
	}
	return sig
}

func match(payload []byte, sig, secret string, c candidate) bool {
	given, err := c.decode(sig)
	if err != nil {
		return false
	}

	mac := hmac.New(c.newHash, []byte(secret))
	mac.Write(payload)
	computed := mac.Sum(nil)

	if len(given) != len(computed) {
		return false
	}
	return hmac.Equal(computed, given)
}
