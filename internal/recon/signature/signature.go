// Package signature authenticates inbound webhook payloads using the
// identity provider's shared-secret HMAC scheme.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Mode controls whether verification is enforced. Bypass exists only for
// local development; production wiring always uses Enforced.
type Mode int

const (
	Enforced Mode = iota
	Bypassed
)

// Verifier checks that a raw payload was signed with the shared secret.
type Verifier struct {
	secret string
	mode   Mode
}

func NewVerifier(secret string, mode Mode) *Verifier {
	return &Verifier{secret: secret, mode: mode}
}

// Verify reports whether signatureHeader is the hex HMAC-SHA256 of rawBody
// under the shared secret. It never panics or errors: a missing header or
// unconfigured secret simply fails verification.
func (v *Verifier) Verify(rawBody []byte, signatureHeader string) bool {
	if v.mode == Bypassed {
		return true
	}
	return ValidHMAC(rawBody, signatureHeader, v.secret)
}

// ValidHMAC is the pure check behind Verify. Comparison is constant-time.
func ValidHMAC(payload []byte, signatureHex, secret string) bool {
	if signatureHex == "" || secret == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signatureHex))
}
