package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
)

func digest(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestValidHMAC(t *testing.T) {
	payload := []byte(`{"applicantId":"app-1","reviewStatus":"completed"}`)
	secret := "webhook-secret"

	tests := []struct {
		name      string
		payload   []byte
		signature string
		secret    string
		want      bool
	}{
		{
			name:      "valid signature",
			payload:   payload,
			signature: digest(payload, secret),
			secret:    secret,
			want:      true,
		},
		{
			name:      "wrong secret",
			payload:   payload,
			signature: digest(payload, "other-secret"),
			secret:    secret,
			want:      false,
		},
		{
			name:      "tampered payload",
			payload:   []byte(`{"applicantId":"app-2"}`),
			signature: digest(payload, secret),
			secret:    secret,
			want:      false,
		},
		{
			name:      "missing signature header",
			payload:   payload,
			signature: "",
			secret:    secret,
			want:      false,
		},
		{
			name:      "unconfigured secret",
			payload:   payload,
			signature: digest(payload, secret),
			secret:    "",
			want:      false,
		},
		{
			name:      "garbage signature",
			payload:   payload,
			signature: "not-hex",
			secret:    secret,
			want:      false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidHMAC(tt.payload, tt.signature, tt.secret))
		})
	}
}

func TestVerifierModes(t *testing.T) {
	payload := []byte(`{"applicantId":"app-1"}`)

	t.Run("enforced rejects unsigned payload", func(t *testing.T) {
		v := NewVerifier("secret", Enforced)
		assert.False(t, v.Verify(payload, ""))
	})

	t.Run("enforced accepts signed payload", func(t *testing.T) {
		v := NewVerifier("secret", Enforced)
		assert.True(t, v.Verify(payload, digest(payload, "secret")))
	})

	t.Run("bypassed accepts anything", func(t *testing.T) {
		v := NewVerifier("", Bypassed)
		assert.True(t, v.Verify(payload, ""))
	})
}
