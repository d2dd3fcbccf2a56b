package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// SignatureHeader is the request header Razorpay signs deliveries with.
const SignatureHeader = "X-Razorpay-Signature"

// VerifySignature checks the provider signature over the raw payload bytes.
// Razorpay sends hex(HMAC-SHA256(payload, secret)). Comparison is constant
// time; any empty input fails closed.
func VerifySignature(payload []byte, signatureHeader, secret string) bool {
	sig := strings.TrimSpace(signatureHeader)
	if len(payload) == 0 || sig == "" || strings.TrimSpace(secret) == "" {
		return false
	}

	decodedSig, err := hex.DecodeString(strings.ToLower(sig))
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hmac.Equal(mac.Sum(nil), decodedSig)
}

// SignPayload produces the hex signature Razorpay would send for payload.
// Used by the local webhook simulator and tests.
func SignPayload(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}
