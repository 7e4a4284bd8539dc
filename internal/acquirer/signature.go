package acquirer

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// SignatureHeader carries the hex-encoded HMAC-SHA256 of the raw request body.
const SignatureHeader = "X-Webhook-Signature"

func SignPayload(rawBody []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(rawBody)
	return hex.EncodeToString(mac.Sum(nil))
}

func VerifySignature(rawBody []byte, signature, secret string) bool {
	expected := SignPayload(rawBody, secret)
	return hmac.Equal([]byte(expected), []byte(signature))
}
