package payments

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
)

// SignatureHeader carries the hex HMAC-SHA512 of the raw webhook body.
const SignatureHeader = "X-GATEWAY-SIGNATURE"

// Sign returns the hex HMAC-SHA512 of body under secret.
func Sign(body, secret []byte) string {
	mac := hmac.New(sha512.New, secret)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature compares signature against the expected digest in constant time.
func VerifySignature(body, secret []byte, signature string) bool {
	if signature == "" || len(secret) == 0 {
		return false
	}
	return hmac.Equal([]byte(Sign(body, secret)), []byte(signature))
}
