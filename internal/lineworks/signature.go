package lineworks

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
)

// VerifySignature checks the X-WORKS-Signature header against the raw
// request body: base64 of HMAC-SHA256 keyed with the bot secret. The
// comparison is constant time.
func VerifySignature(botSecret string, body []byte, signature string) bool {
	if botSecret == "" || signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(botSecret))
	mac.Write(body)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
