// Package fileurl signs download links for archived answer files.
// Links expire after a TTL so they can be handed to report viewers
// without sharing the API key.
package fileurl

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"
)

// PathPrefix is the route the signed links point to.
const PathPrefix = "/api/v1/files/"

// SignURL returns a relative URL with expiry and HMAC-SHA256 signature over
// "{fileID}:{expiresUnix}".
func SignURL(fileID, secret string, ttl time.Duration) string {
	return signAt(fileID, secret, time.Now().Add(ttl))
}

func signAt(fileID, secret string, expiresAt time.Time) string {
	expires := expiresAt.Unix()
	return fmt.Sprintf("%s%s?expires=%d&sig=%s", PathPrefix, fileID, expires, computeHMAC(fileID, expires, secret))
}

// Verify checks that the signature is valid and the link has not expired.
func Verify(fileID, expires, sig, secret string) bool {
	exp, err := strconv.ParseInt(expires, 10, 64)
	if err != nil {
		return false
	}
	if time.Now().Unix() > exp {
		return false
	}
	expected := computeHMAC(fileID, exp, secret)
	return hmac.Equal([]byte(sig), []byte(expected))
}

func computeHMAC(fileID string, expires int64, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(fmt.Sprintf("%s:%d", fileID, expires)))
	return hex.EncodeToString(mac.Sum(nil))
}
