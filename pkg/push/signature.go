package push

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Signature headers attached to every gateway request when a secret is set.
const (
	HeaderSignature = "X-Push-Signature"
	HeaderTimestamp = "X-Push-Timestamp"
	HeaderRequestID = "X-Push-ID"
)

// Sign computes HMAC-SHA256(secret, "<unix-ts>.<body>") and sets the
// signature headers on h.
func Sign(h http.Header, secret string, body []byte, now time.Time) error {
	if secret == "" {
		return fmt.Errorf("%w: signing secret is empty", ErrInvalidConfig)
	}
	ts := now.Unix()
	h.Set(HeaderSignature, signature(secret, ts, body))
	h.Set(HeaderTimestamp, strconv.FormatInt(ts, 10))
	h.Set(HeaderRequestID, uuid.NewString())
	return nil
}

// Verify checks the signature headers in h against body. Signatures older
// than maxAge are rejected; a zero maxAge disables the age check.
func Verify(h http.Header, secret string, body []byte, maxAge time.Duration, now time.Time) error {
	sig := h.Get(HeaderSignature)
	if sig == "" {
		return fmt.Errorf("%w: missing signature", ErrInvalidSignature)
	}
	ts, err := strconv.ParseInt(h.Get(HeaderTimestamp), 10, 64)
	if err != nil {
		return fmt.Errorf("%w: bad timestamp", ErrInvalidSignature)
	}
	if maxAge > 0 {
		age := now.Sub(time.Unix(ts, 0))
		if age > maxAge || age < -time.Minute {
			return fmt.Errorf("%w: timestamp outside allowed window", ErrInvalidSignature)
		}
	}
	if !hmac.Equal([]byte(signature(secret, ts, body)), []byte(sig)) {
		return fmt.Errorf("%w: mismatch", ErrInvalidSignature)
	}
	return nil
}

func signature(secret string, ts int64, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.", ts)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
