// Package payment verifies and applies payment provider webhooks. Credits
// bought through checkout reach the ledger only through this path.
package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"server/internal/domain"
)

// SignatureHeader is the HTTP header carrying the provider's signature.
const SignatureHeader = "X-Payment-Signature"

// DefaultTolerance bounds how stale a signed timestamp may be before the
// delivery is rejected as a possible replay.
const DefaultTolerance = 5 * time.Minute

// VerifySignature checks a "t=<unix>,v1=<hex>" header against the raw body
// using HMAC-SHA256 over "<t>.<body>". Comparison is constant time.
func VerifySignature(body []byte, header, secret string, tolerance time.Duration, now time.Time) error {
	if secret == "" {
		return fmt.Errorf("payment: webhook secret not configured")
	}
	ts, sig, err := parseSignatureHeader(header)
	if err != nil {
		return err
	}
	if tolerance > 0 {
		issued := time.Unix(ts, 0)
		if issued.Before(now.Add(-tolerance)) || issued.After(now.Add(tolerance)) {
			return fmt.Errorf("%w: timestamp outside tolerance", domain.ErrInvalidSignature)
		}
	}
	expected := ComputeSignature(body, secret, ts)
	if !hmac.Equal([]byte(expected), []byte(sig)) {
		return domain.ErrInvalidSignature
	}
	return nil
}

// ComputeSignature returns the hex HMAC for a timestamped payload. Exposed
// for tests and for local tooling that replays events.
func ComputeSignature(body []byte, secret string, ts int64) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.", ts)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func parseSignatureHeader(header string) (int64, string, error) {
	var (
		ts  int64
		sig string
	)
	for _, part := range strings.Split(header, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch key {
		case "t":
			parsed, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return 0, "", fmt.Errorf("%w: bad timestamp", domain.ErrInvalidSignature)
			}
			ts = parsed
		case "v1":
			sig = value
		}
	}
	if ts == 0 || sig == "" {
		return 0, "", fmt.Errorf("%w: missing components", domain.ErrInvalidSignature)
	}
	return ts, sig, nil
}
