package common

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"strconv"
	"strings"
	"time"
)

type VerifyOptions struct {
	TimestampHeader  string
	ToleranceSeconds int
	RequireTimestamp bool
	// Now is swappable for tests; nil means time.Now.
	Now func() time.Time
}

type VerifyResult struct {
	OK      bool
	Skipped bool
	Err     error
}

// VerifySignature checks the HMAC of the raw, unparsed request body against
// the signature header. Header forms: "sha256=<hex>", "sha1=<hex>", or a bare
// hex digest which defaults to sha256. With no secret configured verification
// is skipped and reported as such; callers must log that loudly.
func VerifySignature(rawBody []byte, signatureHeader, secret string, opts VerifyOptions) VerifyResult {
	if secret == "" {
		return VerifyResult{OK: true, Skipped: true}
	}
	if len(rawBody) == 0 {
		return VerifyResult{Err: errors.New("missing raw request body")}
	}
	if signatureHeader == "" {
		return VerifyResult{Err: errors.New("missing signature header")}
	}

	algo := "sha256"
	digest := strings.TrimSpace(signatureHeader)
	if i := strings.IndexByte(digest, '='); i >= 0 {
		algo = strings.ToLower(strings.TrimSpace(digest[:i]))
		digest = strings.TrimSpace(digest[i+1:])
	}

	var mac hash.Hash
	switch algo {
	case "sha1":
		mac = hmac.New(sha1.New, []byte(secret))
	case "sha256":
		mac = hmac.New(sha256.New, []byte(secret))
	default:
		return VerifyResult{Err: fmt.Errorf("unsupported signature algorithm %q", algo)}
	}

	expected, err := hex.DecodeString(digest)
	if err != nil {
		return VerifyResult{Err: errors.New("signature is not valid hex")}
	}
	mac.Write(rawBody)
	if !hmac.Equal(mac.Sum(nil), expected) {
		return VerifyResult{Err: errors.New("signature mismatch")}
	}

	if opts.TimestampHeader == "" {
		if opts.RequireTimestamp {
			return VerifyResult{Err: errors.New("timestamp header required but absent")}
		}
		return VerifyResult{OK: true}
	}

	ts, err := parseTimestamp(opts.TimestampHeader)
	if err != nil {
		return VerifyResult{Err: fmt.Errorf("invalid timestamp header: %w", err)}
	}
	now := time.Now()
	if opts.Now != nil {
		now = opts.Now()
	}
	tolerance := time.Duration(opts.ToleranceSeconds) * time.Second
	if tolerance <= 0 {
		tolerance = 5 * time.Minute
	}
	if diff := now.Sub(ts); diff > tolerance || diff < -tolerance {
		return VerifyResult{Err: fmt.Errorf("timestamp outside tolerance window (%s)", tolerance)}
	}
	return VerifyResult{OK: true}
}

// parseTimestamp accepts epoch seconds, epoch milliseconds or RFC3339.
func parseTimestamp(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		if n > 1_000_000_000_000 {
			return time.UnixMilli(n), nil
		}
		return time.Unix(n, 0), nil
	}
	if ts, err := time.Parse(time.RFC3339, raw); err == nil {
		return ts, nil
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", raw)
}
