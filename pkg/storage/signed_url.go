package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const defaultSignedURLTTL = 24 * time.Hour

var (
	errTokenFormat    = errors.New("malformed download token")
	errTokenSignature = errors.New("download token signature mismatch")
	errTokenExpired   = errors.New("download token expired")
)

// SignedURLSigner mints and checks HMAC download tokens for rendered export
// files. A token embeds the job id, expiry and stored file path, so serving a
// download needs no lookup beyond the job row.
type SignedURLSigner struct {
	secret []byte
	ttl    time.Duration
}

// NewSignedURLSigner constructs a signer with the provided secret and TTL.
func NewSignedURLSigner(secret string, ttl time.Duration) *SignedURLSigner {
	if ttl <= 0 {
		ttl = defaultSignedURLTTL
	}
	return &SignedURLSigner{secret: []byte(secret), ttl: ttl}
}

// Generate returns a signed token referencing the job and file path.
func (s *SignedURLSigner) Generate(jobID, relPath string) (string, time.Time, error) {
	if jobID == "" || relPath == "" {
		return "", time.Time{}, errors.New("jobID and relPath required")
	}
	if len(s.secret) == 0 {
		return "", time.Time{}, errors.New("signing secret missing")
	}
	expiresAt := time.Now().Add(s.ttl)
	ts := strconv.FormatInt(expiresAt.Unix(), 10)
	encodedPath := base64.RawURLEncoding.EncodeToString([]byte(relPath))
	token := strings.Join([]string{jobID, ts, encodedPath, s.sign(jobID, ts, encodedPath)}, ".")
	return token, expiresAt, nil
}

// Parse validates a token and returns the embedded metadata. With allowExpired
// the timestamp check is skipped; cleanup uses that to recover paths from
// stale tokens.
func (s *SignedURLSigner) Parse(token string, allowExpired bool) (jobID, relPath string, expiresAt time.Time, err error) {
	parts := strings.Split(token, ".")
	if len(parts) != 4 {
		return "", "", time.Time{}, errTokenFormat
	}
	jobID, ts, encodedPath, signature := parts[0], parts[1], parts[2], parts[3]

	if !hmac.Equal([]byte(s.sign(jobID, ts, encodedPath)), []byte(signature)) {
		return "", "", time.Time{}, errTokenSignature
	}
	expUnix, convErr := strconv.ParseInt(ts, 10, 64)
	if convErr != nil {
		return "", "", time.Time{}, fmt.Errorf("invalid expiry: %w", convErr)
	}
	expiresAt = time.Unix(expUnix, 0)
	rawPath, decErr := base64.RawURLEncoding.DecodeString(encodedPath)
	if decErr != nil {
		return "", "", time.Time{}, fmt.Errorf("decode path: %w", decErr)
	}
	if !allowExpired && time.Now().After(expiresAt) {
		return "", "", time.Time{}, errTokenExpired
	}
	return jobID, string(rawPath), expiresAt, nil
}

func (s *SignedURLSigner) sign(jobID, ts, encodedPath string) string {
	mac := hmac.New(sha256.New, s.secret)
	fmt.Fprintf(mac, "%s|%s|%s", jobID, ts, encodedPath)
	return hex.EncodeToString(mac.Sum(nil))
}
