package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SignedURLSigner creates and validates expiring download tokens for stored objects.
type SignedURLSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSignedURLSigner constructs a signer with the provided secret and TTL.
func NewSignedURLSigner(secret string, ttl time.Duration) *SignedURLSigner {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &SignedURLSigner{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Generate returns a token of the form bucket.expiry.path.signature.
func (s *SignedURLSigner) Generate(obj Object) (string, time.Time, error) {
	if obj.Bucket == "" || obj.Path == "" {
		return "", time.Time{}, fmt.Errorf("bucket and path required")
	}
	if len(s.secret) == 0 {
		return "", time.Time{}, fmt.Errorf("signing secret missing")
	}
	expiresAt := s.now().Add(s.ttl)
	encodedBucket := base64.RawURLEncoding.EncodeToString([]byte(obj.Bucket))
	encodedPath := base64.RawURLEncoding.EncodeToString([]byte(obj.Path))
	ts := strconv.FormatInt(expiresAt.Unix(), 10)
	token := strings.Join([]string{encodedBucket, ts, encodedPath, s.sign(encodedBucket, ts, encodedPath)}, ".")
	return token, expiresAt, nil
}

// Parse validates a token and returns the referenced object.
func (s *SignedURLSigner) Parse(token string) (Object, time.Time, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 4 {
		return Object{}, time.Time{}, fmt.Errorf("invalid token format")
	}
	encodedBucket, ts, encodedPath, signature := parts[0], parts[1], parts[2], parts[3]

	if !hmac.Equal([]byte(s.sign(encodedBucket, ts, encodedPath)), []byte(signature)) {
		return Object{}, time.Time{}, fmt.Errorf("invalid token signature")
	}
	expUnix, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return Object{}, time.Time{}, fmt.Errorf("invalid timestamp")
	}
	expiresAt := time.Unix(expUnix, 0)
	if s.now().After(expiresAt) {
		return Object{}, time.Time{}, fmt.Errorf("token expired")
	}

	bucket, err := base64.RawURLEncoding.DecodeString(encodedBucket)
	if err != nil {
		return Object{}, time.Time{}, fmt.Errorf("decode bucket: %w", err)
	}
	rawPath, err := base64.RawURLEncoding.DecodeString(encodedPath)
	if err != nil {
		return Object{}, time.Time{}, fmt.Errorf("decode path: %w", err)
	}
	return Object{Bucket: string(bucket), Path: string(rawPath)}, expiresAt, nil
}

func (s *SignedURLSigner) sign(bucket, ts, path string) string {
	mac := hmac.New(sha256.New, s.secret)
	_, _ = mac.Write([]byte(bucket + "|" + ts + "|" + path))
	return hex.EncodeToString(mac.Sum(nil))
}
