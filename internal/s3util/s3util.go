// Package s3util wraps the S3 operations the clip pipeline needs: uploading
// a recorded clip, presigning playback URLs, and validating storage keys.
package s3util

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"
)

// PlaybackURLTTL bounds the validity window of a presigned playback URL.
const PlaybackURLTTL = 10 * time.Minute

// uuidRegex matches UUID v4 format: 8-4-4-4-12 lowercase hex with dashes.
var uuidRegex = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

// ValidateStorageKey checks that a clip storage key has the expected
// <uuid>/<filename> shape and contains no path traversal.
func ValidateStorageKey(key string) error {
	if strings.Contains(key, "..") || strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return fmt.Errorf("invalid storage key")
	}
	parts := strings.SplitN(key, "/", 2)
	if len(parts) != 2 || !uuidRegex.MatchString(parts[0]) || parts[1] == "" {
		return fmt.Errorf("invalid storage key format: expected <uuid>/<filename>")
	}
	return nil
}

// URLSigner produces a presigned GET URL for a stored object. Implemented by
// Signer; handlers accept the interface so tests can substitute a fake.
type URLSigner interface {
	SignGet(ctx context.Context, key string, expiry time.Duration) (string, error)
}

// Signer presigns S3 URLs for a single bucket.
type Signer struct {
	presigner *s3.PresignClient
	bucket    string
}

// NewSigner creates a Signer over the given presign client and bucket.
func NewSigner(presigner *s3.PresignClient, bucket string) *Signer {
	return &Signer{presigner: presigner, bucket: bucket}
}

// SignGet creates a presigned GET URL for key, valid for expiry.
func (s *Signer) SignGet(ctx context.Context, key string, expiry time.Duration) (string, error) {
	result, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: &s.bucket,
		Key:    &key,
	}, s3.WithPresignExpires(expiry))
	if err != nil {
		return "", fmt.Errorf("presign GetObject %s: %w", key, err)
	}
	return result.URL, nil
}

// UploadClip uploads a recorded clip body to the bucket under key.
func UploadClip(ctx context.Context, client *s3.Client, bucket, key string, body io.Reader, contentType string) error {
	_, err := client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      &bucket,
		Key:         &key,
		Body:        body,
		ContentType: &contentType,
	})
	if err != nil {
		return fmt.Errorf("upload clip %s: %w", key, err)
	}

	log.Debug().Str("key", key).Str("contentType", contentType).Msg("Clip uploaded to S3")
	return nil
}
