// Package clipflow implements the client side of the analysis pipeline:
// upload a recorded clip to S3, create the clip and pending analysis rows,
// kick off the analyze proxy, and poll for the terminal verdict.
package clipflow

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/hoopcoach/shot-coach/internal/s3util"
	"github.com/hoopcoach/shot-coach/internal/shot"
	"github.com/hoopcoach/shot-coach/internal/store"
)

const (
	// MaxDurationSeconds caps recorded clips. One shot attempt fits well
	// under this; anything longer is a recording mistake.
	MaxDurationSeconds = 30.0

	defaultUploadAttempts = 3
	defaultRetryDelay     = time.Second
)

// Uploader stores a clip body under a key. Implemented by S3Uploader; tests
// substitute a fake.
type Uploader interface {
	Upload(ctx context.Context, key string, body []byte, contentType string) error
}

// S3Uploader uploads clips to a single bucket.
type S3Uploader struct {
	client *s3.Client
	bucket string
}

// NewS3Uploader creates an S3Uploader for the bucket.
func NewS3Uploader(client *s3.Client, bucket string) *S3Uploader {
	return &S3Uploader{client: client, bucket: bucket}
}

func (u *S3Uploader) Upload(ctx context.Context, key string, body []byte, contentType string) error {
	return s3util.UploadClip(ctx, u.client, u.bucket, key, bytes.NewReader(body), contentType)
}

// Analyzer triggers classification of an uploaded clip. Implemented by
// Client.
type Analyzer interface {
	TriggerAnalyze(ctx context.Context, clipID, storageKey string) error
}

// UploadRequest describes a recorded clip to push through the pipeline.
type UploadRequest struct {
	Filename        string
	ContentType     string
	DurationSeconds float64
	Body            []byte
}

// Result is the state created by a successful upload.
type Result struct {
	Clip       *shot.Clip
	Analysis   *shot.Analysis
	StorageKey string
}

// Flow runs the upload-and-record sequence.
type Flow struct {
	store    store.Store
	uploader Uploader
	analyzer Analyzer

	// Retry knobs, overridable in tests.
	UploadAttempts int
	RetryDelay     time.Duration
}

// NewFlow creates a Flow. analyzer may be nil to skip triggering analysis
// (upload-only mode).
func NewFlow(st store.Store, uploader Uploader, analyzer Analyzer) *Flow {
	return &Flow{
		store:          st,
		uploader:       uploader,
		analyzer:       analyzer,
		UploadAttempts: defaultUploadAttempts,
		RetryDelay:     defaultRetryDelay,
	}
}

// Upload validates the clip, uploads it, and records the clip and pending
// analysis rows. Validation failures are terminal; upload failures retry with
// linear backoff. Cancellation before the upload leaves no object and no rows.
// When an analyzer is configured the analyze trigger runs last; if it fails,
// the created rows are returned alongside the error so the caller can retry
// the trigger alone.
func (f *Flow) Upload(ctx context.Context, req UploadRequest) (*Result, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	key := uuid.NewString() + "/" + path.Base(req.Filename)
	if err := f.uploadWithRetry(ctx, key, req); err != nil {
		return nil, err
	}

	clip, err := f.store.CreateClip(ctx, key, req.DurationSeconds)
	if err != nil {
		return nil, fmt.Errorf("record clip: %w", err)
	}
	analysis, err := f.store.CreateAnalysis(ctx, clip.ID)
	if err != nil {
		return nil, fmt.Errorf("record pending analysis: %w", err)
	}

	result := &Result{Clip: clip, Analysis: analysis, StorageKey: key}
	log.Info().
		Str("clipId", clip.ID).
		Str("analysisId", analysis.ID).
		Str("storageKey", key).
		Msg("Clip uploaded and recorded")

	if f.analyzer != nil {
		if err := f.analyzer.TriggerAnalyze(ctx, clip.ID, key); err != nil {
			return result, fmt.Errorf("trigger analyze: %w", err)
		}
	}
	return result, nil
}

func validate(req UploadRequest) error {
	if req.Filename == "" {
		return fmt.Errorf("filename is required")
	}
	if len(req.Body) == 0 {
		return fmt.Errorf("clip body is empty")
	}
	if req.DurationSeconds <= 0 {
		return fmt.Errorf("duration must be positive, got %.2fs", req.DurationSeconds)
	}
	if req.DurationSeconds > MaxDurationSeconds {
		return fmt.Errorf("clip duration %.1fs exceeds the %.0fs cap", req.DurationSeconds, MaxDurationSeconds)
	}
	return nil
}

func (f *Flow) uploadWithRetry(ctx context.Context, key string, req UploadRequest) error {
	contentType := req.ContentType
	if contentType == "" {
		contentType = "video/mp4"
	}

	var lastErr error
	for attempt := 1; attempt <= f.UploadAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		lastErr = f.uploader.Upload(ctx, key, req.Body, contentType)
		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if attempt < f.UploadAttempts {
			delay := time.Duration(attempt) * f.RetryDelay
			log.Warn().Err(lastErr).Int("attempt", attempt).Dur("retryIn", delay).Msg("Clip upload failed, retrying")
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return fmt.Errorf("upload clip after %d attempts: %w", f.UploadAttempts, lastErr)
}
