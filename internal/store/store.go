// Package store persists clips, analyses, and overrides in Aurora Postgres
// through the RDS Data API. The serverless Data API keeps the Lambdas free of
// connection pooling while the relational schema enforces the invariants the
// domain relies on: foreign keys, status/enumeration check constraints, and
// the one-override-per-field uniqueness that makes upserts safe.
//
// The schema lives in schema/schema.sql.
package store

import (
	"context"

	"github.com/hoopcoach/shot-coach/internal/shot"
)

// Outcome is the terminal result the inference worker writes to a successful
// analysis row.
type Outcome struct {
	ShotType   *shot.Type
	Result     *shot.Result
	Confidence float64
	TipsText   string
}

// Store defines the persistence operations for the clip analysis pipeline.
// Each method is safe for concurrent use. Get methods return (nil, nil) when
// the requested row does not exist.
//
// Status mutations are guarded: StartAnalysis only moves a pending row to
// processing, and CompleteAnalysis/FailAnalysis only touch non-terminal rows,
// so a terminal status can never be rewound.
type Store interface {
	// CreateClip inserts an immutable clip record and returns it with the
	// generated ID and timestamp.
	CreateClip(ctx context.Context, storageKey string, durationSeconds float64) (*shot.Clip, error)

	// GetClip retrieves a clip by ID. Returns nil, nil if not found.
	GetClip(ctx context.Context, id string) (*shot.Clip, error)

	// CreateAnalysis inserts a pending analysis row for the clip.
	CreateAnalysis(ctx context.Context, clipID string) (*shot.Analysis, error)

	// GetAnalysis retrieves an analysis by ID. Returns nil, nil if not found.
	GetAnalysis(ctx context.Context, id string) (*shot.Analysis, error)

	// LatestAnalysisForClip retrieves the most recently created analysis row
	// for a clip. Returns nil, nil if the clip has none.
	LatestAnalysisForClip(ctx context.Context, clipID string) (*shot.Analysis, error)

	// StartAnalysis moves a pending analysis to processing and stamps
	// started_at. Fails if the row is missing or no longer pending.
	StartAnalysis(ctx context.Context, id string) error

	// CompleteAnalysis writes a success outcome to a non-terminal analysis.
	CompleteAnalysis(ctx context.Context, id string, outcome Outcome) error

	// FailAnalysis writes a failed status and error message to a non-terminal
	// analysis.
	FailAnalysis(ctx context.Context, id string, errMsg string) error

	// UpsertOverride inserts or replaces the override for (analysis, field),
	// returning the persisted row. Last write wins.
	UpsertOverride(ctx context.Context, o *shot.Override) (*shot.Override, error)

	// ListOverrides returns all overrides recorded for an analysis.
	ListOverrides(ctx context.Context, analysisID string) ([]shot.Override, error)
}
