package clipflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hoopcoach/shot-coach/internal/shot"
)

// Polling schedule: tight at first because most clips finish within seconds,
// then relaxed to avoid hammering the store on slow runs.
const (
	FastInterval = 1 * time.Second
	FastWindow   = 10 * time.Second
	SlowInterval = 2 * time.Second
)

// ErrPollTimeout is returned when a configured MaxWait elapses before the
// analysis reaches a terminal status. The last observed row accompanies it.
var ErrPollTimeout = errors.New("analysis did not reach a terminal status in time")

// analysisGetter is the slice of the store the poller needs.
type analysisGetter interface {
	GetAnalysis(ctx context.Context, id string) (*shot.Analysis, error)
}

// Poller waits for an analysis to reach success or failed.
type Poller struct {
	getter analysisGetter

	// Schedule knobs, overridable in tests.
	FastInterval time.Duration
	FastWindow   time.Duration
	SlowInterval time.Duration

	// MaxWait bounds the total wait when positive. Zero means wait until the
	// row turns terminal; the worker marks every run terminal, so unbounded
	// is the normal mode.
	MaxWait time.Duration
}

// NewPoller creates a Poller with the standard schedule and no MaxWait.
func NewPoller(getter analysisGetter) *Poller {
	return &Poller{
		getter:       getter,
		FastInterval: FastInterval,
		FastWindow:   FastWindow,
		SlowInterval: SlowInterval,
	}
}

// Wait polls the analysis until it is terminal, the context is cancelled, or
// MaxWait (when set) elapses. On ErrPollTimeout the last observed row is
// returned alongside the error.
func (p *Poller) Wait(ctx context.Context, analysisID string) (*shot.Analysis, error) {
	start := time.Now()
	for {
		analysis, err := p.getter.GetAnalysis(ctx, analysisID)
		if err != nil {
			return nil, fmt.Errorf("poll analysis %s: %w", analysisID, err)
		}
		if analysis == nil {
			return nil, fmt.Errorf("analysis %s not found", analysisID)
		}
		if analysis.Status.Terminal() {
			log.Debug().
				Str("analysisId", analysisID).
				Str("status", string(analysis.Status)).
				Dur("waited", time.Since(start)).
				Msg("Analysis reached terminal status")
			return analysis, nil
		}

		elapsed := time.Since(start)
		if p.MaxWait > 0 && elapsed >= p.MaxWait {
			return analysis, ErrPollTimeout
		}

		select {
		case <-time.After(p.interval(elapsed)):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// interval returns the delay before the next poll given time already waited.
func (p *Poller) interval(elapsed time.Duration) time.Duration {
	if elapsed < p.FastWindow {
		return p.FastInterval
	}
	return p.SlowInterval
}
