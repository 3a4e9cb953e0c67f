// Package overrides serves POST /update-analysis-overrides: a user correction
// to a single predicted field. Corrections are upserts, so re-correcting the
// same field replaces the previous value, and each accepted correction is
// emitted to EventBridge for the fine-tuning pipeline.
package overrides

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/hoopcoach/shot-coach/internal/httputil"
	"github.com/hoopcoach/shot-coach/internal/metrics"
	"github.com/hoopcoach/shot-coach/internal/shot"
	"github.com/hoopcoach/shot-coach/internal/store"
)

// correctionEmitter publishes accepted corrections. Implemented by
// events.Emitter; nil disables emission.
type correctionEmitter interface {
	EmitCorrection(ctx context.Context, clipID string, o *shot.Override) error
}

type overrideRequest struct {
	AnalysisID    string  `json:"analysis_id"`
	FieldName     string  `json:"field_name"`
	OriginalValue *string `json:"original_value"`
	OverrideValue string  `json:"override_value"`
}

// Handler serves override upserts.
type Handler struct {
	store   store.Store
	emitter correctionEmitter
}

// NewHandler creates the overrides handler. emitter may be nil.
func NewHandler(st store.Store, emitter correctionEmitter) *Handler {
	return &Handler{store: st, emitter: emitter}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost && r.Method != http.MethodPatch {
		httputil.Error(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	ctx := r.Context()

	var req overrideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid JSON body", err.Error())
		return
	}
	if req.AnalysisID == "" {
		httputil.Error(w, http.StatusBadRequest, "analysis_id is required")
		return
	}
	if err := shot.ValidateOverride(req.FieldName, req.OverrideValue); err != nil {
		httputil.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	analysis, err := h.store.GetAnalysis(ctx, req.AnalysisID)
	if err != nil {
		httputil.Error(w, http.StatusInternalServerError, "failed to look up analysis", err.Error())
		return
	}
	if analysis == nil {
		httputil.Error(w, http.StatusNotFound, "analysis not found")
		return
	}

	m := metrics.New("ShotCoach").Dimension("Operation", "override").Property("analysisId", req.AnalysisID)
	defer m.Flush()

	saved, err := h.store.UpsertOverride(ctx, &shot.Override{
		AnalysisID:    req.AnalysisID,
		FieldName:     shot.OverrideField(req.FieldName),
		OriginalValue: req.OriginalValue,
		OverrideValue: req.OverrideValue,
	})
	if err != nil {
		m.Count("OverrideFailed")
		httputil.Error(w, http.StatusInternalServerError, "failed to save override", err.Error())
		return
	}
	m.Count("OverrideSaved")

	// Emission is best-effort: the override is already durable, and losing one
	// training signal is better than failing the user's correction.
	if h.emitter != nil {
		if err := h.emitter.EmitCorrection(ctx, analysis.ClipID, saved); err != nil {
			log.Warn().Err(err).Str("analysisId", saved.AnalysisID).Msg("Correction event emission failed")
			m.Count("CorrectionEmitFailed")
		}
	}

	log.Info().
		Str("analysisId", saved.AnalysisID).
		Str("fieldName", string(saved.FieldName)).
		Str("overrideValue", saved.OverrideValue).
		Msg("Analysis override saved")
	httputil.RespondJSON(w, http.StatusOK, saved)
}
