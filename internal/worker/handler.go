// Package worker implements the inference endpoint: download a clip through a
// presigned URL, classify it with Gemini, and write the terminal analysis row.
// The analyze proxy is the only intended caller; requests authenticate with a
// shared token carried in the request body.
package worker

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hoopcoach/shot-coach/internal/coach"
	"github.com/hoopcoach/shot-coach/internal/httputil"
	"github.com/hoopcoach/shot-coach/internal/metrics"
	"github.com/hoopcoach/shot-coach/internal/s3util"
	"github.com/hoopcoach/shot-coach/internal/store"
)

const (
	// downloadTimeout bounds the clip fetch; clips are short so a slow
	// download signals a storage problem, not a big file.
	downloadTimeout = 60 * time.Second

	// downloadURLTTL is the validity window of the presigned clip URL.
	downloadURLTTL = 10 * time.Minute

	// maxClipBytes caps the downloaded clip size.
	maxClipBytes = 128 << 20
)

// analyzeRequest is the body the proxy forwards. The shared token travels in
// the body so every client shape (URLSession, curl, the proxy) sends it the
// same way.
type analyzeRequest struct {
	WorkerAuth string `json:"x_worker_auth"`
	ClipID     string `json:"clip_id"`
	StorageKey string `json:"storage_key"`
}

// analyzeResponse is the success payload returned to the proxy.
type analyzeResponse struct {
	ClipID     string   `json:"clip_id"`
	AnalysisID string   `json:"analysis_id"`
	Status     string   `json:"status"`
	ShotType   *string  `json:"shot_type"`
	Result     *string  `json:"result"`
	Confidence float64  `json:"confidence"`
	Tips       []string `json:"tips"`
	ElapsedS   float64  `json:"elapsed_s"`
}

// Handler serves POST /analyze.
type Handler struct {
	store      store.Store
	signer     s3util.URLSigner
	classifier coach.Classifier
	authToken  string
	httpClient *http.Client
}

// NewHandler creates the worker handler. httpClient may be nil; a client with
// the download timeout is used.
func NewHandler(st store.Store, signer s3util.URLSigner, classifier coach.Classifier, authToken string, httpClient *http.Client) *Handler {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: downloadTimeout}
	}
	return &Handler{
		store:      st,
		signer:     signer,
		classifier: classifier,
		authToken:  authToken,
		httpClient: httpClient,
	}
}

// ServeHTTP handles an analyze request end to end. Any failure after the row
// moved to processing marks it failed so the client's polling loop terminates.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	m := metrics.New("ShotCoach").Dimension("Operation", "analyze")
	defer m.Flush()

	if r.Method != http.MethodPost {
		httputil.Error(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid JSON body", err.Error())
		return
	}

	if req.WorkerAuth == "" || req.WorkerAuth != h.authToken {
		log.Warn().Str("clipId", req.ClipID).Msg("Rejected analyze request: bad worker auth token")
		m.Count("AnalyzeUnauthorized")
		httputil.Error(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	if req.ClipID == "" || req.StorageKey == "" {
		httputil.Error(w, http.StatusUnprocessableEntity, "clip_id and storage_key are required")
		return
	}

	analysis, err := h.store.LatestAnalysisForClip(ctx, req.ClipID)
	if err != nil {
		httputil.Error(w, http.StatusInternalServerError, "failed to look up analysis", err.Error())
		return
	}
	if analysis == nil {
		httputil.Error(w, http.StatusNotFound, "No analysis row found for clip")
		return
	}

	if err := h.store.StartAnalysis(ctx, analysis.ID); err != nil {
		httputil.Error(w, http.StatusInternalServerError, "failed to start analysis", err.Error())
		return
	}

	call, err := h.classifyClip(r, req.StorageKey)
	if err != nil {
		h.failAnalysis(r, analysis.ID, err)
		m.Count("AnalyzeFailed")
		httputil.Error(w, http.StatusInternalServerError, err.Error())
		return
	}

	outcome := store.Outcome{
		ShotType:   call.Range,
		Result:     call.MakeMiss,
		Confidence: call.Confidence,
		TipsText:   call.TipsText(),
	}
	if err := h.store.CompleteAnalysis(ctx, analysis.ID, outcome); err != nil {
		h.failAnalysis(r, analysis.ID, err)
		m.Count("AnalyzeFailed")
		httputil.Error(w, http.StatusInternalServerError, "failed to record analysis result", err.Error())
		return
	}

	elapsed := time.Since(start)
	m.Count("AnalyzeSucceeded").Duration("AnalyzeLatency", elapsed).Property("clipId", req.ClipID)

	resp := analyzeResponse{
		ClipID:     req.ClipID,
		AnalysisID: analysis.ID,
		Status:     "success",
		Confidence: call.Confidence,
		Tips:       call.Tips,
		ElapsedS:   math.Round(elapsed.Seconds()*1000) / 1000,
	}
	if call.Range != nil {
		v := string(*call.Range)
		resp.ShotType = &v
	}
	if call.MakeMiss != nil {
		v := string(*call.MakeMiss)
		resp.Result = &v
	}
	if resp.Tips == nil {
		resp.Tips = []string{}
	}

	log.Info().
		Str("clipId", req.ClipID).
		Str("analysisId", analysis.ID).
		Dur("elapsed", elapsed).
		Msg("Clip analysis complete")
	httputil.RespondJSON(w, http.StatusOK, resp)
}

func (h *Handler) classifyClip(r *http.Request, storageKey string) (*coach.ShotCall, error) {
	ctx := r.Context()

	signedURL, err := h.signer.SignGet(ctx, storageKey, downloadURLTTL)
	if err != nil {
		return nil, fmt.Errorf("sign clip download URL: %w", err)
	}

	video, err := h.downloadClip(r, signedURL)
	if err != nil {
		return nil, fmt.Errorf("download clip: %w", err)
	}

	call, err := h.classifier.Classify(ctx, video, "video/mp4")
	if err != nil {
		return nil, fmt.Errorf("classify clip: %w", err)
	}
	return call, nil
}

func (h *Handler) downloadClip(r *http.Request, signedURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, signedURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := h.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("storage returned status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxClipBytes))
	if err != nil {
		return nil, err
	}
	log.Debug().Int("bytes", len(body)).Msg("Clip downloaded for classification")
	return body, nil
}

// failAnalysis records the failure so polling clients see a terminal status.
// A second failure here is logged, not surfaced; the request already failed.
func (h *Handler) failAnalysis(r *http.Request, analysisID string, cause error) {
	if err := h.store.FailAnalysis(r.Context(), analysisID, cause.Error()); err != nil {
		log.Error().Err(err).Str("analysisId", analysisID).Msg("Failed to mark analysis failed")
	}
}
