// Package proxy forwards analyze requests to the hosted inference worker.
// The proxy exists so the worker's shared auth token never ships in a client:
// clients call this Lambda, the Lambda attaches the token and relays the
// worker's response verbatim.
package proxy

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hoopcoach/shot-coach/internal/httputil"
	"github.com/hoopcoach/shot-coach/internal/metrics"
	"github.com/hoopcoach/shot-coach/internal/s3util"
)

// forwardTimeout must cover a full worker run: download, Gemini call, and the
// two database writes.
const forwardTimeout = 120 * time.Second

// analyzeRequest is the client-facing body. The worker token is attached
// server-side; a client-supplied token field is overwritten, never trusted.
type analyzeRequest struct {
	ClipID     string `json:"clip_id"`
	StorageKey string `json:"storage_key"`
}

// Handler serves POST /analyze by relaying to the worker.
type Handler struct {
	workerURL   string
	workerToken string
	httpClient  *http.Client
}

// NewHandler creates the proxy handler. httpClient may be nil; a client with
// the forward timeout is used.
func NewHandler(workerURL, workerToken string, httpClient *http.Client) *Handler {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: forwardTimeout}
	}
	return &Handler{workerURL: workerURL, workerToken: workerToken, httpClient: httpClient}
}

// ServeHTTP validates the request, attaches the worker token, and relays the
// worker's status code, content type, and body unchanged. The proxy never
// rewrites worker responses; clients see exactly what the worker said.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.Error(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid JSON body", err.Error())
		return
	}
	if req.ClipID == "" {
		httputil.Error(w, http.StatusBadRequest, "clip_id is required")
		return
	}
	if err := s3util.ValidateStorageKey(req.StorageKey); err != nil {
		httputil.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	forwarded, err := json.Marshal(map[string]string{
		"x_worker_auth": h.workerToken,
		"clip_id":       req.ClipID,
		"storage_key":   req.StorageKey,
	})
	if err != nil {
		httputil.Error(w, http.StatusInternalServerError, "failed to build worker request", err.Error())
		return
	}

	m := metrics.New("ShotCoach").Dimension("Operation", "proxy").Property("clipId", req.ClipID)
	defer m.Flush()

	workerReq, err := http.NewRequestWithContext(r.Context(), http.MethodPost, h.workerURL, bytes.NewReader(forwarded))
	if err != nil {
		httputil.Error(w, http.StatusInternalServerError, "failed to build worker request", err.Error())
		return
	}
	workerReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := h.httpClient.Do(workerReq)
	if err != nil {
		m.Count("WorkerUnreachable")
		httputil.Error(w, http.StatusBadGateway, "analysis worker unreachable", err.Error())
		return
	}
	defer resp.Body.Close()
	m.Duration("ForwardLatency", time.Since(start)).Count("AnalyzeForwarded")

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		httputil.Error(w, http.StatusBadGateway, "failed to read worker response", err.Error())
		return
	}

	log.Info().
		Str("clipId", req.ClipID).
		Int("workerStatus", resp.StatusCode).
		Dur("latency", time.Since(start)).
		Msg("Analyze request relayed to worker")

	if ct := resp.Header.Get("Content-Type"); ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	w.WriteHeader(resp.StatusCode)
	w.Write(body)
}
