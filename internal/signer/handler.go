// Package signer serves POST /get-signed-url: a short-lived presigned S3 GET
// URL for clip playback. The clip bucket is private; this endpoint is the only
// way a client obtains a readable URL.
package signer

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/hoopcoach/shot-coach/internal/httputil"
	"github.com/hoopcoach/shot-coach/internal/metrics"
	"github.com/hoopcoach/shot-coach/internal/s3util"
)

type signRequest struct {
	StorageKey string `json:"storageKey"`
}

type signResponse struct {
	SignedURL string `json:"signedUrl"`
}

// Handler serves playback URL requests.
type Handler struct {
	signer s3util.URLSigner
}

// NewHandler creates the signer handler.
func NewHandler(signer s3util.URLSigner) *Handler {
	return &Handler{signer: signer}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.Error(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req signRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid JSON body", err.Error())
		return
	}
	if err := s3util.ValidateStorageKey(req.StorageKey); err != nil {
		httputil.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	m := metrics.New("ShotCoach").Dimension("Operation", "sign-url")
	defer m.Flush()

	url, err := h.signer.SignGet(r.Context(), req.StorageKey, s3util.PlaybackURLTTL)
	if err != nil {
		m.Count("SignURLFailed")
		httputil.Error(w, http.StatusInternalServerError, "failed to sign playback URL", err.Error())
		return
	}
	m.Count("SignURLSucceeded")

	log.Debug().Str("storageKey", req.StorageKey).Msg("Playback URL signed")
	httputil.RespondJSON(w, http.StatusOK, signResponse{SignedURL: url})
}
