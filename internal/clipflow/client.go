package clipflow

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hoopcoach/shot-coach/internal/shot"
)

// Client calls the deployed API surface: the analyze proxy, the playback URL
// signer, and the override endpoint. It implements Analyzer.
type Client struct {
	baseURL      string
	originSecret string
	httpClient   *http.Client
}

// NewClient creates a Client for the API at baseURL. originSecret is sent as
// the x-origin-verify header when non-empty. httpClient may be nil.
func NewClient(baseURL, originSecret string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 150 * time.Second}
	}
	return &Client{baseURL: baseURL, originSecret: originSecret, httpClient: httpClient}
}

// TriggerAnalyze asks the analyze proxy to classify the clip. The call blocks
// until the worker finishes; the terminal row lands in the store either way.
func (c *Client) TriggerAnalyze(ctx context.Context, clipID, storageKey string) error {
	body := map[string]string{"clip_id": clipID, "storage_key": storageKey}
	return c.post(ctx, "/analyze", body, nil)
}

// GetPlaybackURL fetches a presigned playback URL for the clip.
func (c *Client) GetPlaybackURL(ctx context.Context, storageKey string) (string, error) {
	var resp struct {
		SignedURL string `json:"signedUrl"`
	}
	if err := c.post(ctx, "/get-signed-url", map[string]string{"storageKey": storageKey}, &resp); err != nil {
		return "", err
	}
	return resp.SignedURL, nil
}

// SaveOverride records a correction to a predicted field and returns the
// persisted override row.
func (c *Client) SaveOverride(ctx context.Context, analysisID, fieldName string, originalValue *string, overrideValue string) (*shot.Override, error) {
	body := map[string]interface{}{
		"analysis_id":    analysisID,
		"field_name":     fieldName,
		"original_value": originalValue,
		"override_value": overrideValue,
	}
	var saved shot.Override
	if err := c.post(ctx, "/update-analysis-overrides", body, &saved); err != nil {
		return nil, err
	}
	return &saved, nil
}

func (c *Client) post(ctx context.Context, path string, body interface{}, out interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.originSecret != "" {
		req.Header.Set("x-origin-verify", c.originSecret)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("POST %s: %w", path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("POST %s: read response: %w", path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(respBody, &e) == nil && e.Error != "" {
			return fmt.Errorf("POST %s: %s (status %d)", path, e.Error, resp.StatusCode)
		}
		return fmt.Errorf("POST %s: status %d", path, resp.StatusCode)
	}
	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("POST %s: decode response: %w", path, err)
		}
	}
	return nil
}
