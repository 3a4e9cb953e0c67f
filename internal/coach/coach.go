// Package coach classifies a basketball shot clip with Gemini and turns the
// model's answer into the normalized values the analysis row stores.
package coach

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"

	"github.com/hoopcoach/shot-coach/internal/jsonutil"
	"github.com/hoopcoach/shot-coach/internal/shot"
)

const (
	// DefaultModel balances latency against accuracy for short clips.
	DefaultModel = "models/gemini-2.5-flash-lite"

	// framesPerSecond is the sampling rate Gemini applies to the clip. Shot
	// release and rim contact are fast; the default 1 FPS misses them.
	framesPerSecond = 24.0
)

// ShotCall is the model's normalized verdict on a clip. MakeMiss and Range are
// nil when the model saw no clear attempt or answered outside the enumeration.
type ShotCall struct {
	MakeMiss   *shot.Result
	Range      *shot.Type
	Confidence float64
	Tips       []string
}

// TipsText flattens the coaching tips into the newline-joined form stored on
// the analysis row. Blank tips are dropped.
func (c *ShotCall) TipsText() string {
	kept := make([]string, 0, len(c.Tips))
	for _, t := range c.Tips {
		if s := strings.TrimSpace(t); s != "" {
			kept = append(kept, s)
		}
	}
	return strings.Join(kept, "\n")
}

// Classifier produces a ShotCall for a video clip. Implemented by
// GeminiClassifier; the worker and the evaluation harness accept the
// interface so tests can substitute a fake.
type Classifier interface {
	Classify(ctx context.Context, video []byte, mimeType string) (*ShotCall, error)
}

// GeminiClassifier classifies clips with the Gemini API.
type GeminiClassifier struct {
	client *genai.Client
	model  string
}

// NewGeminiClassifier creates a classifier over the given client. An empty
// model selects DefaultModel.
func NewGeminiClassifier(client *genai.Client, model string) *GeminiClassifier {
	if model == "" {
		model = DefaultModel
	}
	return &GeminiClassifier{client: client, model: model}
}

// Classify sends the clip and the classification prompt to Gemini and parses
// the JSON verdict.
func (g *GeminiClassifier) Classify(ctx context.Context, video []byte, mimeType string) (*ShotCall, error) {
	if mimeType == "" {
		mimeType = "video/mp4"
	}
	contents := []*genai.Content{{
		Role: "user",
		Parts: []*genai.Part{
			{
				InlineData:    &genai.Blob{MIMEType: mimeType, Data: video},
				VideoMetadata: &genai.VideoMetadata{FPS: genai.Ptr(framesPerSecond)},
			},
			{Text: classifyAndCoachPrompt},
		},
	}}

	callStart := time.Now()
	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, nil)
	duration := time.Since(callStart)
	if err != nil {
		log.Error().Err(err).Dur("duration", duration).Str("model", g.model).Msg("Gemini classification call failed")
		return nil, fmt.Errorf("generate content: %w", err)
	}
	if resp == nil {
		return nil, fmt.Errorf("received empty response from Gemini API")
	}

	responseText := resp.Text()
	log.Debug().
		Int("response_length", len(responseText)).
		Dur("duration", duration).
		Str("model", g.model).
		Msg("Gemini classification response received")

	return ParseShotCall(responseText)
}

// rawCall mirrors the model's output schema before normalization. Tips is a
// RawMessage because models occasionally answer with a bare string instead of
// the requested array.
type rawCall struct {
	MakeMiss   *string         `json:"make_miss"`
	Range      *string         `json:"range"`
	Confidence *float64        `json:"confidence"`
	Tips       json.RawMessage `json:"tips"`
}

// ParseShotCall extracts the JSON verdict from raw model output and normalizes
// the labels. Labels outside the enumerations degrade to nil, never to an
// error; only missing or unparseable JSON fails.
func ParseShotCall(raw string) (*ShotCall, error) {
	parsed, err := jsonutil.ParseJSON[rawCall](raw)
	if err != nil {
		return nil, fmt.Errorf("model did not return valid JSON: %w", err)
	}

	call := &ShotCall{}
	if parsed.MakeMiss != nil {
		if r, ok := shot.ParseResult(*parsed.MakeMiss); ok {
			call.MakeMiss = &r
		}
	}
	if parsed.Range != nil {
		if t, ok := shot.ParseType(*parsed.Range); ok {
			call.Range = &t
		}
	}
	if parsed.Confidence != nil {
		call.Confidence = *parsed.Confidence
	}
	call.Tips = coerceTips(parsed.Tips)
	return call, nil
}

func coerceTips(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return list
	}
	var single string
	if err := json.Unmarshal(raw, &single); err == nil && single != "" {
		return []string{single}
	}
	return nil
}
