// Package eval measures classifier quality against a labeled clip set:
// per-field accuracy, confusion counts, confidence, and latency. Reports are
// written as JSON with a zstd-compressed archive of the raw per-clip results.
package eval

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/hoopcoach/shot-coach/internal/shot"
)

// Label is the human-verified classification of a clip.
type Label struct {
	ShotType string `json:"shot_type"`
	Result   string `json:"result"`
}

// Sample pairs a local clip file with its ground truth.
type Sample struct {
	ClipID      string `json:"clip_id"`
	VideoPath   string `json:"video_path"`
	GroundTruth Label  `json:"ground_truth"`
}

// LoadGroundTruth reads a labeled dataset from a JSON array file and validates
// every label against the enumerations.
func LoadGroundTruth(path string) ([]Sample, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read ground truth: %w", err)
	}
	var samples []Sample
	if err := json.Unmarshal(data, &samples); err != nil {
		return nil, fmt.Errorf("parse ground truth %s: %w", path, err)
	}

	for i, s := range samples {
		if s.ClipID == "" || s.VideoPath == "" {
			return nil, fmt.Errorf("ground truth entry %d: clip_id and video_path are required", i)
		}
		if _, ok := shot.ParseType(s.GroundTruth.ShotType); !ok {
			return nil, fmt.Errorf("ground truth %s: invalid shot_type %q", s.ClipID, s.GroundTruth.ShotType)
		}
		if _, ok := shot.ParseResult(s.GroundTruth.Result); !ok {
			return nil, fmt.Errorf("ground truth %s: invalid result %q", s.ClipID, s.GroundTruth.Result)
		}
	}
	return samples, nil
}
