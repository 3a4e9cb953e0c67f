package eval

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hoopcoach/shot-coach/internal/coach"
	"github.com/hoopcoach/shot-coach/internal/ids"
)

// SampleResult is the outcome of classifying one labeled clip.
type SampleResult struct {
	ClipID          string  `json:"clip_id"`
	GroundTruth     Label   `json:"ground_truth"`
	PredShotType    *string `json:"pred_shot_type"`
	PredResult      *string `json:"pred_result"`
	Confidence      float64 `json:"confidence"`
	ShotTypeCorrect bool    `json:"shot_type_correct"`
	ResultCorrect   bool    `json:"result_correct"`
	InferenceTimeS  float64 `json:"inference_time_s"`
	Error           string  `json:"error,omitempty"`
}

// Metrics aggregates a run. Accuracies are computed over valid predictions;
// a clip whose classification errored counts against parse success only.
type Metrics struct {
	TotalSamples        int     `json:"total_samples"`
	ValidPredictions    int     `json:"valid_predictions"`
	ParseSuccessRate    float64 `json:"parse_success_rate"`
	ShotTypeAccuracy    float64 `json:"shot_type_accuracy"`
	ResultAccuracy      float64 `json:"result_accuracy"`
	BothCorrectAccuracy float64 `json:"both_correct_accuracy"`
	AverageConfidence   float64 `json:"average_confidence"`
	AverageInferenceS   float64 `json:"average_inference_time_s"`

	// Confusion counts keyed "truth -> prediction"; nil predictions appear
	// as "none".
	ShotTypeConfusion map[string]int `json:"shot_type_confusion_matrix"`
	ResultConfusion   map[string]int `json:"result_confusion_matrix"`
}

// Report is a full evaluation run.
type Report struct {
	RunID     string         `json:"run_id"`
	Model     string         `json:"model_name"`
	Timestamp time.Time      `json:"evaluation_timestamp"`
	Metrics   Metrics        `json:"metrics"`
	Results   []SampleResult `json:"results"`
}

// Evaluator runs a classifier over a labeled dataset.
type Evaluator struct {
	classifier coach.Classifier
	model      string
}

// NewEvaluator creates an Evaluator. model is recorded in the report only.
func NewEvaluator(classifier coach.Classifier, model string) *Evaluator {
	if model == "" {
		model = coach.DefaultModel
	}
	return &Evaluator{classifier: classifier, model: model}
}

// Run classifies every sample and aggregates metrics. maxSamples > 0 truncates
// the dataset for quick runs. Per-clip failures are recorded, not fatal;
// context cancellation stops the run.
func (e *Evaluator) Run(ctx context.Context, samples []Sample, maxSamples int) (*Report, error) {
	if maxSamples > 0 && len(samples) > maxSamples {
		samples = samples[:maxSamples]
	}
	if len(samples) == 0 {
		return nil, fmt.Errorf("no samples to evaluate")
	}

	runID := ids.New("eval-")
	log.Info().Str("runId", runID).Str("model", e.model).Int("samples", len(samples)).Msg("Evaluation run starting")

	results := make([]SampleResult, 0, len(samples))
	for _, sample := range samples {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		results = append(results, e.evaluateSample(ctx, sample))
	}

	report := &Report{
		RunID:     runID,
		Model:     e.model,
		Timestamp: time.Now().UTC(),
		Metrics:   ComputeMetrics(results),
		Results:   results,
	}
	log.Info().
		Str("runId", runID).
		Float64("shotTypeAccuracy", report.Metrics.ShotTypeAccuracy).
		Float64("resultAccuracy", report.Metrics.ResultAccuracy).
		Msg("Evaluation run complete")
	return report, nil
}

func (e *Evaluator) evaluateSample(ctx context.Context, sample Sample) SampleResult {
	result := SampleResult{ClipID: sample.ClipID, GroundTruth: sample.GroundTruth}

	video, err := os.ReadFile(sample.VideoPath)
	if err != nil {
		result.Error = fmt.Sprintf("read video: %v", err)
		return result
	}

	start := time.Now()
	call, err := e.classifier.Classify(ctx, video, "video/mp4")
	result.InferenceTimeS = time.Since(start).Seconds()
	if err != nil {
		log.Warn().Err(err).Str("clipId", sample.ClipID).Msg("Classification failed during evaluation")
		result.Error = err.Error()
		return result
	}

	result.Confidence = call.Confidence
	if call.Range != nil {
		v := string(*call.Range)
		result.PredShotType = &v
	}
	if call.MakeMiss != nil {
		v := string(*call.MakeMiss)
		result.PredResult = &v
	}
	result.ShotTypeCorrect = result.PredShotType != nil && *result.PredShotType == sample.GroundTruth.ShotType
	result.ResultCorrect = result.PredResult != nil && *result.PredResult == sample.GroundTruth.Result
	return result
}

// ComputeMetrics aggregates per-clip results into run metrics.
func ComputeMetrics(results []SampleResult) Metrics {
	m := Metrics{
		TotalSamples:      len(results),
		ShotTypeConfusion: make(map[string]int),
		ResultConfusion:   make(map[string]int),
	}
	if len(results) == 0 {
		return m
	}

	var bothCorrect, shotTypeCorrect, resultCorrect int
	var confidenceSum, inferenceSum float64
	for _, r := range results {
		inferenceSum += r.InferenceTimeS
		if r.Error != "" {
			continue
		}
		m.ValidPredictions++
		confidenceSum += r.Confidence

		m.ShotTypeConfusion[confusionKey(r.GroundTruth.ShotType, r.PredShotType)]++
		m.ResultConfusion[confusionKey(r.GroundTruth.Result, r.PredResult)]++

		if r.ShotTypeCorrect {
			shotTypeCorrect++
		}
		if r.ResultCorrect {
			resultCorrect++
		}
		if r.ShotTypeCorrect && r.ResultCorrect {
			bothCorrect++
		}
	}

	m.ParseSuccessRate = float64(m.ValidPredictions) / float64(m.TotalSamples)
	m.AverageInferenceS = inferenceSum / float64(m.TotalSamples)
	if m.ValidPredictions > 0 {
		m.ShotTypeAccuracy = float64(shotTypeCorrect) / float64(m.ValidPredictions)
		m.ResultAccuracy = float64(resultCorrect) / float64(m.ValidPredictions)
		m.BothCorrectAccuracy = float64(bothCorrect) / float64(m.ValidPredictions)
		m.AverageConfidence = confidenceSum / float64(m.ValidPredictions)
	}
	return m
}

func confusionKey(truth string, pred *string) string {
	p := "none"
	if pred != nil {
		p = *pred
	}
	return truth + " -> " + p
}
