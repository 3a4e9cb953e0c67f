package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"google.golang.org/genai"

	"github.com/hoopcoach/shot-coach/internal/coach"
	"github.com/hoopcoach/shot-coach/internal/eval"
	"github.com/hoopcoach/shot-coach/internal/logging"
)

var evalCmd = &cobra.Command{
	Use:   "eval",
	Short: "Evaluate the classifier against a labeled clip dataset",
	Long: `Runs the Gemini classifier over every clip in the ground truth file and
reports per-field accuracy, confusion counts, confidence, and latency.

The summary lands as JSON in the output directory alongside a zstd-compressed
archive of the raw per-clip results for error analysis.`,
	Run: runEval,
}

func init() {
	evalCmd.Flags().StringVar(&groundTruthFlag, "ground-truth", "data/ground_truth.json", "Labeled dataset JSON file")
	evalCmd.Flags().StringVarP(&modelFlag, "model", "m", coach.DefaultModel, "Gemini model to evaluate")
	evalCmd.Flags().IntVar(&maxSamplesFlag, "max-samples", 0, "Limit samples for a quick run (0 = all)")
	evalCmd.Flags().StringVarP(&outputDirFlag, "output", "o", "data/model_outputs", "Report output directory")
}

func runEval(cmd *cobra.Command, args []string) {
	logging.Init()
	ctx := context.Background()

	samples, err := eval.LoadGroundTruth(groundTruthFlag)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load ground truth")
	}

	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		log.Fatal().Msg("GEMINI_API_KEY environment variable is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create Gemini client")
	}

	classifier := coach.NewGeminiClassifier(client, modelFlag)
	report, err := eval.NewEvaluator(classifier, modelFlag).Run(ctx, samples, maxSamplesFlag)
	if err != nil {
		log.Fatal().Err(err).Msg("Evaluation run failed")
	}

	summaryPath, archivePath, err := eval.SaveReport(report, outputDirFlag)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to save report")
	}

	m := report.Metrics
	fmt.Printf("Run %s (%s)\n", report.RunID, report.Model)
	fmt.Printf("  samples:          %d (%d valid, parse rate %.2f)\n", m.TotalSamples, m.ValidPredictions, m.ParseSuccessRate)
	fmt.Printf("  shot type:        %.3f\n", m.ShotTypeAccuracy)
	fmt.Printf("  make/miss:        %.3f\n", m.ResultAccuracy)
	fmt.Printf("  both correct:     %.3f\n", m.BothCorrectAccuracy)
	fmt.Printf("  avg confidence:   %.3f\n", m.AverageConfidence)
	fmt.Printf("  avg inference:    %.2fs\n", m.AverageInferenceS)
	fmt.Printf("  summary: %s\n  archive: %s\n", summaryPath, archivePath)
}
