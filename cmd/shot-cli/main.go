// Package main provides the shot-cli command line tool: upload a clip through
// the full analysis pipeline, poll an analysis, record overrides, fetch
// playback URLs, and run classifier evaluations against a labeled dataset.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/hoopcoach/shot-coach/internal/clipflow"
	"github.com/hoopcoach/shot-coach/internal/lambdaboot"
	"github.com/hoopcoach/shot-coach/internal/logging"
	"github.com/hoopcoach/shot-coach/internal/shot"
)

// CLI flags
var (
	durationFlag    float64
	noWaitFlag      bool
	maxWaitFlag     time.Duration
	originalFlag    string
	modelFlag       string
	groundTruthFlag string
	maxSamplesFlag  int
	outputDirFlag   string
)

var rootCmd = &cobra.Command{
	Use:   "shot-cli",
	Short: "Basketball shot clip analysis pipeline",
	Long: `shot-cli drives the clip analysis pipeline from the command line.

Uploads push a clip to S3, create the clip and pending analysis rows, trigger
the analyze endpoint, and poll until the verdict lands. Other subcommands
inspect analyses, record corrections, and sign playback URLs.

Environment:
  API_BASE_URL           Deployed API base URL (analyze, overrides, signing)
  ORIGIN_VERIFY_SECRET   Optional x-origin-verify header value
  CLIPS_BUCKET           S3 bucket for uploads
  CLUSTER_ARN/SECRET_ARN/DB_NAME   Aurora Data API target

Examples:
  shot-cli upload corner-three.mov --duration 6.5
  shot-cli status 4f7c2a90-...
  shot-cli override 4f7c2a90-... result make
  shot-cli playback 5b30ea2c-.../corner-three.mov
  shot-cli eval --ground-truth data/ground_truth.json --max-samples 20`,
}

var uploadCmd = &cobra.Command{
	Use:   "upload <clip-file>",
	Short: "Upload a clip and run it through analysis",
	Args:  cobra.ExactArgs(1),
	Run:   runUpload,
}

var statusCmd = &cobra.Command{
	Use:   "status <analysis-id>",
	Short: "Show an analysis, optionally waiting for a terminal status",
	Args:  cobra.ExactArgs(1),
	Run:   runStatus,
}

var overrideCmd = &cobra.Command{
	Use:   "override <analysis-id> <field> <value>",
	Short: "Correct a predicted field (shot_type or result)",
	Args:  cobra.ExactArgs(3),
	Run:   runOverride,
}

var playbackCmd = &cobra.Command{
	Use:   "playback <storage-key>",
	Short: "Fetch a presigned playback URL for a clip",
	Args:  cobra.ExactArgs(1),
	Run:   runPlayback,
}

func init() {
	uploadCmd.Flags().Float64Var(&durationFlag, "duration", 0, "Clip duration in seconds (required)")
	uploadCmd.MarkFlagRequired("duration")
	uploadCmd.Flags().BoolVar(&noWaitFlag, "no-wait", false, "Skip polling for the verdict")
	uploadCmd.Flags().DurationVar(&maxWaitFlag, "max-wait", 0, "Bound the polling wait (0 = wait for a terminal status)")

	statusCmd.Flags().BoolVar(&noWaitFlag, "no-wait", true, "Print the current row without polling")
	statusCmd.Flags().DurationVar(&maxWaitFlag, "max-wait", 0, "Bound the polling wait (0 = wait for a terminal status)")

	overrideCmd.Flags().StringVar(&originalFlag, "original", "", "Original predicted value being corrected")

	rootCmd.AddCommand(uploadCmd, statusCmd, overrideCmd, playbackCmd, evalCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// apiClient builds the HTTP client for the deployed API. Fatals when
// API_BASE_URL is unset.
func apiClient() *clipflow.Client {
	baseURL := os.Getenv("API_BASE_URL")
	if baseURL == "" {
		log.Fatal().Msg("API_BASE_URL environment variable is required")
	}
	return clipflow.NewClient(baseURL, os.Getenv("ORIGIN_VERIFY_SECRET"), nil)
}

func runUpload(cmd *cobra.Command, args []string) {
	logging.Init()
	ctx := context.Background()

	clipPath := args[0]
	body, err := os.ReadFile(clipPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", clipPath).Msg("Failed to read clip file")
	}

	aws := lambdaboot.InitAWS()
	s3c := lambdaboot.InitS3(aws.Config, "CLIPS_BUCKET")
	st := lambdaboot.InitStore(aws.Config)
	client := apiClient()

	flow := clipflow.NewFlow(st, clipflow.NewS3Uploader(s3c.Client, s3c.Bucket), client)
	result, err := flow.Upload(ctx, clipflow.UploadRequest{
		Filename:        filepath.Base(clipPath),
		ContentType:     contentTypeFor(clipPath),
		DurationSeconds: durationFlag,
		Body:            body,
	})
	if err != nil {
		if result != nil {
			log.Warn().Err(err).Str("analysisId", result.Analysis.ID).Msg("Rows created but analyze trigger failed; retry with: shot-cli status")
		} else {
			log.Fatal().Err(err).Msg("Upload failed")
		}
	}

	log.Info().
		Str("clipId", result.Clip.ID).
		Str("analysisId", result.Analysis.ID).
		Str("storageKey", result.StorageKey).
		Msg("Clip uploaded")

	if noWaitFlag {
		printJSON(result.Analysis)
		return
	}
	waitAndPrint(ctx, st, result.Analysis.ID)
}

func runStatus(cmd *cobra.Command, args []string) {
	logging.Init()
	ctx := context.Background()

	aws := lambdaboot.InitAWS()
	st := lambdaboot.InitStore(aws.Config)
	analysisID := args[0]

	if noWaitFlag {
		analysis, err := st.GetAnalysis(ctx, analysisID)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to fetch analysis")
		}
		if analysis == nil {
			log.Fatal().Str("analysisId", analysisID).Msg("Analysis not found")
		}
		printJSON(analysis)
		return
	}
	waitAndPrint(ctx, st, analysisID)
}

func waitAndPrint(ctx context.Context, getter interface {
	GetAnalysis(ctx context.Context, id string) (*shot.Analysis, error)
}, analysisID string) {
	poller := clipflow.NewPoller(getter)
	poller.MaxWait = maxWaitFlag

	analysis, err := poller.Wait(ctx, analysisID)
	if errors.Is(err, clipflow.ErrPollTimeout) {
		log.Warn().Str("analysisId", analysisID).Msg("Analysis still running; printing last observed state")
	} else if err != nil {
		log.Fatal().Err(err).Msg("Polling failed")
	}
	printJSON(analysis)
}

func runOverride(cmd *cobra.Command, args []string) {
	logging.Init()

	analysisID, fieldName, value := args[0], args[1], args[2]
	if err := shot.ValidateOverride(fieldName, value); err != nil {
		log.Fatal().Err(err).Msg("Invalid override")
	}

	var original *string
	if originalFlag != "" {
		original = &originalFlag
	}

	saved, err := apiClient().SaveOverride(context.Background(), analysisID, fieldName, original, value)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to save override")
	}
	printJSON(saved)
}

func runPlayback(cmd *cobra.Command, args []string) {
	logging.Init()

	url, err := apiClient().GetPlaybackURL(context.Background(), args[0])
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to fetch playback URL")
	}
	fmt.Println(url)
}

func contentTypeFor(path string) string {
	switch filepath.Ext(path) {
	case ".mov":
		return "video/quicktime"
	case ".mp4", "":
		return "video/mp4"
	default:
		return "video/mp4"
	}
}

func printJSON(v interface{}) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to render output")
	}
	fmt.Println(string(data))
}
