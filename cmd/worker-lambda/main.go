// Package main provides the Lambda entry point for the inference worker.
//
//   - POST /analyze — authenticate the proxy's shared token, download the
//     clip, classify it with Gemini, and write the terminal analysis row
//
// Secrets are loaded from SSM Parameter Store at cold start:
//   - /shot-coach/prod/gemini-api-key
//   - /shot-coach/prod/worker-auth-token
//
// This function needs more memory than the API Lambdas (512 MB): it holds
// the clip bytes in memory while Gemini processes them.
package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/awslabs/aws-lambda-go-api-proxy/httpadapter"
	"github.com/rs/zerolog/log"
	"google.golang.org/genai"

	"github.com/hoopcoach/shot-coach/internal/coach"
	"github.com/hoopcoach/shot-coach/internal/lambdaboot"
	"github.com/hoopcoach/shot-coach/internal/logging"
	"github.com/hoopcoach/shot-coach/internal/s3util"
	"github.com/hoopcoach/shot-coach/internal/worker"
)

var workerHandler *worker.Handler

func init() {
	initStart := time.Now()
	logging.Init()

	aws := lambdaboot.InitAWS()
	s3c := lambdaboot.InitS3(aws.Config, "CLIPS_BUCKET")
	st := lambdaboot.InitStore(aws.Config)

	lambdaboot.LoadGeminiKey(aws.SSM)
	workerToken := lambdaboot.LoadWorkerToken(aws.SSM)

	genaiClient, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  os.Getenv("GEMINI_API_KEY"),
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create Gemini client")
	}

	model := logging.EnvOrDefault("GEMINI_MODEL", coach.DefaultModel)
	classifier := coach.NewGeminiClassifier(genaiClient, model)
	signer := s3util.NewSigner(s3c.Presigner, s3c.Bucket)

	workerHandler = worker.NewHandler(st, signer, classifier, workerToken, nil)

	lambdaboot.StartupLog("worker-lambda", initStart).
		S3Bucket("clips", s3c.Bucket).
		Database("shotcoach", os.Getenv("DB_NAME")).
		Config("model", model).
		Log()
}

func main() {
	mux := http.NewServeMux()
	mux.Handle("/analyze", workerHandler)

	adapter := httpadapter.NewV2(mux)
	lambda.Start(adapter.ProxyWithContext)
}
