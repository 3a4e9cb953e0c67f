// Package main provides the Lambda entry point for the analyze proxy.
//
// This is a thin Lambda (128 MB) that handles:
//   - POST /analyze — validate, attach the worker auth token, relay to the
//     hosted inference worker, and return its response unchanged
//
// The worker token is loaded from SSM Parameter Store at cold start:
//   - /shot-coach/prod/worker-auth-token
//
// This Lambda has no access to S3 or Aurora — the worker does the heavy
// lifting; the proxy only keeps the token out of clients.
package main

import (
	"net/http"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/awslabs/aws-lambda-go-api-proxy/httpadapter"
	"github.com/rs/zerolog/log"

	"github.com/hoopcoach/shot-coach/internal/httputil"
	"github.com/hoopcoach/shot-coach/internal/lambdaboot"
	"github.com/hoopcoach/shot-coach/internal/logging"
	"github.com/hoopcoach/shot-coach/internal/proxy"
)

var (
	analyzeHandler *proxy.Handler
	originSecret   string
)

func init() {
	initStart := time.Now()
	logging.Init()

	aws := lambdaboot.InitAWS()

	workerURL := os.Getenv("WORKER_URL")
	if workerURL == "" {
		log.Fatal().Msg("WORKER_URL environment variable is required")
	}
	workerToken := lambdaboot.LoadWorkerToken(aws.SSM)
	originSecret = os.Getenv("ORIGIN_VERIFY_SECRET")

	analyzeHandler = proxy.NewHandler(workerURL, workerToken, nil)

	lambdaboot.StartupLog("analyze-lambda", initStart).
		Endpoint("worker", workerURL).
		Feature("originVerify", originSecret != "").
		Log()
}

func main() {
	mux := http.NewServeMux()
	mux.Handle("/analyze", analyzeHandler)

	adapter := httpadapter.NewV2(httputil.WithOriginVerify(originSecret, mux))
	lambda.Start(adapter.ProxyWithContext)
}
