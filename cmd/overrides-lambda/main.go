// Package main provides the Lambda entry point for analysis overrides.
//
//   - POST /update-analysis-overrides — upsert a user correction to a
//     predicted field and emit a correction event for the fine-tuning
//     pipeline
package main

import (
	"net/http"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/awslabs/aws-lambda-go-api-proxy/httpadapter"

	"github.com/hoopcoach/shot-coach/internal/httputil"
	"github.com/hoopcoach/shot-coach/internal/lambdaboot"
	"github.com/hoopcoach/shot-coach/internal/logging"
	"github.com/hoopcoach/shot-coach/internal/overrides"
)

var (
	overridesHandler *overrides.Handler
	originSecret     string
)

func init() {
	initStart := time.Now()
	logging.Init()

	aws := lambdaboot.InitAWS()
	st := lambdaboot.InitStore(aws.Config)
	emitter := lambdaboot.InitCorrectionEmitter(aws.Config)
	originSecret = os.Getenv("ORIGIN_VERIFY_SECRET")

	overridesHandler = overrides.NewHandler(st, emitter)

	lambdaboot.StartupLog("overrides-lambda", initStart).
		Database("shotcoach", os.Getenv("DB_NAME")).
		Config("correctionsBus", os.Getenv("CORRECTIONS_BUS")).
		Feature("originVerify", originSecret != "").
		Log()
}

func main() {
	mux := http.NewServeMux()
	mux.Handle("/update-analysis-overrides", overridesHandler)

	adapter := httpadapter.NewV2(httputil.WithOriginVerify(originSecret, mux))
	lambda.Start(adapter.ProxyWithContext)
}
