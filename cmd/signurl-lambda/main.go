// Package main provides the Lambda entry point for playback URL signing.
//
//   - POST /get-signed-url — presign a 10-minute S3 GET URL for a clip
//
// The clip bucket stays private; this Lambda is the only read path clients
// have.
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
	"github.com/hoopcoach/shot-coach/internal/s3util"
	"github.com/hoopcoach/shot-coach/internal/signer"
)

var (
	signHandler  *signer.Handler
	originSecret string
)

func init() {
	initStart := time.Now()
	logging.Init()

	aws := lambdaboot.InitAWS()
	s3c := lambdaboot.InitS3(aws.Config, "CLIPS_BUCKET")
	originSecret = os.Getenv("ORIGIN_VERIFY_SECRET")

	signHandler = signer.NewHandler(s3util.NewSigner(s3c.Presigner, s3c.Bucket))

	lambdaboot.StartupLog("signurl-lambda", initStart).
		S3Bucket("clips", s3c.Bucket).
		Feature("originVerify", originSecret != "").
		Log()
}

func main() {
	mux := http.NewServeMux()
	mux.Handle("/get-signed-url", signHandler)

	adapter := httpadapter.NewV2(httputil.WithOriginVerify(originSecret, mux))
	lambda.Start(adapter.ProxyWithContext)
}
