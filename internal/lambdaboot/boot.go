// Package lambdaboot provides shared Lambda cold-start bootstrap logic.
//
// Every Lambda in the project needs some subset of: AWS config, S3, the
// Aurora Data API store, SSM secret fetch, and startup logging. This package
// extracts the common init patterns so each Lambda's init() is a short
// composition of helpers.
package lambdaboot

import (
	"context"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/rdsdata"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/rs/zerolog/log"

	"github.com/hoopcoach/shot-coach/internal/events"
	"github.com/hoopcoach/shot-coach/internal/logging"
	"github.com/hoopcoach/shot-coach/internal/store"
)

// AWSClients holds the core AWS SDK clients used across Lambdas.
type AWSClients struct {
	Config aws.Config
	SSM    *ssm.Client
}

// S3Clients holds S3 client, presigner, and bucket name.
type S3Clients struct {
	Client    *s3.Client
	Presigner *s3.PresignClient
	Bucket    string
}

// InitAWS loads the default AWS config and returns it along with common clients.
func InitAWS() AWSClients {
	cfg, err := awsconfig.LoadDefaultConfig(context.Background())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load AWS config")
	}
	log.Debug().Str("region", cfg.Region).Msg("AWS config loaded")
	return AWSClients{
		Config: cfg,
		SSM:    ssm.NewFromConfig(cfg),
	}
}

// InitS3 creates an S3 client, presigner, and reads the bucket name from the
// given environment variable. Fatals if the env var is empty.
func InitS3(cfg aws.Config, bucketEnvVar string) S3Clients {
	client := s3.NewFromConfig(cfg)
	bucket := os.Getenv(bucketEnvVar)
	if bucket == "" {
		log.Fatal().Str("envVar", bucketEnvVar).Msg("Bucket environment variable is required")
	}
	return S3Clients{
		Client:    client,
		Presigner: s3.NewPresignClient(client),
		Bucket:    bucket,
	}
}

// InitStore creates the Aurora Data API store from CLUSTER_ARN, SECRET_ARN,
// and DB_NAME. Fatals if any is empty.
func InitStore(cfg aws.Config) *store.DataAPIStore {
	clusterARN := os.Getenv("CLUSTER_ARN")
	secretARN := os.Getenv("SECRET_ARN")
	database := os.Getenv("DB_NAME")
	if clusterARN == "" || secretARN == "" || database == "" {
		log.Fatal().
			Bool("clusterArnSet", clusterARN != "").
			Bool("secretArnSet", secretARN != "").
			Bool("dbNameSet", database != "").
			Msg("CLUSTER_ARN, SECRET_ARN, and DB_NAME are required")
	}
	return store.NewDataAPIStore(rdsdata.NewFromConfig(cfg), clusterARN, secretARN, database)
}

// InitCorrectionEmitter creates the EventBridge correction emitter targeting
// the bus named by CORRECTIONS_BUS, or the default bus when unset.
func InitCorrectionEmitter(cfg aws.Config) *events.Emitter {
	return events.NewEmitter(eventbridge.NewFromConfig(cfg), os.Getenv("CORRECTIONS_BUS"))
}

// LoadGeminiKey fetches the Gemini API key from SSM Parameter Store if not
// already set via GEMINI_API_KEY env var. Fatals on error.
func LoadGeminiKey(ssmClient *ssm.Client) {
	if os.Getenv("GEMINI_API_KEY") != "" {
		return
	}
	paramName := os.Getenv("SSM_API_KEY_PARAM")
	if paramName == "" {
		paramName = "/shot-coach/prod/gemini-api-key"
	}
	loadSecretIntoEnv(ssmClient, paramName, "GEMINI_API_KEY")
}

// LoadWorkerToken fetches the shared worker auth token from SSM if not set
// via WORKER_AUTH_TOKEN. Fatals on error; neither the proxy nor the worker
// can operate without it.
func LoadWorkerToken(ssmClient *ssm.Client) string {
	if token := os.Getenv("WORKER_AUTH_TOKEN"); token != "" {
		return token
	}
	paramName := os.Getenv("SSM_WORKER_TOKEN_PARAM")
	if paramName == "" {
		paramName = "/shot-coach/prod/worker-auth-token"
	}
	loadSecretIntoEnv(ssmClient, paramName, "WORKER_AUTH_TOKEN")
	return os.Getenv("WORKER_AUTH_TOKEN")
}

func loadSecretIntoEnv(ssmClient *ssm.Client, paramName, envVar string) {
	ssmStart := time.Now()
	result, err := ssmClient.GetParameter(context.Background(), &ssm.GetParameterInput{
		Name:           &paramName,
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		log.Fatal().Err(err).Str("param", paramName).Msgf("Failed to read %s from SSM", envVar)
	}
	os.Setenv(envVar, *result.Parameter.Value)
	log.Debug().Str("param", paramName).Dur("elapsed", time.Since(ssmStart)).Msgf("%s loaded from SSM", envVar)
}

// StartupLog is a convenience wrapper for the startup logger.
func StartupLog(name string, initStart time.Time) *logging.StartupLogger {
	return logging.NewStartupLogger(name).InitDuration(time.Since(initStart))
}
