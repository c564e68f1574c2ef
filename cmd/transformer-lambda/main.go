// Package main is the S3 Object Lambda entry point. Each GetObject through the
// access point invokes it once; the original is fetched from the presigned
// inputS3Url, transformed, and written back with WriteGetObjectResponse.
package main

import (
	"context"
	"strconv"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"

	"github.com/dunamismax/pixelflow-edge/internal/config"
	"github.com/dunamismax/pixelflow-edge/internal/handler"
	"github.com/dunamismax/pixelflow-edge/internal/logging"
	"github.com/dunamismax/pixelflow-edge/internal/objectlambda"
	"github.com/dunamismax/pixelflow-edge/internal/pipeline"
	"github.com/dunamismax/pixelflow-edge/internal/telemetry"
)

func main() {
	initStart := time.Now()
	cfg := config.Load()
	logger := logging.Init(cfg.Log.Level, cfg.Log.Pretty)

	shutdownTracing, err := telemetry.SetupTracing(context.Background(), telemetry.TraceConfig{
		ServiceName:  cfg.Telemetry.ServiceName,
		Exporter:     cfg.Telemetry.Exporter,
		OTLPEndpoint: cfg.Telemetry.OTLPEndpoint,
		OTLPInsecure: cfg.Telemetry.OTLPInsecure,
	}, logger)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to set up tracing")
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load AWS config")
	}
	s3Client := s3.NewFromConfig(awsCfg)

	fetcher := pipeline.NewHTTPFetcher(nil, pipeline.HTTPFetcherConfig{
		Timeout:  cfg.Lambda.FetchTimeout,
		MaxBytes: cfg.Lambda.MaxSourceBytes,
	})
	processor, err := pipeline.NewProcessor(fetcher, nil)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build image pipeline")
	}
	defer pipeline.Shutdown()
	if pipeline.CodecName() != "govips" {
		logger.Warn().
			Str("codec", pipeline.CodecName()).
			Msg("built without -tags govips: webp and avif output unavailable, auto falls back to the source format")
	}

	h, err := handler.New(processor, logger)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build handler")
	}
	fn, err := objectlambda.NewFunction(h, s3Client)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build object lambda function")
	}

	logging.NewStartupLogger("transformer-lambda").
		Codec(pipeline.CodecName()).
		Feature("tracing", cfg.Telemetry.Exporter != "none").
		Config("region", awsCfg.Region).
		Config("fetchTimeout", cfg.Lambda.FetchTimeout.String()).
		Config("maxSourceBytes", strconv.FormatInt(cfg.Lambda.MaxSourceBytes, 10)).
		Config("logLevel", cfg.Log.Level).
		InitDuration(time.Since(initStart)).
		Log(logger)

	lambda.Start(fn.Invoke)
}
