package handler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dunamismax/pixelflow-edge/internal/domain"
	"github.com/dunamismax/pixelflow-edge/internal/pipeline"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Event is the transport-neutral view of one object lambda invocation.
type Event struct {
	RequestID   string            `json:"requestId"`
	FetchTarget string            `json:"fetchTarget"`
	RequestURL  string            `json:"requestUrl"`
	Headers     map[string]string `json:"headers"`
}

type Transformer interface {
	Process(ctx context.Context, req pipeline.Request) (pipeline.Result, error)
}

type Handler struct {
	transformer Transformer
	logger      zerolog.Logger
	metrics     *metrics
	tracer      trace.Tracer
}

func New(transformer Transformer, logger zerolog.Logger) (*Handler, error) {
	if transformer == nil {
		return nil, errors.New("transformer is required")
	}
	return &Handler{
		transformer: transformer,
		logger:      logger.With().Str("component", "handler").Logger(),
		metrics:     newMetrics(),
		tracer:      otel.Tracer("pixelflow-edge/handler"),
	}, nil
}

// Gatherer lets an HTTP front merge the transform counters into its own
// /metrics output.
func (h *Handler) Gatherer() prometheus.Gatherer {
	return h.metrics.gatherer()
}

// Handle produces exactly one response for ev and hands it to target. Every
// failure, including a panic inside the pipeline, becomes a 400 response; the
// returned error only reports a failed delivery. Callers that may answer
// the event themselves on error should pass a target wrapped with Once.
func (h *Handler) Handle(ctx context.Context, ev Event, target Responder) error {
	if target == nil {
		return errors.New("response target is required")
	}

	start := time.Now()
	logger := h.logger.With().Str("requestId", ev.RequestID).Logger()
	logger.Debug().Str("requestUrl", ev.RequestURL).Interface("headers", ev.Headers).Msg("event received")

	ctx, span := h.tracer.Start(ctx, "handler.handle", trace.WithSpanKind(trace.SpanKindServer))
	defer span.End()
	span.SetAttributes(attribute.String("request.id", ev.RequestID))

	resp, result := h.transform(ctx, ev, logger)

	outcome := outcomeLabel(resp)
	format := "none"
	var sourceBytes, outputBytes int
	if !resp.Failed() {
		sourceBytes, outputBytes = result.SourceBytes, len(resp.Body)
		format = result.Format.String()
		h.metrics.sourceBytes.Add(float64(sourceBytes))
		h.metrics.outputBytes.Add(float64(outputBytes))
	} else {
		span.SetStatus(codes.Error, resp.ErrorCode)
	}
	h.metrics.transformTotal.WithLabelValues(format, outcome).Inc()
	h.metrics.transformDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())

	if err := target.Respond(ctx, resp); err != nil {
		h.metrics.deliveryFailures.Inc()
		span.RecordError(err)
		logger.Error().Err(err).Int("status", resp.StatusCode).Msg("deliver response failed")
		return fmt.Errorf("deliver response: %w", err)
	}

	logger.Info().
		Int("status", resp.StatusCode).
		Str("outcome", outcome).
		Str("format", format).
		Int("sourceBytes", sourceBytes).
		Int("outputBytes", outputBytes).
		Dur("elapsed", time.Since(start)).
		Msg("event handled")
	return nil
}

func (h *Handler) transform(ctx context.Context, ev Event, logger zerolog.Logger) (resp Response, result pipeline.Result) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error().Interface("panic", r).Msg("transformation panicked")
			resp, result = Recovered(r), pipeline.Result{}
		}
	}()

	intent := domain.ParseIntent(ev.RequestURL)
	result, err := h.transformer.Process(ctx, pipeline.Request{
		Source: ev.FetchTarget,
		Intent: intent,
		Accept: domain.HeaderValue(ev.Headers, "Accept"),
	})
	if err != nil {
		resp = FromError(err)
		logger.Warn().Err(err).Str("code", resp.ErrorCode).Msg("transformation failed")
		return resp, pipeline.Result{}
	}

	logger.Debug().
		Str("format", result.Format.String()).
		Int("width", result.Width).
		Int("height", result.Height).
		Int("frames", result.Frames).
		Msg("transformation complete")
	return Success(result), result
}
