package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/dunamismax/pixelflow-edge/internal/handler"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// EventHandler runs one transformation and delivers its single response.
type EventHandler interface {
	Handle(ctx context.Context, ev handler.Event, target handler.Responder) error
}

type Options struct {
	RateLimiter            RateLimiter
	RateLimitSubjectHeader string
	// Gatherers are merged into /metrics next to the HTTP metrics.
	Gatherers []prometheus.Gatherer
	// Tracer defaults to the global provider's tracer.
	Tracer trace.Tracer
}

// Server emulates the CDN and object lambda access point for local work:
// GET /images/{key} runs the same handler the Lambda runs, with the object
// key as the fetch target.
type Server struct {
	logger                zerolog.Logger
	handler               EventHandler
	rateLimiter           RateLimiter
	rateLimitUserIDHeader string
	metrics               *metrics
	tracer                trace.Tracer
	mux                   *http.ServeMux
}

func NewServer(logger zerolog.Logger, h EventHandler, opts Options) *Server {
	subjectHeader := strings.TrimSpace(opts.RateLimitSubjectHeader)
	if subjectHeader == "" {
		subjectHeader = "X-Forwarded-For"
	}

	tracer := opts.Tracer
	if tracer == nil {
		tracer = otel.Tracer("pixelflow-edge/api")
	}

	s := &Server{
		logger:                logger.With().Str("component", "api").Logger(),
		handler:               h,
		rateLimiter:           opts.RateLimiter,
		rateLimitUserIDHeader: subjectHeader,
		metrics:               newMetrics(opts.Gatherers...),
		tracer:                tracer,
		mux:                   http.NewServeMux(),
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.withTracing(s.metrics.withHTTPMetrics(s.withRateLimit(s.mux)))
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /healthz", s.handleHealthz)
	s.mux.Handle("GET /metrics", s.metrics.metricsHandler())
	s.mux.HandleFunc("GET /images/{key...}", s.handleImage)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleImage(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	requestID := strings.TrimSpace(r.Header.Get("X-Request-Id"))
	if requestID == "" {
		requestID = uuid.NewString()
	}

	ev := handler.Event{
		RequestID:   requestID,
		FetchTarget: key,
		RequestURL:  requestURL(r),
		Headers:     flattenHeaders(r.Header),
	}

	target := handler.Once(&httpResponder{w: w, requestID: requestID})
	err := s.handler.Handle(r.Context(), ev, target)
	if err == nil {
		return
	}

	s.logger.Error().Err(err).Str("requestId", requestID).Str("key", key).Msg("image request failed")
	fallback := handler.Failure(errors.New("failed to deliver response"))
	if err := target.Respond(r.Context(), fallback); err != nil && !errors.Is(err, handler.ErrAlreadyResponded) {
		s.logger.Error().Err(err).Str("requestId", requestID).Msg("fallback response failed")
	}
}

// httpResponder writes a handler response as a plain HTTP reply. Failures
// carry the error code and message in headers and the message as the body.
type httpResponder struct {
	w         http.ResponseWriter
	requestID string
}

func (h *httpResponder) Respond(_ context.Context, resp handler.Response) error {
	header := h.w.Header()
	header.Set("X-Request-Id", h.requestID)

	if resp.Failed() {
		header.Set("X-Error-Code", resp.ErrorCode)
		header.Set("X-Error-Message", resp.ErrorMessage)
		header.Set("Content-Type", "text/plain; charset=utf-8")
		header.Set("Content-Length", strconv.Itoa(len(resp.ErrorMessage)))
		h.w.WriteHeader(resp.StatusCode)
		_, err := h.w.Write([]byte(resp.ErrorMessage))
		return err
	}

	status := resp.StatusCode
	if status == 0 {
		status = http.StatusOK
	}
	header.Set("Content-Type", resp.ContentType)
	header.Set("Content-Length", strconv.Itoa(len(resp.Body)))
	h.w.WriteHeader(status)
	_, err := h.w.Write(resp.Body)
	return err
}

func requestURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if forwarded := r.Header.Get("X-Forwarded-Proto"); forwarded != "" {
		scheme = forwarded
	}
	return scheme + "://" + r.Host + r.URL.RequestURI()
}

// flattenHeaders keeps the first value of each header, matching the single
// valued header map object lambda hands over.
func flattenHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for name, values := range h {
		if len(values) > 0 {
			out[name] = values[0]
		}
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
