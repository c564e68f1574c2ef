package api

import (
	"net/http"
	"strings"

	"github.com/dunamismax/pixelflow-edge/internal/domain"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// withTracing opens the server span for a request. Image requests also carry
// the object key and the parsed transformation so slow renders can be told
// apart by shape.
func (s *Server) withTracing(next http.Handler) http.Handler {
	if s.tracer == nil {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := routeLabel(r.URL.Path)
		ctx, span := s.tracer.Start(r.Context(), r.Method+" "+route, trace.WithSpanKind(trace.SpanKindServer))
		defer span.End()

		span.SetAttributes(
			attribute.String("http.method", r.Method),
			attribute.String("http.route", route),
		)
		if key, ok := strings.CutPrefix(r.URL.Path, "/images/"); ok {
			span.SetAttributes(attribute.String("image.key", key))
			span.SetAttributes(intentAttributes(domain.ParseIntent(requestURL(r)))...)
		}

		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r.WithContext(ctx))

		span.SetAttributes(attribute.Int("http.status_code", recorder.status))
		if recorder.status >= http.StatusBadRequest {
			span.SetStatus(codes.Error, http.StatusText(recorder.status))
		}
	})
}

func intentAttributes(intent domain.Intent) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.Bool("image.resize", intent.Resize()),
		attribute.Int("image.quality", intent.Quality),
	}
	if intent.Resize() {
		attrs = append(attrs,
			attribute.Int("image.width", intent.Width),
			attribute.Int("image.height", intent.Height),
			attribute.String("image.fit", string(intent.Fit)),
		)
	}
	if intent.HasFormat {
		attrs = append(attrs, attribute.String("image.format", intent.Format))
	}
	if intent.Auto != domain.AutoNone {
		attrs = append(attrs, attribute.String("image.auto", string(intent.Auto)))
	}
	return attrs
}
