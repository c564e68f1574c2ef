package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dunamismax/pixelflow-edge/internal/domain"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Request is one transformation: where the source lives, what the URL asked
// for, and the Accept header used for negotiation.
type Request struct {
	Source string
	Intent domain.Intent
	Accept string
}

type Result struct {
	Data        []byte
	Format      domain.Format
	Width       int
	Height      int
	Frames      int
	SourceBytes int
}

type Fetcher interface {
	Fetch(ctx context.Context, source string) ([]byte, error)
}

type Processor struct {
	fetcher Fetcher
	codec   Codec
	tracer  trace.Tracer
}

func NewProcessor(fetcher Fetcher, codec Codec) (*Processor, error) {
	if fetcher == nil {
		return nil, errors.New("fetcher is required")
	}
	if codec == nil {
		built, err := newCodec()
		if err != nil {
			return nil, fmt.Errorf("build codec: %w", err)
		}
		codec = built
	}

	return &Processor{
		fetcher: fetcher,
		codec:   codec,
		tracer:  otel.Tracer("pixelflow-edge/pipeline"),
	}, nil
}

// Process runs fetch, load, format resolution, the optional resize and the
// encode. Errors are *UnknownFormatError or *StageError; no partial output is
// ever returned with an error.
func (p *Processor) Process(ctx context.Context, req Request) (Result, error) {
	var (
		format  domain.Format
		decided bool
	)
	intent := req.Intent
	if negotiated, ok := domain.Negotiate(intent, req.Accept); ok {
		f, err := domain.ParseFormat(negotiated)
		if err != nil {
			return Result{}, &UnknownFormatError{Format: negotiated}
		}
		if intent.HasFormat || p.encodes(f) {
			format, decided = f, true
		} else {
			// auto is only a preference; fall back to the native format
			intent.Auto = domain.AutoNone
		}
	}

	var source []byte
	err := p.stage(ctx, StageFetch, func(ctx context.Context) error {
		data, err := p.fetcher.Fetch(ctx, req.Source)
		source = data
		return err
	})
	if err != nil {
		return Result{}, err
	}

	var img Image
	err = p.stage(ctx, StageDecode, func(ctx context.Context) error {
		loaded, err := p.codec.Load(ctx, source)
		img = loaded
		return err
	})
	if err != nil {
		return Result{}, err
	}
	defer img.Close()

	if !decided {
		resolved := domain.ResolveFormat(intent, req.Accept, strings.ToLower(img.Format()))
		f, err := domain.ParseFormat(resolved)
		if err != nil {
			return Result{}, &UnknownFormatError{Format: resolved}
		}
		format = f
	}

	if req.Intent.Resize() {
		err = p.stage(ctx, StageResize, func(context.Context) error {
			fit := req.Intent.Fit
			if fit == "" {
				fit = domain.FitCover
			}
			if !fit.Valid() {
				return fmt.Errorf("%w: %q", ErrUnsupportedFit, fit)
			}
			return img.Resize(req.Intent.Width, req.Intent.Height, fit)
		})
		if err != nil {
			return Result{}, err
		}
	}

	var out []byte
	err = p.stage(ctx, StageEncode, func(ctx context.Context) error {
		params := format.Params()
		span := trace.SpanFromContext(ctx)
		span.SetAttributes(
			attribute.String("image.format", format.String()),
			attribute.Bool("image.lossless", params.Lossless),
			attribute.Int("image.source_frames", img.Frames()),
		)
		if params.HonorsQuality {
			span.SetAttributes(attribute.Int("image.quality", req.Intent.Quality))
		}
		data, err := img.Encode(format, req.Intent.Quality)
		out = data
		return err
	})
	if err != nil {
		return Result{}, err
	}

	frames := 1
	if format.Params().KeepsAnimation {
		frames = img.Frames()
	}

	return Result{
		Data:        out,
		Format:      format,
		Width:       img.Width(),
		Height:      img.Height(),
		Frames:      frames,
		SourceBytes: len(source),
	}, nil
}

func (p *Processor) encodes(format domain.Format) bool {
	if support, ok := p.codec.(encodeSupport); ok {
		return support.Encodes(format)
	}
	return true
}

func (p *Processor) stage(ctx context.Context, stage Stage, fn func(context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return stageErr(stage, err)
	}

	ctx, span := p.tracer.Start(ctx, "pipeline."+string(stage))
	defer span.End()

	if err := fn(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(stage)+" failed")
		return stageErr(stage, err)
	}
	span.SetAttributes(attribute.String("pipeline.stage", string(stage)))
	return nil
}
