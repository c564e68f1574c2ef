package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/dunamismax/pixelflow-edge/internal/handler"
	"github.com/dunamismax/pixelflow-edge/internal/logging"
	"github.com/dunamismax/pixelflow-edge/internal/pipeline"
)

type transformOptions struct {
	input    string
	query    string
	accept   string
	output   string
	logLevel string
}

// ErrTransformFailed reports that the handler answered with a failure response.
var ErrTransformFailed = errors.New("transform failed")

func newTransformCmd() *cobra.Command {
	opts := transformOptions{}
	cmd := &cobra.Command{
		Use:   "transform <file>",
		Short: "Transform a local image with object lambda query parameters",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.input = args[0]
			logger := logging.Init(opts.logLevel, true)
			return runTransform(cmd.Context(), opts, logger, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVarP(&opts.query, "query", "q", "", `Query string as sent to the access point, e.g. "width=200&fit=contain"`)
	cmd.Flags().StringVar(&opts.accept, "accept", "", "Accept header used for auto format negotiation")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Output path (default <input>.out.<format>)")
	cmd.Flags().StringVar(&opts.logLevel, "log-level", "warn", "Log level: debug, info, warn, error")
	return cmd
}

func runTransform(ctx context.Context, opts transformOptions, logger zerolog.Logger, stdout io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	processor, err := pipeline.NewProcessor(pipeline.LocalFileFetcher{}, nil)
	if err != nil {
		return fmt.Errorf("build pipeline: %w", err)
	}
	defer pipeline.Shutdown()

	h, err := handler.New(processor, logger)
	if err != nil {
		return fmt.Errorf("build handler: %w", err)
	}

	headers := map[string]string{}
	if opts.accept != "" {
		headers["Accept"] = opts.accept
	}

	target := &fileResponder{input: opts.input, output: opts.output, stdout: stdout}
	ev := handler.Event{
		RequestID:   uuid.NewString(),
		FetchTarget: opts.input,
		RequestURL:  localRequestURL(opts.input, opts.query),
		Headers:     headers,
	}
	if err := h.Handle(ctx, ev, target); err != nil {
		return err
	}
	return target.failure
}

func localRequestURL(input, query string) string {
	u := url.URL{Scheme: "file", Path: "/" + filepath.Base(input), RawQuery: strings.TrimPrefix(query, "?")}
	return u.String()
}

// fileResponder writes a successful response to disk and turns a failure
// response into ErrTransformFailed.
type fileResponder struct {
	input   string
	output  string
	stdout  io.Writer
	failure error
}

func (f *fileResponder) Respond(_ context.Context, resp handler.Response) error {
	if resp.Failed() {
		f.failure = fmt.Errorf("%w: %s: %s", ErrTransformFailed, resp.ErrorCode, resp.ErrorMessage)
		return nil
	}

	path := f.output
	if path == "" {
		ext := strings.TrimPrefix(resp.ContentType, "image/")
		path = strings.TrimSuffix(f.input, filepath.Ext(f.input)) + ".out." + ext
	}
	if err := os.WriteFile(path, resp.Body, 0o644); err != nil {
		return fmt.Errorf("write output %s: %w", path, err)
	}
	_, _ = fmt.Fprintf(f.stdout, "%s %s %d bytes\n", path, resp.ContentType, len(resp.Body))
	return nil
}
