package pipeline

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// LocalFileFetcher reads the source from disk; the source string is a path.
type LocalFileFetcher struct{}

func (LocalFileFetcher) Fetch(ctx context.Context, source string) ([]byte, error) {
	if strings.TrimSpace(source) == "" {
		return nil, fmt.Errorf("%w: empty path", ErrUnsupportedSource)
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	data, err := os.ReadFile(source)
	if err != nil {
		return nil, fmt.Errorf("read input file %s: %w", source, err)
	}
	return data, nil
}
