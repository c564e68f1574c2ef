package pipeline

import (
	"context"
	"errors"
	"strings"
)

type objectReader interface {
	ReadObject(ctx context.Context, objectKey string) ([]byte, error)
}

// ObjectStoreFetcher reads the source from the configured bucket; the source
// string is the object key.
type ObjectStoreFetcher struct {
	Storage objectReader
}

func (f ObjectStoreFetcher) Fetch(ctx context.Context, source string) ([]byte, error) {
	if f.Storage == nil {
		return nil, errors.New("storage client is required")
	}
	key := strings.TrimPrefix(strings.TrimSpace(source), "/")
	if key == "" {
		return nil, errors.New("object key is required")
	}
	return f.Storage.ReadObject(ctx, key)
}
