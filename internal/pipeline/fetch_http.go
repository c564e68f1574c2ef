package pipeline

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aws/smithy-go"
	smithyxml "github.com/aws/smithy-go/encoding/xml"
)

const maxErrorBodyBytes = 64 << 10

// HTTPFetcher downloads the source from a URL, typically the presigned
// inputS3Url handed over by S3 Object Lambda. It does not retry, and unless a
// Timeout is configured the request is bounded only by the caller's context.
type HTTPFetcher struct {
	client   *http.Client
	maxBytes int64
}

type HTTPFetcherConfig struct {
	// Timeout of zero or less leaves the client without a timeout.
	Timeout  time.Duration
	MaxBytes int64
}

func NewHTTPFetcher(client *http.Client, cfg HTTPFetcherConfig) *HTTPFetcher {
	if client == nil {
		client = &http.Client{}
		if cfg.Timeout > 0 {
			client.Timeout = cfg.Timeout
		}
	}
	return &HTTPFetcher{client: client, maxBytes: cfg.MaxBytes}
}

// FetchStatusError is returned when the source responds with a non-2xx
// status. When the body is an S3 XML error document, APIErr carries its code
// and message so the failure is reported as e.g. AccessDenied or NoSuchKey.
type FetchStatusError struct {
	StatusCode int
	APIErr     *smithy.GenericAPIError
}

func (e *FetchStatusError) Error() string {
	if e.APIErr != nil && e.APIErr.Message != "" {
		return fmt.Sprintf("source returned status %d: %s", e.StatusCode, e.APIErr.Message)
	}
	return fmt.Sprintf("source returned status %d", e.StatusCode)
}

func (e *FetchStatusError) Unwrap() error {
	if e.APIErr == nil {
		return nil
	}
	return e.APIErr
}

func (f *HTTPFetcher) Fetch(ctx context.Context, source string) ([]byte, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return nil, fmt.Errorf("%w: empty url", ErrUnsupportedSource)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid source url: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get source: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, statusError(resp)
	}

	var body io.Reader = resp.Body
	if f.maxBytes > 0 {
		body = io.LimitReader(resp.Body, f.maxBytes+1)
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("read source body: %w", err)
	}
	if f.maxBytes > 0 && int64(len(data)) > f.maxBytes {
		return nil, fmt.Errorf("%w: limit %d bytes", ErrSourceTooLarge, f.maxBytes)
	}
	return data, nil
}

func statusError(resp *http.Response) *FetchStatusError {
	out := &FetchStatusError{StatusCode: resp.StatusCode}

	body := io.LimitReader(resp.Body, maxErrorBodyBytes)
	if !strings.Contains(resp.Header.Get("Content-Type"), "xml") {
		_, _ = io.Copy(io.Discard, body)
		return out
	}

	components, err := smithyxml.GetErrorResponseComponents(body, true)
	if err != nil || components.Code == "" {
		return out
	}
	out.APIErr = &smithy.GenericAPIError{
		Code:    components.Code,
		Message: components.Message,
		Fault:   faultFor(resp.StatusCode),
	}
	return out
}

func faultFor(status int) smithy.ErrorFault {
	if status >= http.StatusInternalServerError {
		return smithy.FaultServer
	}
	return smithy.FaultClient
}
