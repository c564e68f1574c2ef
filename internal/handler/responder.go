package handler

import (
	"context"
	"errors"
	"sync"
)

var ErrAlreadyResponded = errors.New("response already sent for this event")

// Responder delivers the response for one event back to the caller.
type Responder interface {
	Respond(ctx context.Context, resp Response) error
}

type ResponderFunc func(ctx context.Context, resp Response) error

func (f ResponderFunc) Respond(ctx context.Context, resp Response) error {
	return f(ctx, resp)
}

// Once wraps a responder so that only the first delivery goes through. Wrap
// once per event and share the result with any fallback path.
func Once(target Responder) Responder {
	return &onceResponder{target: target}
}

type onceResponder struct {
	mu     sync.Mutex
	target Responder
	sent   bool
}

func (o *onceResponder) Respond(ctx context.Context, resp Response) error {
	o.mu.Lock()
	if o.sent {
		o.mu.Unlock()
		return ErrAlreadyResponded
	}
	o.sent = true
	o.mu.Unlock()

	return o.target.Respond(ctx, resp)
}
