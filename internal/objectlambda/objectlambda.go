// Package objectlambda adapts S3 Object Lambda invocations to the transport
// neutral handler and writes the outcome back through WriteGetObjectResponse.
package objectlambda

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dunamismax/pixelflow-edge/internal/handler"
)

var ErrMissingContext = errors.New("event has no getObjectContext")

type ResponseWriter interface {
	WriteGetObjectResponse(ctx context.Context, params *s3.WriteGetObjectResponseInput, optFns ...func(*s3.Options)) (*s3.WriteGetObjectResponseOutput, error)
}

// Route identifies where the response for one invocation must be written.
type Route struct {
	RequestRoute string
	RequestToken string
}

// EventFromLambda extracts the handler event and response route. An event
// without a getObjectContext cannot be answered at all.
func EventFromLambda(ev events.S3ObjectLambdaEvent) (handler.Event, Route, error) {
	if ev.GetObjectContext == nil {
		return handler.Event{}, Route{}, ErrMissingContext
	}

	return handler.Event{
			RequestID:   ev.XAmzRequestID,
			FetchTarget: ev.GetObjectContext.InputS3URL,
			RequestURL:  ev.UserRequest.URL,
			Headers:     ev.UserRequest.Headers,
		}, Route{
			RequestRoute: ev.GetObjectContext.OutputRoute,
			RequestToken: ev.GetObjectContext.OutputToken,
		}, nil
}

// Responder writes a handler response to the route of one invocation.
type Responder struct {
	client ResponseWriter
	route  Route
}

func NewResponder(client ResponseWriter, route Route) *Responder {
	return &Responder{client: client, route: route}
}

func (r *Responder) Respond(ctx context.Context, resp handler.Response) error {
	if _, err := r.client.WriteGetObjectResponse(ctx, BuildInput(r.route, resp)); err != nil {
		return fmt.Errorf("write get object response: %w", err)
	}
	return nil
}

// BuildInput maps a response onto the WriteGetObjectResponse call. Success
// leaves the status to its 200 default.
func BuildInput(route Route, resp handler.Response) *s3.WriteGetObjectResponseInput {
	input := &s3.WriteGetObjectResponseInput{
		RequestRoute: aws.String(route.RequestRoute),
		RequestToken: aws.String(route.RequestToken),
	}

	if resp.Failed() {
		input.StatusCode = aws.Int32(int32(resp.StatusCode))
		input.ErrorCode = aws.String(resp.ErrorCode)
		input.ErrorMessage = aws.String(resp.ErrorMessage)
		if resp.ContentLength != nil {
			input.ContentLength = aws.Int64(*resp.ContentLength)
		}
		return input
	}

	if resp.StatusCode != 0 && resp.StatusCode != http.StatusOK {
		input.StatusCode = aws.Int32(int32(resp.StatusCode))
	}
	input.Body = bytes.NewReader(resp.Body)
	input.ContentType = aws.String(resp.ContentType)
	return input
}

type eventHandler interface {
	Handle(ctx context.Context, ev handler.Event, target handler.Responder) error
}

// Function is the Lambda entry point. Start it with lambda.Start(fn.Invoke).
type Function struct {
	handler eventHandler
	client  ResponseWriter
}

func NewFunction(h eventHandler, client ResponseWriter) (*Function, error) {
	if h == nil {
		return nil, errors.New("handler is required")
	}
	if client == nil {
		return nil, errors.New("response writer is required")
	}
	return &Function{handler: h, client: client}, nil
}

func (f *Function) Invoke(ctx context.Context, ev events.S3ObjectLambdaEvent) error {
	event, route, err := EventFromLambda(ev)
	if err != nil {
		return err
	}
	// The output route accepts one response per event.
	return f.handler.Handle(ctx, event, handler.Once(NewResponder(f.client, route)))
}
