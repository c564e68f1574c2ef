package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/aws/smithy-go"
	"github.com/dunamismax/pixelflow-edge/internal/pipeline"
)

const (
	CodeUnknownFormat = "UnknownFormat"
	CodeInternal      = "InternalError"
	codeGeneric       = "Error"
)

// Response is the single outcome delivered for one event. Failures carry a
// 4xx status and no body.
type Response struct {
	StatusCode    int
	Body          []byte
	ContentType   string
	ErrorCode     string
	ErrorMessage  string
	ContentLength *int64
}

func (r Response) Failed() bool {
	return r.StatusCode >= http.StatusBadRequest
}

func Success(result pipeline.Result) Response {
	return Response{
		StatusCode:  http.StatusOK,
		Body:        result.Data,
		ContentType: result.Format.ContentType(),
	}
}

func UnknownFormat(format string) Response {
	return Response{
		StatusCode:   http.StatusBadRequest,
		ErrorCode:    CodeUnknownFormat,
		ErrorMessage: fmt.Sprintf("Unknown format %s", format),
	}
}

// Failure reports a caught error. ContentLength is the byte length of the
// message, which the object lambda contract expects on this path.
func Failure(err error) Response {
	message := err.Error()
	return failure(ErrorCode(err), message)
}

// Recovered turns a panic value of any shape into a failure response.
func Recovered(value any) Response {
	if err, ok := value.(error); ok {
		return failure(CodeInternal, err.Error())
	}
	return failure(CodeInternal, fmt.Sprintf("unexpected failure: %v", value))
}

func failure(code, message string) Response {
	length := int64(len(message))
	return Response{
		StatusCode:    http.StatusBadRequest,
		ErrorCode:     code,
		ErrorMessage:  message,
		ContentLength: &length,
	}
}

// FromError maps a pipeline error onto its response shape.
func FromError(err error) Response {
	var unknown *pipeline.UnknownFormatError
	if errors.As(err, &unknown) {
		return UnknownFormat(unknown.Format)
	}
	return Failure(err)
}

// ErrorCode names an error: an AWS API error code when one is carried,
// otherwise the failing pipeline stage.
func ErrorCode(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && apiErr.ErrorCode() != "" {
		return apiErr.ErrorCode()
	}
	var stageErr *pipeline.StageError
	if errors.As(err, &stageErr) {
		return stageErr.Code()
	}
	return codeGeneric
}
