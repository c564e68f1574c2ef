package pipeline

import (
	"errors"
	"fmt"
)

type Stage string

const (
	StageFetch  Stage = "fetch"
	StageDecode Stage = "decode"
	StageResize Stage = "resize"
	StageEncode Stage = "encode"
)

var (
	ErrUnsupportedFit    = errors.New("unsupported fit")
	ErrSourceTooLarge    = errors.New("source object exceeds size limit")
	ErrUnsupportedSource = errors.New("unsupported source")
)

// StageError carries a failure from one pipeline stage. Its message is the
// underlying error's message; the stage is reported through Code.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return e.Err.Error()
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func (e *StageError) Code() string {
	switch e.Stage {
	case StageFetch:
		return "FetchError"
	case StageDecode:
		return "DecodeError"
	case StageResize:
		return "ResizeError"
	case StageEncode:
		return "EncodeError"
	default:
		return "Error"
	}
}

// UnknownFormatError is returned before any codec work when the resolved
// format is outside the allow-list.
type UnknownFormatError struct {
	Format string
}

func (e *UnknownFormatError) Error() string {
	return fmt.Sprintf("Unknown format %s", e.Format)
}

func stageErr(stage Stage, err error) error {
	return &StageError{Stage: stage, Err: err}
}
