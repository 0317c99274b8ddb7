package compression

import (
	"errors"
	"fmt"
)

// InputError reports a problem with what the caller sent
type InputError struct {
	Message string
}

func (e *InputError) Error() string {
	return e.Message
}

// ErrNoUpload is returned when the request carries no image data
var ErrNoUpload = &InputError{Message: "No file uploaded"}

// Stage names the pipeline step a ProcessingError originated from
type Stage string

const (
	StageMetadata Stage = "metadata"
	StageDecode   Stage = "decode"
	StageResize   Stage = "resize"
	StageEncode   Stage = "encode"
)

// ProcessingError wraps a codec failure. The cause is meant for logs only.
type ProcessingError struct {
	Stage Stage
	Err   error
}

func (e *ProcessingError) Error() string {
	return fmt.Sprintf("compression failed during %s: %v", e.Stage, e.Err)
}

func (e *ProcessingError) Unwrap() error {
	return e.Err
}

// IsInputError reports whether err is or wraps an *InputError
func IsInputError(err error) bool {
	var inputErr *InputError
	return errors.As(err, &inputErr)
}

// FailedStage returns the pipeline stage of a *ProcessingError in err's chain
func FailedStage(err error) (Stage, bool) {
	var procErr *ProcessingError
	if !errors.As(err, &procErr) {
		return "", false
	}
	return procErr.Stage, true
}
