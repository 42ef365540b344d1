package speechtotext

import (
	"errors"
	"fmt"
)

// CaptureError is returned by adapters when a session could not be started.
type CaptureError struct {
	Kind ErrorKind
	Err  error
}

func (e *CaptureError) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *CaptureError) Unwrap() error { return e.Err }

// KindOf classifies an error returned by StartCapture. Unclassified errors
// are reported as ErrorUnavailable.
func KindOf(err error) ErrorKind {
	var captureErr *CaptureError
	if errors.As(err, &captureErr) {
		return captureErr.Kind
	}
	return ErrorUnavailable
}
