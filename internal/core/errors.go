package core

import (
	"errors"
	"fmt"
)

// ErrEmptyResponse is wrapped by UpstreamError when the remote model answered
// without any usable content.
var ErrEmptyResponse = errors.New("empty response from remote model")

// UpstreamError reports a failed call to a remote collaborator, either a
// transport or API failure or a malformed response envelope.
type UpstreamError struct {
	Op  string
	Err error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream %s failed: %v", e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}
