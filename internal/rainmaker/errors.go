package rainmaker

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyBaseURL      = errors.New("rainmaker: empty base url")
	ErrEmptyNodeID       = errors.New("rainmaker: empty node id")
	ErrEmptyToken        = errors.New("rainmaker: empty access token")
	ErrMissingToken      = errors.New("rainmaker: login response has no accesstoken")
	ErrMissingParamGroup = errors.New("rainmaker: param group not found in node params")
	ErrUnexpectedStatus  = errors.New("rainmaker: unexpected http status")
)

// StatusError reports a non-2xx response. It matches ErrUnexpectedStatus.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%v: %d", ErrUnexpectedStatus, e.Code)
}

func (e *StatusError) Unwrap() error {
	return ErrUnexpectedStatus
}
