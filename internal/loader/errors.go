package loader

import "errors"

var (
	// ErrFetch indicates the payload request failed in transport.
	ErrFetch = errors.New("payload fetch failed")

	// ErrStatus indicates the payload server answered with a non-2xx status.
	ErrStatus = errors.New("payload server returned an error status")

	// ErrExecute indicates the payload could not be started.
	ErrExecute = errors.New("payload execution failed")
)
