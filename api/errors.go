package api

import "fmt"

// Error is a non-2xx response from the remote service. The client never
// retries; retry policy belongs to the caller.
type Error struct {
	Status   int
	Endpoint string
}

func (e *Error) Error() string {
	return fmt.Sprintf("api: %s returned status %d", e.Endpoint, e.Status)
}

// ParseError is a malformed response body from an explicit fetch.
type ParseError struct {
	Endpoint string
	Err      error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("api: malformed response from %s: %v", e.Endpoint, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
