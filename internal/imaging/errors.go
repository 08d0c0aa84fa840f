package imaging

import "fmt"

// FetchError reports a blob reference whose local fetch returned a non-2xx
// status. The numeric status code is part of the message so callers can
// surface it without unwrapping.
type FetchError struct {
	StatusCode int
	Status     string
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("blob fetch failed: %s", e.Status)
}

// ReadError reports a failure while draining an image byte stream.
type ReadError struct {
	Err error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("image read failed: %v", e.Err)
}

func (e *ReadError) Unwrap() error {
	return e.Err
}
