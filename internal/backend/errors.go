package backend

import "fmt"

// NetworkError means the backend could not be reached or its reply could not
// be read.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: backend unreachable: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// BackendError means the backend answered with an application-level failure.
type BackendError struct {
	Op      string
	Status  int
	Message string
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("%s: backend error (%d): %s", e.Op, e.Status, e.Message)
}
