package price

import "fmt"

// NetworkError covers transport failures, timeouts and non-2xx statuses.
type NetworkError struct {
	StatusCode int    // zero when no response was received
	Message    string // human readable summary
	Timeout    bool
	Err        error
}

func (e *NetworkError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("http %d: %s", e.StatusCode, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ResponseFormatError means the server answered but the body did not have
// the expected shape.
type ResponseFormatError struct {
	Reason string
	Err    error
}

func (e *ResponseFormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Reason, e.Err)
	}
	return e.Reason
}

func (e *ResponseFormatError) Unwrap() error { return e.Err }

func formatErr(reason string, err error) error {
	return &ResponseFormatError{Reason: reason, Err: err}
}
