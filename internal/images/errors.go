package images

import "fmt"

// FetchError is returned when a resource could not be retrieved.
// StatusCode is zero when the transport failed before a response arrived.
type FetchError struct {
	Locator    string
	StatusCode int
	Status     string
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("failed to load %s: %v", e.Locator, e.Err)
	}
	return fmt.Sprintf("failed to load %s: %d %s", e.Locator, e.StatusCode, e.Status)
}

func (e *FetchError) Unwrap() error { return e.Err }

// DecodeError is returned when fetched bytes are not a supported image
type DecodeError struct {
	Locator string
	Err     error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode %s: %v", e.Locator, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }
