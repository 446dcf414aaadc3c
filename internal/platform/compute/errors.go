package compute

import (
	"errors"
	"fmt"
)

// Common errors returned by the compute package
var (
	// ErrUpstream is matched by every failure talking to the compute service:
	// an unreachable service, an error status, or a job that ended as failed.
	ErrUpstream = errors.New("compute service error")

	// ErrPollTimeout is matched when a deferred job did not finish within the
	// configured number of poll attempts.
	ErrPollTimeout = errors.New("compute job did not finish in time")

	// ErrInvalidResponse is returned when a response body cannot be interpreted.
	ErrInvalidResponse = errors.New("invalid response from compute service")

	// ErrInvalidConfig is returned when the client configuration is invalid.
	ErrInvalidConfig = errors.New("invalid compute client configuration")
)

// UpstreamError describes a failure reported by the compute service.
// StatusCode is zero when the failure came from a job status rather than
// an HTTP error response.
type UpstreamError struct {
	StatusCode int
	Message    string
}

// Error implements the error interface.
func (e *UpstreamError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("compute service returned status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("compute job failed: %s", e.Message)
}

// Is makes errors.Is(err, ErrUpstream) match any *UpstreamError.
func (e *UpstreamError) Is(target error) bool {
	return target == ErrUpstream
}

// TimeoutError reports that polling gave up after Attempts status checks.
type TimeoutError struct {
	Attempts int
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("compute job still running after %d status checks", e.Attempts)
}

// Is makes errors.Is(err, ErrPollTimeout) match any *TimeoutError.
func (e *TimeoutError) Is(target error) bool {
	return target == ErrPollTimeout
}
