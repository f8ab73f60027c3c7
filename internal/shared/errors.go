package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Request errors
	ErrRequestFailed    = fmt.Errorf("request failed")
	ErrTransientRequest = fmt.Errorf("request failed after retries")
	ErrValidation       = fmt.Errorf("payload rejected by target")

	// API and service errors
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrRecordNotFound     = fmt.Errorf("record not found")
	ErrNoMapping          = fmt.Errorf("no field mapping available")

	// Merge errors
	ErrMergeAborted = fmt.Errorf("merge aborted")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)
