package shared

import "fmt"

var (
	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Authentication errors
	ErrAuthFailed = fmt.Errorf("authentication failed")
	ErrTimeout    = fmt.Errorf("operation timed out")

	// API and network errors
	ErrAPIRequest     = fmt.Errorf("API request failed")
	ErrNothingPlaying = fmt.Errorf("no track is currently playing")

	// Local rating store errors
	ErrCorruptStore  = fmt.Errorf("rating database is corrupt or unreadable")
	ErrInvalidRating = fmt.Errorf("invalid rating")

	// Input validation errors
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
	ErrCancelled       = fmt.Errorf("cancelled by user")
)
