package shared

import (
	"errors"
	"fmt"
)

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")

	// Authentication errors
	ErrTokenExpired = fmt.Errorf("access token expired")
	ErrTimeout      = fmt.Errorf("operation timed out")

	// API and service errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrPlaylistNotFound   = fmt.Errorf("playlist not found")
	ErrTooManyTracks      = fmt.Errorf("too many tracks in a single request")

	// Pipeline errors
	ErrGenerationFailed    = fmt.Errorf("playlist generation failed")
	ErrNoMatches           = fmt.Errorf("no tracks could be resolved")
	ErrInvalidPayload      = fmt.Errorf("invalid model payload")
	ErrRefinementIntegrity = fmt.Errorf("refinement returned a track outside the candidate set")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)

// IsCredentialError reports whether err means the caller must re-authenticate.
func IsCredentialError(err error) bool {
	return errors.Is(err, ErrInvalidCredentials) || errors.Is(err, ErrTokenExpired)
}
