package production

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidEfficiency is returned for negative, NaN or infinite efficiency.
	ErrInvalidEfficiency = errors.New("production: efficiency must be a finite value >= 0")
	// ErrInvalidModuleCount is returned for a negative module count.
	ErrInvalidModuleCount = errors.New("production: module count must not be negative")
	// ErrMissingLocator is returned when resolving without a logistics locator.
	ErrMissingLocator = errors.New("production: logistics locator is not configured")
	// ErrRecipeNotFound is returned when a recipe ID is not registered.
	ErrRecipeNotFound = errors.New("production: recipe not found")
	// ErrDuplicateCycle is returned when a building already has a cycle.
	ErrDuplicateCycle = errors.New("production: building already has a cycle")
	// ErrDuplicateInput is returned when a recipe lists an input item twice.
	ErrDuplicateInput = errors.New("production: input item listed more than once")
	// ErrCapacityTooSmall is returned when a container cannot hold one cycle.
	ErrCapacityTooSmall = errors.New("production: container cannot hold one cycle")
)

// ConfigurationError reports a building whose production cannot run because
// a required collaborator or setting is missing or invalid.
type ConfigurationError struct {
	Building BuildingID
	Reason   string
	Err      error
}

func (e *ConfigurationError) Error() string {
	msg := fmt.Sprintf("production: building %s misconfigured: %s", e.Building, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// IsConfigurationError reports whether err carries a ConfigurationError.
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}
