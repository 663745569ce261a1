package loadshape

import (
	"errors"
	"fmt"
)

// ConfigurationError reports an invalid phase parameter. It is raised while
// a sequence is being defined, never at tick time.
type ConfigurationError struct {
	Step    string // builder step that rejected its arguments
	Message string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("loadshape: %s: %s", e.Step, e.Message)
}

// StateError reports a lifecycle misuse, such as appending to a consumed
// builder or ticking a runner that was never started.
type StateError struct {
	Op      string
	Message string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("loadshape: %s: %s", e.Op, e.Message)
}

// IsConfigurationError reports whether any error in err's chain is a
// ConfigurationError.
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}

// IsStateError reports whether any error in err's chain is a StateError.
func IsStateError(err error) bool {
	var se *StateError
	return errors.As(err, &se)
}
