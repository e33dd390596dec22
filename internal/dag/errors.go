package dag

import (
	"errors"
	"fmt"
	"strings"
)

// ErrCircularDependency is matched by every CircularDependencyError.
var ErrCircularDependency = errors.New("circular dependency")

// CircularDependencyError reports the commands the resolver could not place
// because they depend on each other.
type CircularDependencyError struct {
	// Remaining holds the unplaced commands in request order.
	Remaining []string
}

func (e *CircularDependencyError) Error() string {
	return fmt.Sprintf("circular dependency between commands: %s", strings.Join(e.Remaining, ", "))
}

// Is allows errors.Is(err, ErrCircularDependency).
func (e *CircularDependencyError) Is(target error) bool {
	return target == ErrCircularDependency
}
