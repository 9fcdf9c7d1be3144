// Package privilege verifies the process holds administrator rights.
// Every provisioning step needs an elevated token, so the check runs
// before any step and fails the whole run when unmet.
package privilege

import "errors"

// ErrNotElevated is returned when the process lacks administrator rights.
var ErrNotElevated = errors.New("administrator privileges required")

// RequireElevation returns nil when the current process runs elevated.
func RequireElevation() error {
	return requireElevation()
}
