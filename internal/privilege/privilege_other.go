//go:build !windows

package privilege

import "fmt"

// Local provisioning drives powershell.exe and the Win32 token APIs, so
// elevation can never be satisfied off-Windows. Remote provisioning does
// not call this.
func requireElevation() error {
	return fmt.Errorf("%w: local provisioning requires Windows", ErrNotElevated)
}
