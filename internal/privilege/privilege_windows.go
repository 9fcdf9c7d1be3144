//go:build windows

package privilege

import (
	"fmt"

	"golang.org/x/sys/windows"
)

func requireElevation() error {
	token := windows.GetCurrentProcessToken()
	if !token.IsElevated() {
		return fmt.Errorf("%w: re-run from an elevated prompt", ErrNotElevated)
	}
	return nil
}
