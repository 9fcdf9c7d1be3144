//go:build !windows

package platform

import (
	"context"
	"fmt"
)

// regReadDWORD is a stub for non-Windows platforms. The local surface is
// only usable on Windows; remote provisioning reads the registry over
// WinRM instead.
func regReadDWORD(ctx context.Context, subKey, valueName string) (uint32, error) {
	return 0, fmt.Errorf("registry reads only supported on Windows")
}
