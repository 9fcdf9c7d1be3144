package platform

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
)

// NewLocal returns a Surface that drives the host the process runs on.
// Mutations go through powershell.exe; registry reads use WMI StdRegProv,
// which avoids a shell spawn per verification probe.
func NewLocal() Surface {
	return &psSurface{
		run:     localRunner{},
		regRead: regReadDWORD,
	}
}

// localRunner executes PowerShell on the local host. The script is
// prefixed with a strict error preference so script failures propagate as
// a non-zero exit instead of silent partial output.
type localRunner struct{}

func (localRunner) Run(ctx context.Context, script string) (string, error) {
	if runtime.GOOS != "windows" {
		return "", fmt.Errorf("local provisioning requires Windows")
	}

	wrapped := "$ErrorActionPreference='Stop'; " + script
	cmd := exec.CommandContext(ctx, "powershell.exe", "-NoProfile", "-NonInteractive", "-Command", wrapped)
	out, err := cmd.CombinedOutput()
	trimmed := strings.TrimSpace(string(out))
	if err != nil {
		return trimmed, fmt.Errorf("powershell: %w — %s", err, trimmed)
	}
	return trimmed, nil
}
