package platform

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"
	"time"

	gowinrm "github.com/masterzen/winrm"
)

// Target describes a remote Windows Server to provision over WinRM.
type Target struct {
	Hostname  string
	Port      int
	Username  string // DOMAIN\user format
	Password  string
	UseSSL    bool
	VerifySSL bool
}

// sessionMaxAge bounds how long a cached WinRM client is reused before a
// fresh one is negotiated.
const sessionMaxAge = 300 * time.Second

// NewRemote returns a Surface that drives target over WinRM. Registry
// reads go through PowerShell like every other remote operation.
func NewRemote(target Target) Surface {
	return &psSurface{run: newWinRMRunner(target)}
}

// winrmRunner executes PowerShell scripts on a remote host via WinRM with
// NTLM auth and a time-bounded cached session.
type winrmRunner struct {
	target Target

	mu        sync.Mutex
	client    *gowinrm.Client
	createdAt time.Time
}

func newWinRMRunner(target Target) *winrmRunner {
	return &winrmRunner{target: target}
}

func (r *winrmRunner) Run(ctx context.Context, script string) (string, error) {
	client, err := r.session()
	if err != nil {
		return "", fmt.Errorf("winrm session: %w", err)
	}

	wrapped := "$ErrorActionPreference='Stop'; " + script

	shell, err := client.CreateShell()
	if err != nil {
		r.invalidate()
		return "", fmt.Errorf("create shell: %w", err)
	}
	defer shell.Close()

	encoded := encodePowerShell(wrapped)
	cmd, err := shell.Execute("powershell.exe", "-NoProfile", "-NonInteractive", "-EncodedCommand", encoded)
	if err != nil {
		r.invalidate()
		return "", fmt.Errorf("execute: %w", err)
	}
	defer cmd.Close()

	var stdoutBuf, stderrBuf bytes.Buffer
	var copiers sync.WaitGroup
	copiers.Add(2)
	go func() {
		defer copiers.Done()
		io.Copy(&stdoutBuf, cmd.Stdout)
	}()
	go func() {
		defer copiers.Done()
		io.Copy(&stderrBuf, cmd.Stderr)
	}()

	cmd.Wait()
	copiers.Wait()

	stdout := strings.TrimSpace(stdoutBuf.String())
	stderr := strings.TrimSpace(stderrBuf.String())

	if code := cmd.ExitCode(); code != 0 {
		detail := stderr
		if detail == "" {
			detail = stdout
		}
		return stdout, fmt.Errorf("remote powershell exited %d: %s", code, detail)
	}
	return stdout, nil
}

// session returns the cached WinRM client, negotiating a new one if the
// cache is empty or expired.
func (r *winrmRunner) session() (*gowinrm.Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.client != nil && time.Since(r.createdAt) < sessionMaxAge {
		return r.client, nil
	}
	if r.client != nil {
		log.Printf("[winrm] Session expired for %s, refreshing", r.target.Hostname)
	}

	port := r.target.Port
	if port == 0 {
		port = defaultWinRMPort(r.target.UseSSL)
	}

	endpoint := gowinrm.NewEndpoint(r.target.Hostname, port, r.target.UseSSL, !r.target.VerifySSL, nil, nil, nil, 120*time.Second)

	// NTLM auth: required in domain environments, Basic is rarely enabled.
	params := gowinrm.NewParameters("PT120S", "en-US", 153600)
	params.TransportDecorator = func() gowinrm.Transporter { return &gowinrm.ClientNTLM{} }

	client, err := gowinrm.NewClientWithParameters(endpoint, r.target.Username, r.target.Password, params)
	if err != nil {
		return nil, fmt.Errorf("create WinRM client for %s: %w", r.target.Hostname, err)
	}

	r.client = client
	r.createdAt = time.Now()
	log.Printf("[winrm] New session for %s:%d (ssl=%v)", r.target.Hostname, port, r.target.UseSSL)
	return client, nil
}

func (r *winrmRunner) invalidate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.client = nil
}

func defaultWinRMPort(useSSL bool) int {
	if useSSL {
		return 5986
	}
	return 5985
}

// encodePowerShell encodes a script for PowerShell's -EncodedCommand
// parameter, which expects UTF-16LE base64.
func encodePowerShell(script string) string {
	utf16 := make([]byte, len(script)*2)
	for i, c := range []byte(script) {
		utf16[i*2] = c
		utf16[i*2+1] = 0
	}
	return base64.StdEncoding.EncodeToString(utf16)
}
