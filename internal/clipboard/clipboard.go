// Package clipboard copies snapshot text to the system clipboard through
// whichever platform tool is available. Failures are advisory: the caller
// decides whether they matter, and the artifact always stays on disk.
package clipboard

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
)

// The PowerShell command reads stdin through an explicit UTF-8 stream
// reader; plain clip.exe mangles anything beyond the console code page.
const powershellCopy = "$content = (New-Object System.IO.StreamReader([System.Console]::OpenStandardInput(), " +
	"[System.Text.Encoding]::UTF8)).ReadToEnd(); Set-Clipboard -Value $content"

// Publisher copies text to the system clipboard. The zero value is not
// usable; construct with New.
type Publisher struct {
	goos     string
	isWSL    bool
	lookPath func(string) (string, error)
	run      func(ctx context.Context, stdin, name string, args ...string) error
}

// New creates a Publisher for the current platform.
func New() *Publisher {
	return &Publisher{
		goos:     runtime.GOOS,
		isWSL:    detectWSL(),
		lookPath: exec.LookPath,
		run:      runTool,
	}
}

// NewForTesting creates a Publisher with injected platform probes and
// command execution.
func NewForTesting(goos string, isWSL bool, lookPath func(string) (string, error), run func(ctx context.Context, stdin, name string, args ...string) error) *Publisher {
	return &Publisher{goos: goos, isWSL: isWSL, lookPath: lookPath, run: run}
}

// Copy places text on the clipboard. The context bounds the tool
// invocation; a tool that neither returns nor is killed within the
// caller's deadline is abandoned with the context error.
func (p *Publisher) Copy(ctx context.Context, text string) error {
	name, args, err := p.tool()
	if err != nil {
		return err
	}
	if err := p.run(ctx, text, name, args...); err != nil {
		return fmt.Errorf("%s failed: %w", name, err)
	}
	return nil
}

// tool selects the clipboard mechanism by OS family and session type.
func (p *Publisher) tool() (string, []string, error) {
	if p.goos == "windows" || (p.goos == "linux" && p.isWSL) {
		if _, err := p.lookPath("powershell.exe"); err == nil {
			return "powershell.exe", []string{"-NoProfile", "-Command", powershellCopy}, nil
		}
		if _, err := p.lookPath("clip.exe"); err == nil {
			return "clip.exe", nil, nil
		}
		return "", nil, fmt.Errorf("no clipboard tool found (tried powershell.exe, clip.exe)")
	}

	switch p.goos {
	case "darwin":
		if _, err := p.lookPath("pbcopy"); err == nil {
			return "pbcopy", nil, nil
		}
		return "", nil, fmt.Errorf("no clipboard tool found (tried pbcopy)")
	case "linux":
		if _, err := p.lookPath("wl-copy"); err == nil {
			return "wl-copy", nil, nil
		}
		if _, err := p.lookPath("xclip"); err == nil {
			return "xclip", []string{"-selection", "clipboard"}, nil
		}
		return "", nil, fmt.Errorf("no clipboard tool found (tried wl-copy, xclip)")
	}
	return "", nil, fmt.Errorf("no clipboard support for %s", p.goos)
}

func runTool(ctx context.Context, stdin, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = strings.NewReader(stdin)

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	return nil
}

// detectWSL reports whether the process runs inside Windows Subsystem
// for Linux.
func detectWSL() bool {
	if os.Getenv("WSL_DISTRO_NAME") != "" {
		return true
	}
	release, err := os.ReadFile("/proc/sys/kernel/osrelease")
	if err != nil {
		return false
	}
	return strings.Contains(strings.ToLower(string(release)), "microsoft")
}
