// Package kit delegates kit management to the external Python installer.
// The installer owns its own output; this package only locates it, builds
// its arguments and reports a failed run as a single error.
package kit

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
)

const (
	defaultPython = "python3"
	scriptName    = "install.py"
)

// ErrInstallerNotFound is returned when no installer script exists in any
// of the candidate locations.
var ErrInstallerNotFound = errors.New("kit installer script not found")

// ErrNoKits is returned when an action needs at least one kit name.
var ErrNoKits = errors.New("no kit specified")

// Runner runs the kit installer as a child process.
type Runner struct {
	python     string
	explicit   string
	templates  string
	workDir    string
	stdin      io.Reader
	stdout     io.Writer
	stderr     io.Writer
	candidates []string
}

// Option configures a Runner.
type Option func(*Runner)

// WithInstaller pins the installer script path.
func WithInstaller(path string) Option {
	return func(r *Runner) { r.explicit = path }
}

// WithTemplatesDir points at an on-disk templates directory; its sibling
// scripts/install.py becomes a candidate.
func WithTemplatesDir(dir string) Option {
	return func(r *Runner) { r.templates = dir }
}

// WithWorkDir sets the directory the installer runs in.
func WithWorkDir(dir string) Option {
	return func(r *Runner) { r.workDir = dir }
}

// WithPython overrides the interpreter.
func WithPython(bin string) Option {
	return func(r *Runner) { r.python = bin }
}

// WithIO connects the child process streams.
func WithIO(stdin io.Reader, stdout, stderr io.Writer) Option {
	return func(r *Runner) {
		r.stdin = stdin
		r.stdout = stdout
		r.stderr = stderr
	}
}

// NewRunner creates a Runner. The work directory defaults to the current
// directory and the streams to the process streams.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{
		python: defaultPython,
		stdin:  os.Stdin,
		stdout: os.Stdout,
		stderr: os.Stderr,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.workDir == "" {
		r.workDir, _ = os.Getwd()
	}

	if r.explicit != "" {
		r.candidates = append(r.candidates, r.explicit)
	}
	if r.templates != "" {
		r.candidates = append(r.candidates, filepath.Join(r.templates, "..", "scripts", scriptName))
	}
	r.candidates = append(r.candidates,
		filepath.Join(r.workDir, ".claude", "skills", "kit-installer", "scripts", scriptName))
	return r
}

// Locate returns the first installer script that exists.
func (r *Runner) Locate() (string, error) {
	for _, p := range r.candidates {
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w (looked in %d locations; set VIBERY_KIT_INSTALLER)", ErrInstallerNotFound, len(r.candidates))
}

// List prints the available kits.
func (r *Runner) List(ctx context.Context) error {
	return r.run(ctx, "--list")
}

// Installed prints the kits installed in the work directory.
func (r *Runner) Installed(ctx context.Context) error {
	return r.run(ctx, "--installed")
}

// Install installs one or more kits.
func (r *Runner) Install(ctx context.Context, kits []string, dryRun bool) error {
	if len(kits) == 0 {
		return ErrNoKits
	}
	args := append([]string(nil), kits...)
	if dryRun {
		args = append(args, "--dry-run")
	}
	return r.run(ctx, args...)
}

// Uninstall removes a single kit.
func (r *Runner) Uninstall(ctx context.Context, kit string, dryRun bool) error {
	if kit == "" {
		return ErrNoKits
	}
	args := []string{"--uninstall", kit}
	if dryRun {
		args = append(args, "--dry-run")
	}
	return r.run(ctx, args...)
}

func (r *Runner) run(ctx context.Context, args ...string) error {
	script, err := r.Locate()
	if err != nil {
		return err
	}

	cmd := exec.CommandContext(ctx, r.python, append([]string{script}, args...)...)
	cmd.Dir = r.workDir
	cmd.Stdin = r.stdin
	cmd.Stdout = r.stdout
	cmd.Stderr = r.stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return fmt.Errorf("kit installer exited with code %d", exitErr.ExitCode())
		}
		return fmt.Errorf("running kit installer: %w", err)
	}
	return nil
}
