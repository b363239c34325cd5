// Package exec builds generated projects by running npm in the project
// directory.
package exec

import (
	"context"
	"errors"
	"fmt"
	"os"
	osexec "os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fwojciec/sitegen"
)

// Defaults for NewProjectBuilder.
const (
	DefaultNPM     = "npm"
	DefaultTimeout = 5 * time.Minute
	DistDir        = "dist"
)

var _ sitegen.ProjectBuilder = (*ProjectBuilder)(nil)

// ProjectBuilder implements sitegen.ProjectBuilder with `npm install`
// followed by `npm run build`. Failures are reported in the outcome.
type ProjectBuilder struct {
	npm     string
	timeout time.Duration
	steps   [][]string
}

// Option configures a ProjectBuilder.
type Option func(*ProjectBuilder)

// WithNPM sets the npm executable.
func WithNPM(path string) Option {
	return func(b *ProjectBuilder) { b.npm = path }
}

// WithTimeout bounds the whole build.
func WithTimeout(d time.Duration) Option {
	return func(b *ProjectBuilder) { b.timeout = d }
}

// WithSteps replaces the npm argument lists run in order.
func WithSteps(steps ...[]string) Option {
	return func(b *ProjectBuilder) { b.steps = steps }
}

// NewProjectBuilder creates a ProjectBuilder.
func NewProjectBuilder(opts ...Option) *ProjectBuilder {
	b := &ProjectBuilder{
		npm:     DefaultNPM,
		timeout: DefaultTimeout,
		steps:   [][]string{{"install"}, {"run", "build"}},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build runs every step in path and checks that path/dist was produced.
func (b *ProjectBuilder) Build(ctx context.Context, path string) sitegen.BuildOutcome {
	if _, err := os.Stat(filepath.Join(path, "package.json")); err != nil {
		return failure("package.json not found in %s", path)
	}

	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	for _, args := range b.steps {
		if err := b.run(ctx, path, args); err != nil {
			return failure("%s %s: %s", b.npm, strings.Join(args, " "), err)
		}
	}

	dist := filepath.Join(path, DistDir)
	if info, err := os.Stat(dist); err != nil || !info.IsDir() {
		return failure("build finished without producing %s", dist)
	}
	return sitegen.BuildOutcome{OK: true, OutputDir: dist}
}

// run executes one npm invocation in its own process group so cancellation
// kills npm's children too.
func (b *ProjectBuilder) run(ctx context.Context, dir string, args []string) error {
	cmd := osexec.CommandContext(ctx, b.npm, args...)
	cmd.Dir = dir
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
	cmd.WaitDelay = 5 * time.Second

	out := NewOutputCollector(rollingBufSize)
	cmd.Stdout = out
	cmd.Stderr = out

	err := cmd.Run()
	if err == nil {
		return nil
	}
	tail := processOutput(out)
	var exitErr *osexec.ExitError
	isRealExit := errors.As(err, &exitErr) && exitErr.ExitCode() >= 0
	switch {
	case !isRealExit && ctx.Err() != nil:
		err = fmt.Errorf("timed out or cancelled: %w", ctx.Err())
	case isRealExit:
		err = fmt.Errorf("exit code %d", exitErr.ExitCode())
	}
	if tail != "" {
		return fmt.Errorf("%w\n%s", err, tail)
	}
	return err
}

func failure(format string, args ...any) sitegen.BuildOutcome {
	return sitegen.BuildOutcome{Reason: fmt.Sprintf(format, args...)}
}
