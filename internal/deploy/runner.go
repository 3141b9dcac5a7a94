// Package deploy runs the server-side operations for hosting the election
// visualization: web server and certificate setup, firewall rules, backend
// process control and domain diagnostics. Every runbook is strictly
// sequential and stops at the first failing step.
package deploy

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"go.uber.org/zap"
)

// Runner executes external commands.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// CommandError is a command that exited unsuccessfully.
type CommandError struct {
	Command string
	Output  string
	Err     error
}

func (e *CommandError) Error() string {
	out := strings.TrimSpace(e.Output)
	if out == "" {
		return fmt.Sprintf("%s: %v", e.Command, e.Err)
	}
	return fmt.Sprintf("%s: %v: %s", e.Command, e.Err, out)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// ExecRunner runs commands on the local host.
type ExecRunner struct {
	logger *zap.Logger
}

// NewExecRunner creates an ExecRunner.
func NewExecRunner(logger *zap.Logger) *ExecRunner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExecRunner{logger: logger}
}

// Run executes name with args and returns the combined output.
func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	r.logger.Debug("executing command", zap.String("name", name), zap.Strings("args", args))

	cmd := exec.CommandContext(ctx, name, args...)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	if err := cmd.Run(); err != nil {
		return out.Bytes(), &CommandError{
			Command: strings.Join(append([]string{name}, args...), " "),
			Output:  out.String(),
			Err:     err,
		}
	}
	return out.Bytes(), nil
}
