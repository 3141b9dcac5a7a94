package deploy

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	psnet "github.com/shirou/gopsutil/v3/net"
	"github.com/shirou/gopsutil/v3/process"
	"go.uber.org/zap"
)

// ErrPortBusy is returned when a port stays occupied after the forced
// retry.
var ErrPortBusy = errors.New("port still in use")

// Processes inspects and signals local processes.
type Processes interface {
	// ListenerPIDs returns the processes listening on TCP port.
	ListenerPIDs(ctx context.Context, port int) ([]int32, error)
	Terminate(ctx context.Context, pid int32) error
	Kill(ctx context.Context, pid int32) error
}

// HostProcesses implements Processes for the local host.
type HostProcesses struct{}

// ListenerPIDs implements Processes.
func (HostProcesses) ListenerPIDs(ctx context.Context, port int) ([]int32, error) {
	conns, err := psnet.ConnectionsWithContext(ctx, "tcp")
	if err != nil {
		return nil, fmt.Errorf("listing connections: %w", err)
	}
	var pids []int32
	for _, c := range conns {
		if c.Status != "LISTEN" || int(c.Laddr.Port) != port || c.Pid == 0 {
			continue
		}
		if !slices.Contains(pids, c.Pid) {
			pids = append(pids, c.Pid)
		}
	}
	return pids, nil
}

// Terminate implements Processes.
func (HostProcesses) Terminate(ctx context.Context, pid int32) error {
	p, err := process.NewProcessWithContext(ctx, pid)
	if err != nil {
		return err
	}
	return p.TerminateWithContext(ctx)
}

// Kill implements Processes.
func (HostProcesses) Kill(ctx context.Context, pid int32) error {
	p, err := process.NewProcessWithContext(ctx, pid)
	if err != nil {
		return err
	}
	return p.KillWithContext(ctx)
}

// PortFreer stops whatever listens on a port. It asks politely first, then
// force-kills and checks exactly once more.
type PortFreer struct {
	procs  Processes
	grace  time.Duration
	logger *zap.Logger
}

// NewPortFreer creates a PortFreer. grace is how long to wait after each
// signal before checking the port again.
func NewPortFreer(procs Processes, grace time.Duration, logger *zap.Logger) *PortFreer {
	if procs == nil {
		procs = HostProcesses{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PortFreer{procs: procs, grace: grace, logger: logger}
}

// Free makes port available.
func (f *PortFreer) Free(ctx context.Context, port int) error {
	pids, err := f.procs.ListenerPIDs(ctx, port)
	if err != nil {
		return err
	}
	if len(pids) == 0 {
		return nil
	}

	f.logger.Info("stopping processes on port", zap.Int("port", port), zap.Int32s("pids", pids))
	for _, pid := range pids {
		if err := f.procs.Terminate(ctx, pid); err != nil {
			f.logger.Warn("terminate failed", zap.Int32("pid", pid), zap.Error(err))
		}
	}
	if pids, err = f.waitAndCheck(ctx, port); err != nil || len(pids) == 0 {
		return err
	}

	f.logger.Warn("port still busy, killing", zap.Int("port", port), zap.Int32s("pids", pids))
	for _, pid := range pids {
		if err := f.procs.Kill(ctx, pid); err != nil {
			f.logger.Warn("kill failed", zap.Int32("pid", pid), zap.Error(err))
		}
	}
	if pids, err = f.waitAndCheck(ctx, port); err != nil || len(pids) == 0 {
		return err
	}

	return fmt.Errorf("%w: port %d held by pid(s) %s; stop them manually (sudo lsof -i :%d) and retry",
		ErrPortBusy, port, joinPIDs(pids), port)
}

func (f *PortFreer) waitAndCheck(ctx context.Context, port int) ([]int32, error) {
	if f.grace > 0 {
		timer := time.NewTimer(f.grace)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	return f.procs.ListenerPIDs(ctx, port)
}

func joinPIDs(pids []int32) string {
	parts := make([]string, len(pids))
	for i, p := range pids {
		parts[i] = strconv.Itoa(int(p))
	}
	return strings.Join(parts, ", ")
}

// Starter launches a detached process and returns its PID.
type Starter interface {
	Start(name string, args []string, dir string) (int, error)
}

// ExecStarter starts processes with os/exec and does not wait for them.
type ExecStarter struct {
	LogFile string // stdout and stderr destination, discarded when empty
}

// Start implements Starter.
func (s ExecStarter) Start(name string, args []string, dir string) (int, error) {
	cmd := exec.Command(name, args...)
	cmd.Dir = dir
	if s.LogFile != "" {
		f, err := os.OpenFile(s.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return 0, fmt.Errorf("opening log file: %w", err)
		}
		defer f.Close()
		cmd.Stdout = f
		cmd.Stderr = f
	}
	if err := cmd.Start(); err != nil {
		return 0, err
	}
	pid := cmd.Process.Pid
	if err := cmd.Process.Release(); err != nil {
		return pid, err
	}
	return pid, nil
}

// Backend controls the API server process.
type Backend struct {
	Command string // may contain {port}
	Port    int
	Dir     string
	PIDFile string

	Freer   *PortFreer
	Procs   Processes
	Starter Starter
	Logger  *zap.Logger
}

// CommandLine returns the executable and arguments with {port} expanded.
func (b *Backend) CommandLine() (string, []string, error) {
	expanded := strings.ReplaceAll(b.Command, "{port}", strconv.Itoa(b.Port))
	fields := strings.Fields(expanded)
	if len(fields) == 0 {
		return "", nil, errors.New("backend command is empty")
	}
	return fields[0], fields[1:], nil
}

// StartSteps frees the port, starts the backend and records its PID.
func (b *Backend) StartSteps() []Step {
	var pid int
	return []Step{
		{Name: "free port " + strconv.Itoa(b.Port), Run: func(ctx context.Context) error {
			return b.Freer.Free(ctx, b.Port)
		}},
		{Name: "start backend", Run: func(context.Context) error {
			name, args, err := b.CommandLine()
			if err != nil {
				return err
			}
			pid, err = b.Starter.Start(name, args, b.Dir)
			if err != nil {
				return fmt.Errorf("starting %s: %w", name, err)
			}
			b.logger().Info("backend started", zap.Int("pid", pid), zap.Int("port", b.Port))
			return nil
		}},
		{Name: "write pid file", Run: func(context.Context) error {
			return writePIDFile(b.PIDFile, pid)
		}},
	}
}

// StopSteps terminates the recorded backend process, then makes sure the
// port is free.
func (b *Backend) StopSteps() []Step {
	return []Step{
		{Name: "stop recorded process", Run: func(ctx context.Context) error {
			pid, err := readPIDFile(b.PIDFile)
			if errors.Is(err, os.ErrNotExist) {
				b.logger().Info("no pid file, skipping", zap.String("path", b.PIDFile))
				return nil
			}
			if err != nil {
				return err
			}
			if err := b.Procs.Terminate(ctx, int32(pid)); err != nil {
				b.logger().Warn("terminate failed", zap.Int("pid", pid), zap.Error(err))
			}
			return os.Remove(b.PIDFile)
		}},
		{Name: "free port " + strconv.Itoa(b.Port), Run: func(ctx context.Context) error {
			return b.Freer.Free(ctx, b.Port)
		}},
	}
}

func (b *Backend) logger() *zap.Logger {
	if b.Logger == nil {
		return zap.NewNop()
	}
	return b.Logger
}

func writePIDFile(path string, pid int) error {
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating pid directory: %w", err)
	}
	return os.WriteFile(path, []byte(strconv.Itoa(pid)+"\n"), 0o644)
}

func readPIDFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("invalid pid file %s: %q", path, strings.TrimSpace(string(data)))
	}
	return pid, nil
}
