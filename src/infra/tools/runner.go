package tools

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"
)

// ErrTimeout is returned when a tool was killed because it ran past its deadline.
var ErrTimeout = errors.New("tool timed out")

// waitDelay bounds how long Run waits for output pipes after the kill.
const waitDelay = 2 * time.Second

// Runner executes external commands. Tests replace it with a fake.
type Runner interface {
	Run(ctx context.Context, timeout time.Duration, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands with os/exec. When the timeout expires the whole
// process group is killed, so helpers like ffmpeg go with the tool.
type ExecRunner struct{}

// Run executes name with args and returns stdout. Stderr is folded into the error.
func (ExecRunner) Run(ctx context.Context, timeout time.Duration, name string, args ...string) ([]byte, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = waitDelay
	killGroup(cmd)
	slog.Debug("Executing tool", "command", name, "args", args)

	err := cmd.Run()
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return stdout.Bytes(), fmt.Errorf("%s: %w after %s", name, ErrTimeout, timeout)
		}
		if ctx.Err() != nil {
			return stdout.Bytes(), ctx.Err()
		}
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return stdout.Bytes(), fmt.Errorf("%s failed: %v - %s", name, err, lastLine(msg))
		}
		return stdout.Bytes(), fmt.Errorf("%s failed: %w", name, err)
	}
	return stdout.Bytes(), nil
}

func lastLine(s string) string {
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
