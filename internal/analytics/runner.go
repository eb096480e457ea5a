package analytics

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// Runner executes one batch script with JSON on stdin and returns its stdout.
type Runner interface {
	Run(ctx context.Context, script string, input []byte) ([]byte, error)
}

// ScriptRunner runs scripts from Dir with an external interpreter.
type ScriptRunner struct {
	Interpreter string
	Dir         string
	Timeout     time.Duration
}

func (r ScriptRunner) Run(ctx context.Context, script string, input []byte) ([]byte, error) {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, r.Interpreter, filepath.Join(r.Dir, script))
	cmd.Stdin = bytes.NewReader(input)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = strings.TrimSpace(stdout.String())
		}
		return nil, fmt.Errorf("%s: %w: %s", script, err, msg)
	}
	return stdout.Bytes(), nil
}
