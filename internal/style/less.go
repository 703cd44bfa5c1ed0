// Package style compiles Less stylesheets with the external lessc tool.
package style

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
)

// DefaultCompiler is the lessc binary looked up on PATH.
const DefaultCompiler = "lessc"

// CompileError reports a failed lessc run with its diagnostics.
type CompileError struct {
	Source string
	Stderr string
	Err    error
}

func (e *CompileError) Error() string {
	msg := strings.TrimSpace(e.Stderr)
	if msg == "" {
		msg = e.Err.Error()
	}
	return fmt.Sprintf("compile %s: %s", e.Source, msg)
}

func (e *CompileError) Unwrap() error {
	return e.Err
}

// LessCompiler runs lessc on a stylesheet and returns the CSS it prints.
type LessCompiler struct {
	bin    string
	logger *slog.Logger
}

// NewLessCompiler creates a compiler that invokes bin, or DefaultCompiler
// when bin is empty.
func NewLessCompiler(bin string, logger *slog.Logger) *LessCompiler {
	if bin == "" {
		bin = DefaultCompiler
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &LessCompiler{bin: bin, logger: logger}
}

// Compile renders src. Imports are resolved relative to src's directory.
func (c *LessCompiler) Compile(ctx context.Context, src string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, c.bin, "--no-color", src)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	c.logger.Debug("compiling stylesheet", "source", src, "compiler", c.bin)
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, &CompileError{Source: src, Stderr: stderr.String(), Err: err}
		}
		return nil, fmt.Errorf("stylesheet compiler %q: %w", c.bin, err)
	}
	return stdout.Bytes(), nil
}
