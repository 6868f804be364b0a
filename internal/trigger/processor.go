package trigger

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/reportdesk/backend/internal/config"
)

// ErrNoCommand is returned when no processing command is configured.
var ErrNoCommand = errors.New("no processing command configured")

// CommandProcessor runs an external report generator. The command gets the
// configured args followed by filename, concurrency and mode, and its last
// non-empty stdout line is the result.
type CommandProcessor struct {
	Command string
	Args    []string
	Dir     string
}

// NewCommandProcessor creates a processor from the processing config.
func NewCommandProcessor(cfg config.ProcessingConfig) *CommandProcessor {
	return &CommandProcessor{
		Command: cfg.Command,
		Args:    cfg.Args,
		Dir:     cfg.WorkingDirectory,
	}
}

// Process implements Processor.
func (p *CommandProcessor) Process(ctx context.Context, filename string, concurrency, mode int) (string, error) {
	if p.Command == "" {
		return "", ErrNoCommand
	}

	args := make([]string, 0, len(p.Args)+3)
	args = append(args, p.Args...)
	args = append(args, filename, strconv.Itoa(concurrency), strconv.Itoa(mode))

	cmd := exec.CommandContext(ctx, p.Command, args...)
	cmd.Dir = p.Dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return "", fmt.Errorf("%s: %w: %s", p.Command, err, msg)
		}
		return "", fmt.Errorf("%s: %w", p.Command, err)
	}
	return lastLine(stdout.String()), nil
}

func lastLine(out string) string {
	lines := strings.Split(out, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return ""
}

var _ Processor = (*CommandProcessor)(nil)
