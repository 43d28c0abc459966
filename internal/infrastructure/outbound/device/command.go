// Package device speaks the line-oriented control protocol of the
// acquisition board: one "Name:value\n" command per line.
package device

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/sophialabs/scopecore/internal/infrastructure/ports"
)

const (
	CmdRate        = "Rate"
	CmdTestSignal  = "Test signal"
	CmdTriggerEdge = "TriggerEdge"
)

// ErrMalformedCommand is returned by ParseCommand.
var ErrMalformedCommand = errors.New("malformed device command")

var _ ports.CommandSink = (*CommandWriter)(nil)

// CommandWriter formats commands onto the device link.
type CommandWriter struct {
	mu     sync.Mutex
	w      io.Writer
	logger ports.Logger
}

// NewCommandWriter writes to w. A nil w discards commands after logging
// them, for read-only sources.
func NewCommandWriter(w io.Writer, logger ports.Logger) *CommandWriter {
	return &CommandWriter{w: w, logger: logger}
}

// Send writes one command line.
func (c *CommandWriter) Send(ctx context.Context, name string, value int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	line := FormatCommand(name, value)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.w == nil {
		c.logger.Debug("device command dropped (read-only source)", "command", strings.TrimSpace(line))
		return nil
	}
	if _, err := io.WriteString(c.w, line); err != nil {
		return fmt.Errorf("failed to send %s: %w", name, err)
	}
	c.logger.Debug("device command sent", "command", strings.TrimSpace(line))
	return nil
}

// FormatCommand renders the wire form of a command.
func FormatCommand(name string, value int) string {
	return name + ":" + strconv.Itoa(value) + "\n"
}

// ParseCommand splits one line (without or with its newline).
func ParseCommand(line string) (string, int, error) {
	line = strings.TrimRight(line, "\r\n")
	name, raw, ok := strings.Cut(line, ":")
	if !ok || name == "" {
		return "", 0, fmt.Errorf("%w: %q", ErrMalformedCommand, line)
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return "", 0, fmt.Errorf("%w: %q", ErrMalformedCommand, line)
	}
	return name, v, nil
}

// LineReader accumulates written bytes and yields complete command lines.
type LineReader struct {
	buf bytes.Buffer
}

// Write buffers p and returns every complete line in it.
func (l *LineReader) Write(p []byte) []string {
	l.buf.Write(p)
	var lines []string
	for {
		i := bytes.IndexByte(l.buf.Bytes(), '\n')
		if i < 0 {
			return lines
		}
		lines = append(lines, strings.TrimRight(string(l.buf.Next(i+1)), "\r\n"))
	}
}
