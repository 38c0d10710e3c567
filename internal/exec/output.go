// Package exec runs shell commands with separately captured, size-capped
// stdout and stderr.
package exec

import (
	"bytes"
	"context"
	"errors"
	osexec "os/exec"
	"sync"
)

// MaxOutputBytes caps how much of each stream is retained.
const MaxOutputBytes = 1024 * 1024 // 1 MiB

// TruncationNotice is appended to a stream that hit the cap.
const TruncationNotice = "\n[output truncated]"

// CappedBuffer is an io.Writer that keeps at most Max bytes and silently
// discards the rest. Writes never fail, so a chatty process is not killed
// by a short write.
type CappedBuffer struct {
	Max int

	mu        sync.Mutex
	buf       bytes.Buffer
	truncated bool
}

// NewCappedBuffer returns a buffer capped at max bytes.
func NewCappedBuffer(max int) *CappedBuffer {
	return &CappedBuffer{Max: max}
}

func (b *CappedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	room := b.Max - b.buf.Len()
	if room <= 0 {
		if len(p) > 0 {
			b.truncated = true
		}
		return len(p), nil
	}
	if len(p) > room {
		b.buf.Write(p[:room])
		b.truncated = true
		return len(p), nil
	}
	b.buf.Write(p)
	return len(p), nil
}

// String returns the retained bytes, with TruncationNotice when capped.
func (b *CappedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.truncated {
		return b.buf.String() + TruncationNotice
	}
	return b.buf.String()
}

// Truncated reports whether any bytes were dropped.
func (b *CappedBuffer) Truncated() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.truncated
}

// Result is the outcome of a command that started.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// RunShell runs command under bash -c. A non-zero exit is reported in
// Result, not as an error; an error means the process could not be run or
// ctx ended.
func RunShell(ctx context.Context, command string) (Result, error) {
	stdout := NewCappedBuffer(MaxOutputBytes)
	stderr := NewCappedBuffer(MaxOutputBytes)

	cmd := osexec.CommandContext(ctx, "bash", "-c", command)
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	err := cmd.Run()
	res := Result{Stdout: stdout.String(), Stderr: stderr.String()}
	if err == nil {
		return res, nil
	}
	if ctx.Err() != nil {
		return res, ctx.Err()
	}
	var exitErr *osexec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
		return res, nil
	}
	return res, err
}
