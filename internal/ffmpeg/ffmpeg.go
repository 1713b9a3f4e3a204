// Package ffmpeg shells out to the ffmpeg and ffprobe binaries for every
// media operation in the pipeline: probing inputs, measuring loudness,
// rasterizing frame artifacts, and the final encodes.
package ffmpeg

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// commandContext builds external commands; tests replace it to intercept
// invocations.
var commandContext = exec.CommandContext

// Executor handles all ffmpeg and ffprobe operations
type Executor struct {
	logger      zerolog.Logger
	ffmpegPath  string
	ffprobePath string
	threads     int
	timeout     time.Duration
}

// Option configures an Executor
type Option func(*Executor)

// WithFFmpegPath overrides the ffmpeg binary location
func WithFFmpegPath(path string) Option {
	return func(e *Executor) {
		if path != "" {
			e.ffmpegPath = path
		}
	}
}

// WithFFprobePath overrides the ffprobe binary location
func WithFFprobePath(path string) Option {
	return func(e *Executor) {
		if path != "" {
			e.ffprobePath = path
		}
	}
}

// WithThreads limits ffmpeg's thread usage
func WithThreads(n int) Option {
	return func(e *Executor) {
		e.threads = n
	}
}

// WithTimeout bounds the runtime of each external invocation
func WithTimeout(d time.Duration) Option {
	return func(e *Executor) {
		e.timeout = d
	}
}

// New creates an executor, resolving the binaries from PATH unless
// overridden by options
func New(logger zerolog.Logger, opts ...Option) (*Executor, error) {
	e := &Executor{
		logger: logger.With().Str("component", "ffmpeg").Logger(),
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.ffmpegPath == "" {
		path, err := exec.LookPath("ffmpeg")
		if err != nil {
			return nil, fmt.Errorf("ffmpeg not found in PATH: %w", err)
		}
		e.ffmpegPath = path
	}

	if e.ffprobePath == "" {
		path, err := exec.LookPath("ffprobe")
		if err != nil {
			return nil, fmt.Errorf("ffprobe not found in PATH: %w", err)
		}
		e.ffprobePath = path
	}

	return e, nil
}

// run executes ffmpeg, streaming output lines to the handler and keeping a
// bounded stderr tail for failure diagnostics
func (e *Executor) run(ctx context.Context, opts RunOptions) error {
	if len(opts.Args) == 0 {
		return fmt.Errorf("no arguments provided")
	}

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	baseArgs := []string{"-y", "-hide_banner", "-loglevel", "info"}
	if e.threads > 0 {
		baseArgs = append(baseArgs, "-threads", strconv.Itoa(e.threads))
	}
	args := append(baseArgs, opts.Args...)

	e.logger.Debug().
		Str("cmd", "ffmpeg").
		Strs("args", args).
		Msg("executing ffmpeg")

	cmd := commandContext(ctx, e.ffmpegPath, args...)

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("failed to create stderr pipe: %w", err)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to create stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	tail := newTailBuffer(tailLimit)

	var wg sync.WaitGroup
	wg.Add(2)

	// Diagnostics and filter logs arrive on stderr
	go func() {
		defer wg.Done()
		e.streamOutput(stderr, tail, opts.LogHandler)
	}()

	go func() {
		defer wg.Done()
		e.streamOutput(stdout, nil, opts.LogHandler)
	}()

	wg.Wait()

	if err := cmd.Wait(); err != nil {
		if ctx.Err() == context.Canceled {
			return ctx.Err()
		}
		if ctx.Err() == context.DeadlineExceeded {
			err = fmt.Errorf("timed out after %s: %w", e.timeout, err)
		}
		return &RunError{
			Tail: tail.String(),
			Err:  fmt.Errorf("ffmpeg execution failed: %w", err),
		}
	}

	e.logger.Debug().Msg("ffmpeg execution completed")
	return nil
}

// streamOutput forwards output lines to the tail buffer and handler
func (e *Executor) streamOutput(r io.Reader, tail *tailBuffer, logHandler func(string)) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if tail != nil {
			tail.Append(line)
		}
		if logHandler != nil {
			logHandler(line)
		}
	}
}

// tailLimit bounds the stderr excerpt carried into error values
const tailLimit = 2048

// tailBuffer retains the most recent output lines within a byte budget
type tailBuffer struct {
	mu    sync.Mutex
	lines []string
	size  int
	limit int
}

func newTailBuffer(limit int) *tailBuffer {
	return &tailBuffer{limit: limit}
}

func (b *tailBuffer) Append(line string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.lines = append(b.lines, line)
	b.size += len(line) + 1
	for b.size > b.limit && len(b.lines) > 1 {
		b.size -= len(b.lines[0]) + 1
		b.lines = b.lines[1:]
	}
}

func (b *tailBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return strings.Join(b.lines, "\n")
}
