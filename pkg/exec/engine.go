// Package exec runs approved command lines with a bounded wall clock,
// bounded output capture and a bounded number of concurrent children.
//
// The command line is split into an argument vector with a real shell word
// splitter and executed directly, with no shell in between. Operators like
// pipes or redirection therefore have no effect even if they slipped past
// validation; they would arrive as literal arguments.
package exec

import (
	"context"
	"errors"
	"fmt"
	osexec "os/exec"
	"time"

	"golang.org/x/sync/semaphore"
	"mvdan.cc/sh/v3/shell"
)

// Result captures one command execution. It is created per invocation and
// discarded once the response is formatted.
type Result struct {
	ExitCode  int
	Stdout    string
	Stderr    string
	TimedOut  bool
	Truncated bool
	Duration  time.Duration
}

// Engine executes approved commands. The zero value runs with no timeout,
// no output cap and no concurrency cap; production callers should use New.
type Engine struct {
	// Timeout is the per-command wall clock limit. Zero disables it.
	Timeout time.Duration
	// MaxOutput bounds each captured stream in bytes. Zero disables it.
	MaxOutput int
	// WorkDir is the working directory for every child process.
	WorkDir string

	sem *semaphore.Weighted
}

// New builds an engine. maxConcurrent <= 0 leaves concurrency unbounded.
func New(timeout time.Duration, maxOutput int, workDir string, maxConcurrent int) *Engine {
	e := &Engine{Timeout: timeout, MaxOutput: maxOutput, WorkDir: workDir}
	if maxConcurrent > 0 {
		e.sem = semaphore.NewWeighted(int64(maxConcurrent))
	}
	return e
}

// Run executes one command line. A non-zero exit code is not an error: the
// Result carries it. An error return means the command never ran properly
// (unparseable line, spawn failure) or the caller's context ended while
// queued for a concurrency slot.
func (e *Engine) Run(ctx context.Context, commandLine string) (*Result, error) {
	argv, err := shell.Fields(commandLine, nil)
	if err != nil {
		return nil, fmt.Errorf("parse command: %w", err)
	}
	if len(argv) == 0 {
		return nil, errors.New("empty command")
	}

	if e.sem != nil {
		// Queue on the request context, not the command timeout: waiting
		// for a slot must not consume the command's wall clock.
		if err := e.sem.Acquire(ctx, 1); err != nil {
			return nil, fmt.Errorf("acquire execution slot: %w", err)
		}
		defer e.sem.Release(1)
	}

	runCtx := ctx
	var cancel context.CancelFunc
	if e.Timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}

	cmd := osexec.CommandContext(runCtx, argv[0], argv[1:]...)
	cmd.Dir = e.WorkDir

	stdout := &limitedBuffer{limit: e.MaxOutput}
	stderr := &limitedBuffer{limit: e.MaxOutput}
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	// Children get their own process group so cancellation can reach the
	// whole tree, and Wait gets a grace period instead of blocking forever
	// on a child that survives the kill.
	setProcessGroup(cmd)
	cmd.Cancel = func() error { return killProcessGroup(cmd) }
	cmd.WaitDelay = 5 * time.Second

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start command: %w", err)
	}

	waitErr := cmd.Wait()
	result := &Result{
		Stdout:    stdout.String(),
		Stderr:    stderr.String(),
		Truncated: stdout.truncated || stderr.truncated,
		Duration:  time.Since(start),
	}

	if runCtx.Err() == context.DeadlineExceeded {
		result.TimedOut = true
		result.ExitCode = -1
		return result, nil
	}

	if waitErr != nil {
		var exitErr *osexec.ExitError
		if errors.As(waitErr, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			return result, nil
		}
		return nil, fmt.Errorf("wait for command: %w", waitErr)
	}

	return result, nil
}
