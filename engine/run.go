package engine

import (
	"context"
	"os"

	"github.com/canonical/shish/aio"
	"github.com/canonical/shish/ir"
	"github.com/canonical/shish/shisherr"
)

// Run spawns r, waits for every root process to exit and returns the
// pipefail exit code: the rightmost non-zero normalized exit code among
// r's top-level stage processes, or 0 if all are zero or r is an empty
// Pipeline. Cleanup — SIGKILL every live process, reap all of them,
// close every fd this invocation allocated — always runs before Run
// returns, on every exit path including ctx cancellation.
func Run(ctx context.Context, r ir.Runnable, opts ...Option) (int, error) {
	c := newContext(opts...)
	defer c.cleanup(ctx)

	stopWatch := c.killOnCancel(ctx)
	defer stopWatch()

	node, err := c.spawnRunnable(ctx, r, os.Stdin, os.Stdout)
	if err != nil {
		return -1, err
	}

	code := pipefail(node)

	if werr := c.writers.Wait(); werr != nil {
		return code, werr
	}
	if err := ctx.Err(); err != nil {
		return code, err
	}

	return code, nil
}

// Out spawns r with its stdout captured into a parent-held pipe, drives
// the process tree and the capture read concurrently — mandatory, or the
// child deadlocks once the pipe buffer fills — and returns the captured
// bytes. A non-zero pipefail exit code is reported
// as *shisherr.NonZeroExit carrying the output captured so far, rather
// than as a return value, since out() has no "exit code" return slot of
// its own.
func Out(ctx context.Context, r ir.Runnable, opts ...Option) ([]byte, error) {
	c := newContext(opts...)
	defer c.cleanup(ctx)

	stopWatch := c.killOnCancel(ctx)
	defer stopWatch()

	pr, pw, err := os.Pipe()
	if err != nil {
		return nil, &shisherr.IoError{Op: "pipe", Err: err}
	}
	capture := c.own(newOwnedFd(pr))
	c.own(newOwnedFd(pw))

	node, err := c.spawnRunnable(ctx, r, os.Stdin, pw)
	if err != nil {
		_ = pw.Close()
		return nil, err
	}
	_ = pw.Close()

	out, readErr := aio.ReadAll(ctx, capture.File(), c.cfg.ChunkSize)
	capture.markInherited()

	code := pipefail(node)

	if werr := c.writers.Wait(); werr != nil && readErr == nil {
		readErr = werr
	}
	if readErr == nil {
		readErr = ctx.Err()
	}
	if readErr != nil {
		return out, readErr
	}

	if code != 0 {
		return out, &shisherr.NonZeroExit{Code: code, Argv: argvOf(node), Stdout: out}
	}
	return out, nil
}

// pipefail computes the rightmost non-zero exit code among node's root
// procs, reaping each of them. Process-substitution sub-processes are not
// reaped here; cleanup reaps them.
func pipefail(node processNode) int {
	roots := node.rootProcs()

	result := 0
	for _, p := range roots {
		code, err := p.reap()
		if err != nil {
			continue
		}
		if code != 0 {
			result = code
		}
	}
	return result
}

func argvOf(node processNode) []string {
	roots := node.rootProcs()
	if len(roots) == 0 {
		return nil
	}
	return roots[len(roots)-1].argv
}
