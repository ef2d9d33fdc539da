// Package engine is the runtime core: it translates an ir.Runnable into
// a tree of spawned POSIX processes, wires file descriptors according
// to the command graph's redirects and process substitutions, drives
// concurrent data-injection writers, computes the pipefail exit code,
// and guarantees cleanup of every process and file descriptor it
// allocated on every exit path — success, failure, or cancellation.
package engine

import (
	"context"
	"errors"
	"os"
	"sync"
	"syscall"

	"github.com/canonical/shish/aio"
	"github.com/canonical/shish/ir"
	"github.com/canonical/shish/shishcfg"
	"github.com/canonical/shish/shlog"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Context is the flat cleanup authority for one Run/Out invocation. It
// never nests: the process tree built during preparation references
// spawnedProc values that also live here, but Context holds the only
// back-reference-free list cleanup can walk unconditionally. A single
// execution context owns every resource a request allocates, no matter
// how deep the call tree that allocated it went.
type Context struct {
	mu          sync.Mutex
	fds         []*OwnedFd
	procs       []*spawnedProc
	logger      shlog.Logger
	cfg         shishcfg.Config
	devNullFile *os.File
	writers     *errgroup.Group
}

// Option configures a Run/Out invocation.
type Option func(*Context)

// WithLogger overrides the default logger.
func WithLogger(l shlog.Logger) Option {
	return func(c *Context) { c.logger = l }
}

// WithConfig overrides the default Config.
func WithConfig(cfg shishcfg.Config) Option {
	return func(c *Context) { c.cfg = cfg }
}

func newContext(opts ...Option) *Context {
	c := &Context{
		logger:  shlog.New(),
		cfg:     shishcfg.Default(),
		writers: &errgroup.Group{},
	}
	for _, opt := range opts {
		opt(c)
	}
	// Every invocation gets its own run_id, carried on all subsequent log
	// lines, so that cleanup/kill/reap diagnostics from one Run/Out call
	// can be correlated even when invocations overlap (teacher idiom:
	// request-scoped correlation IDs attached once and inherited by every
	// log call for that request).
	c.logger = c.logger.AddContext(shlog.Ctx{"run_id": uuid.NewString()})
	return c
}

// spawnDataWriter starts the async writer task for a FdFromData redirect.
// It is always called after the consuming child has been spawned, so the
// child already holds the read end by the time the first byte is
// written.
func (c *Context) spawnDataWriter(ctx context.Context, owned *OwnedFd, data ir.Data) {
	owned.markTransferred()
	c.writers.Go(func() error {
		f := owned.File()
		var err error
		switch d := data.(type) {
		case ir.StrData:
			err = aio.WriteAllString(ctx, f, string(d))
		case ir.BytesData:
			err = aio.WriteAll(ctx, f, []byte(d))
		default:
			panic("engine: unknown ir.Data variant")
		}

		// A reader that exits before consuming the whole payload (head
		// -c1 on a multi-KiB feed) closes its end early; the resulting
		// EPIPE is the tolerated counterpart of a pipeline head's
		// SIGPIPE and must not fail the overall invocation.
		if errors.Is(err, syscall.EPIPE) {
			c.logger.AddContext(shlog.Ctx{"fd": f.Fd()}).Debug("data writer: reader closed early")
			return nil
		}
		return err
	})
}

// own registers f as an OwnedFd tracked by this Context and returns the
// handle. Every fd the engine allocates — pipe ends, files opened for a
// redirect — must be registered exactly once, here; the one exception is
// the shared /dev/null fd, which devNull appends to c.fds itself because
// it already holds c.mu.
func (c *Context) own(f *OwnedFd) *OwnedFd {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fds = append(c.fds, f)
	return f
}

// track registers p as a spawned process tracked by this Context.
func (c *Context) track(p *spawnedProc) *spawnedProc {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.procs = append(c.procs, p)
	return p
}

// killOnCancel starts a watcher that SIGKILLs every process tracked so
// far the moment ctx is done, and returns a stop func that must be
// called once the caller no longer needs the watch (after its own wait
// on those processes has returned). Without this, a blocking proc.Wait
// in pipefail has nothing to unblock it until cleanup's own deferred
// kill runs — which can't happen until pipefail itself returns, so
// cancellation would otherwise have no effect until every process exits
// on its own.
func (c *Context) killOnCancel(ctx context.Context) (stop func()) {
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			c.mu.Lock()
			procs := append([]*spawnedProc(nil), c.procs...)
			c.mu.Unlock()
			for _, p := range procs {
				p.kill()
			}
		case <-done:
		}
	}()
	return func() { close(done) }
}

// cleanup runs the mandatory teardown sequence: SIGKILL every still-live
// process, await all waits under a cancellation shield so an outer
// cancellation cannot abandon a zombie, then idempotently close every
// registered fd. It always runs to completion regardless of why the
// invocation is ending.
func (c *Context) cleanup(ctx context.Context) {
	// The reap loop below must run to completion even if ctx is the
	// reason this invocation is ending — an outer cancellation must
	// never abandon a SIGKILLed zombie. context.WithoutCancel detaches
	// ctx's deadline/cancellation; the only timer bounding this loop is
	// our own KillGrace ticker, used solely to pace diagnostic logging.
	shielded := context.WithoutCancel(ctx)

	c.mu.Lock()
	procs := append([]*spawnedProc(nil), c.procs...)
	fds := append([]*OwnedFd(nil), c.fds...)
	c.mu.Unlock()

	for _, p := range procs {
		p.kill()
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		var wg sync.WaitGroup
		wg.Add(len(procs))
		for _, p := range procs {
			go func(p *spawnedProc) {
				defer wg.Done()
				if _, err := p.reap(); err != nil {
					c.logger.AddContext(shlog.Ctx{"pid": p.pid, "err": err}).Warn("cleanup: failed to reap process")
				}
			}(p)
		}
		wg.Wait()
	}()

	for {
		graceCtx, cancelGrace := context.WithTimeout(shielded, c.cfg.KillGrace)
		select {
		case <-done:
			cancelGrace()
			goto reaped
		case <-graceCtx.Done():
			cancelGrace()
			c.logger.AddContext(shlog.Ctx{"count": len(procs)}).Warn("cleanup: still waiting for processes to be reaped")
		}
	}
reaped:

	for _, f := range fds {
		if err := f.Close(); err != nil {
			c.logger.AddContext(shlog.Ctx{"fd": f.Fd(), "err": err}).Warn("cleanup: failed to close fd")
		}
	}
}
