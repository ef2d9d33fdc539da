package engine

import (
	"errors"
	"os"
	"sync"
)

type fdState int

const (
	fdAllocated fdState = iota
	fdInherited
	fdDataPending
	fdClosed
)

// OwnedFd is a runtime-owned file descriptor handle. Every fd the engine
// allocates — both ends of every pipe, files opened for a redirect — is
// wrapped in one and registered with the owning Context so cleanup can
// traverse a single flat list instead of threading fd ownership through
// the process tree. Close is idempotent: cleanup closes every registered
// OwnedFd unconditionally, including ones a data-writer task or the
// post-spawn parent-side close already closed.
type OwnedFd struct {
	mu    sync.Mutex
	file  *os.File
	state fdState
}

func newOwnedFd(f *os.File) *OwnedFd {
	return &OwnedFd{file: f, state: fdAllocated}
}

// Fd returns the underlying raw fd number. Valid until Close.
func (o *OwnedFd) Fd() int {
	return int(o.file.Fd())
}

// File returns the underlying *os.File.
func (o *OwnedFd) File() *os.File {
	return o.file
}

// markTransferred records that ownership moved to the async data-writer
// task, which performs the real close itself. Close does not consult
// this state: a later Close from cleanup still closes the *os.File,
// which is harmless because os.File.Close is safe to call concurrently
// and a second close's os.ErrClosed is suppressed.
func (o *OwnedFd) markTransferred() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state == fdAllocated {
		o.state = fdDataPending
	}
}

// markInherited records that the parent is done with the fd — it was
// handed to a child (or, for Out's capture end, read to EOF) — just
// before the parent-side Close.
func (o *OwnedFd) markInherited() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state == fdAllocated {
		o.state = fdInherited
	}
}

// Close closes the fd if it has not already been closed by this OwnedFd
// or by the data-writer task it was transferred to. Safe to call any
// number of times, from any goroutine.
func (o *OwnedFd) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state == fdClosed {
		return nil
	}
	o.state = fdClosed
	err := o.file.Close()
	if errors.Is(err, os.ErrClosed) {
		return nil
	}
	return err
}
