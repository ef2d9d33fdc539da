// Package fdops simulates a child process's file descriptor table. It
// is a pure data structure: it records the ordered, async-signal-safe
// operations a forked child must perform before exec, and tracks which
// fds remain live once those operations run. It never touches the OS —
// no syscalls, no real file descriptors. The engine package turns the
// resulting live set (KeepFds) into real process-spawn mechanics; it
// does not replay the Ops list.
package fdops

import (
	"sort"

	"github.com/canonical/shish/shisherr"
)

// Op is one child-side, async-signal-safe operation: open, dup2 or
// close. Ordering is significant — each Op executes observing the
// effects of every prior Op.
type Op interface {
	isOp()
}

// OpOpen opens Path (raw bytes, to avoid allocator use on the child
// side of a real fork) with Flags, landing at Fd.
type OpOpen struct {
	Fd    int
	Path  []byte
	Flags int
}

func (OpOpen) isOp() {}

// OpDup2 duplicates Src onto Dst (POSIX dup2).
type OpDup2 struct {
	Src int
	Dst int
}

func (OpDup2) isOp() {}

// OpClose closes Fd.
type OpClose struct {
	Fd int
}

func (OpClose) isOp() {}

// Table simulates a forthcoming child's fd table. The zero value is not
// usable — construct with NewTable.
type Table struct {
	ops  []Op
	live map[int]struct{}
}

// NewTable creates a Table seeded with the given fds already live in the
// forthcoming child — typically {0,1,2}, possibly augmented with pipe
// endpoints the spawn layer will dup2 into place before the Table's own
// Ops run.
func NewTable(live ...int) *Table {
	t := &Table{live: make(map[int]struct{}, len(live))}
	for _, fd := range live {
		t.live[fd] = struct{}{}
	}
	return t
}

// AddLive declares fd already open in the forthcoming child. No Op is
// emitted.
func (t *Table) AddLive(fd int) {
	t.live[fd] = struct{}{}
}

// Open emits an OpOpen for path at fd with the given flags. fd becomes
// live.
func (t *Table) Open(fd int, path []byte, flags int) {
	t.ops = append(t.ops, OpOpen{Fd: fd, Path: path, Flags: flags})
	t.live[fd] = struct{}{}
}

// Dup2 emits an OpDup2(src,dst). dst becomes live; src stays live. It is
// a programmer error to dup2 from a source that is not live — this is
// reported to the caller at IR-translation time, never at child
// execution time.
func (t *Table) Dup2(src, dst int) error {
	if _, ok := t.live[src]; !ok {
		return shisherr.ErrRedirectNonLiveSrc
	}
	t.ops = append(t.ops, OpDup2{Src: src, Dst: dst})
	t.live[dst] = struct{}{}
	return nil
}

// MoveFd emits OpDup2(src,dst) followed by OpClose(src) — the idiom used
// to wire a pipe end onto its final target fd.
func (t *Table) MoveFd(src, dst int) error {
	if err := t.Dup2(src, dst); err != nil {
		return err
	}
	t.Close(src)
	return nil
}

// Close emits an OpClose(fd). fd leaves the live set.
func (t *Table) Close(fd int) {
	t.ops = append(t.ops, OpClose{Fd: fd})
	delete(t.live, fd)
}

// Ops returns the ordered operations recorded so far.
func (t *Table) Ops() []Op {
	return append([]Op(nil), t.ops...)
}

// Live reports whether fd is live after the recorded Ops run.
func (t *Table) Live(fd int) bool {
	_, ok := t.live[fd]
	return ok
}

// KeepFds returns every live fd, sorted ascending. The caller decides
// which of these need special inheritance handling across exec (fds 0-2
// are handled by the spawn layer's stdin/stdout/stderr wiring).
func (t *Table) KeepFds() []int {
	fds := make([]int, 0, len(t.live))
	for fd := range t.live {
		fds = append(fds, fd)
	}
	sort.Ints(fds)
	return fds
}
