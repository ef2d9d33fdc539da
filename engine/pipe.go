package engine

import (
	"os"

	"golang.org/x/sys/unix"
)

// pipePair is one parent-allocated pipe, both ends registered with the
// Context as OwnedFds from the moment of allocation. Allocating through
// unix.Pipe2 (rather than os.Pipe) makes O_CLOEXEC explicit — every
// engine-owned fd starts close-on-exec and is deliberately un-cloexec'd
// only for the single fd a given child is meant to inherit, via its
// position in that child's ProcAttr.Files.
type pipePair struct {
	r *OwnedFd
	w *OwnedFd
}

func (c *Context) allocPipe() (pipePair, error) {
	fds := make([]int, 2)
	if err := unix.Pipe2(fds, unix.O_CLOEXEC); err != nil {
		return pipePair{}, err
	}

	r := c.own(newOwnedFd(os.NewFile(uintptr(fds[0]), "pipe-r")))
	w := c.own(newOwnedFd(os.NewFile(uintptr(fds[1]), "pipe-w")))
	return pipePair{r: r, w: w}, nil
}
