package engine

import "os"

// devNull returns a read-only /dev/null fd shared across every gap
// filled in this Context's ProcAttr.Files arrays. It is opened once per
// Run/Out invocation and closed by cleanup like any other OwnedFd.
//
// A target fd between 0 and the highest declared live fd that was never
// declared live is filled with a duplicate of this descriptor rather
// than left to carry garbage — it carries no data. The child keeps that
// copy open across exec; the parent's descriptor is closed by cleanup.
// True arbitrary-width gap closing would need
// a manual raw dup2/close sequence equivalent to a full
// posix_spawn_file_actions list.
func (c *Context) devNull() (*os.File, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.devNullFile != nil {
		return c.devNullFile, nil
	}

	f, err := os.OpenFile(os.DevNull, os.O_RDONLY, 0)
	if err != nil {
		return nil, err
	}
	c.fds = append(c.fds, newOwnedFd(f))
	c.devNullFile = f
	return f, nil
}
