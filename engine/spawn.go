package engine

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"syscall"

	"github.com/canonical/shish/fdops"
	"github.com/canonical/shish/ir"
	"github.com/canonical/shish/shisherr"
)

// spawnRunnable dispatches on the Runnable's dynamic type and spawns the
// corresponding process tree, wiring stdin/stdout to the given files.
func (c *Context) spawnRunnable(ctx context.Context, r ir.Runnable, stdin, stdout *os.File) (processNode, error) {
	switch v := r.(type) {
	case ir.Command:
		return c.spawnCommand(ctx, v, stdin, stdout)
	case ir.Pipeline:
		return c.spawnPipeline(ctx, v, stdin, stdout)
	default:
		panic("engine: unknown ir.Runnable variant")
	}
}

// spawnPipeline allocates N-1 inter-stage pipes eagerly — pipe
// allocation precedes any spawn — then spawns each stage in order,
// wiring each stage's stdin/stdout to the adjacent pipe ends or to the
// pipeline's own outer stdin/stdout at the boundaries. An empty
// Pipeline spawns nothing — its rootProcs() is empty, and the pipefail
// computation over zero procs yields an immediate-success exit code 0.
func (c *Context) spawnPipeline(ctx context.Context, p ir.Pipeline, outerStdin, outerStdout *os.File) (*pipelineNode, error) {
	stages := p.Stages()
	if len(stages) == 0 {
		return &pipelineNode{}, nil
	}

	pipes := make([]pipePair, len(stages)-1)
	for i := range pipes {
		pp, err := c.allocPipe()
		if err != nil {
			return nil, &shisherr.IoError{Op: "pipe", Err: err}
		}
		pipes[i] = pp
	}

	nodes := make([]processNode, len(stages))
	for i, stage := range stages {
		in := outerStdin
		if i > 0 {
			in = pipes[i-1].r.File()
		}
		out := outerStdout
		if i < len(stages)-1 {
			out = pipes[i].w.File()
		}

		node, err := c.spawnCommand(ctx, stage, in, out)
		if err != nil {
			return nil, err
		}
		nodes[i] = node
	}

	for _, pp := range pipes {
		pp.r.markInherited()
		pp.w.markInherited()
		_ = pp.r.Close()
		_ = pp.w.Close()
	}

	return &pipelineNode{stages: nodes}, nil
}

// spawnCommand translates cmd's redirects and argument-embedded process
// substitutions into a fdops.Table plus a parallel map of child-fd-number
// to the real parent-held *os.File backing it, spawns any sub-processes
// the translation required, compiles the result into a
// syscall.ProcAttr.Files array, and forks+execs the command itself.
func (c *Context) spawnCommand(ctx context.Context, cmd ir.Command, stdin, stdout *os.File) (*cmdNode, error) {
	table := fdops.NewTable(0, 1, 2)
	realFd := map[int]*os.File{0: stdin, 1: stdout, 2: os.Stderr}
	var mainInherited []*OwnedFd
	var subs []processNode
	nextVirtual := scanMaxFd(cmd) + 1

	spawnSub := func(r ir.Runnable, subStdin, subStdout *os.File) (processNode, error) {
		node, err := c.spawnRunnable(ctx, r, subStdin, subStdout)
		if err != nil {
			return nil, err
		}
		subs = append(subs, node)
		return node, nil
	}

	// Argument-embedded process substitutions: resolved to /dev/fd/N
	// paths naming the end of a freshly allocated pipe inherited by the
	// main process; the sub's own stdin/stdout otherwise inherit the
	// stage's outer wiring.
	var argv []string
	for _, a := range cmd.Args() {
		switch v := a.(type) {
		case ir.SubIn:
			pp, err := c.allocPipe()
			if err != nil {
				return nil, &shisherr.IoError{Op: "pipe", Err: err}
			}
			if _, err := spawnSub(v.Cmd, stdin, pp.w.File()); err != nil {
				return nil, err
			}
			pp.w.markInherited()
			_ = pp.w.Close()

			virtual := nextVirtual
			nextVirtual++
			table.AddLive(virtual)
			realFd[virtual] = pp.r.File()
			mainInherited = append(mainInherited, pp.r)
			argv = append(argv, devFdPath(c.cfg.DevFdRoot, virtual))

		case ir.SubOut:
			pp, err := c.allocPipe()
			if err != nil {
				return nil, &shisherr.IoError{Op: "pipe", Err: err}
			}
			if _, err := spawnSub(v.Cmd, pp.r.File(), stdout); err != nil {
				return nil, err
			}
			pp.r.markInherited()
			_ = pp.r.Close()

			virtual := nextVirtual
			nextVirtual++
			table.AddLive(virtual)
			realFd[virtual] = pp.w.File()
			mainInherited = append(mainInherited, pp.w)
			argv = append(argv, devFdPath(c.cfg.DevFdRoot, virtual))

		default:
			s, ok := ir.ArgString(a)
			if !ok {
				panic("engine: unknown ir.Arg variant")
			}
			argv = append(argv, s)
		}
	}

	var pendingWrites []struct {
		owned *OwnedFd
		data  ir.Data
	}

	for _, redirect := range cmd.Redirects() {
		switch v := redirect.(type) {
		case ir.FdToFd:
			if _, ok := realFd[v.Src]; !ok {
				return nil, shisherr.ErrRedirectNonLiveSrc
			}
			_ = table.Dup2(v.Src, v.Dst)
			realFd[v.Dst] = realFd[v.Src]

		case ir.FdToFile:
			flags := os.O_WRONLY | os.O_CREATE
			if v.Append {
				flags |= os.O_APPEND
			} else {
				flags |= os.O_TRUNC
			}
			f, err := os.OpenFile(v.Path, flags, 0o644)
			if err != nil {
				return nil, &shisherr.IoError{Op: "open", Path: v.Path, Err: err}
			}
			owned := c.own(newOwnedFd(f))
			table.Open(v.Fd, []byte(v.Path), flags)
			realFd[v.Fd] = owned.File()
			mainInherited = append(mainInherited, owned)

		case ir.FdFromFile:
			f, err := os.OpenFile(v.Path, os.O_RDONLY, 0)
			if err != nil {
				return nil, &shisherr.IoError{Op: "open", Path: v.Path, Err: err}
			}
			owned := c.own(newOwnedFd(f))
			table.Open(v.Fd, []byte(v.Path), os.O_RDONLY)
			realFd[v.Fd] = owned.File()
			mainInherited = append(mainInherited, owned)

		case ir.FdFromData:
			pp, err := c.allocPipe()
			if err != nil {
				return nil, &shisherr.IoError{Op: "pipe", Err: err}
			}
			virtual := nextVirtual
			nextVirtual++
			table.AddLive(virtual)
			_ = table.MoveFd(virtual, v.Fd)
			realFd[v.Fd] = pp.r.File()
			mainInherited = append(mainInherited, pp.r)
			pendingWrites = append(pendingWrites, struct {
				owned *OwnedFd
				data  ir.Data
			}{owned: pp.w, data: v.Data})

		case ir.FdClose:
			table.Close(v.Fd)
			delete(realFd, v.Fd)

		case ir.FdFromSub:
			pp, err := c.allocPipe()
			if err != nil {
				return nil, &shisherr.IoError{Op: "pipe", Err: err}
			}
			if _, err := spawnSub(v.Sub.Cmd, stdin, pp.w.File()); err != nil {
				return nil, err
			}
			pp.w.markInherited()
			_ = pp.w.Close()

			virtual := nextVirtual
			nextVirtual++
			table.AddLive(virtual)
			_ = table.MoveFd(virtual, v.Fd)
			realFd[v.Fd] = pp.r.File()
			mainInherited = append(mainInherited, pp.r)

		case ir.FdToSub:
			pp, err := c.allocPipe()
			if err != nil {
				return nil, &shisherr.IoError{Op: "pipe", Err: err}
			}
			if _, err := spawnSub(v.Sub.Cmd, pp.r.File(), stdout); err != nil {
				return nil, err
			}
			pp.r.markInherited()
			_ = pp.r.Close()

			virtual := nextVirtual
			nextVirtual++
			table.AddLive(virtual)
			_ = table.MoveFd(virtual, v.Fd)
			realFd[v.Fd] = pp.w.File()
			mainInherited = append(mainInherited, pp.w)

		default:
			panic("engine: unknown ir.Redirect variant")
		}
	}

	files, err := c.compileFiles(table, realFd)
	if err != nil {
		return nil, err
	}

	envv := buildEnv(cmd.Env(), cmd.Dir())

	pid, err := doSpawn(argv, envv, cmd.Dir(), files)
	if err != nil {
		return nil, &shisherr.SpawnError{Argv: argv, Err: err}
	}

	for _, owned := range mainInherited {
		owned.markInherited()
		_ = owned.Close()
	}

	for _, pw := range pendingWrites {
		c.spawnDataWriter(ctx, pw.owned, pw.data)
	}

	proc := c.track(&spawnedProc{argv: argv, pid: pid})
	return &cmdNode{main: proc, subs: subs}, nil
}

// compileFiles renders a fdops.Table's live-fd set into the positional
// syscall.ProcAttr.Files array Go's runtime dup2/close sequencer expects:
// Files[i] becomes fd i in the child. Gaps below the highest live fd are
// filled with Context.devNull (see devnull.go).
func (c *Context) compileFiles(table *fdops.Table, realFd map[int]*os.File) ([]uintptr, error) {
	keep := table.KeepFds()

	// Always cover 0-2: stdin/stdout/stderr are ordinarily inherited
	// without O_CLOEXEC, so a gap at one of these positions (e.g. a
	// FdClose(2)) must still be filled rather than omitted from Files —
	// an omitted low position would otherwise leave the original,
	// non-cloexec descriptor to leak into the child untouched.
	size := 3
	for _, fd := range keep {
		if fd+1 > size {
			size = fd + 1
		}
	}

	files := make([]uintptr, size)
	null, err := c.devNull()
	if err != nil {
		return nil, &shisherr.IoError{Op: "open", Path: os.DevNull, Err: err}
	}

	for i := 0; i < size; i++ {
		files[i] = null.Fd()
	}
	for _, fd := range keep {
		f, ok := realFd[fd]
		if !ok {
			return nil, fmt.Errorf("engine: internal: fd %d live but has no backing file", fd)
		}
		files[fd] = f.Fd()
	}
	return files, nil
}

// doSpawn resolves argv[0] against PATH (the one os/exec helper used
// directly — exec.LookPath, not exec.Cmd, since non-stdio Files wiring
// needs syscall.ForkExec's lower-level control) and forks+execs via
// syscall.ForkExec, which performs the async-signal-safe dup2/close
// sequence into `files` entirely inside the runtime's
// forkAndExecInChild, without any Go code running between fork and exec.
func doSpawn(argv, envv []string, dir string, files []uintptr) (int, error) {
	if len(argv) == 0 {
		return 0, fmt.Errorf("engine: empty argv")
	}

	path, err := exec.LookPath(argv[0])
	if err != nil {
		return 0, err
	}

	attr := &syscall.ProcAttr{
		Dir:   dir,
		Env:   envv,
		Files: files,
	}
	return syscall.ForkExec(path, argv, attr)
}
