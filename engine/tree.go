package engine

import "sync"

// spawnedProc is a single spawned OS process together with the bits the
// engine needs to reap and normalize its exit. It is owned by the
// Context's flat process list from the moment it is spawned; it holds
// no back-pointer into the tree that references it.
type spawnedProc struct {
	argv []string
	pid  int

	waitOnce sync.Once
	isReaped uint32
	exitCode int
	waitErr  error
}

// processNode is the tagged variant {cmdNode, pipelineNode} tracking how
// a Runnable was spawned, purely to compute rootProcs() for pipefail.
// Sub-process-substitution processes are reachable only through a
// cmdNode's subs field and are never returned by rootProcs.
type processNode interface {
	isProcessNode()
	rootProcs() []*spawnedProc
}

// cmdNode is the process tree node for a single Command invocation.
// subs holds the sub-processes spawned for its SubIn/SubOut arguments
// and FdFromSub/FdToSub redirects — spawned and cleaned up alongside
// main, but excluded from pipefail reporting.
type cmdNode struct {
	main *spawnedProc
	subs []processNode
}

func (*cmdNode) isProcessNode() {}

func (n *cmdNode) rootProcs() []*spawnedProc {
	return []*spawnedProc{n.main}
}

// pipelineNode is the process tree node for a Pipeline: one cmdNode per
// stage, in stage order.
type pipelineNode struct {
	stages []processNode
}

func (*pipelineNode) isProcessNode() {}

func (n *pipelineNode) rootProcs() []*spawnedProc {
	procs := make([]*spawnedProc, 0, len(n.stages))
	for _, s := range n.stages {
		procs = append(procs, s.rootProcs()...)
	}
	return procs
}
