package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCmdNodeRootProcsExcludesSubs(t *testing.T) {
	main := &spawnedProc{pid: 100}
	sub := &spawnedProc{pid: 101}
	node := &cmdNode{main: main, subs: []processNode{&cmdNode{main: sub}}}

	roots := node.rootProcs()
	assert.Equal(t, []*spawnedProc{main}, roots)
}

func TestPipelineNodeRootProcsFlattensStages(t *testing.T) {
	p1 := &spawnedProc{pid: 1}
	p2 := &spawnedProc{pid: 2}
	p3 := &spawnedProc{pid: 3}

	node := &pipelineNode{stages: []processNode{
		&cmdNode{main: p1},
		&cmdNode{main: p2},
		&cmdNode{main: p3},
	}}

	roots := node.rootProcs()
	assert.Equal(t, []*spawnedProc{p1, p2, p3}, roots)
}

func TestEmptyPipelineNodeHasNoRootProcs(t *testing.T) {
	node := &pipelineNode{}
	assert.Empty(t, node.rootProcs())
}

func TestPipefailRightmostNonZeroAmongAlreadyExitedProcs(t *testing.T) {
	p1 := &spawnedProc{pid: -1}
	p1.waitOnce.Do(func() { p1.exitCode = 0 })
	p2 := &spawnedProc{pid: -1}
	p2.waitOnce.Do(func() { p2.exitCode = 5 })
	p3 := &spawnedProc{pid: -1}
	p3.waitOnce.Do(func() { p3.exitCode = 0 })

	node := &pipelineNode{stages: []processNode{
		&cmdNode{main: p1},
		&cmdNode{main: p2},
		&cmdNode{main: p3},
	}}

	assert.Equal(t, 5, pipefail(node))
}
