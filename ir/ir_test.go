package ir_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/canonical/shish/ir"
)

func TestCommandImmutable(t *testing.T) {
	base := ir.Cmd(ir.Str("echo"), ir.Str("hi"))
	withArg := base.WithArgs(ir.Str("there"))

	assert.NotEqual(t, base, withArg)
	assert.Equal(t, []ir.Arg{ir.Str("echo"), ir.Str("hi")}, base.Args())

	withRedirect := base.CloseFd(3)
	assert.NotEqual(t, base, withRedirect)
	assert.Empty(t, base.Redirects())
	require.Len(t, withRedirect.Redirects(), 1)
	assert.Equal(t, ir.FdClose{Fd: 3}, withRedirect.Redirects()[0])
}

func TestCommandWriteRead(t *testing.T) {
	c := ir.Cmd(ir.Str("cat")).
		Read(ir.Path("/tmp/in.txt"), ir.Stdin).
		Write(ir.Path("/tmp/out.txt"), ir.Stdout, false)

	require.Len(t, c.Redirects(), 2)
	assert.Equal(t, ir.FdFromFile{Fd: ir.Stdin, Path: "/tmp/in.txt"}, c.Redirects()[0])
	assert.Equal(t, ir.FdToFile{Fd: ir.Stdout, Path: "/tmp/out.txt", Append: false}, c.Redirects()[1])
}

func TestCommandDup2(t *testing.T) {
	c := ir.Cmd(ir.Str("foo")).Write(ir.Path("file"), ir.Stdout, false).Dup2(ir.Stdout, ir.Stderr)
	require.Len(t, c.Redirects(), 2)
	assert.Equal(t, ir.FdToFd{Src: ir.Stdout, Dst: ir.Stderr}, c.Redirects()[1])
}

func TestPipeFlattening(t *testing.T) {
	a := ir.Cmd(ir.Str("a"))
	b := ir.Cmd(ir.Str("b"))
	c := ir.Cmd(ir.Str("c"))

	inner := ir.Seq(a, b)
	outer := ir.Seq(inner, c)

	assert.Len(t, outer.Stages(), 3)
	assert.Equal(t, []ir.Command{a, b, c}, outer.Stages())
}

func TestPipeFlatteningViaPipe(t *testing.T) {
	a := ir.Cmd(ir.Str("a"))
	b := ir.Cmd(ir.Str("b"))
	c := ir.Cmd(ir.Str("c"))

	p := a.Pipe(b).Pipe(c)
	assert.Equal(t, []ir.Command{a, b, c}, p.Stages())
}

func TestEmptyPipeline(t *testing.T) {
	p := ir.Seq()
	assert.Empty(t, p.Stages())
}

func TestSingleStagePipelineEqualsCommand(t *testing.T) {
	a := ir.Cmd(ir.Str("echo"), ir.Str("hi"))
	p := ir.Seq(a)
	require.Len(t, p.Stages(), 1)
	assert.Equal(t, a, p.Stages()[0])
}

func TestPipelineReadWriteTargetsEnds(t *testing.T) {
	a := ir.Cmd(ir.Str("a"))
	b := ir.Cmd(ir.Str("b"))
	p := ir.Seq(a, b).
		Read(ir.Path("in"), ir.Stdin).
		Write(ir.Path("out"), ir.Stdout, false)

	stages := p.Stages()
	require.Len(t, stages, 2)
	assert.Len(t, stages[0].Redirects(), 1)
	assert.Len(t, stages[1].Redirects(), 1)
	assert.Equal(t, ir.FdFromFile{Fd: ir.Stdin, Path: "in"}, stages[0].Redirects()[0])
	assert.Equal(t, ir.FdToFile{Fd: ir.Stdout, Path: "out"}, stages[1].Redirects()[0])
}

func TestSubMarkersAsArgs(t *testing.T) {
	inner := ir.Cmd(ir.Str("echo"), ir.Str("a"))
	cat := ir.Cmd(ir.Str("cat"), inner.SubIn())

	args := cat.Args()
	require.Len(t, args, 2)
	sub, ok := args[1].(ir.SubIn)
	require.True(t, ok)
	assert.Equal(t, inner, sub.Cmd)
}

func TestEnvOverlayOrderPreserved(t *testing.T) {
	c := ir.Cmd(ir.Str("env")).
		WithEnv(ir.SetEnv("A", "1")).
		WithEnv(ir.SetEnv("A", "2")).
		WithEnv(ir.UnsetEnv("B"))

	env := c.Env()
	require.Len(t, env, 3)
	assert.Equal(t, ir.EnvOp{Name: "A", Value: "1"}, env[0])
	assert.Equal(t, ir.EnvOp{Name: "A", Value: "2"}, env[1])
	assert.Equal(t, ir.EnvOp{Name: "B", Unset: true}, env[2])
}

func TestWithDirImmutable(t *testing.T) {
	base := ir.Cmd(ir.Str("pwd"))
	withDir := base.WithDir("/tmp")

	assert.Equal(t, "", base.Dir())
	assert.Equal(t, "/tmp", withDir.Dir())
}
