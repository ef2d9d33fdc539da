// Package testutil provides shell-string helpers for engine and ir
// tests. It is never imported by production code: splitting a shell
// command line into an argv is an external collaborator's concern, kept
// confined to _test.go files so it stays out of the core's reachable
// paths.
package testutil

import (
	"github.com/kballard/go-shellquote"

	"github.com/canonical/shish/ir"
)

// Argv splits a shell-style command line into words and builds an
// ir.Command from them, for tests that read more naturally as a command
// line than as a chain of ir.Str calls.
func Argv(line string) (ir.Command, error) {
	words, err := shellquote.Split(line)
	if err != nil {
		return ir.Command{}, err
	}

	args := make([]ir.Arg, len(words))
	for i, w := range words {
		args[i] = ir.Str(w)
	}
	return ir.Cmd(args...), nil
}

// MustArgv is Argv, panicking on a malformed line — for use in test
// table literals where an error return is awkward.
func MustArgv(line string) ir.Command {
	c, err := Argv(line)
	if err != nil {
		panic(err)
	}
	return c
}
