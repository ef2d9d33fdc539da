package engine

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/canonical/shish/ir"
)

// buildEnv applies overlay, in order, to a copy of the parent's
// environment: SetEnv entries set (later entries for the same name win),
// UnsetEnv entries remove. If dir is non-empty, PWD is set to it,
// matching the shell convention that changing directory updates PWD.
func buildEnv(overlay []ir.EnvOp, dir string) []string {
	env := map[string]string{}
	for _, kv := range os.Environ() {
		if i := strings.IndexByte(kv, '='); i >= 0 {
			env[kv[:i]] = kv[i+1:]
		}
	}

	for _, op := range overlay {
		if op.Unset {
			delete(env, op.Name)
			continue
		}
		env[op.Name] = op.Value
	}

	if dir != "" {
		env["PWD"] = dir
	}

	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, fmt.Sprintf("%s=%s", k, v))
	}
	sort.Strings(out)
	return out
}

func devFdPath(root string, fd int) string {
	return fmt.Sprintf("%s/%d", root, fd)
}

// scanMaxFd finds the highest fd number explicitly referenced by cmd's
// redirects, used to pick a block of staging fd numbers for pipe ends
// and process-substitution markers that cannot collide with any
// redirect target.
func scanMaxFd(cmd ir.Command) int {
	max := 2
	bump := func(fd int) {
		if fd > max {
			max = fd
		}
	}
	for _, r := range cmd.Redirects() {
		switch v := r.(type) {
		case ir.FdToFd:
			bump(v.Src)
			bump(v.Dst)
		case ir.FdToFile:
			bump(v.Fd)
		case ir.FdFromFile:
			bump(v.Fd)
		case ir.FdFromData:
			bump(v.Fd)
		case ir.FdClose:
			bump(v.Fd)
		case ir.FdFromSub:
			bump(v.Fd)
		case ir.FdToSub:
			bump(v.Fd)
		}
	}
	return max
}
