package engine

import (
	"os/exec"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeExitCodeNormalExit(t *testing.T) {
	cmd := exec.Command("sh", "-c", "exit 3")
	err := cmd.Run()
	var exitErr *exec.ExitError
	require.ErrorAs(t, err, &exitErr)

	assert.Equal(t, 3, normalizeExitCode(exitErr.ProcessState))
}

func TestNormalizeExitCodeSuccess(t *testing.T) {
	cmd := exec.Command("true")
	require.NoError(t, cmd.Run())
	assert.Equal(t, 0, normalizeExitCode(cmd.ProcessState))
}

func TestNormalizeExitCodeSignalled(t *testing.T) {
	cmd := exec.Command("sleep", "30")
	require.NoError(t, cmd.Start())
	require.NoError(t, cmd.Process.Signal(syscall.SIGKILL))

	err := cmd.Wait()
	var exitErr *exec.ExitError
	require.ErrorAs(t, err, &exitErr)

	assert.Equal(t, 128+int(syscall.SIGKILL), normalizeExitCode(exitErr.ProcessState))
}

func TestNormalizeExitCodeNilStateIsZero(t *testing.T) {
	assert.Equal(t, 0, normalizeExitCode(nil))
}
