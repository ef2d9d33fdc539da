package engine

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOwnedFdCloseIsIdempotent(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer w.Close()

	owned := newOwnedFd(r)
	require.NoError(t, owned.Close())
	require.NoError(t, owned.Close())
	require.NoError(t, owned.Close())
}

func TestOwnedFdCloseOrderIndependent(t *testing.T) {
	r1, w1, err := os.Pipe()
	require.NoError(t, err)
	r2, w2, err := os.Pipe()
	require.NoError(t, err)
	defer w1.Close()
	defer w2.Close()

	a := newOwnedFd(r1)
	b := newOwnedFd(r2)

	require.NoError(t, b.Close())
	require.NoError(t, a.Close())
	require.NoError(t, a.Close())
	require.NoError(t, b.Close())
}

func TestOwnedFdMarkTransferredThenCloseStillClosesOnce(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()

	owned := newOwnedFd(w)
	owned.markTransferred()
	assert.Equal(t, fdDataPending, owned.state)
	require.NoError(t, owned.Close())
	assert.Equal(t, fdClosed, owned.state)
	require.NoError(t, owned.Close())
}
