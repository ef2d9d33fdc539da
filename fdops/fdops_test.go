package fdops_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/canonical/shish/fdops"
	"github.com/canonical/shish/shisherr"
)

func TestOpenMakesFdLive(t *testing.T) {
	tbl := fdops.NewTable(0, 1, 2)
	tbl.Open(3, []byte("/tmp/out"), 0)

	assert.True(t, tbl.Live(3))
	assert.Equal(t, []int{0, 1, 2, 3}, tbl.KeepFds())
	require.Len(t, tbl.Ops(), 1)
	assert.Equal(t, fdops.OpOpen{Fd: 3, Path: []byte("/tmp/out"), Flags: 0}, tbl.Ops()[0])
}

func TestDup2RequiresLiveSource(t *testing.T) {
	tbl := fdops.NewTable(0, 1, 2)
	err := tbl.Dup2(5, 6)
	require.Error(t, err)
	assert.True(t, errors.Is(err, shisherr.ErrRedirectNonLiveSrc))
	assert.False(t, tbl.Live(6))
}

func TestDup2KeepsSrcLive(t *testing.T) {
	tbl := fdops.NewTable(0, 1, 2)
	require.NoError(t, tbl.Dup2(1, 2))

	assert.True(t, tbl.Live(1))
	assert.True(t, tbl.Live(2))
	assert.Equal(t, []fdops.Op{fdops.OpDup2{Src: 1, Dst: 2}}, tbl.Ops())
}

func TestMoveFdClosesSource(t *testing.T) {
	tbl := fdops.NewTable(0, 1, 2)
	tbl.AddLive(7)
	require.NoError(t, tbl.MoveFd(7, 0))

	assert.False(t, tbl.Live(7))
	assert.True(t, tbl.Live(0))
	assert.Equal(t, []fdops.Op{
		fdops.OpDup2{Src: 7, Dst: 0},
		fdops.OpClose{Fd: 7},
	}, tbl.Ops())
}

func TestCloseRemovesFromLiveSet(t *testing.T) {
	tbl := fdops.NewTable(0, 1, 2)
	tbl.Close(2)

	assert.False(t, tbl.Live(2))
	assert.Equal(t, []int{0, 1}, tbl.KeepFds())
}

// TestLiveSetMatchesOpReplay exercises the invariant that replaying the
// Ops list against a fresh simulated fd set must produce exactly the set
// reported by KeepFds/Live.
func TestLiveSetMatchesOpReplay(t *testing.T) {
	tbl := fdops.NewTable(0, 1, 2)
	tbl.Open(4, []byte("/tmp/a"), 0)
	require.NoError(t, tbl.Dup2(1, 2))
	tbl.AddLive(9)
	require.NoError(t, tbl.MoveFd(9, 3))
	tbl.Close(4)

	replayed := map[int]struct{}{0: {}, 1: {}, 2: {}}
	for _, op := range tbl.Ops() {
		switch o := op.(type) {
		case fdops.OpOpen:
			replayed[o.Fd] = struct{}{}
		case fdops.OpDup2:
			replayed[o.Dst] = struct{}{}
		case fdops.OpClose:
			delete(replayed, o.Fd)
		}
	}

	var got []int
	for fd := range replayed {
		got = append(got, fd)
	}
	assert.ElementsMatch(t, got, tbl.KeepFds())
}

func TestLastRedirectOnSameFdWins(t *testing.T) {
	// Two redirects targeting the same fd: the ops list preserves both,
	// in order, matching "last writer wins at exec".
	tbl := fdops.NewTable(0, 1, 2)
	tbl.Open(1, []byte("/tmp/first"), 0)
	tbl.Open(1, []byte("/tmp/second"), 0)

	ops := tbl.Ops()
	require.Len(t, ops, 2)
	assert.Equal(t, []byte("/tmp/second"), ops[1].(fdops.OpOpen).Path)
	assert.True(t, tbl.Live(1))
}
