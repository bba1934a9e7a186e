package history_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeffreyurban/uniqseq/internal/hashutil"
	"github.com/jeffreyurban/uniqseq/internal/history"
)

func hash(b byte) hashutil.WindowHash {
	var h hashutil.WindowHash
	h[0] = b

	return h
}

func Test_Append_AssignsSequentialPositions(t *testing.T) {
	t.Parallel()

	h := history.New(0)

	p0 := h.Append(hash(1))
	p1 := h.Append(hash(2))
	p2 := h.Append(hash(3))

	assert.Equal(t, history.Position(0), p0)
	assert.Equal(t, history.Position(1), p1)
	assert.Equal(t, history.Position(2), p2)
	assert.Equal(t, 3, h.Len())
}

func Test_Get_ReturnsAbsentForNeverAssignedPosition(t *testing.T) {
	t.Parallel()

	h := history.New(0)
	h.Append(hash(1))

	_, ok := h.Get(99)
	require.False(t, ok, "Get(99) reported present for a never-assigned position")
}

func Test_Append_EvictsOldestAtCapacity(t *testing.T) {
	t.Parallel()

	h := history.New(2)

	h.Append(hash(1))
	h.Append(hash(2))
	h.Append(hash(3)) // evicts position 0

	_, ok := h.Get(0)
	require.False(t, ok, "position 0 should have been evicted")

	got, ok := h.Get(1)
	require.True(t, ok, "position 1 should still be live")
	assert.Equal(t, hash(2), got)

	assert.Equal(t, 2, h.Len())
}

func Test_FindPositions_ReturnsAllLivePositionsForHash(t *testing.T) {
	t.Parallel()

	h := history.New(0)

	h.Append(hash(1))
	h.Append(hash(2))
	h.Append(hash(1))

	positions := h.FindPositions(hash(1))
	assert.Equal(t, []history.Position{0, 2}, positions)
}

func Test_FindPositions_DropsEvictedPositions(t *testing.T) {
	t.Parallel()

	h := history.New(1)

	h.Append(hash(1))
	h.Append(hash(1)) // evicts the first occurrence

	positions := h.FindPositions(hash(1))
	assert.Equal(t, []history.Position{1}, positions)
}

func Test_NextPosition_TracksFutureAppend(t *testing.T) {
	t.Parallel()

	h := history.New(0)

	require.Equal(t, history.Position(0), h.NextPosition(), "NextPosition before any Append")

	h.Append(hash(1))

	require.Equal(t, history.Position(1), h.NextPosition(), "NextPosition after one Append")
}
