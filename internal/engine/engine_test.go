package engine_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeffreyurban/uniqseq/internal/engine"
)

func newEngine(t *testing.T, out *bytes.Buffer, w int) *engine.Engine {
	t.Helper()

	e, err := engine.New(engine.Config{WindowSize: w, Output: out})
	require.NoError(t, err)

	return e
}

func push(e *engine.Engine, s string) {
	view := []byte(s + "\n")
	e.Push(view, []byte(s), engine.Tracked)
}

func Test_New_RejectsWindowSizeBelowTwo(t *testing.T) {
	t.Parallel()

	_, err := engine.New(engine.Config{WindowSize: 1, Output: &bytes.Buffer{}})
	require.Error(t, err, "New(WindowSize: 1) should reject")
}

func Test_New_RejectsNilOutput(t *testing.T) {
	t.Parallel()

	_, err := engine.New(engine.Config{WindowSize: 2})
	require.Error(t, err, "New with nil Output should reject")
}

func Test_New_RejectsWindowLargerThanMaxHistory(t *testing.T) {
	t.Parallel()

	_, err := engine.New(engine.Config{WindowSize: 5, MaxHistory: 3, Output: &bytes.Buffer{}})
	require.Error(t, err, "New with WindowSize > MaxHistory should reject")
}

// Test_Scenario_ExactRepeat covers spec.md §8's canonical case: a
// sequence repeated back-to-back is collapsed to a single emission.
func Test_Scenario_ExactRepeat(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	e := newEngine(t, &out, 2)

	for _, r := range []string{"A", "B", "A", "B"} {
		push(e, r)
	}

	e.Flush()

	assert.Equal(t, "A\nB\n", out.String())

	s := e.Stats()
	assert.Equal(t, int64(2), s.Skipped)
	assert.Equal(t, int64(2), s.Emitted)
}

// Test_Scenario_NonRepeatingStream covers the no-duplication case:
// distinct records are all emitted untouched.
func Test_Scenario_NonRepeatingStream(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	e := newEngine(t, &out, 2)

	for _, r := range []string{"A", "B", "C", "D"} {
		push(e, r)
	}

	e.Flush()

	assert.Equal(t, "A\nB\nC\nD\n", out.String())
	assert.Zero(t, e.Stats().Skipped)
}

// Test_Scenario_RepeatedTriple covers a 3-record sequence repeated
// three times in a row.
func Test_Scenario_RepeatedTriple(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	e := newEngine(t, &out, 3)

	for _, r := range []string{"A", "B", "C", "A", "B", "C", "A", "B", "C"} {
		push(e, r)
	}

	e.Flush()

	assert.Equal(t, "A\nB\nC\n", out.String())

	s := e.Stats()
	assert.Equal(t, int64(6), s.Skipped)
	assert.Equal(t, int64(3), s.Emitted)
}

// Test_Scenario_PartialTrailingRepeat covers a repeat that is cut off
// by EOS before a full window's worth of extra evidence accumulates:
// not detectable, so it must be emitted rather than silently dropped.
func Test_Scenario_PartialTrailingRepeat(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	e := newEngine(t, &out, 3)

	for _, r := range []string{"A", "B", "A", "B", "A"} {
		push(e, r)
	}

	e.Flush()

	assert.Equal(t, "A\nB\nA\nB\nA\n", out.String(), "partial repeat should not be collapsed")
}

// Test_Scenario_NonContiguousWindowRecurrence_NotDeduplicated covers
// spec.md §8 scenario 2: the window "A B C" recurs at records 5-7, but
// a "D" at record 4 sits between it and the occurrence at records 1-3,
// so the two are not a contiguous repeat and nothing is skipped.
func Test_Scenario_NonContiguousWindowRecurrence_NotDeduplicated(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	e := newEngine(t, &out, 3)

	for _, r := range []string{"A", "B", "C", "D", "A", "B", "C", "E"} {
		push(e, r)
	}

	e.Flush()

	assert.Equal(t, "A\nB\nC\nD\nA\nB\nC\nE\n", out.String(), "non-contiguous window recurrence must not be collapsed")
	assert.Zero(t, e.Stats().Skipped)
}

// Test_Scenario_RecurringLengthWEqualSequence_DoesNotPanic exercises a
// KnownSequence whose length equals the window size (so it has a
// single window hash) recurring twice more after its discovery, with
// an unrelated record breaking contiguity each time it reappears.
// Earlier, starting a KnownSequenceMatch always deferred confirmation
// to a nextIndex of 1, which indexed past a length-1 WindowHashes
// slice on the very next tick.
func Test_Scenario_RecurringLengthWEqualSequence_DoesNotPanic(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	e := newEngine(t, &out, 3)

	records := []string{
		"A", "B", "C", // first occurrence, establishes the pattern
		"A", "B", "C", // back-to-back repeat: discovers the length-3 KnownSequence
		"D",
		"A", "B", "C", // recurs again after unrelated content
		"A", "B", "C", // immediately repeats again
		"E",
	}

	assert.NotPanics(t, func() {
		for _, r := range records {
			push(e, r)
		}

		e.Flush()
	})

	assert.Equal(t, "A\nB\nC\nD\nE\n", out.String())

	s := e.Stats()
	assert.Equal(t, int64(9), s.Skipped)
	assert.Equal(t, int64(5), s.Emitted)
}

// Test_InverseMode_EmitsOnlyWhatNormalModeWouldSkip.
func Test_InverseMode_EmitsOnlyWhatNormalModeWouldSkip(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer

	e, err := engine.New(engine.Config{WindowSize: 2, Output: &out, InverseMode: true})
	require.NoError(t, err)

	for _, r := range []string{"A", "B", "A", "B"} {
		push(e, r)
	}

	e.Flush()

	assert.Equal(t, "A\nB\n", out.String(), "inverse mode should emit only the duplicate half")
}

// Test_Annotate_InsertsLineAtConfirmedDuplicate.
func Test_Annotate_InsertsLineAtConfirmedDuplicate(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer

	e, err := engine.New(engine.Config{WindowSize: 2, Output: &out, Annotate: true})
	require.NoError(t, err)

	for _, r := range []string{"A", "B", "A", "B"} {
		push(e, r)
	}

	e.Flush()

	assert.Contains(t, out.String(), "skipped records")
}

// Test_Annotate_DisabledInInverseMode per spec.md §6.
func Test_Annotate_DisabledInInverseMode(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer

	e, err := engine.New(engine.Config{WindowSize: 2, Output: &out, Annotate: true, InverseMode: true})
	require.NoError(t, err)

	for _, r := range []string{"A", "B", "A", "B"} {
		push(e, r)
	}

	e.Flush()

	assert.NotContains(t, out.String(), "uniqseq:", "annotation should be suppressed in inverse mode")
}

// Test_Bypass_InterleavesByArrivalOrder_IndependentOfTrackedSkips
// verifies spec.md §4.8's bypass-independence invariant: bypass
// records interleave strictly by arrival order and are never part of
// the decision about which tracked records get skipped.
func Test_Bypass_InterleavesByArrivalOrder_IndependentOfTrackedSkips(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	e := newEngine(t, &out, 2)

	push(e, "A")
	e.Push([]byte("#comment\n"), nil, engine.Bypassed)
	push(e, "B")
	push(e, "A")
	push(e, "B")

	e.Flush()

	assert.Equal(t, "A\n#comment\nB\n", out.String())
}

// Test_ExportSequences_ReflectsDiscoveredSequences.
func Test_ExportSequences_ReflectsDiscoveredSequences(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	e := newEngine(t, &out, 2)

	for _, r := range []string{"A", "B", "A", "B"} {
		push(e, r)
	}

	e.Flush()

	seqs := e.ExportSequences()
	require.Len(t, seqs, 1)
	assert.Equal(t, 2, seqs[0].Length)
}

// Test_Preload_MatchesAgainstPinnedSequenceWithoutLearningItAgain
// verifies that a preloaded sequence (as if imported from a sequence
// library) is matched from the very first occurrence in the stream,
// rather than needing a second occurrence to be confirmed. Uses a
// length-3 sequence under a window size of 2, since a preloaded
// sequence exactly W records long has only one window hash and never
// reaches the matcher's advance step.
func Test_Preload_MatchesAgainstPinnedSequenceWithoutLearningItAgain(t *testing.T) {
	t.Parallel()

	key := bytes.Repeat([]byte{0x7}, 32)

	seed, err := engine.New(engine.Config{WindowSize: 2, Output: &bytes.Buffer{}, HashKey: key})
	require.NoError(t, err)

	for _, r := range []string{"A", "B", "C", "A", "B", "C"} {
		push(seed, r)
	}

	seed.Flush()

	preload := seed.ExportSequences()
	require.Len(t, preload, 1)
	require.Equal(t, 3, preload[0].Length)

	var out bytes.Buffer

	e, err := engine.New(engine.Config{
		WindowSize: 2,
		Output:     &out,
		HashKey:    key,
		Preload: []engine.PreloadedSequence{
			{Length: preload[0].Length, WindowHashes: preload[0].WindowHashes},
		},
	})
	require.NoError(t, err)

	for _, r := range []string{"A", "B", "C"} {
		push(e, r)
	}

	e.Flush()

	assert.Empty(t, out.String(), "the preloaded sequence should match on first occurrence")
}
