// Package candidate implements the candidate tracker described in
// spec.md §4.5: the per-record pipeline that maintains in-flight
// new-sequence candidates (matching against window-hash history) and
// known-sequence matches (matching against the registry), producing
// confirmed-duplicate skip events as they resolve.
//
// Everything here is indexed by tracked-record count, never by
// all-record count, so that the presence or absence of bypassed
// records never changes which tracked records are skipped (spec.md
// §4.8's bypass-independence invariant).
package candidate

import (
	"sort"

	"github.com/jeffreyurban/uniqseq/internal/buffer"
	"github.com/jeffreyurban/uniqseq/internal/hashutil"
	"github.com/jeffreyurban/uniqseq/internal/history"
	"github.com/jeffreyurban/uniqseq/internal/registry"
)

// Skip is a confirmed-duplicate event: N tracked records, starting at
// StartIndex (1-based, tracked-record count), are to be dropped from
// the front of the output buffer. MatchStart/MatchEnd identify the
// earlier occurrence that was matched, for annotation rendering.
type Skip struct {
	N          int
	StartIndex int64
	EndIndex   int64
	MatchStart int64
	MatchEnd   int64
	Count      int
}

type newSequenceCandidate struct {
	id           int64
	startIndex   int64 // 1-based tracked-record index of the first covered record
	length       int
	windowHashes []hashutil.WindowHash
	viable       map[history.Position]struct{}
}

func (c *newSequenceCandidate) endIndex() int64 { return c.startIndex + int64(c.length) - 1 }

func (c *newSequenceCandidate) overlaps(start, end int64) bool {
	return c.startIndex <= end && c.endIndex() >= start
}

type knownSequenceMatch struct {
	id           int64
	startIndex   int64
	ks           *registry.KnownSequence
	windowHashes []hashutil.WindowHash // snapshot at creation, per spec.md §9's anti-aliasing note
	nextIndex    int
}

// Tracker is the candidate tracker: one instance per engine, owning the
// in-flight candidates/matches and the window-hash history admission
// (delay buffer + history) that Step E of the pipeline performs.
type Tracker struct {
	w    int
	hash *hashutil.Hasher
	hist *history.History
	reg  *registry.Registry

	trackedIndex int64
	nextID       int64
	discovered   int64

	candidates map[int64]*newSequenceCandidate // keyed by startIndex
	matches    []*knownSequenceMatch

	delay buffer.Delay
}

// Discovered returns the number of distinct new KnownSequences
// registered so far (excludes any preloaded/pinned sequences).
func (t *Tracker) Discovered() int64 { return t.discovered }

// New returns an empty Tracker for window size w, wired to the given
// hasher, history, and registry.
func New(w int, hash *hashutil.Hasher, hist *history.History, reg *registry.Registry) *Tracker {
	return &Tracker{
		w:          w,
		hash:       hash,
		hist:       hist,
		reg:        reg,
		candidates: make(map[int64]*newSequenceCandidate),
	}
}

// MinDepth is the floor on buffer_depth maintained even with no active
// candidates or matches: the trailing W-1 tracked records must always
// stay buffered, since any one of them could become the start of a
// candidate the moment its window is found in history.
func (t *Tracker) MinDepth() int { return t.w - 1 }

// MaxBufferDepth returns D for step F, given the current tracked-record
// count.
func (t *Tracker) MaxBufferDepth(trackedCount int64) int {
	d := t.MinDepth()

	for _, c := range t.candidates {
		if depth := int(trackedCount - c.startIndex + 1); depth > d {
			d = depth
		}
	}

	for _, m := range t.matches {
		if depth := int(trackedCount - m.startIndex + 1); depth > d {
			d = depth
		}
	}

	return d
}

// Advance runs steps A through E of the per-record pipeline for one
// newly computed window hash, where trackedIndex is the 1-based
// tracked-record index of the record that completed this window (the
// window covers tracked records [trackedIndex-w+1, trackedIndex]).
// It returns, in application order, every confirmed-duplicate skip
// produced this tick.
func (t *Tracker) Advance(windowHash hashutil.WindowHash, trackedIndex int64) []Skip {
	t.trackedIndex = trackedIndex

	var skips []Skip

	skips = append(skips, t.advanceMatches(windowHash)...)
	t.discardOverlapping(skips)
	skips = append(skips, t.advanceAndFinalizeCandidates(windowHash)...)

	newSkips := t.startNew(windowHash, trackedIndex)
	if len(newSkips) > 0 {
		t.discardOverlapping(newSkips)
		skips = append(skips, newSkips...)
	}

	t.admitToHistory(windowHash)

	return skips
}

// Step A.
func (t *Tracker) advanceMatches(windowHash hashutil.WindowHash) []Skip {
	var skips []Skip

	live := t.matches[:0]

	for _, m := range t.matches {
		if m.nextIndex >= len(m.windowHashes) || m.windowHashes[m.nextIndex] != windowHash {
			continue // mismatch (or exhausted): retire, no effect
		}

		m.nextIndex++

		if m.nextIndex < len(m.windowHashes) {
			live = append(live, m)

			continue
		}

		// Reached the end of the known sequence: confirmed duplicate.
		m.ks.RepeatCount++
		t.reg.Touch(m.ks.StartHash)

		skips = append(skips, Skip{
			N:          m.ks.Length,
			StartIndex: m.startIndex,
			EndIndex:   t.trackedIndex,
			MatchStart: m.ks.FirstStart,
			MatchEnd:   m.ks.FirstEnd,
			Count:      m.ks.RepeatCount,
		})
	}

	t.matches = live

	return skips
}

// A confirmed duplicate from a KnownSequenceMatch pre-empts any
// NewSequenceCandidate whose covered range overlaps it (spec.md §4.5
// tie-break rules).
func (t *Tracker) discardOverlapping(skips []Skip) {
	if len(skips) == 0 {
		return
	}

	for start, c := range t.candidates {
		for _, s := range skips {
			if c.overlaps(s.StartIndex, s.EndIndex) {
				delete(t.candidates, start)

				break
			}
		}
	}
}

// Steps B and C.
func (t *Tracker) advanceAndFinalizeCandidates(windowHash hashutil.WindowHash) []Skip {
	ordered := t.candidatesByCreationOrder()

	var skips []Skip

	for _, c := range ordered {
		if _, stillPresent := t.candidates[c.startIndex]; !stillPresent {
			continue // discarded by pre-emption above
		}

		tentativeLen := c.length + 1

		newViable := make(map[history.Position]struct{}, len(c.viable))

		for p := range c.viable {
			target := history.Position(int64(p) + int64(tentativeLen-t.w))

			got, ok := t.hist.Get(target)
			if ok && got == windowHash {
				newViable[p] = struct{}{}
			}
		}

		if len(newViable) > 0 {
			// Commit the extension; the candidate survives.
			c.length = tentativeLen
			c.windowHashes = append(c.windowHashes, windowHash)
			c.viable = newViable

			continue
		}

		// All viable positions died on this extension attempt: finalize
		// using the state as of the last successful match (this record
		// does not belong to the candidate and is free to start its own
		// candidate/match in step D).
		skips = append(skips, t.finalize(c))
		delete(t.candidates, c.startIndex)
	}

	return skips
}

func (t *Tracker) candidatesByCreationOrder() []*newSequenceCandidate {
	ordered := make([]*newSequenceCandidate, 0, len(t.candidates))
	for _, c := range t.candidates {
		ordered = append(ordered, c)
	}

	sort.Slice(ordered, func(i, j int) bool { return ordered[i].id < ordered[j].id })

	return ordered
}

// finalize implements step C: register or bump the matching
// KnownSequence and produce its confirmed-duplicate skip.
func (t *Tracker) finalize(c *newSequenceCandidate) Skip {
	fp := t.hash.HashSequence(c.length, c.windowHashes)
	startHash := c.windowHashes[0]

	if existing, ok := t.reg.Lookup(startHash, fp); ok {
		existing.RepeatCount++
		t.reg.Touch(existing.StartHash)

		return Skip{
			N:          c.length,
			StartIndex: c.startIndex,
			EndIndex:   c.endIndex(),
			MatchStart: existing.FirstStart,
			MatchEnd:   existing.FirstEnd,
			Count:      existing.RepeatCount,
		}
	}

	firstStart := earliestPosition(c.viable) + 1

	ks := &registry.KnownSequence{
		StartHash:    startHash,
		Fingerprint:  fp,
		Length:       c.length,
		WindowHashes: append([]hashutil.WindowHash(nil), c.windowHashes...),
		RepeatCount:  2, // the matched prior occurrence, plus this one
		FirstStart:   firstStart,
		FirstEnd:     firstStart + int64(c.length) - 1,
	}
	t.reg.Insert(ks)
	t.discovered++

	return Skip{
		N:          c.length,
		StartIndex: c.startIndex,
		EndIndex:   c.endIndex(),
		MatchStart: ks.FirstStart,
		MatchEnd:   ks.FirstEnd,
		Count:      ks.RepeatCount,
	}
}

func earliestPosition(viable map[history.Position]struct{}) int64 {
	first := true

	var min int64

	for p := range viable {
		if first || int64(p) < min {
			min = int64(p)
			first = false
		}
	}

	return min
}

// Step D. A new-sequence candidate is seeded only from history
// positions that are contiguous with the current window: the matched
// occurrence must overlap or directly abut startPos, with no
// unrelated record sitting between the two (uniq-of-sequences
// semantics — spec.md §8 scenario 2: a window that merely recurs
// somewhere earlier, with different content in between, is not a
// repeat). A position p's window covers tracked records [p+1, p+w];
// it qualifies when startPos-(p+w)-1 <= 0, i.e. there is no gap.
// Self-overlapping periodic matches (gap < 0) still qualify, since
// there genuinely is no unaccounted-for record between them.
func (t *Tracker) startNew(windowHash hashutil.WindowHash, trackedIndex int64) []Skip {
	startPos := trackedIndex - int64(t.w) + 1

	var positions []history.Position

	for _, p := range t.hist.FindPositions(windowHash) {
		gap := startPos - (int64(p) + int64(t.w)) - 1
		if gap <= 0 {
			positions = append(positions, p)
		}
	}

	if len(positions) > 0 {
		c, exists := t.candidates[startPos]
		if !exists {
			c = &newSequenceCandidate{
				id:           t.nextID,
				startIndex:   startPos,
				length:       t.w,
				windowHashes: []hashutil.WindowHash{windowHash},
				viable:       make(map[history.Position]struct{}, len(positions)),
			}
			t.nextID++
			t.candidates[startPos] = c
		}

		for _, p := range positions {
			c.viable[p] = struct{}{}
		}
	}

	var skips []Skip

	for _, ks := range t.reg.LookupByStart(windowHash) {
		t.reg.Touch(ks.StartHash)

		if len(ks.WindowHashes) == 1 {
			// A length-W KnownSequence is fully described by its single
			// window hash: there is no second window to advance toward,
			// so the match is confirmed the instant its start hash
			// recurs rather than deferred into t.matches (nextIndex 1
			// would index past a length-1 windowHashes slice).
			ks.RepeatCount++

			skips = append(skips, Skip{
				N:          ks.Length,
				StartIndex: startPos,
				EndIndex:   trackedIndex,
				MatchStart: ks.FirstStart,
				MatchEnd:   ks.FirstEnd,
				Count:      ks.RepeatCount,
			})

			continue
		}

		t.matches = append(t.matches, &knownSequenceMatch{
			id:           t.nextID,
			startIndex:   startPos,
			ks:           ks,
			windowHashes: ks.WindowHashes,
			nextIndex:    1,
		})
		t.nextID++
	}

	return skips
}

// Step E.
func (t *Tracker) admitToHistory(windowHash hashutil.WindowHash) {
	t.delay.Admit(windowHash, func(h hashutil.WindowHash) { t.hist.Append(h) })
}

// Flush applies the EOS detectability rule (spec.md §4.9) to every
// remaining candidate, in creation order: a candidate is a detectable
// duplicate iff some surviving viable position p satisfies
// N-(p+W) >= W, i.e. at least W tracked records remained after the
// earliest point the match could have begun. Detectable candidates
// produce a skip exactly like step C; the rest are left for the caller
// to drain from the output buffer normally. total is N, the final
// tracked-record count.
func (t *Tracker) Flush(total int64) []Skip {
	ordered := t.candidatesByCreationOrder()

	var (
		skips   []Skip
		claimed [][2]int64
	)

	for _, c := range ordered {
		overlapsClaimed := false

		for _, rng := range claimed {
			if c.startIndex <= rng[1] && c.endIndex() >= rng[0] {
				overlapsClaimed = true

				break
			}
		}

		if overlapsClaimed {
			continue
		}

		if !t.detectable(c, total) {
			continue
		}

		s := t.finalize(c)
		skips = append(skips, s)
		claimed = append(claimed, [2]int64{s.StartIndex, s.EndIndex})
	}

	t.candidates = make(map[int64]*newSequenceCandidate)
	t.matches = nil

	return skips
}

func (t *Tracker) detectable(c *newSequenceCandidate, total int64) bool {
	for p := range c.viable {
		if total-(int64(p)+int64(t.w)) >= int64(t.w) {
			return true
		}
	}

	return false
}
