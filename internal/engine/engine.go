// Package engine wires the hasher, history, registry, candidate
// tracker, and emitter into the top-level streaming API described in
// spec.md §6: new(config), push(output_view, hashed_view,
// classification), flush(), stats().
package engine

import (
	"fmt"
	"io"

	"github.com/jeffreyurban/uniqseq/internal/buffer"
	"github.com/jeffreyurban/uniqseq/internal/candidate"
	"github.com/jeffreyurban/uniqseq/internal/emitter"
	"github.com/jeffreyurban/uniqseq/internal/hashutil"
	"github.com/jeffreyurban/uniqseq/internal/history"
	"github.com/jeffreyurban/uniqseq/internal/registry"
)

// Classification is the router's tracked/bypassed verdict for one
// arriving record (spec.md §4.8). The core accepts only this verdict;
// the classifier itself is an external collaborator.
type Classification int

const (
	Tracked Classification = iota
	Bypassed
)

type trackedRecord struct {
	view  []byte
	index int64
}

type bypassRecord struct {
	view []byte
	tag  int64 // tracked-record count at arrival
}

// Engine is one streaming dedup instance: single-owner, single-threaded,
// cooperative (spec.md §5). It must be driven by one logical execution
// context at a time.
type Engine struct {
	w       int
	inverse bool
	annotate bool
	tmpl    *emitter.Template
	out     io.Writer

	hasher *hashutil.Hasher
	hist   *history.History
	reg    *registry.Registry
	tracker *candidate.Tracker

	trackedCount    int64
	resolvedThrough int64
	recentHashes    []hashutil.RecordHash

	outputBuf *buffer.Records[trackedRecord]
	bypassBuf *buffer.Records[bypassRecord]

	stats emitter.Stats
}

// New validates cfg and returns a ready Engine, or a configuration error
// (spec.md §7.1) with no instance created.
func New(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var hasher *hashutil.Hasher
	if cfg.HashKey != nil {
		hasher = hashutil.NewWithKey(cfg.HashKey, cfg.HashOptions)
	} else {
		h, err := hashutil.New(cfg.HashOptions)
		if err != nil {
			return nil, fmt.Errorf("engine: %w", err)
		}

		hasher = h
	}

	hist := history.New(cfg.MaxHistory)
	reg := registry.New(cfg.MaxKnownSequences)

	for _, p := range cfg.Preload {
		fp := hasher.HashSequence(p.Length, p.WindowHashes)
		reg.Insert(&registry.KnownSequence{
			StartHash:    p.WindowHashes[0],
			Fingerprint:  fp,
			Length:       p.Length,
			WindowHashes: p.WindowHashes,
			RepeatCount:  1,
			Pinned:       true,
		})
	}

	e := &Engine{
		w:         cfg.WindowSize,
		inverse:   cfg.InverseMode,
		annotate:  cfg.Annotate && !cfg.InverseMode, // spec.md §6: disabled in inverse mode
		tmpl:      emitter.NewTemplate(cfg.AnnotationTemplate),
		out:       cfg.Output,
		hasher:    hasher,
		hist:      hist,
		reg:       reg,
		tracker:   candidate.New(cfg.WindowSize, hasher, hist, reg),
		outputBuf: buffer.NewRecords[trackedRecord](),
		bypassBuf: buffer.NewRecords[bypassRecord](),
	}

	return e, nil
}

// Push integrates one arriving record. outputView is emitted unchanged;
// hashedView is what feeds the Hasher (already pre-filtered by the
// caller per spec.md §4.7). Push never fails in the steady state; an
// invariant violation panics rather than returning a partial-failure
// error (spec.md §7.2).
func (e *Engine) Push(outputView, hashedView []byte, classification Classification) {
	e.stats.TotalRecords++

	if classification == Bypassed {
		e.stats.BypassedRecords++
		e.pushBypass(outputView)

		return
	}

	e.stats.TrackedRecords++
	e.trackedCount++

	e.outputBuf.PushBack(trackedRecord{view: outputView, index: e.trackedCount})

	e.recentHashes = append(e.recentHashes, e.hasher.HashRecord(hashedView))
	if len(e.recentHashes) > e.w {
		e.recentHashes = e.recentHashes[1:]
	}

	if len(e.recentHashes) == e.w {
		windowHash := e.hasher.HashWindow(e.recentHashes)

		for _, s := range e.tracker.Advance(windowHash, e.trackedCount) {
			e.applySkip(s)
		}
	}

	e.drainAvailable()
}

// Flush runs the EOS finalization rule (spec.md §4.9) and drains every
// remaining buffered record.
func (e *Engine) Flush() {
	for _, s := range e.tracker.Flush(e.trackedCount) {
		e.applySkip(s)
	}

	for e.outputBuf.Len() > 0 {
		e.resolve(e.outputBuf.PopFront(), true)
	}

	e.flushBypassThrough(e.trackedCount)
}

// Stats returns a snapshot of the run's counters (spec.md §6).
func (e *Engine) Stats() emitter.Stats {
	s := e.stats
	s.KnownSequences = int64(e.reg.Len())
	s.SequencesDiscovered = e.tracker.Discovered()

	return s
}

func (e *Engine) pushBypass(view []byte) {
	e.bypassBuf.PushBack(bypassRecord{view: view, tag: e.trackedCount})
	e.flushBypassThrough(e.resolvedThrough)
}

func (e *Engine) drainAvailable() {
	d := e.tracker.MaxBufferDepth(e.trackedCount)

	for e.outputBuf.Len() > d {
		e.resolve(e.outputBuf.PopFront(), true)
	}
}

// applySkip drops a confirmed duplicate's records from the output
// buffer, writes an annotation if enabled, and updates stats.
func (e *Engine) applySkip(s candidate.Skip) {
	for i := 0; i < s.N; i++ {
		e.resolve(e.outputBuf.PopFront(), false)
	}

	if e.annotate {
		_, _ = io.WriteString(e.out, e.tmpl.Render(emitter.Fields{
			Start:      s.StartIndex,
			End:        s.EndIndex,
			MatchStart: s.MatchStart,
			MatchEnd:   s.MatchEnd,
			Count:      s.Count,
			WindowSize: e.w,
		})+"\n")
	}
}

// resolve commits the emit/skip decision for one tracked record,
// applying the inverse-mode flip, then advances resolvedThrough and
// releases any bypassed records now eligible for interleaving.
func (e *Engine) resolve(r trackedRecord, normalEmit bool) {
	actualEmit := normalEmit != e.inverse // XOR

	if actualEmit {
		_, _ = e.out.Write(r.view)
		e.stats.Emitted++
	} else {
		e.stats.Skipped++
	}

	e.resolvedThrough = r.index
	e.flushBypassThrough(e.resolvedThrough)
}

func (e *Engine) flushBypassThrough(through int64) {
	for {
		b, ok := e.bypassBuf.Front()
		if !ok || b.tag > through {
			return
		}

		e.bypassBuf.PopFront()
		_, _ = e.out.Write(b.view)
	}
}

// ExportSequences enumerates every known sequence for persistence
// (spec.md §6). Call after Flush.
func (e *Engine) ExportSequences() []*registry.KnownSequence {
	return e.reg.All()
}

// HashKey returns the Hasher's key, so a caller persisting a sequence
// library can reopen it with hash-compatible settings.
func (e *Engine) HashKey() []byte { return e.hasher.Key() }
