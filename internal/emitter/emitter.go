// Package emitter renders the annotation line for a confirmed duplicate
// and tracks the run statistics exposed by the engine's stats() call,
// per spec.md §4.6 and §6.
package emitter

import (
	"fmt"
	"strconv"
	"strings"
)

// DefaultTemplate is used when the caller supplies no annotation
// template.
const DefaultTemplate = "[uniqseq: skipped records {start}-{end}, duplicate of {match_start}-{match_end}, seen {count}x, window {window_size}]"

// Fields are the substitutable values in an annotation template,
// exhaustive per spec.md §6: start, end, match_start, match_end,
// count, window_size.
type Fields struct {
	Start      int64
	End        int64
	MatchStart int64
	MatchEnd   int64
	Count      int
	WindowSize int
}

// Template renders a single annotation line for a confirmed duplicate.
type Template struct {
	raw string
}

// NewTemplate returns a Template for raw. An empty raw falls back to
// [DefaultTemplate].
func NewTemplate(raw string) *Template {
	if raw == "" {
		raw = DefaultTemplate
	}

	return &Template{raw: raw}
}

// Render substitutes f's fields into the template.
func (t *Template) Render(f Fields) string {
	replacer := strings.NewReplacer(
		"{start}", strconv.FormatInt(f.Start, 10),
		"{end}", strconv.FormatInt(f.End, 10),
		"{match_start}", strconv.FormatInt(f.MatchStart, 10),
		"{match_end}", strconv.FormatInt(f.MatchEnd, 10),
		"{count}", strconv.Itoa(f.Count),
		"{window_size}", strconv.Itoa(f.WindowSize),
	)

	return replacer.Replace(t.raw)
}

// Stats mirrors the core's stats() interface (spec.md §6).
type Stats struct {
	TotalRecords        int64
	TrackedRecords      int64
	BypassedRecords     int64
	Emitted             int64
	Skipped             int64
	KnownSequences      int64
	SequencesDiscovered int64
}

// RedundancyRatio is skipped/tracked, 0 when no tracked records were
// seen.
func (s Stats) RedundancyRatio() float64 {
	if s.TrackedRecords == 0 {
		return 0
	}

	return float64(s.Skipped) / float64(s.TrackedRecords)
}

// String renders the stats in the key=value form the CLI prints to the
// status stream.
func (s Stats) String() string {
	return fmt.Sprintf(
		"total=%d tracked=%d bypassed=%d emitted=%d skipped=%d known_sequences=%d sequences_discovered=%d redundancy_ratio=%.4f",
		s.TotalRecords, s.TrackedRecords, s.BypassedRecords, s.Emitted, s.Skipped,
		s.KnownSequences, s.SequencesDiscovered, s.RedundancyRatio(),
	)
}
