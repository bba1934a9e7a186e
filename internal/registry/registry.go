// Package registry implements the known-sequence registry described in
// spec.md §4.4: a recency-ordered, two-level map from start-window hash
// to the set of known sequences starting with that hash, bounded at
// capacity U with least-recently-used eviction by start-hash bucket.
package registry

import (
	"container/list"

	"github.com/jeffreyurban/uniqseq/internal/hashutil"
)

// KnownSequence is a previously discovered sequence of one or more
// windows, per spec.md's data model. WindowHashes has exactly
// Length-W+1 entries and is immutable after creation (spec.md invariant
// 6); only RepeatCount and recency are ever mutated.
type KnownSequence struct {
	StartHash    hashutil.WindowHash
	Fingerprint  hashutil.SequenceFingerprint
	Length       int
	WindowHashes []hashutil.WindowHash
	RepeatCount  int

	// Pinned marks a sequence preloaded via engine Config.Preload as
	// non-evictable (spec.md §6).
	Pinned bool

	// FirstStart and FirstEnd are the tracked-record index range (1-based)
	// of the sequence's first occurrence, kept for annotation rendering
	// (spec.md §6's {match_start}/{match_end} fields). Not part of the
	// spec's literal data model, which only requires identity and
	// recency; recorded here because nothing else in the core retains
	// the original occurrence's position once its records have been
	// emitted and dropped from the output buffer.
	FirstStart int64
	FirstEnd   int64
}

// bucket holds every KnownSequence sharing a start-window hash. Several
// distinct sequences can share a start hash, which is why the registry
// is two-level: outer by start hash, inner by full fingerprint.
type bucket struct {
	startHash hashutil.WindowHash
	entries   map[hashutil.SequenceFingerprint]*KnownSequence
}

func (b *bucket) size() int { return len(b.entries) }

// Registry is the known-sequence registry. Capacity counts only
// evictable (non-pinned) entries; preloaded/pinned entries are kept
// outside the recency-eviction accounting entirely, matching spec.md
// §6's "these are marked non-evictable".
type Registry struct {
	capacity int // U; 0 means unlimited

	order   *list.List                        // recency order of evictable buckets, front = most recently used
	buckets map[hashutil.WindowHash]*list.Element // start hash -> element in order (Value is *bucket)
	total   int                                // count of evictable entries across all buckets

	pinned map[hashutil.WindowHash]map[hashutil.SequenceFingerprint]*KnownSequence
}

// New returns an empty Registry with the given capacity. capacity <= 0
// means unlimited.
func New(capacity int) *Registry {
	if capacity < 0 {
		capacity = 0
	}

	return &Registry{
		capacity: capacity,
		order:    list.New(),
		buckets:  make(map[hashutil.WindowHash]*list.Element),
		pinned:   make(map[hashutil.WindowHash]map[hashutil.SequenceFingerprint]*KnownSequence),
	}
}

// LookupByStart returns every KnownSequence (pinned and evictable)
// sharing startHash. The result is not ordered; callers that need
// deterministic iteration should sort by Fingerprint themselves.
func (r *Registry) LookupByStart(startHash hashutil.WindowHash) []*KnownSequence {
	var out []*KnownSequence

	if elem, ok := r.buckets[startHash]; ok {
		b := elem.Value.(*bucket)
		for _, ks := range b.entries {
			out = append(out, ks)
		}
	}

	if set, ok := r.pinned[startHash]; ok {
		for _, ks := range set {
			out = append(out, ks)
		}
	}

	return out
}

// Lookup returns the known sequence with the given start hash and
// fingerprint, if any.
func (r *Registry) Lookup(startHash hashutil.WindowHash, fp hashutil.SequenceFingerprint) (*KnownSequence, bool) {
	if elem, ok := r.buckets[startHash]; ok {
		if ks, ok := elem.Value.(*bucket).entries[fp]; ok {
			return ks, true
		}
	}

	if set, ok := r.pinned[startHash]; ok {
		if ks, ok := set[fp]; ok {
			return ks, true
		}
	}

	return nil, false
}

// Insert adds ks to the registry (or replaces an existing entry with the
// same fingerprint) and bumps its bucket's recency. If ks.Pinned, it is
// kept outside capacity accounting.
func (r *Registry) Insert(ks *KnownSequence) {
	if ks.Pinned {
		set, ok := r.pinned[ks.StartHash]
		if !ok {
			set = make(map[hashutil.SequenceFingerprint]*KnownSequence)
			r.pinned[ks.StartHash] = set
		}

		set[ks.Fingerprint] = ks

		return
	}

	elem, ok := r.buckets[ks.StartHash]
	if !ok {
		b := &bucket{startHash: ks.StartHash, entries: make(map[hashutil.SequenceFingerprint]*KnownSequence)}
		elem = r.order.PushFront(b)
		r.buckets[ks.StartHash] = elem
	} else {
		r.order.MoveToFront(elem)
	}

	b := elem.Value.(*bucket)
	if _, exists := b.entries[ks.Fingerprint]; !exists {
		r.total++
	}

	b.entries[ks.Fingerprint] = ks

	r.evictIfNeeded()
}

// Touch refreshes the recency of startHash's bucket, used whenever a
// KnownSequenceMatch starts against one of its sequences (spec.md §4.5
// step D).
func (r *Registry) Touch(startHash hashutil.WindowHash) {
	if elem, ok := r.buckets[startHash]; ok {
		r.order.MoveToFront(elem)
	}
}

func (r *Registry) evictIfNeeded() {
	if r.capacity <= 0 {
		return
	}

	for r.total > r.capacity {
		back := r.order.Back()
		if back == nil {
			return
		}

		b := back.Value.(*bucket)
		r.total -= b.size()

		delete(r.buckets, b.startHash)
		r.order.Remove(back)
	}
}

// Len returns the total number of entries (pinned and evictable).
func (r *Registry) Len() int {
	total := r.total
	for _, set := range r.pinned {
		total += len(set)
	}

	return total
}

// All returns every known sequence in the registry, for export
// (spec.md §6: "the caller may enumerate all KnownSequences to
// persist them"). Order is unspecified.
func (r *Registry) All() []*KnownSequence {
	out := make([]*KnownSequence, 0, r.Len())

	for e := r.order.Front(); e != nil; e = e.Next() {
		b := e.Value.(*bucket)
		for _, ks := range b.entries {
			out = append(out, ks)
		}
	}

	for _, set := range r.pinned {
		for _, ks := range set {
			out = append(out, ks)
		}
	}

	return out
}
