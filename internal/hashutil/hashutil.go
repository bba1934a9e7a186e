// Package hashutil provides the keyed, collision-resistant digests that
// back the dedup engine's position-indexed history and known-sequence
// registry.
//
// Three digest kinds are produced, matching spec.md §4.1:
//   - [RecordHash]: a 64-bit digest of a single record's hashed view.
//   - [WindowHash]: a 128-bit digest over W consecutive RecordHashes.
//   - [SequenceFingerprint]: a 128-bit digest identifying a whole
//     known sequence (its length plus its window-hash list).
//
// All three are pure functions of a [Hasher]'s key and the given input:
// equal inputs produce equal outputs, and the key is never an input
// the caller controls per-call, so a [Hasher] is safe for concurrent
// read-only use once constructed.
package hashutil

import (
	"crypto/hmac"
	"crypto/rand"
	"encoding/binary"
	"fmt"

	"github.com/cespare/xxhash/v2"
	"github.com/minio/sha256-simd"
)

// RecordHash is a fixed-width digest of a single record's hashed view.
type RecordHash uint64

// maxDigestWidth is the maximum byte width of [WindowHash] and [SequenceFingerprint].
// spec.md §4.1 requires >= 128 bits; we use the full 256-bit HMAC-SHA-256
// output space but only compare/store the configured prefix width.
const maxDigestWidth = 32

// WindowHash is a digest over W consecutive RecordHashes. Only the first
// [Hasher.windowWidth] bytes are significant; the rest are zero.
type WindowHash [maxDigestWidth]byte

// SequenceFingerprint is the identity of a whole [KnownSequence]: a digest
// over its length and its ordered window-hash list.
type SequenceFingerprint [maxDigestWidth]byte

// Hasher computes all three digest kinds with a single per-instance key,
// so that discovered sequences/history cannot be manipulated by an
// adversary who knows the hash algorithm but not the key.
type Hasher struct {
	seed        uint64 // xxhash seed, derived from key
	key         []byte // HMAC key for window/sequence digests
	windowWidth int    // significant bytes of WindowHash (>= 16)
	seqWidth    int    // significant bytes of SequenceFingerprint (>= 16)
}

// Options configures digest widths. Zero values fall back to the spec's
// minimums (8 bytes for records is fixed by the type; 16 bytes for window
// and sequence digests).
type Options struct {
	WindowHashWidth     int // bytes, >= 16, <= 32
	SequenceFingerWidth int // bytes, >= 16, <= 32
}

// New returns a [Hasher] keyed with fresh randomness from [crypto/rand].
// Two engine instances never share a key, so history/registry state from
// one cannot be replayed against another.
func New(opts Options) (*Hasher, error) {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("hashutil: generating key: %w", err)
	}

	return NewWithKey(key, opts), nil
}

// NewWithKey returns a [Hasher] keyed with a caller-supplied key. Used for
// reproducible tests and for loading a previously exported sequence
// library where hash stability across runs matters.
func NewWithKey(key []byte, opts Options) *Hasher {
	windowWidth := opts.WindowHashWidth
	if windowWidth == 0 {
		windowWidth = 16
	}

	seqWidth := opts.SequenceFingerWidth
	if seqWidth == 0 {
		seqWidth = 16
	}

	return &Hasher{
		seed:        binary.LittleEndian.Uint64(seedBytes(key)),
		key:         key,
		windowWidth: windowWidth,
		seqWidth:    seqWidth,
	}
}

func seedBytes(key []byte) []byte {
	sum := sha256.Sum256(key)
	return sum[:8]
}

// HashRecord digests the hashed view of a single record.
func (h *Hasher) HashRecord(hashedView []byte) RecordHash {
	d := xxhash.NewWithSeed(h.seed)
	_, _ = d.Write(hashedView)

	return RecordHash(d.Sum64())
}

// HashWindow digests the concatenation of W RecordHashes.
func (h *Hasher) HashWindow(recordHashes []RecordHash) WindowHash {
	mac := hmac.New(sha256.New, h.key)

	var buf [8]byte
	for _, rh := range recordHashes {
		binary.LittleEndian.PutUint64(buf[:], uint64(rh))
		mac.Write(buf[:])
	}

	return truncate(mac.Sum(nil), h.windowWidth)
}

// HashSequence digests the encoded form of a sequence's length and its
// ordered window-hash list, used as the identity of a KnownSequence.
func (h *Hasher) HashSequence(length int, windowHashes []WindowHash) SequenceFingerprint {
	mac := hmac.New(sha256.New, h.key)

	var lenBuf [8]byte
	binary.LittleEndian.PutUint64(lenBuf[:], uint64(length))
	mac.Write(lenBuf[:])

	for _, wh := range windowHashes {
		mac.Write(wh[:h.windowWidth])
	}

	return SequenceFingerprint(truncate(mac.Sum(nil), h.seqWidth))
}

// WindowWidth returns the significant byte width of WindowHash values
// produced by this Hasher.
func (h *Hasher) WindowWidth() int { return h.windowWidth }

// SequenceWidth returns the significant byte width of SequenceFingerprint
// values produced by this Hasher.
func (h *Hasher) SequenceWidth() int { return h.seqWidth }

// Key returns the Hasher's key, for callers persisting a sequence library
// that must be re-opened with hash-compatible settings.
func (h *Hasher) Key() []byte {
	out := make([]byte, len(h.key))
	copy(out, h.key)

	return out
}

func truncate(sum []byte, width int) WindowHash {
	var out WindowHash

	copy(out[:width], sum[:width])

	return out
}
