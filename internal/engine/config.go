package engine

import (
	"fmt"
	"io"

	"github.com/jeffreyurban/uniqseq/internal/hashutil"
)

// PreloadedSequence is a KnownSequence loaded from an external sequence
// library before the first push, per spec.md §6's import/export
// interface. The on-disk representation is owned by the seqlib
// package; Config only needs the decoded shape.
type PreloadedSequence struct {
	Length       int
	WindowHashes []hashutil.WindowHash
}

// Config configures a new Instance, matching spec.md §6's new(config)
// enumeration.
type Config struct {
	// WindowSize is W, the number of consecutive records whose digests
	// make up one WindowHash. Required, >= 2.
	WindowSize int

	// MaxHistory is H, the window-hash history capacity. 0 means
	// unlimited.
	MaxHistory int

	// MaxKnownSequences is U, the registry capacity. 0 means unlimited.
	MaxKnownSequences int

	// InverseMode flips the emit/skip decision after all internal state
	// has evolved normally (spec.md §6).
	InverseMode bool

	// Annotate enables an inline annotation line per confirmed
	// duplicate. Always false in effect when InverseMode is set.
	Annotate bool

	// AnnotationTemplate overrides emitter.DefaultTemplate when
	// non-empty.
	AnnotationTemplate string

	// HashKey pins the Hasher's key, required for hash-stable reuse of
	// an imported sequence library across runs. A nil key generates
	// fresh randomness, making Preload meaningless (the imported window
	// hashes would never compare equal to anything this instance
	// computes).
	HashKey []byte

	// HashOptions configures digest widths; zero value uses
	// hashutil's defaults.
	HashOptions hashutil.Options

	// Preload seeds the registry with previously discovered sequences,
	// marked non-evictable.
	Preload []PreloadedSequence

	// Output is where emitted records and annotations are written.
	// Required.
	Output io.Writer
}

// Validate applies the configuration-error checks of spec.md §7.1.
func (c Config) Validate() error {
	if c.WindowSize < 2 {
		return fmt.Errorf("%w: got %d", ErrInvalidWindowSize, c.WindowSize)
	}

	if c.MaxHistory > 0 && c.WindowSize > c.MaxHistory {
		return fmt.Errorf("%w: window_size=%d max_history=%d", ErrWindowExceedsHistory, c.WindowSize, c.MaxHistory)
	}

	if c.Output == nil {
		return ErrNilSink
	}

	return nil
}
