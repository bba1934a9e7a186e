// Package record provides the line-oriented transport that drives
// internal/engine from an io.Reader/io.Writer: a Reader producing one
// Record per input line (or per delimiter, in byte-delimited mode),
// and a buffered Writer for the engine's output sink.
//
// OutputView keeps its trailing delimiter (when the input had one),
// so the engine's raw io.Writer.Write(OutputView) reproduces the
// stream faithfully without the engine needing to know the delimiter
// in use.
package record

import (
	"bufio"
	"fmt"
	"io"

	"github.com/jeffreyurban/uniqseq/internal/classify"
	"github.com/jeffreyurban/uniqseq/internal/transform"
)

// Classification mirrors engine.Classification without importing the
// engine package, so record stays a leaf dependency wired together by
// internal/cli.
type Classification int

const (
	Tracked Classification = iota
	Bypassed
)

// Record is one input line paired with the view the engine should
// hash (after prefix-skip and transform) and the router's verdict.
type Record struct {
	OutputView     []byte
	HashedView     []byte
	Classification Classification
}

// Reader reads records off src, one per delim (newline by default),
// classifying and pre-filtering each as it goes.
type Reader struct {
	r         *bufio.Reader
	delim     byte
	classify  *classify.Classifier
	transform *transform.Transform
	skipChars int
}

// NewReader returns a Reader. classifier and xform may be nil (all
// records tracked, hashed view unmodified beyond skipChars). delim
// defaults to '\n' when zero.
func NewReader(src io.Reader, classifier *classify.Classifier, xform *transform.Transform, skipChars int, delim byte) *Reader {
	if delim == 0 {
		delim = '\n'
	}

	return &Reader{r: bufio.NewReaderSize(src, 64*1024), delim: delim, classify: classifier, transform: xform, skipChars: skipChars}
}

// Next returns the next Record, or io.EOF once the input is exhausted.
func (r *Reader) Next() (Record, error) {
	line, err := r.r.ReadBytes(r.delim)
	if err != nil {
		if err != io.EOF {
			return Record{}, fmt.Errorf("record: reading: %w", err)
		}

		if len(line) == 0 {
			return Record{}, io.EOF
		}
		// Last line with no trailing delimiter: still a valid record.
	}

	rec := Record{OutputView: line}

	bare := line
	if len(bare) > 0 && bare[len(bare)-1] == r.delim {
		bare = bare[:len(bare)-1]
	}

	if r.classify != nil && r.classify.Bypass(bare) {
		rec.Classification = Bypassed
		return rec, nil
	}

	hashed := bare
	if r.skipChars > 0 {
		if r.skipChars < len(hashed) {
			hashed = hashed[r.skipChars:]
		} else {
			hashed = nil
		}
	}

	if r.transform != nil {
		out, terr := r.transform.Apply(hashed)
		if terr != nil {
			return Record{}, fmt.Errorf("record: pre-filter: %w", terr)
		}

		hashed = out
	}

	rec.HashedView = hashed

	return rec, nil
}

// Writer is a buffered sink for the engine's emitted output.
type Writer struct {
	w *bufio.Writer
}

// NewWriter returns a Writer wrapping dst.
func NewWriter(dst io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(dst)}
}

// Write implements io.Writer.
func (w *Writer) Write(p []byte) (int, error) {
	n, err := w.w.Write(p)
	if err != nil {
		return n, fmt.Errorf("record: writing: %w", err)
	}

	return n, nil
}

// Flush flushes buffered output.
func (w *Writer) Flush() error {
	if err := w.w.Flush(); err != nil {
		return fmt.Errorf("record: flushing: %w", err)
	}

	return nil
}
