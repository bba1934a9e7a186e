package seqlib

import "errors"

var (
	ErrBadMagic           = errors.New("seqlib: not a sequence library file")
	ErrUnsupportedVersion = errors.New("seqlib: unsupported format version")
	ErrUnknownHashAlg     = errors.New("seqlib: unknown hash algorithm")
	ErrChecksumMismatch   = errors.New("seqlib: checksum mismatch")
	ErrTruncated          = errors.New("seqlib: truncated file")
)
