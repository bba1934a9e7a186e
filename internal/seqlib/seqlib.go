// Package seqlib implements the on-disk sequence-library format used
// to import/export a run's KnownSequences (spec.md §6). The format is
// a fixed header (magic, version, hash algorithm, digest widths, key
// length, checksum) followed by a body holding the hash key, the
// sequence count, and a flat record per sequence, each with its own
// length-prefixed window-hash list. The checksum covers the header's
// leading fields and the whole body. Files are written atomically and
// opened via a read-only memory map.
//
// This is a distillation, not a port, of a file-backed cache format:
// same texture (magic + fixed header + CRC32-Castagnoli
// + atomic rename commit, mmap read path) generalized to a flat
// sequence list instead of a bucketed slot index, since a sequence
// library has no need for hash-bucket lookup structures of its own —
// the registry rebuilds its own index from the decoded list on import.
package seqlib

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"

	"golang.org/x/sys/unix"

	"github.com/jeffreyurban/uniqseq/internal/fs"
	"github.com/jeffreyurban/uniqseq/internal/hashutil"
	"github.com/jeffreyurban/uniqseq/internal/registry"
)

const (
	magic        = "USL1"
	formatVersion = uint32(1)
	headerSize    = 4 + 4 + 4 + 4 + 4 + 4 + 8 + 4 // magic,version,hashAlg,windowWidth,seqWidth,keyLen,crc,8 zero bytes

	hashAlgHMACSHA256 = uint32(1)
)

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

// Entry is the decoded form of one persisted KnownSequence, format
// agnostic to the registry (which owns the richer in-memory type).
type Entry struct {
	Length       int
	WindowHashes []hashutil.WindowHash
}

// Library is a decoded sequence library: the hasher key/widths it was
// produced with, plus every persisted sequence.
type Library struct {
	Key         []byte
	WindowWidth int
	SeqWidth    int
	Entries     []Entry
}

// FromRegistry builds an exportable Library from a registry's known
// sequences, keyed with the Hasher key and digest widths the caller's
// engine instance used to produce them. Registry occurrence positions
// (KnownSequence.FirstStart/FirstEnd) are not persisted: they describe
// this run's stream offsets and are meaningless once reloaded into a
// different run.
func FromRegistry(key []byte, windowWidth, seqWidth int, sequences []*registry.KnownSequence) Library {
	entries := make([]Entry, 0, len(sequences))
	for _, ks := range sequences {
		entries = append(entries, Entry{Length: ks.Length, WindowHashes: ks.WindowHashes})
	}

	return Library{Key: key, WindowWidth: windowWidth, SeqWidth: seqWidth, Entries: entries}
}

// Export writes lib atomically to path via fsys.WriteFileAtomic (a
// temp-file-plus-rename commit, see internal/fs.Real), holding an
// exclusive fsys.Lock for the duration so two uniqseq processes
// exporting to the same library path don't interleave writes.
func Export(fsys fs.FS, path string, lib Library) error {
	lock, err := fsys.Lock(path)
	if err != nil {
		return fmt.Errorf("seqlib: locking %s: %w", path, err)
	}
	defer lock.Close() //nolint:errcheck // best-effort release; the write's own error takes precedence

	var body bytes.Buffer

	body.Write(lib.Key)

	countBuf := make([]byte, 8)
	binary.LittleEndian.PutUint64(countBuf, uint64(len(lib.Entries)))
	body.Write(countBuf)

	for _, e := range lib.Entries {
		var lenBuf [4]byte
		binary.LittleEndian.PutUint32(lenBuf[:], uint32(e.Length)) //nolint:gosec // sequence lengths fit uint32 at any realistic scale
		body.Write(lenBuf[:])

		var countBuf4 [4]byte
		binary.LittleEndian.PutUint32(countBuf4[:], uint32(len(e.WindowHashes))) //nolint:gosec
		body.Write(countBuf4[:])

		for _, wh := range e.WindowHashes {
			body.Write(wh[:lib.WindowWidth])
		}
	}

	header := make([]byte, headerSize)
	copy(header[0:4], magic)
	binary.LittleEndian.PutUint32(header[4:8], formatVersion)
	binary.LittleEndian.PutUint32(header[8:12], hashAlgHMACSHA256)
	binary.LittleEndian.PutUint32(header[12:16], uint32(lib.WindowWidth)) //nolint:gosec
	binary.LittleEndian.PutUint32(header[16:20], uint32(lib.SeqWidth))    //nolint:gosec
	binary.LittleEndian.PutUint32(header[20:24], uint32(len(lib.Key)))    //nolint:gosec

	crc := crc32.Checksum(append(header[:24:24], body.Bytes()...), castagnoli)
	binary.LittleEndian.PutUint32(header[24:28], crc)

	out := append(header, body.Bytes()...)

	if err := fsys.WriteFileAtomic(path, out, 0o644); err != nil {
		return fmt.Errorf("seqlib: writing %s: %w", path, err)
	}

	return nil
}

// Open reads and validates the sequence library at path via a
// read-only memory map. fsys.Open must return a [fs.File] backed by a
// real file descriptor (internal/fs.Real, or a Chaos/StrictTestFS
// wrapping it, which pass the underlying file through), since mmap
// needs Fd() to name an actual open file.
func Open(fsys fs.FS, path string) (*Library, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return nil, fmt.Errorf("seqlib: opening %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("seqlib: stat %s: %w", path, err)
	}

	if info.Size() < headerSize {
		return nil, fmt.Errorf("%w: %s", ErrTruncated, path)
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(info.Size()), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("seqlib: mmap %s: %w", path, err)
	}
	defer unix.Munmap(data) //nolint:errcheck // read-only mapping, nothing to flush

	return decode(path, data)
}

func decode(path string, data []byte) (*Library, error) {
	if string(data[0:4]) != magic {
		return nil, fmt.Errorf("%w: %s", ErrBadMagic, path)
	}

	version := binary.LittleEndian.Uint32(data[4:8])
	if version != formatVersion {
		return nil, fmt.Errorf("%w: %s has version %d", ErrUnsupportedVersion, path, version)
	}

	hashAlg := binary.LittleEndian.Uint32(data[8:12])
	if hashAlg != hashAlgHMACSHA256 {
		return nil, fmt.Errorf("%w: %s", ErrUnknownHashAlg, path)
	}

	windowWidth := int(binary.LittleEndian.Uint32(data[12:16]))
	seqWidth := int(binary.LittleEndian.Uint32(data[16:20]))
	keyLen := int(binary.LittleEndian.Uint32(data[20:24]))
	wantCRC := binary.LittleEndian.Uint32(data[24:28])

	body := data[headerSize:]

	got := crc32.Checksum(append(append([]byte{}, data[:24]...), body...), castagnoli)
	if got != wantCRC {
		return nil, fmt.Errorf("%w: %s", ErrChecksumMismatch, path)
	}

	if len(body) < keyLen+8 {
		return nil, fmt.Errorf("%w: %s", ErrTruncated, path)
	}

	key := append([]byte(nil), body[:keyLen]...)
	body = body[keyLen:]

	count := binary.LittleEndian.Uint64(body[:8])
	body = body[8:]

	entries := make([]Entry, 0, count)

	for i := uint64(0); i < count; i++ {
		if len(body) < 8 {
			return nil, fmt.Errorf("%w: %s", ErrTruncated, path)
		}

		length := int(binary.LittleEndian.Uint32(body[0:4]))
		whCount := int(binary.LittleEndian.Uint32(body[4:8]))
		body = body[8:]

		if len(body) < whCount*windowWidth {
			return nil, fmt.Errorf("%w: %s", ErrTruncated, path)
		}

		hashes := make([]hashutil.WindowHash, whCount)

		for j := 0; j < whCount; j++ {
			var wh hashutil.WindowHash
			copy(wh[:windowWidth], body[:windowWidth])
			hashes[j] = wh
			body = body[windowWidth:]
		}

		entries = append(entries, Entry{Length: length, WindowHashes: hashes})
	}

	return &Library{Key: key, WindowWidth: windowWidth, SeqWidth: seqWidth, Entries: entries}, nil
}
