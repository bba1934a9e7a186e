package fs

import (
	"errors"
	"io/fs"
	"math/rand"
	"os"
	"sync"
	"syscall"
)

// ChaosConfig controls fault injection probabilities.
// Each rate is a float64 from 0.0 (never) to 1.0 (always).
//
// The zero value disables all fault injection.
type ChaosConfig struct {
	// ReadFailRate controls how often FS.ReadFile fails entirely, returning
	// zero bytes and an injected EIO error.
	ReadFailRate float64

	// OpenFailRate controls how often FS.Open, FS.Create, and FS.OpenFile
	// fail to open a file, returning an injected EACCES error.
	OpenFailRate float64
}

// NewChaos creates a new [Chaos] filesystem wrapping the given [FS].
// The seed controls random fault injection for reproducibility.
// Panics if fs is nil.
func NewChaos(fsys FS, seed int64, config ChaosConfig) *Chaos {
	if fsys == nil {
		panic("fs is nil")
	}

	return &Chaos{
		fs:     fsys,
		rng:    rand.New(rand.NewSource(seed)),
		config: config,
	}
}

// ChaosError marks an error as intentionally injected by [Chaos].
//
// It wraps the underlying error so errors.Is/As continue to work.
type ChaosError struct {
	Err error
}

// Error returns a formatted error message. Panics if e or e.Err is nil.
func (e *ChaosError) Error() string {
	return "chaos: " + e.Err.Error()
}

// Unwrap returns the underlying error. Panics if e is nil.
func (e *ChaosError) Unwrap() error {
	return e.Err
}

// IsChaosErr reports whether err (or any wrapped error) was injected by [Chaos].
// Returns false if err is nil.
func IsChaosErr(err error) bool {
	var injected *ChaosError

	return errors.As(err, &injected)
}

// Chaos wraps an [FS] and injects random open/read failures for testing.
//
// It exercises the two failure modes this module's loaders have to cope
// with: a sequence library file that cannot be opened (Open/Create/OpenFile),
// and a config file that cannot be read (ReadFile). Every other [FS] method
// is a plain passthrough.
type Chaos struct {
	fs     FS
	rng    *rand.Rand
	config ChaosConfig

	rngMu sync.Mutex
}

func (c *Chaos) Open(path string) (File, error) {
	return c.openWithChaos(func() (File, error) {
		return c.fs.Open(path)
	})
}

func (c *Chaos) Create(path string) (File, error) {
	return c.openWithChaos(func() (File, error) {
		return c.fs.Create(path)
	})
}

func (c *Chaos) OpenFile(path string, flag int, perm os.FileMode) (File, error) {
	return c.openWithChaos(func() (File, error) {
		return c.fs.OpenFile(path, flag, perm)
	})
}

func (c *Chaos) openWithChaos(openFn func() (File, error)) (File, error) {
	if c.should(c.config.OpenFailRate) {
		return nil, &ChaosError{Err: &fs.PathError{Op: "open", Err: syscall.EACCES}}
	}

	return openFn()
}

func (c *Chaos) ReadFile(path string) ([]byte, error) {
	if c.should(c.config.ReadFailRate) {
		return nil, &ChaosError{Err: &fs.PathError{Op: "read", Path: path, Err: syscall.EIO}}
	}

	return c.fs.ReadFile(path)
}

func (c *Chaos) WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	return c.fs.WriteFileAtomic(path, data, perm)
}

func (c *Chaos) ReadDir(path string) ([]os.DirEntry, error) {
	return c.fs.ReadDir(path)
}

func (c *Chaos) MkdirAll(path string, perm os.FileMode) error {
	return c.fs.MkdirAll(path, perm)
}

func (c *Chaos) Stat(path string) (os.FileInfo, error) {
	return c.fs.Stat(path)
}

func (c *Chaos) Exists(path string) (bool, error) {
	return c.fs.Exists(path)
}

func (c *Chaos) Remove(path string) error {
	return c.fs.Remove(path)
}

func (c *Chaos) RemoveAll(path string) error {
	return c.fs.RemoveAll(path)
}

func (c *Chaos) Rename(oldpath, newpath string) error {
	return c.fs.Rename(oldpath, newpath)
}

func (c *Chaos) Lock(path string) (Locker, error) {
	return c.fs.Lock(path)
}

// should returns true with the given probability (thread-safe).
func (c *Chaos) should(rate float64) bool {
	c.rngMu.Lock()
	result := c.rng.Float64()
	c.rngMu.Unlock()

	return result < rate
}

var _ FS = (*Chaos)(nil)
