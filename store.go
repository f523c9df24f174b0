package beanledger

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
)

// Well-known file names of the on-disk layout.
const (
	MainFile     = "main.bean"
	AccountsFile = "accounts.bean"
	beanExt      = ".bean"
)

// LedgerFile is the parsed content of one ledger file plus the content hash
// it was read at, used for optimistic-concurrency checks on write.
type LedgerFile struct {
	Name       string // file name relative to the data directory
	Directives []Directive
	Hash       string // sha256 of the raw bytes; "" when the file does not exist yet
}

// Store owns the set of ledger files under a data directory. It provides
// read-modify-write access with per-file locking, optimistic concurrency and
// atomic replacement, so a crash never leaves a file half-written.
//
// The store assumes it is the only writer process; the locks serialize
// goroutines within this process, not other processes.
type Store struct {
	dir string

	mu    sync.Mutex // guards locks
	locks map[string]*sync.RWMutex
}

// NewStore returns a store rooted at dir, creating the directory if needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("could not create data directory %q: %w", dir, err)
	}
	return &Store{dir: dir, locks: make(map[string]*sync.RWMutex)}, nil
}

// Dir returns the data directory this store is rooted at.
func (s *Store) Dir() string { return s.dir }

func (s *Store) path(name string) string { return filepath.Join(s.dir, name) }

func (s *Store) lockFor(name string) *sync.RWMutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[name]
	if !ok {
		l = &sync.RWMutex{}
		s.locks[name] = l
	}
	return l
}

// lockRank orders files for multi-file operations: the main file first, the
// accounts file second, then monthly files sorted by name. Acquiring in this
// fixed order prevents deadlock between concurrent multi-file mutations.
func lockRank(name string) string {
	switch name {
	case MainFile:
		return "0"
	case AccountsFile:
		return "1"
	default:
		return "2" + name
	}
}

// Lock acquires the write locks for the named files in the global order and
// returns the function releasing them (in reverse order).
func (s *Store) Lock(names ...string) (unlock func()) {
	names = slices.Clone(names)
	slices.SortFunc(names, func(a, b string) int {
		return strings.Compare(lockRank(a), lockRank(b))
	})
	names = slices.Compact(names)
	locked := make([]*sync.RWMutex, 0, len(names))
	for _, n := range names {
		l := s.lockFor(n)
		l.Lock()
		locked = append(locked, l)
	}
	return func() {
		for i := len(locked) - 1; i >= 0; i-- {
			locked[i].Unlock()
		}
	}
}

// RLock acquires shared locks for the named files, for consistent snapshots.
func (s *Store) RLock(names ...string) (unlock func()) {
	names = slices.Clone(names)
	slices.SortFunc(names, func(a, b string) int {
		return strings.Compare(lockRank(a), lockRank(b))
	})
	names = slices.Compact(names)
	locked := make([]*sync.RWMutex, 0, len(names))
	for _, n := range names {
		l := s.lockFor(n)
		l.RLock()
		locked = append(locked, l)
	}
	return func() {
		for i := len(locked) - 1; i >= 0; i-- {
			locked[i].RUnlock()
		}
	}
}

// Read parses the named file. A missing file is not an error: it yields an
// empty LedgerFile with hash "", which Write then treats as "must not exist".
// The caller is responsible for holding the file's lock when the read is part
// of a read-modify-write cycle.
func (s *Store) Read(name string) (*LedgerFile, error) {
	data, err := os.ReadFile(s.path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return &LedgerFile{Name: name}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("could not read ledger file %q: %w", name, err)
	}
	directives, err := Decode(name, data)
	if err != nil {
		return nil, err
	}
	return &LedgerFile{Name: name, Directives: directives, Hash: hashBytes(data)}, nil
}

// Exists reports whether the named file is present on disk.
func (s *Store) Exists(name string) bool {
	_, err := os.Stat(s.path(name))
	return err == nil
}

// List returns the names of all ledger files in the data directory, sorted.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("could not list data directory %q: %w", s.dir, err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == beanExt {
			names = append(names, e.Name())
		}
	}
	slices.Sort(names)
	return names, nil
}

// Write encodes the directives and commits them to the named file, provided
// the file's current content hash still matches expectedHash (ConflictError
// otherwise). The encoded text is re-parsed before the commit, so a committed
// file is always syntactically valid. Returns the new content hash.
//
// The caller must hold the file's write lock.
func (s *Store) Write(name string, directives []Directive, expectedHash string) (string, error) {
	current, err := s.currentHash(name)
	if err != nil {
		return "", err
	}
	if current != expectedHash {
		return "", &ConflictError{File: name}
	}

	data, err := EncodeToBytes(directives)
	if err != nil {
		return "", fmt.Errorf("could not encode %q: %w", name, err)
	}
	// A corrupted write would leave the user's records unusable: never commit
	// bytes the decoder rejects.
	if _, err := Decode(name, data); err != nil {
		return "", fmt.Errorf("refusing to write unparseable content to %q: %w", name, err)
	}
	if err := s.atomicReplace(name, data); err != nil {
		return "", err
	}
	return hashBytes(data), nil
}

func (s *Store) currentHash(name string) (string, error) {
	data, err := os.ReadFile(s.path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("could not read ledger file %q: %w", name, err)
	}
	return hashBytes(data), nil
}

// atomicReplace writes data to a temporary file in the same directory and
// renames it over the target, so the file is never observed half-written,
// even on crash. A failed temp write is removed; a failed rename leaves the
// temp file behind for diagnosis.
func (s *Store) atomicReplace(name string, data []byte) error {
	tmp, err := os.CreateTemp(s.dir, "."+name+".tmp*")
	if err != nil {
		return fmt.Errorf("could not create temp file for %q: %w", name, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("could not write temp file for %q: %w", name, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("could not sync temp file for %q: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("could not close temp file for %q: %w", name, err)
	}
	if err := os.Rename(tmpName, s.path(name)); err != nil {
		log.Printf("leaving %q behind after failed commit of %q", tmpName, name)
		return fmt.Errorf("could not commit %q: %w", name, err)
	}
	return nil
}

func hashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// MonthlyFileName returns the monthly file holding transactions of d's month.
func MonthlyFileName(d Date) string { return d.MonthKey() + beanExt }
