package beanledger

import (
	"fmt"
)

// Ledger is the engine handle over one data directory. All account and
// transaction operations, and the verification pass, hang off it.
//
// A Ledger is safe for concurrent use: mutations serialize on per-file locks
// in the store, listings work on consistent snapshots, and the in-memory
// index is rebuilt on OpenLedger and maintained by every mutation.
type Ledger struct {
	store *Store
	idx   *index
}

// OpenLedger opens (or initializes) the ledger rooted at dir. Existing .bean
// files are discovered and indexed; the main and accounts files themselves
// are only created by the first mutation that needs them.
func OpenLedger(dir string) (*Ledger, error) {
	store, err := NewStore(dir)
	if err != nil {
		return nil, err
	}
	l := &Ledger{store: store, idx: newIndex()}
	if err := l.Reindex(); err != nil {
		return nil, err
	}
	return l, nil
}

// Store exposes the underlying file store, mostly for tests and tooling.
func (l *Ledger) Store() *Store { return l.store }

// Reindex rebuilds the in-memory index from every file in the data
// directory. It is called on OpenLedger and can be called again after
// external edits to the files.
func (l *Ledger) Reindex() error {
	names, err := l.store.List()
	if err != nil {
		return err
	}
	unlock := l.store.RLock(names...)
	defer unlock()

	var files []*LedgerFile
	for _, name := range names {
		f, err := l.store.Read(name)
		if err != nil {
			return fmt.Errorf("reindex: %w", err)
		}
		files = append(files, f)
	}
	l.idx.rebuild(files)
	return nil
}

// ensureInclude registers target in the main file's include list, creating
// the main file on first use. The caller must hold the main file's lock.
func (l *Ledger) ensureInclude(target string) error {
	main, err := l.store.Read(MainFile)
	if err != nil {
		return err
	}
	for _, d := range main.Directives {
		if inc, ok := d.(Include); ok && inc.Path == target {
			return nil
		}
	}
	main.Directives = append(main.Directives, Include{Path: target})
	_, err = l.store.Write(MainFile, main.Directives, main.Hash)
	return err
}

// Format rewrites every ledger file in canonical form: normalized
// whitespace, aligned postings, sorted metadata. Content is untouched.
func (l *Ledger) Format() error {
	names, err := l.store.List()
	if err != nil {
		return err
	}
	for _, name := range names {
		unlock := l.store.Lock(name)
		f, err := l.store.Read(name)
		if err == nil && f.Hash != "" {
			_, err = l.store.Write(name, f.Directives, f.Hash)
		}
		unlock()
		if err != nil {
			return fmt.Errorf("format %q: %w", name, err)
		}
	}
	return nil
}

// insertChronological returns the directive sequence with tx inserted at the
// position preserving non-decreasing date order. Transactions on the same
// date keep insertion order (the new one goes after existing ones); undated
// directives (comments, includes) do not move.
func insertChronological(directives []Directive, tx Transaction) []Directive {
	at := len(directives)
	for i, d := range directives {
		if !d.When().IsZero() && d.When().After(tx.Date) {
			at = i
			break
		}
	}
	out := make([]Directive, 0, len(directives)+1)
	out = append(out, directives[:at]...)
	out = append(out, tx)
	out = append(out, directives[at:]...)
	return out
}

// findByID returns the position of the directive carrying the id, or -1.
func findByID(directives []Directive, id string) int {
	for i, d := range directives {
		if d.Meta().ID() == id {
			return i
		}
	}
	return -1
}

// removeAt returns the sequence without the directive at position i.
func removeAt(directives []Directive, i int) []Directive {
	out := make([]Directive, 0, len(directives)-1)
	out = append(out, directives[:i]...)
	out = append(out, directives[i+1:]...)
	return out
}
