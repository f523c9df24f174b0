package beanledger

import (
	"regexp"
	"slices"
	"sync"
)

var monthlyFileRE = regexp.MustCompile(`^\d{4}-\d{2}\.bean$`)

// isMonthlyFile reports whether name is a monthly transaction file.
func isMonthlyFile(name string) bool { return monthlyFileRE.MatchString(name) }

// index is the in-memory view of the ledger rebuilt from the store on Open
// and kept incrementally consistent by every mutation. It saves re-scanning
// every file per operation: account existence and open intervals, and the
// file each directive id lives in.
type index struct {
	mu       sync.RWMutex
	accounts map[string]Account // account name → assembled view
	byID     map[string]string  // directive id → file name
}

func newIndex() *index {
	return &index{
		accounts: make(map[string]Account),
		byID:     make(map[string]string),
	}
}

// rebuild replaces the whole index from parsed files.
func (ix *index) rebuild(files []*LedgerFile) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.accounts = make(map[string]Account)
	ix.byID = make(map[string]string)
	for _, f := range files {
		for _, d := range f.Directives {
			ix.applyLocked(f.Name, d)
		}
	}
}

func (ix *index) applyLocked(file string, d Directive) {
	if id := d.Meta().ID(); id != "" {
		ix.byID[id] = file
	}
	switch v := d.(type) {
	case Open:
		acc := Account{
			ID:         v.Metadata.ID(),
			Name:       v.Account,
			Opened:     v.Date,
			Currencies: slices.Clone(v.Currencies),
			Metadata:   v.Metadata.Clone(),
		}
		// A close may have been indexed before its open.
		if prev, ok := ix.accounts[v.Account]; ok && !prev.Closed.IsZero() {
			acc.Closed = prev.Closed
		}
		ix.accounts[v.Account] = acc
	case Close:
		acc := ix.accounts[v.Account]
		acc.Name = v.Account
		acc.Closed = v.Date
		ix.accounts[v.Account] = acc
	}
}

// apply records a directive added to the given file.
func (ix *index) apply(file string, d Directive) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.applyLocked(file, d)
}

// forget drops a directive id from the index.
func (ix *index) forget(id string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	delete(ix.byID, id)
}

// dropAccount removes an account from the index.
func (ix *index) dropAccount(name string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if acc, ok := ix.accounts[name]; ok {
		delete(ix.byID, acc.ID)
		delete(ix.accounts, name)
	}
}

// account returns the assembled view of an account by name.
func (ix *index) account(name string) (Account, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	acc, ok := ix.accounts[name]
	return acc, ok
}

// accountByID returns the account whose open directive carries the id.
func (ix *index) accountByID(id string) (Account, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	for _, acc := range ix.accounts {
		if acc.ID == id {
			return acc, true
		}
	}
	return Account{}, false
}

// fileOf returns the file holding the directive with the given id.
func (ix *index) fileOf(id string) (string, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	f, ok := ix.byID[id]
	return f, ok
}

// move re-homes a directive id to another file.
func (ix *index) move(id, file string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.byID[id] = file
}
