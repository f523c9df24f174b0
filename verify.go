package beanledger

import (
	"fmt"
	"os"
	"slices"
	"strings"
)

// Severity grades a verification finding.
type Severity int

const (
	// Warning marks a finding the engine tolerates but a human should review.
	Warning Severity = iota
	// Error marks a broken invariant.
	Error
)

func (s Severity) String() string {
	if s == Error {
		return "error"
	}
	return "warning"
}

// Diagnostic is one verification finding, pointing at the file and line of
// the offending directive.
type Diagnostic struct {
	Severity Severity
	File     string
	Line     int
	Message  string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s:%d: %s: %s", d.File, d.Line, d.Severity, d.Message)
}

// Verify checks the whole data directory against the ledger's invariants and
// returns every finding, sorted by file then line. It never mutates anything:
// external edits broke the files, external edits (or targeted operations)
// fix them.
//
// An unparseable file yields a single error finding and the other files are
// still checked. Verification reads the files directly rather than trusting
// the index, since its whole point is to catch what happened behind the
// engine's back.
func (l *Ledger) Verify() ([]Diagnostic, error) {
	names, err := l.store.List()
	if err != nil {
		return nil, err
	}
	unlock := l.store.RLock(names...)
	defer unlock()

	v := &verifier{}
	type parsedFile struct {
		name       string
		directives []Directive
		starts     []int
	}
	var files []parsedFile
	for _, name := range names {
		data, err := os.ReadFile(l.store.path(name))
		if err != nil {
			return nil, fmt.Errorf("could not read ledger file %q: %w", name, err)
		}
		directives, starts, err := decodeWithLines(name, data)
		if err != nil {
			if pe, ok := err.(*ParseError); ok {
				v.errorf(name, pe.Line, "%s", pe.Message)
				continue
			}
			return nil, err
		}
		files = append(files, parsedFile{name: name, directives: directives, starts: starts})
	}

	// First pass: accounts and the id space. Opens are assembled from every
	// file (a misplaced open is its own finding, not a reason to flag every
	// posting to that account).
	var accountDirectives []Directive
	for _, f := range files {
		if f.name == AccountsFile {
			accountDirectives = append(f.directives, accountDirectives...)
		} else {
			for _, d := range f.directives {
				switch d.(type) {
				case Open, Close:
					accountDirectives = append(accountDirectives, d)
				}
			}
		}
	}
	accounts := make(map[string]Account)
	for _, acc := range assembleAccounts(accountDirectives) {
		accounts[acc.Name] = acc
	}

	seenIDs := make(map[string]string) // id → "file:line" of first sighting
	includes := make(map[string]bool)  // paths reachable from the main file
	present := make(map[string]bool)
	for _, name := range names {
		present[name] = true
	}

	for _, f := range files {
		for i, d := range f.directives {
			line := f.starts[i]
			if id := d.Meta().ID(); id != "" {
				if first, dup := seenIDs[id]; dup {
					v.errorf(f.name, line, "duplicate id %q, first seen at %s", id, first)
				} else {
					seenIDs[id] = fmt.Sprintf("%s:%d", f.name, line)
				}
			}
			if inc, ok := d.(Include); ok {
				if f.name == MainFile {
					includes[inc.Path] = true
				}
				if strings.ContainsAny(inc.Path, "/\\") {
					v.warnf(f.name, line, "include %q leaves the data directory", inc.Path)
				} else if !present[inc.Path] {
					v.errorf(f.name, line, "include %q points to a missing file", inc.Path)
				}
			}
		}
	}

	// Second pass: per-file invariants.
	for _, f := range files {
		v.checkFile(f.name, f.directives, f.starts, accounts)
		if f.name != MainFile && !includes[f.name] {
			v.warnf(f.name, 1, "file is not included from %s", MainFile)
		}
	}

	slices.SortStableFunc(v.findings, func(a, b Diagnostic) int {
		if c := strings.Compare(a.File, b.File); c != 0 {
			return c
		}
		return a.Line - b.Line
	})
	return v.findings, nil
}

type verifier struct {
	findings []Diagnostic
}

func (v *verifier) errorf(file string, line int, format string, args ...any) {
	v.findings = append(v.findings, Diagnostic{Severity: Error, File: file, Line: line, Message: fmt.Sprintf(format, args...)})
}

func (v *verifier) warnf(file string, line int, format string, args ...any) {
	v.findings = append(v.findings, Diagnostic{Severity: Warning, File: file, Line: line, Message: fmt.Sprintf(format, args...)})
}

func (v *verifier) checkFile(name string, directives []Directive, starts []int, accounts map[string]Account) {
	var prev Date
	opened := make(map[string]bool)
	for i, d := range directives {
		line := starts[i]

		// Only monthly files guarantee chronological order; the accounts
		// file groups each account's open and close together instead.
		if when := d.When(); !when.IsZero() && isMonthlyFile(name) {
			if !prev.IsZero() && when.Before(prev) {
				v.warnf(name, line, "directive dated %s after one dated %s", when, prev)
			}
			prev = when
		}

		switch dir := d.(type) {
		case Open:
			if name != AccountsFile {
				v.warnf(name, line, "account %s opened outside %s", dir.Account, AccountsFile)
			}
			if opened[dir.Account] {
				v.errorf(name, line, "account %s opened twice", dir.Account)
			}
			opened[dir.Account] = true
			if dir.Metadata.ID() == "" {
				v.warnf(name, line, "open %s has no id", dir.Account)
			}
		case Close:
			acc, ok := accounts[dir.Account]
			if !ok {
				v.errorf(name, line, "close of unknown account %s", dir.Account)
			} else if dir.Date.Before(acc.Opened) {
				v.errorf(name, line, "account %s closed on %s before it opened on %s", dir.Account, dir.Date, acc.Opened)
			}
		case Transaction:
			v.checkTransaction(name, line, dir, accounts)
		}
	}
}

func (v *verifier) checkTransaction(name string, line int, tx Transaction, accounts map[string]Account) {
	if tx.Metadata.ID() == "" {
		v.warnf(name, line, "transaction on %s has no id", tx.Date)
	}
	if isMonthlyFile(name) && MonthlyFileName(tx.Date) != name {
		v.warnf(name, line, "transaction dated %s belongs in %s", tx.Date, MonthlyFileName(tx.Date))
	}
	if !isMonthlyFile(name) {
		v.warnf(name, line, "transaction outside a monthly file")
	}

	for _, p := range tx.Postings {
		acc, ok := accounts[p.Account]
		if !ok {
			v.errorf(name, line, "posting to unknown account %s", p.Account)
			continue
		}
		if !acc.IsOpen(tx.Date) {
			v.errorf(name, line, "posting to %s which is not open on %s", p.Account, tx.Date)
		}
		if p.Amount != nil && len(acc.Currencies) > 0 {
			permitted := false
			for _, c := range acc.Currencies {
				if c == p.Amount.Currency {
					permitted = true
					break
				}
			}
			if !permitted {
				v.errorf(name, line, "posting %s %s to %s which only permits %s",
					p.Amount.Value, p.Amount.Currency, p.Account, strings.Join(acc.Currencies, ","))
			}
		}
	}

	check := tx
	check.Postings = append([]Posting(nil), tx.Postings...)
	if err := check.balance(); err != nil {
		v.errorf(name, line, "%v", err)
	}
}
