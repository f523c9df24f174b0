package beanledger

import (
	"fmt"
	"iter"
	"slices"
	"strings"
)

// OpenAccount creates an account with the given opening date and optional
// permitted currencies, and returns its stable identifier. It fails with a
// *DuplicateAccountError when the name is taken and *InvalidDateError when
// the date is zero.
func (l *Ledger) OpenAccount(name string, date Date, currencies []string) (string, error) {
	if !ValidAccountName(name) {
		return "", fmt.Errorf("invalid account name %q: want Segment:Segment hierarchical form", name)
	}
	if date.IsZero() {
		return "", &InvalidDateError{Value: date.String(), Reason: "open date is required"}
	}
	for _, c := range currencies {
		if err := ValidateCurrency(c); err != nil {
			return "", err
		}
	}

	unlock := l.store.Lock(MainFile, AccountsFile)
	defer unlock()

	file, err := l.store.Read(AccountsFile)
	if err != nil {
		return "", err
	}
	// The file, not the index, is authoritative for uniqueness: it may have
	// been edited externally.
	for _, d := range file.Directives {
		if open, ok := d.(Open); ok && open.Account == name {
			return "", &DuplicateAccountError{Name: name}
		}
	}

	open := Open{
		Date:       date,
		Account:    name,
		Currencies: currencies,
		Metadata:   Metadata{MetaID: NewID()},
	}
	file.Directives = append(file.Directives, open)
	if _, err := l.store.Write(AccountsFile, file.Directives, file.Hash); err != nil {
		return "", err
	}
	if err := l.ensureInclude(AccountsFile); err != nil {
		return "", err
	}
	l.idx.apply(AccountsFile, open)
	return open.Metadata.ID(), nil
}

// CloseAccount records a close date for the account addressed by id. The
// close directive is inserted right after the account's open directive so
// each account reads as one block. Fails with *NotFoundError,
// *AlreadyClosedError, or *InvalidDateError when the date precedes the
// open date.
func (l *Ledger) CloseAccount(id string, date Date) error {
	if date.IsZero() {
		return &InvalidDateError{Value: date.String(), Reason: "close date is required"}
	}

	unlock := l.store.Lock(AccountsFile)
	defer unlock()

	file, err := l.store.Read(AccountsFile)
	if err != nil {
		return err
	}
	at := findByID(file.Directives, id)
	if at < 0 {
		return &NotFoundError{ID: id}
	}
	open, ok := file.Directives[at].(Open)
	if !ok {
		return &NotFoundError{ID: id}
	}
	for _, d := range file.Directives {
		if cl, ok := d.(Close); ok && cl.Account == open.Account {
			return &AlreadyClosedError{Name: open.Account, ClosedOn: cl.Date}
		}
	}
	if date.Before(open.Date) {
		return &InvalidDateError{Value: date.String(), Reason: fmt.Sprintf("close precedes open date %s of %s", open.Date, open.Account)}
	}

	cl := Close{Date: date, Account: open.Account, Metadata: Metadata{MetaID: NewID()}}
	rest := make([]Directive, 0, len(file.Directives)+1)
	rest = append(rest, file.Directives[:at+1]...)
	rest = append(rest, cl)
	rest = append(rest, file.Directives[at+1:]...)
	if _, err := l.store.Write(AccountsFile, rest, file.Hash); err != nil {
		return err
	}
	l.idx.apply(AccountsFile, cl)
	return nil
}

// CloseAccountByName is CloseAccount addressed by account name.
func (l *Ledger) CloseAccountByName(name string, date Date) error {
	acc, ok := l.idx.account(name)
	if !ok {
		return &UnknownAccountError{Account: name}
	}
	return l.CloseAccount(acc.ID, date)
}

// UpdateAccount replaces the permitted currencies and merges metadata on the
// account's open directive. The id and the open date are immutable.
func (l *Ledger) UpdateAccount(id string, currencies []string, meta Metadata) error {
	for _, c := range currencies {
		if err := ValidateCurrency(c); err != nil {
			return err
		}
	}

	unlock := l.store.Lock(AccountsFile)
	defer unlock()

	file, err := l.store.Read(AccountsFile)
	if err != nil {
		return err
	}
	at := findByID(file.Directives, id)
	if at < 0 {
		return &NotFoundError{ID: id}
	}
	open, ok := file.Directives[at].(Open)
	if !ok {
		return &NotFoundError{ID: id}
	}

	open.Currencies = currencies
	merged := open.Metadata.Clone()
	for k, v := range meta {
		if k == MetaID {
			continue
		}
		merged[k] = v
	}
	open.Metadata = merged
	file.Directives[at] = open
	if _, err := l.store.Write(AccountsFile, file.Directives, file.Hash); err != nil {
		return err
	}
	l.idx.apply(AccountsFile, open)
	return nil
}

// DeleteAccount removes the account's open (and close) directives. The
// engine never deletes an account out from under existing postings: the
// operation fails with *AccountInUseError unless force is set, and cascading
// to the postings themselves is outside its contract.
func (l *Ledger) DeleteAccount(id string, force bool) error {
	names, err := l.store.List()
	if err != nil {
		return err
	}
	var monthlies []string
	for _, n := range names {
		if isMonthlyFile(n) {
			monthlies = append(monthlies, n)
		}
	}

	unlock := l.store.Lock(append([]string{AccountsFile}, monthlies...)...)
	defer unlock()

	file, err := l.store.Read(AccountsFile)
	if err != nil {
		return err
	}
	at := findByID(file.Directives, id)
	if at < 0 {
		return &NotFoundError{ID: id}
	}
	open, ok := file.Directives[at].(Open)
	if !ok {
		return &NotFoundError{ID: id}
	}

	if !force {
		inUse := 0
		for _, month := range monthlies {
			mf, err := l.store.Read(month)
			if err != nil {
				return err
			}
			for _, d := range mf.Directives {
				if tx, ok := d.(Transaction); ok {
					for _, p := range tx.Postings {
						if p.Account == open.Account {
							inUse++
						}
					}
				}
			}
		}
		if inUse > 0 {
			return &AccountInUseError{Name: open.Account, Postings: inUse}
		}
	}

	kept := make([]Directive, 0, len(file.Directives))
	for _, d := range file.Directives {
		switch v := d.(type) {
		case Open:
			if v.Account == open.Account {
				continue
			}
		case Close:
			if v.Account == open.Account {
				continue
			}
		}
		kept = append(kept, d)
	}
	if _, err := l.store.Write(AccountsFile, kept, file.Hash); err != nil {
		return err
	}
	l.idx.dropAccount(open.Account)
	return nil
}

// Accounts returns a lazy, restartable sequence over a consistent snapshot
// of the accounts file taken at call time. Filters are AND-ed; with none,
// every account is yielded, sorted by name.
func (l *Ledger) Accounts(filters ...func(Account) bool) (iter.Seq[Account], error) {
	unlock := l.store.RLock(AccountsFile)
	file, err := l.store.Read(AccountsFile)
	unlock()
	if err != nil {
		return nil, err
	}

	snapshot := assembleAccounts(file.Directives)
	return func(yield func(Account) bool) {
		for _, acc := range snapshot {
			accept := true
			for _, filter := range filters {
				if !filter(acc) {
					accept = false
					break
				}
			}
			if !accept {
				continue
			}
			if !yield(acc) {
				return
			}
		}
	}, nil
}

// FindAccount returns the account with the given name, from the index.
func (l *Ledger) FindAccount(name string) (Account, bool) {
	return l.idx.account(name)
}

// AccountByID returns the account whose open directive carries the id.
func (l *Ledger) AccountByID(id string) (Account, bool) {
	return l.idx.accountByID(id)
}

// ByOpenOn filters accounts open on the given date.
func ByOpenOn(on Date) func(Account) bool {
	return func(a Account) bool { return a.IsOpen(on) }
}

// assembleAccounts folds open/close directives into Account views, sorted by
// name (opens without a close stay open; closes without an open are left to
// the Verifier to flag).
func assembleAccounts(directives []Directive) []Account {
	byName := make(map[string]int)
	var accounts []Account
	for _, d := range directives {
		switch v := d.(type) {
		case Open:
			byName[v.Account] = len(accounts)
			accounts = append(accounts, Account{
				ID:         v.Metadata.ID(),
				Name:       v.Account,
				Opened:     v.Date,
				Currencies: v.Currencies,
				Metadata:   v.Metadata,
			})
		case Close:
			if i, ok := byName[v.Account]; ok {
				accounts[i].Closed = v.Date
			}
		}
	}
	slices.SortFunc(accounts, func(a, b Account) int { return strings.Compare(a.Name, b.Name) })
	return accounts
}
