package beanledger

import (
	"fmt"
	"iter"
	"regexp"

	"github.com/shopspring/decimal"
)

// FlagCleared and FlagPending are the two transaction flags the engine
// understands. Anything else round-trips untouched.
const (
	FlagCleared = "*"
	FlagPending = "!"
)

// AddTransaction validates tx, assigns it a fresh identifier, routes it to
// the monthly file of its date and returns the identifier. The transaction
// is inserted in chronological position within the file; an elided posting
// amount is inferred as the balancing remainder and persisted explicitly.
func (l *Ledger) AddTransaction(tx Transaction) (string, error) {
	if err := l.validateTransaction(&tx); err != nil {
		return "", err
	}
	tx.Metadata = tx.Metadata.Clone()
	tx.Metadata[MetaID] = NewID()

	month := MonthlyFileName(tx.Date)
	unlock := l.store.Lock(MainFile, month)
	defer unlock()

	file, err := l.store.Read(month)
	if err != nil {
		return "", err
	}
	file.Directives = insertChronological(file.Directives, tx)
	if _, err := l.store.Write(month, file.Directives, file.Hash); err != nil {
		return "", err
	}
	if err := l.ensureInclude(month); err != nil {
		return "", err
	}
	l.idx.apply(month, tx)
	return tx.ID(), nil
}

// UpdateTransaction replaces the transaction addressed by id with tx,
// keeping the id. When the new date falls in a different month the
// transaction moves to that month's file; the copy is committed to the
// destination before the original is removed, so a crash between the two
// writes duplicates the transaction instead of losing it (Verify reports
// the duplicate id).
func (l *Ledger) UpdateTransaction(id string, tx Transaction) error {
	if err := l.validateTransaction(&tx); err != nil {
		return err
	}
	source, ok := l.idx.fileOf(id)
	if !ok {
		return &NotFoundError{ID: id}
	}
	tx.Metadata = tx.Metadata.Clone()
	tx.Metadata[MetaID] = id

	dest := MonthlyFileName(tx.Date)
	if dest == source {
		unlock := l.store.Lock(source)
		defer unlock()

		file, err := l.store.Read(source)
		if err != nil {
			return err
		}
		at := findByID(file.Directives, id)
		if at < 0 {
			return &NotFoundError{ID: id}
		}
		if _, ok := file.Directives[at].(Transaction); !ok {
			return &NotFoundError{ID: id}
		}
		file.Directives = insertChronological(removeAt(file.Directives, at), tx)
		_, err = l.store.Write(source, file.Directives, file.Hash)
		return err
	}

	unlock := l.store.Lock(MainFile, source, dest)
	defer unlock()

	srcFile, err := l.store.Read(source)
	if err != nil {
		return err
	}
	at := findByID(srcFile.Directives, id)
	if at < 0 {
		return &NotFoundError{ID: id}
	}
	if _, ok := srcFile.Directives[at].(Transaction); !ok {
		return &NotFoundError{ID: id}
	}

	destFile, err := l.store.Read(dest)
	if err != nil {
		return err
	}
	destFile.Directives = insertChronological(destFile.Directives, tx)
	if _, err := l.store.Write(dest, destFile.Directives, destFile.Hash); err != nil {
		return err
	}
	if err := l.ensureInclude(dest); err != nil {
		return err
	}
	srcFile.Directives = removeAt(srcFile.Directives, at)
	if _, err := l.store.Write(source, srcFile.Directives, srcFile.Hash); err != nil {
		return err
	}
	l.idx.move(id, dest)
	return nil
}

// DeleteTransaction removes the transaction addressed by id from its file.
func (l *Ledger) DeleteTransaction(id string) error {
	name, ok := l.idx.fileOf(id)
	if !ok {
		return &NotFoundError{ID: id}
	}
	unlock := l.store.Lock(name)
	defer unlock()

	file, err := l.store.Read(name)
	if err != nil {
		return err
	}
	at := findByID(file.Directives, id)
	if at < 0 {
		return &NotFoundError{ID: id}
	}
	if _, ok := file.Directives[at].(Transaction); !ok {
		return &NotFoundError{ID: id}
	}
	file.Directives = removeAt(file.Directives, at)
	if _, err := l.store.Write(name, file.Directives, file.Hash); err != nil {
		return err
	}
	l.idx.forget(id)
	return nil
}

// GetTransaction returns the transaction addressed by id.
func (l *Ledger) GetTransaction(id string) (Transaction, error) {
	name, ok := l.idx.fileOf(id)
	if !ok {
		return Transaction{}, &NotFoundError{ID: id}
	}
	unlock := l.store.RLock(name)
	defer unlock()

	file, err := l.store.Read(name)
	if err != nil {
		return Transaction{}, err
	}
	at := findByID(file.Directives, id)
	if at < 0 {
		return Transaction{}, &NotFoundError{ID: id}
	}
	tx, ok := file.Directives[at].(Transaction)
	if !ok {
		return Transaction{}, &NotFoundError{ID: id}
	}
	return tx, nil
}

// Clear marks the transaction as reviewed (flag "*").
func (l *Ledger) Clear(id string) error { return l.setFlag(id, FlagCleared) }

// Unclear marks the transaction as pending review (flag "!").
func (l *Ledger) Unclear(id string) error { return l.setFlag(id, FlagPending) }

func (l *Ledger) setFlag(id, flag string) error {
	name, ok := l.idx.fileOf(id)
	if !ok {
		return &NotFoundError{ID: id}
	}
	unlock := l.store.Lock(name)
	defer unlock()

	file, err := l.store.Read(name)
	if err != nil {
		return err
	}
	at := findByID(file.Directives, id)
	if at < 0 {
		return &NotFoundError{ID: id}
	}
	tx, ok := file.Directives[at].(Transaction)
	if !ok {
		return &NotFoundError{ID: id}
	}
	if tx.Flag == flag {
		return nil
	}
	tx.Flag = flag
	file.Directives[at] = tx
	_, err = l.store.Write(name, file.Directives, file.Hash)
	return err
}

// TxFilter narrows the Transactions listing. Zero fields match everything;
// set fields are AND-ed.
type TxFilter struct {
	From    Date   // inclusive
	To      Date   // inclusive
	Account string // exact posting account
	Tag     string
	Link    string
}

func (f TxFilter) match(tx Transaction) bool {
	if !f.From.IsZero() && tx.Date.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && tx.Date.After(f.To) {
		return false
	}
	if f.Account != "" {
		found := false
		for _, p := range tx.Postings {
			if p.Account == f.Account {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.Tag != "" {
		found := false
		for _, t := range tx.Tags {
			if t == f.Tag {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.Link != "" {
		found := false
		for _, lk := range tx.Links {
			if lk == f.Link {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// monthInRange prunes monthly files outside the filter's date window, so a
// listing over one month never parses years of history.
func (f TxFilter) monthInRange(name string) bool {
	key := name[:len(name)-len(beanExt)]
	if !f.From.IsZero() && key < f.From.MonthKey() {
		return false
	}
	if !f.To.IsZero() && key > f.To.MonthKey() {
		return false
	}
	return true
}

// Transactions returns a lazy, restartable sequence over a consistent
// snapshot of the monthly files matching the filter, in chronological file
// order then file position.
func (l *Ledger) Transactions(filter TxFilter) (iter.Seq[Transaction], error) {
	names, err := l.store.List()
	if err != nil {
		return nil, err
	}
	var months []string
	for _, n := range names {
		if isMonthlyFile(n) && filter.monthInRange(n) {
			months = append(months, n)
		}
	}

	unlock := l.store.RLock(months...)
	var snapshot []Transaction
	for _, month := range months {
		file, err := l.store.Read(month)
		if err != nil {
			unlock()
			return nil, err
		}
		for _, d := range file.Directives {
			if tx, ok := d.(Transaction); ok && filter.match(tx) {
				snapshot = append(snapshot, tx)
			}
		}
	}
	unlock()

	return func(yield func(Transaction) bool) {
		for _, tx := range snapshot {
			if !yield(tx) {
				return
			}
		}
	}, nil
}

// Tags and links end up bare in the transaction header line, so their
// character set is restricted to what the decoder reads back as one token.
var validTagRE = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._/-]*$`)

// validateTransaction checks tx against the engine's invariants and
// normalizes it in place: the default flag is "*" and an elided posting
// amount is replaced by the inferred balancing remainder.
func (l *Ledger) validateTransaction(tx *Transaction) error {
	if tx.Date.IsZero() {
		return &InvalidDateError{Value: tx.Date.String(), Reason: "transaction date is required"}
	}
	if len(tx.Postings) == 0 {
		return &UnbalancedTransactionError{Reason: "transaction has no postings"}
	}
	if tx.Flag == "" {
		tx.Flag = FlagCleared
	}
	for _, tag := range tx.Tags {
		if !validTagRE.MatchString(tag) {
			return fmt.Errorf("invalid tag %q: want letters, digits, '.', '_', '/' or '-'", tag)
		}
	}
	for _, link := range tx.Links {
		if !validTagRE.MatchString(link) {
			return fmt.Errorf("invalid link %q: want letters, digits, '.', '_', '/' or '-'", link)
		}
	}

	for _, p := range tx.Postings {
		acc, ok := l.idx.account(p.Account)
		if !ok {
			return &UnknownAccountError{Account: p.Account}
		}
		if !acc.IsOpen(tx.Date) {
			return &AccountNotOpenError{Account: p.Account, Date: tx.Date}
		}
	}
	if err := tx.balance(); err != nil {
		return err
	}
	// After inference every posting has an amount, so the currency
	// restriction covers inferred amounts too.
	for _, p := range tx.Postings {
		if p.Amount == nil {
			continue
		}
		acc, _ := l.idx.account(p.Account)
		if len(acc.Currencies) == 0 {
			continue
		}
		permitted := false
		for _, c := range acc.Currencies {
			if c == p.Amount.Currency {
				permitted = true
				break
			}
		}
		if !permitted {
			return &InvalidCurrencyError{Account: p.Account, Currency: p.Amount.Currency}
		}
	}
	return nil
}

// balance checks that the postings sum to zero per currency, inferring at
// most one elided amount. Transactions carrying cost or price annotations
// are exempt: converting across currencies or lots is out of scope here and
// is left to downstream beancount tooling.
func (tx *Transaction) balance() error {
	elided := -1
	for i, p := range tx.Postings {
		if p.Cost != "" || p.Price != "" {
			return nil
		}
		if p.Amount == nil {
			if elided >= 0 {
				return &UnbalancedTransactionError{Reason: "more than one posting without an amount"}
			}
			elided = i
		}
	}

	sums := make(map[string]decimal.Decimal)
	var order []string
	for _, p := range tx.Postings {
		if p.Amount == nil {
			continue
		}
		if _, ok := sums[p.Amount.Currency]; !ok {
			order = append(order, p.Amount.Currency)
		}
		sums[p.Amount.Currency] = sums[p.Amount.Currency].Add(p.Amount.Value)
	}

	var residuals []string
	for _, cur := range order {
		if !sums[cur].IsZero() {
			residuals = append(residuals, cur)
		}
	}

	if elided >= 0 {
		if len(residuals) == 0 {
			return &UnbalancedTransactionError{Reason: "posting without an amount has nothing to balance"}
		}
		if len(residuals) > 1 {
			return &UnbalancedTransactionError{Reason: fmt.Sprintf("posting without an amount cannot balance %d currencies", len(residuals))}
		}
		cur := residuals[0]
		inferred := Amount{Value: sums[cur].Neg(), Currency: cur}
		tx.Postings[elided].Amount = &inferred
		return nil
	}
	if len(residuals) > 0 {
		cur := residuals[0]
		return &UnbalancedTransactionError{Currency: cur, Residual: sums[cur].String()}
	}
	return nil
}
