package beanledger

import "fmt"

// The engine surfaces failures as typed errors so the caller can correct its
// input. Filesystem failures are returned wrapped (%w) around the underlying
// *fs.PathError and abort the operation; nothing is written on a validation
// failure.

// ParseError reports malformed ledger text. It is always surfaced, never
// auto-corrected.
type ParseError struct {
	File    string
	Line    int
	Column  int
	Message string
}

func (e *ParseError) Error() string {
	if e.File == "" {
		return fmt.Sprintf("%d:%d: %s", e.Line, e.Column, e.Message)
	}
	return fmt.Sprintf("%s:%d:%d: %s", e.File, e.Line, e.Column, e.Message)
}

// InvalidDateError reports a malformed or out-of-order date.
type InvalidDateError struct {
	Value  string
	Reason string
}

func (e *InvalidDateError) Error() string {
	return fmt.Sprintf("invalid date %q: %s", e.Value, e.Reason)
}

// DuplicateAccountError reports an attempt to open an account name twice.
type DuplicateAccountError struct {
	Name string
}

func (e *DuplicateAccountError) Error() string {
	return fmt.Sprintf("account %q already exists", e.Name)
}

// UnknownAccountError reports a posting or operation referencing an account
// that was never opened.
type UnknownAccountError struct {
	Account string
}

func (e *UnknownAccountError) Error() string {
	return fmt.Sprintf("unknown account %q", e.Account)
}

// AccountNotOpenError reports a posting dated outside the account's
// open/close interval.
type AccountNotOpenError struct {
	Account string
	Date    Date
}

func (e *AccountNotOpenError) Error() string {
	return fmt.Sprintf("account %q is not open on %s", e.Account, e.Date)
}

// AlreadyClosedError reports closing an account that already has a close date.
type AlreadyClosedError struct {
	Name     string
	ClosedOn Date
}

func (e *AlreadyClosedError) Error() string {
	return fmt.Sprintf("account %q already closed on %s", e.Name, e.ClosedOn)
}

// AccountInUseError reports deleting an account that still has postings.
type AccountInUseError struct {
	Name     string
	Postings int
}

func (e *AccountInUseError) Error() string {
	return fmt.Sprintf("account %q has %d posting(s); remove them first or force the deletion", e.Name, e.Postings)
}

// UnbalancedTransactionError reports a transaction whose postings do not sum
// to zero in some currency, or whose elided amount cannot be inferred.
type UnbalancedTransactionError struct {
	Currency string
	Residual string
	Reason   string
}

func (e *UnbalancedTransactionError) Error() string {
	if e.Reason != "" {
		return "unbalanced transaction: " + e.Reason
	}
	return fmt.Sprintf("unbalanced transaction: residual %s %s", e.Residual, e.Currency)
}

// InvalidCurrencyError reports a posting in a currency the account does not
// permit.
type InvalidCurrencyError struct {
	Account  string
	Currency string
}

func (e *InvalidCurrencyError) Error() string {
	return fmt.Sprintf("account %q does not permit currency %q", e.Account, e.Currency)
}

// NotFoundError reports an operation addressing an identifier that does not
// exist in the ledger.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no directive with id %q", e.ID)
}

// ConflictError reports an optimistic-concurrency failure: the file changed
// on disk since it was read. The caller should re-read and retry.
type ConflictError struct {
	File string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("file %q changed since it was read", e.File)
}
