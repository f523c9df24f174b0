package beanledger

import (
	"regexp"
	"slices"
)

// Metadata is the set of key/value annotations attached to a directive or a
// posting. The engine reserves the MetaID key for directive addressing.
type Metadata map[string]string

// Clone returns a copy of the metadata, never nil.
func (m Metadata) Clone() Metadata {
	c := make(Metadata, len(m)+1)
	for k, v := range m {
		c[k] = v
	}
	return c
}

// ID returns the stable identifier carried by this metadata, or "".
func (m Metadata) ID() string { return m[MetaID] }

// Directive is a top-level declaration in a ledger file.
type Directive interface {
	// When returns the directive's date; a zero Date for undated directives
	// (includes, comments).
	When() Date
	// Meta returns the directive's metadata; nil when it carries none.
	Meta() Metadata
	// Equal reports semantic equality, used by the round-trip tests.
	Equal(Directive) bool
}

// Open declares an account, its opening date and its permitted currencies.
type Open struct {
	Date       Date
	Account    string
	Currencies []string
	Metadata   Metadata
}

func (d Open) When() Date     { return d.Date }
func (d Open) Meta() Metadata { return d.Metadata }
func (d Open) Equal(other Directive) bool {
	o, ok := other.(Open)
	return ok && d.Date == o.Date && d.Account == o.Account &&
		slices.Equal(d.Currencies, o.Currencies) && equalMeta(d.Metadata, o.Metadata)
}

// Close declares the date after which an account no longer accepts postings.
type Close struct {
	Date     Date
	Account  string
	Metadata Metadata
}

func (d Close) When() Date     { return d.Date }
func (d Close) Meta() Metadata { return d.Metadata }
func (d Close) Equal(other Directive) bool {
	o, ok := other.(Close)
	return ok && d.Date == o.Date && d.Account == o.Account && equalMeta(d.Metadata, o.Metadata)
}

// Posting is one leg of a transaction. A nil Amount means the amount is
// elided and inferred as the balancing remainder. Cost and Price carry the
// textual annotation verbatim; the engine routes them but does not evaluate
// them.
type Posting struct {
	Account  string
	Amount   *Amount
	Cost     string // content of the {...} annotation, without braces
	Price    string // everything after "@", e.g. "@ 1.08 USD" or "@@ 540.00 USD"
	Metadata Metadata
}

func (p Posting) equal(o Posting) bool {
	if p.Account != o.Account || p.Cost != o.Cost || p.Price != o.Price || !equalMeta(p.Metadata, o.Metadata) {
		return false
	}
	if (p.Amount == nil) != (o.Amount == nil) {
		return false
	}
	return p.Amount == nil || p.Amount.Equal(*o.Amount)
}

// Transaction is a dated set of postings that must balance to zero per
// currency. Posting order is meaningful and preserved.
type Transaction struct {
	Date      Date
	Flag      string // one character, "*" cleared or "!" pending
	Payee     string
	Narration string
	Tags      []string
	Links     []string
	Postings  []Posting
	Metadata  Metadata
}

func (d Transaction) When() Date     { return d.Date }
func (d Transaction) Meta() Metadata { return d.Metadata }
func (d Transaction) Equal(other Directive) bool {
	o, ok := other.(Transaction)
	if !ok || d.Date != o.Date || d.Flag != o.Flag || d.Payee != o.Payee ||
		d.Narration != o.Narration || !slices.Equal(d.Tags, o.Tags) ||
		!slices.Equal(d.Links, o.Links) || !equalMeta(d.Metadata, o.Metadata) ||
		len(d.Postings) != len(o.Postings) {
		return false
	}
	for i := range d.Postings {
		if !d.Postings[i].equal(o.Postings[i]) {
			return false
		}
	}
	return true
}

// ID returns the transaction's stable identifier, or "".
func (d Transaction) ID() string { return d.Metadata.ID() }

// Include references another ledger file, forming the file graph rooted at
// the main file.
type Include struct {
	Path string
}

func (d Include) When() Date     { return Date{} }
func (d Include) Meta() Metadata { return nil }
func (d Include) Equal(other Directive) bool {
	o, ok := other.(Include)
	return ok && d.Path == o.Path
}

// Comment is a full-line ";" comment, preserved through round-trips.
type Comment struct {
	Text string // without the leading ";"
}

func (d Comment) When() Date     { return Date{} }
func (d Comment) Meta() Metadata { return nil }
func (d Comment) Equal(other Directive) bool {
	o, ok := other.(Comment)
	return ok && d.Text == o.Text
}

// Generic is a dated directive of a type the engine does not model (balance,
// price, note, pad, event, ...). Its text is preserved verbatim so the engine
// never destroys content it does not understand.
type Generic struct {
	Date  Date
	Lines []string // original lines, including the header line
}

func (d Generic) When() Date     { return d.Date }
func (d Generic) Meta() Metadata { return nil }
func (d Generic) Equal(other Directive) bool {
	o, ok := other.(Generic)
	return ok && d.Date == o.Date && slices.Equal(d.Lines, o.Lines)
}

func equalMeta(a, b Metadata) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if b[k] != v {
			return false
		}
	}
	return true
}

// Account is the engine's view of an account assembled from its open and
// close directives. A zero Closed date means the account is still open.
type Account struct {
	ID         string
	Name       string
	Opened     Date
	Closed     Date
	Currencies []string
	Metadata   Metadata
}

// IsOpen reports whether the account accepts postings on the given date.
func (a Account) IsOpen(on Date) bool {
	if on.Before(a.Opened) {
		return false
	}
	return a.Closed.IsZero() || !on.After(a.Closed)
}

var accountNameRE = regexp.MustCompile(`^[A-Z0-9][A-Za-z0-9-]*(?:[:.][A-Za-z0-9][A-Za-z0-9-]*)+$`)

// ValidAccountName reports whether the name is a hierarchical account name:
// at least two segments separated by ":" or ".", case-sensitive. The leading
// capital is what tells a posting line apart from a metadata line.
func ValidAccountName(name string) bool { return accountNameRE.MatchString(name) }
