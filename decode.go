package beanledger

import (
	"fmt"
	"strconv"
	"strings"
)

// Decode parses ledger text into its ordered directive sequence. It fails
// fast with a *ParseError carrying the file, line and column of the first
// malformed construct. Directive types the engine does not model are
// preserved verbatim as Generic directives.
func Decode(filename string, data []byte) ([]Directive, error) {
	directives, _, err := decodeWithLines(filename, data)
	return directives, err
}

// decodeWithLines also returns, for each directive, the 1-based line its
// header starts on. The Verifier uses it to point diagnostics at the file.
func decodeWithLines(filename string, data []byte) ([]Directive, []int, error) {
	p := &parser{file: filename, lines: splitLines(string(data))}
	directives, err := p.parse()
	return directives, p.starts, err
}

type parser struct {
	file   string
	lines  []string
	pos    int   // index of the next line to consume
	starts []int // 1-based start line of each parsed directive
}

func splitLines(s string) []string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	if s == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(s, "\n"), "\n")
}

func (p *parser) errf(line, col int, format string, args ...any) error {
	return &ParseError{File: p.file, Line: line, Column: col, Message: fmt.Sprintf(format, args...)}
}

func (p *parser) parse() ([]Directive, error) {
	var directives []Directive
	for p.pos < len(p.lines) {
		line := p.lines[p.pos]
		lineno := p.pos + 1
		trimmed := strings.TrimSpace(line)

		switch {
		case trimmed == "":
			p.pos++
		case strings.HasPrefix(trimmed, ";"):
			p.pos++
			p.starts = append(p.starts, lineno)
			directives = append(directives, Comment{Text: strings.TrimPrefix(trimmed, ";")})
		case line[0] == ' ' || line[0] == '\t':
			return nil, p.errf(lineno, 1, "unexpected indented line outside a directive")
		case strings.HasPrefix(line, "include"):
			d, err := p.parseInclude(line, lineno)
			if err != nil {
				return nil, err
			}
			p.pos++
			p.starts = append(p.starts, lineno)
			directives = append(directives, d)
		case isDateStart(line):
			d, err := p.parseDated()
			if err != nil {
				return nil, err
			}
			p.starts = append(p.starts, lineno)
			directives = append(directives, d)
		default:
			// Undated top-level directives (option, plugin, ...) are kept opaque.
			p.starts = append(p.starts, lineno)
			directives = append(directives, Generic{Lines: p.consumeBlock()})
		}
	}
	return directives, nil
}

// consumeBlock takes the current line and every following indented or blank
// continuation line, verbatim. Trailing blank lines are not part of the block.
func (p *parser) consumeBlock() []string {
	block := []string{p.lines[p.pos]}
	p.pos++
	for p.pos < len(p.lines) {
		line := p.lines[p.pos]
		if line == "" || line[0] == ' ' || line[0] == '\t' {
			if strings.TrimSpace(line) == "" {
				break
			}
			block = append(block, line)
			p.pos++
			continue
		}
		break
	}
	return block
}

func isDateStart(line string) bool {
	if len(line) < 11 {
		return false
	}
	for i, r := range line[:10] {
		if i == 4 || i == 7 {
			if r != '-' {
				return false
			}
		} else if r < '0' || r > '9' {
			return false
		}
	}
	return line[10] == ' ' || line[10] == '\t'
}

func (p *parser) parseInclude(line string, lineno int) (Directive, error) {
	rest := strings.TrimSpace(strings.TrimPrefix(line, "include"))
	path, ok := unquote(rest)
	if !ok {
		return nil, p.errf(lineno, len("include")+1, "include wants a quoted path, got %q", rest)
	}
	return Include{Path: path}, nil
}

func (p *parser) parseDated() (Directive, error) {
	line := p.lines[p.pos]
	lineno := p.pos + 1

	date, err := ParseDate(line[:10])
	if err != nil {
		return nil, p.errf(lineno, 1, "invalid date %q", line[:10])
	}
	rest := strings.TrimSpace(line[10:])
	keyword, tail := cutToken(rest)

	switch keyword {
	case "open":
		return p.parseOpen(date, tail, lineno)
	case "close":
		return p.parseClose(date, tail, lineno)
	case "txn", "*", "!":
		flag := keyword
		if flag == "txn" {
			flag = "*"
		}
		return p.parseTransaction(date, flag, tail, lineno)
	default:
		if len(keyword) == 1 && !isLetter(rune(keyword[0])) {
			// Any other single punctuation character is a transaction flag.
			return p.parseTransaction(date, keyword, tail, lineno)
		}
		// balance, price, note, pad, event... kept opaque.
		return Generic{Date: date, Lines: p.consumeBlock()}, nil
	}
}

func (p *parser) parseOpen(date Date, tail string, lineno int) (Directive, error) {
	account, rest := cutToken(tail)
	if account == "" {
		return nil, p.errf(lineno, 12, "open wants an account name")
	}
	if !ValidAccountName(account) {
		return nil, p.errf(lineno, strings.Index(p.lines[p.pos], account)+1, "invalid account name %q", account)
	}
	var currencies []string
	if rest != "" {
		for _, c := range strings.Split(rest, ",") {
			c = strings.TrimSpace(c)
			if err := ValidateCurrency(c); err != nil {
				return nil, p.errf(lineno, strings.Index(p.lines[p.pos], c)+1, "open %s: %v", account, err)
			}
			currencies = append(currencies, c)
		}
	}
	p.pos++
	meta, err := p.parseMeta(nil)
	if err != nil {
		return nil, err
	}
	return Open{Date: date, Account: account, Currencies: currencies, Metadata: meta}, nil
}

func (p *parser) parseClose(date Date, tail string, lineno int) (Directive, error) {
	account, rest := cutToken(tail)
	if account == "" || rest != "" {
		return nil, p.errf(lineno, 12, "close wants exactly an account name, got %q", tail)
	}
	if !ValidAccountName(account) {
		return nil, p.errf(lineno, strings.Index(p.lines[p.pos], account)+1, "invalid account name %q", account)
	}
	p.pos++
	meta, err := p.parseMeta(nil)
	if err != nil {
		return nil, err
	}
	return Close{Date: date, Account: account, Metadata: meta}, nil
}

// parseMeta consumes indented "key: value" lines. It stops at the first
// indented line that is not metadata (without consuming it) so the caller can
// carry on with postings.
func (p *parser) parseMeta(meta Metadata) (Metadata, error) {
	for p.pos < len(p.lines) {
		line := p.lines[p.pos]
		if line == "" || (line[0] != ' ' && line[0] != '\t') {
			return meta, nil
		}
		key, value, ok := metaLine(line)
		if !ok {
			return meta, nil
		}
		if meta == nil {
			meta = make(Metadata)
		}
		if _, dup := meta[key]; dup {
			return nil, p.errf(p.pos+1, 1, "duplicate metadata key %q", key)
		}
		meta[key] = value
		p.pos++
	}
	return meta, nil
}

// metaLine recognizes `  key: "value"`. Metadata keys start with a lowercase
// letter, which is what tells them apart from posting account names.
func metaLine(line string) (key, value string, ok bool) {
	trimmed := strings.TrimSpace(line)
	k, v, found := strings.Cut(trimmed, ":")
	if !found || k == "" || k[0] < 'a' || k[0] > 'z' {
		return "", "", false
	}
	for _, r := range k {
		if !isLetter(r) && !isDigit(r) && r != '_' && r != '-' {
			return "", "", false
		}
	}
	v = strings.TrimSpace(v)
	if unquoted, wasQuoted := unquote(v); wasQuoted {
		v = unquoted
	}
	return k, v, true
}

func (p *parser) parseTransaction(date Date, flag, tail string, lineno int) (Directive, error) {
	tx := Transaction{Date: date, Flag: flag}

	// Header strings: one quoted string is the narration, two are payee then
	// narration. Tags and links follow.
	rest := tail
	var strs []string
	for {
		rest = strings.TrimSpace(rest)
		if rest == "" {
			break
		}
		switch rest[0] {
		case '"':
			s, remainder, err := cutQuoted(rest)
			if err != nil {
				return nil, p.errf(lineno, len(p.lines[p.pos])-len(rest)+1, "%v", err)
			}
			if len(strs) == 2 {
				return nil, p.errf(lineno, len(p.lines[p.pos])-len(rest)+1, "too many strings in transaction header")
			}
			strs = append(strs, s)
			rest = remainder
		case '#':
			tag, remainder := cutToken(rest)
			tx.Tags = append(tx.Tags, strings.TrimPrefix(tag, "#"))
			rest = remainder
		case '^':
			link, remainder := cutToken(rest)
			tx.Links = append(tx.Links, strings.TrimPrefix(link, "^"))
			rest = remainder
		case ';':
			rest = "" // trailing comment, normalized away
		default:
			return nil, p.errf(lineno, len(p.lines[p.pos])-len(rest)+1, "unexpected token %q in transaction header", firstToken(rest))
		}
	}
	switch len(strs) {
	case 1:
		tx.Narration = strs[0]
	case 2:
		tx.Payee, tx.Narration = strs[0], strs[1]
	}

	p.pos++
	meta, err := p.parseMeta(nil)
	if err != nil {
		return nil, err
	}
	tx.Metadata = meta

	// Postings, each optionally followed by its own metadata.
	for p.pos < len(p.lines) {
		line := p.lines[p.pos]
		if line == "" || (line[0] != ' ' && line[0] != '\t') {
			break
		}
		if strings.HasPrefix(strings.TrimSpace(line), ";") {
			p.pos++ // comments inside a transaction are normalized away
			continue
		}
		posting, err := p.parsePosting(line, p.pos+1)
		if err != nil {
			return nil, err
		}
		p.pos++
		posting.Metadata, err = p.parseMeta(nil)
		if err != nil {
			return nil, err
		}
		tx.Postings = append(tx.Postings, *posting)
	}

	if len(tx.Postings) == 0 {
		return nil, p.errf(lineno, 1, "transaction on %s has no postings", date)
	}
	return tx, nil
}

func (p *parser) parsePosting(line string, lineno int) (*Posting, error) {
	trimmed := strings.TrimSpace(line)
	if i := strings.Index(trimmed, " ;"); i >= 0 {
		trimmed = strings.TrimSpace(trimmed[:i])
	}

	account, rest := cutToken(trimmed)
	if !ValidAccountName(account) {
		return nil, p.errf(lineno, strings.Index(line, account)+1, "invalid account name %q in posting", account)
	}
	posting := &Posting{Account: account}
	if rest == "" {
		return posting, nil // elided amount
	}

	// Cost and price annotations are routed verbatim, not evaluated.
	if i := strings.Index(rest, "@"); i >= 0 {
		posting.Price = strings.TrimSpace(rest[i:])
		rest = strings.TrimSpace(rest[:i])
	}
	if i := strings.Index(rest, "{"); i >= 0 {
		j := strings.Index(rest, "}")
		if j < i {
			return nil, p.errf(lineno, strings.Index(line, "{")+1, "unclosed cost annotation")
		}
		posting.Cost = strings.TrimSpace(rest[i+1 : j])
		rest = strings.TrimSpace(rest[:i] + rest[j+1:])
	}

	number, currency := cutToken(rest)
	currency = strings.TrimSpace(currency)
	if number == "" || currency == "" || strings.ContainsAny(currency, " \t") {
		return nil, p.errf(lineno, strings.Index(line, rest)+1, "posting wants %q, got %q", "Account NUMBER CURRENCY", trimmed)
	}
	amount, err := ParseAmount(strings.ReplaceAll(number, ",", ""), currency)
	if err != nil {
		return nil, p.errf(lineno, strings.Index(line, number)+1, "%v", err)
	}
	if err := ValidateCurrency(currency); err != nil {
		return nil, p.errf(lineno, strings.Index(line, currency)+1, "%v", err)
	}
	posting.Amount = &amount
	return posting, nil
}

// small token helpers

func cutToken(s string) (token, rest string) {
	s = strings.TrimSpace(s)
	if i := strings.IndexAny(s, " \t"); i >= 0 {
		return s[:i], strings.TrimSpace(s[i:])
	}
	return s, ""
}

func firstToken(s string) string {
	t, _ := cutToken(s)
	return t
}

// cutQuoted reads a leading double-quoted string. Escapes are Go string
// syntax, the exact inverse of the %q the encoder writes, so content like
// newlines and tabs survives a round-trip.
func cutQuoted(s string) (value, rest string, err error) {
	if s == "" || s[0] != '"' {
		return "", s, fmt.Errorf("expected a quoted string")
	}
	for i := 1; i < len(s); i++ {
		switch s[i] {
		case '\\':
			if i+1 >= len(s) {
				return "", s, fmt.Errorf("dangling escape in string")
			}
			i++
		case '"':
			value, err := strconv.Unquote(s[:i+1])
			if err != nil {
				return "", s, fmt.Errorf("invalid string %s: %w", s[:i+1], err)
			}
			return value, s[i+1:], nil
		}
	}
	return "", s, fmt.Errorf("unterminated string")
}

func unquote(s string) (string, bool) {
	v, rest, err := cutQuoted(s)
	if err != nil || strings.TrimSpace(rest) != "" {
		return s, false
	}
	return v, true
}

func isLetter(r rune) bool { return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') }
func isDigit(r rune) bool  { return r >= '0' && r <= '9' }
