package beanledger

import (
	"fmt"
	"io"
	"slices"
	"strings"
)

// Encode writes the directive sequence as ledger text. The output is
// canonical (normalized whitespace, metadata keys sorted with the id first)
// and is guaranteed to Decode back to an equal directive sequence; the
// round-trip law is what keeps every committed write re-parseable.
func Encode(w io.Writer, directives []Directive) error {
	for i, d := range directives {
		if i > 0 {
			if _, err := io.WriteString(w, "\n"); err != nil {
				return err
			}
		}
		if err := EncodeDirective(w, d); err != nil {
			return err
		}
	}
	return nil
}

// EncodeDirective writes a single directive, terminated by a newline.
func EncodeDirective(w io.Writer, d Directive) error {
	var b strings.Builder
	switch v := d.(type) {
	case Open:
		b.WriteString(v.Date.String())
		b.WriteString(" open ")
		b.WriteString(v.Account)
		if len(v.Currencies) > 0 {
			b.WriteString(" ")
			b.WriteString(strings.Join(v.Currencies, ","))
		}
		b.WriteString("\n")
		writeMeta(&b, v.Metadata, "  ")
	case Close:
		b.WriteString(v.Date.String())
		b.WriteString(" close ")
		b.WriteString(v.Account)
		b.WriteString("\n")
		writeMeta(&b, v.Metadata, "  ")
	case Transaction:
		writeTransaction(&b, v)
	case Include:
		fmt.Fprintf(&b, "include %q\n", v.Path)
	case Comment:
		b.WriteString(";")
		b.WriteString(v.Text)
		b.WriteString("\n")
	case Generic:
		for _, line := range v.Lines {
			b.WriteString(line)
			b.WriteString("\n")
		}
	default:
		return fmt.Errorf("cannot encode directive of type %T", d)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func writeTransaction(b *strings.Builder, tx Transaction) {
	b.WriteString(tx.Date.String())
	b.WriteString(" ")
	if tx.Flag == "" {
		b.WriteString("*")
	} else {
		b.WriteString(tx.Flag)
	}
	if tx.Payee != "" {
		fmt.Fprintf(b, " %q", tx.Payee)
	}
	fmt.Fprintf(b, " %q", tx.Narration)
	for _, tag := range tx.Tags {
		b.WriteString(" #")
		b.WriteString(tag)
	}
	for _, link := range tx.Links {
		b.WriteString(" ^")
		b.WriteString(link)
	}
	b.WriteString("\n")
	writeMeta(b, tx.Metadata, "  ")

	width := 0
	for _, p := range tx.Postings {
		if len(p.Account) > width {
			width = len(p.Account)
		}
	}
	for _, p := range tx.Postings {
		line := fmt.Sprintf("  %-*s", width, p.Account)
		if p.Amount != nil {
			line += fmt.Sprintf("  %s", p.Amount)
		}
		if p.Cost != "" {
			line += fmt.Sprintf(" {%s}", p.Cost)
		}
		if p.Price != "" {
			line += " " + p.Price
		}
		b.WriteString(strings.TrimRight(line, " "))
		b.WriteString("\n")
		writeMeta(b, p.Metadata, "    ")
	}
}

// writeMeta writes metadata lines sorted by key, with the directive id first
// so it stays prominent for external editors.
func writeMeta(b *strings.Builder, meta Metadata, indent string) {
	if len(meta) == 0 {
		return
	}
	keys := make([]string, 0, len(meta))
	for k := range meta {
		if k != MetaID {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	if id, ok := meta[MetaID]; ok {
		fmt.Fprintf(b, "%s%s: %q\n", indent, MetaID, id)
	}
	for _, k := range keys {
		fmt.Fprintf(b, "%s%s: %q\n", indent, k, meta[k])
	}
}

// EncodeToBytes renders the directives to a byte slice.
func EncodeToBytes(directives []Directive) ([]byte, error) {
	var b strings.Builder
	if err := Encode(&b, directives); err != nil {
		return nil, err
	}
	return []byte(b.String()), nil
}
