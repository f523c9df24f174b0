package beanledger

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestDecodeOpen(t *testing.T) {
	src := `2024-01-15 open Assets:Bank:Checking EUR,USD
  id: "01HV3TEST0000000000000000"
  bank: "Crédit Mutuel"
`
	directives, err := Decode("accounts.bean", []byte(src))
	if err != nil {
		t.Fatalf("Decode returned %v", err)
	}
	if len(directives) != 1 {
		t.Fatalf("got %d directives, want 1", len(directives))
	}
	open, ok := directives[0].(Open)
	if !ok {
		t.Fatalf("got %T, want Open", directives[0])
	}
	if open.Account != "Assets:Bank:Checking" {
		t.Errorf("Account = %q", open.Account)
	}
	if open.Date != NewDate(2024, time.January, 15) {
		t.Errorf("Date = %v", open.Date)
	}
	if len(open.Currencies) != 2 || open.Currencies[0] != "EUR" || open.Currencies[1] != "USD" {
		t.Errorf("Currencies = %v", open.Currencies)
	}
	if open.Metadata.ID() != "01HV3TEST0000000000000000" {
		t.Errorf("id = %q", open.Metadata.ID())
	}
	if open.Metadata["bank"] != "Crédit Mutuel" {
		t.Errorf("bank = %q", open.Metadata["bank"])
	}
}

func TestDecodeTransaction(t *testing.T) {
	src := `2024-01-20 * "Grocer" "Weekly shopping" #food #weekly ^receipt-42
  id: "01HV3TEST0000000000000001"
  Expenses:Food           42.50 EUR
  Assets:Bank:Checking
`
	directives, err := Decode("2024-01.bean", []byte(src))
	if err != nil {
		t.Fatalf("Decode returned %v", err)
	}
	tx, ok := directives[0].(Transaction)
	if !ok {
		t.Fatalf("got %T, want Transaction", directives[0])
	}
	if tx.Payee != "Grocer" || tx.Narration != "Weekly shopping" {
		t.Errorf("header = %q %q", tx.Payee, tx.Narration)
	}
	if len(tx.Tags) != 2 || tx.Tags[0] != "food" || tx.Tags[1] != "weekly" {
		t.Errorf("Tags = %v", tx.Tags)
	}
	if len(tx.Links) != 1 || tx.Links[0] != "receipt-42" {
		t.Errorf("Links = %v", tx.Links)
	}
	if len(tx.Postings) != 2 {
		t.Fatalf("got %d postings, want 2", len(tx.Postings))
	}
	if tx.Postings[0].Amount == nil || !tx.Postings[0].Amount.Equal(A(42.50, "EUR")) {
		t.Errorf("posting 0 amount = %v", tx.Postings[0].Amount)
	}
	if tx.Postings[1].Amount != nil {
		t.Errorf("posting 1 amount should be elided, got %v", tx.Postings[1].Amount)
	}
}

func TestDecodeNarrationOnly(t *testing.T) {
	src := `2024-02-01 ! "Pending stuff"
  Expenses:Misc  1.00 EUR
  Assets:Cash   -1.00 EUR
`
	directives, err := Decode("2024-02.bean", []byte(src))
	if err != nil {
		t.Fatalf("Decode returned %v", err)
	}
	tx := directives[0].(Transaction)
	if tx.Flag != "!" {
		t.Errorf("Flag = %q", tx.Flag)
	}
	if tx.Payee != "" || tx.Narration != "Pending stuff" {
		t.Errorf("header = %q %q", tx.Payee, tx.Narration)
	}
}

func TestDecodeCostAndPrice(t *testing.T) {
	src := `2024-03-10 * "Broker" "Buy shares"
  Assets:Broker:Shares   5 GOOG {140.00 USD} @ 141.00 USD
  Assets:Broker:Cash  -700.00 USD
`
	directives, err := Decode("2024-03.bean", []byte(src))
	if err != nil {
		t.Fatalf("Decode returned %v", err)
	}
	tx := directives[0].(Transaction)
	p := tx.Postings[0]
	if p.Cost != "140.00 USD" {
		t.Errorf("Cost = %q", p.Cost)
	}
	if p.Price != "@ 141.00 USD" {
		t.Errorf("Price = %q", p.Price)
	}
	if p.Amount == nil || !p.Amount.Equal(A(5, "GOOG")) {
		t.Errorf("Amount = %v", p.Amount)
	}
}

func TestDecodePreservesUnknownDirectives(t *testing.T) {
	src := `option "title" "My ledger"

2024-01-01 balance Assets:Bank:Checking  100.00 EUR

2024-01-02 price GOOG 140.00 USD
`
	directives, err := Decode("main.bean", []byte(src))
	if err != nil {
		t.Fatalf("Decode returned %v", err)
	}
	if len(directives) != 3 {
		t.Fatalf("got %d directives, want 3", len(directives))
	}
	for i, d := range directives {
		if _, ok := d.(Generic); !ok {
			t.Errorf("directive %d is %T, want Generic", i, d)
		}
	}
	g := directives[1].(Generic)
	if g.Date != NewDate(2024, time.January, 1) {
		t.Errorf("balance date = %v", g.Date)
	}
	if len(g.Lines) != 1 || !strings.Contains(g.Lines[0], "balance") {
		t.Errorf("Lines = %q", g.Lines)
	}
}

func TestDecodeIncludeAndComments(t *testing.T) {
	src := `; the root file
include "accounts.bean"
include "2024-01.bean"
`
	directives, err := Decode("main.bean", []byte(src))
	if err != nil {
		t.Fatalf("Decode returned %v", err)
	}
	if len(directives) != 3 {
		t.Fatalf("got %d directives, want 3", len(directives))
	}
	if c, ok := directives[0].(Comment); !ok || c.Text != " the root file" {
		t.Errorf("directive 0 = %#v", directives[0])
	}
	if inc, ok := directives[1].(Include); !ok || inc.Path != "accounts.bean" {
		t.Errorf("directive 1 = %#v", directives[1])
	}
}

func TestDecodeErrors(t *testing.T) {
	cases := []struct {
		name string
		src  string
		line int
	}{
		{"bad date", "2024-13-45 open Assets:Cash\n", 1},
		{"no postings", "2024-01-01 * \"empty\"\n", 1},
		{"bad account", "2024-01-01 open lowercase:name\n", 1},
		{"unterminated string", "2024-01-01 * \"oops\n", 1},
		{"stray indent", "  floating line\n", 1},
		{"bad amount", "2024-01-01 * \"x\"\n  Assets:Cash  abc EUR\n", 2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Decode("test.bean", []byte(tc.src))
			if err == nil {
				t.Fatal("Decode accepted malformed input")
			}
			var pe *ParseError
			if !errors.As(err, &pe) {
				t.Fatalf("got %T, want *ParseError", err)
			}
			if pe.Line != tc.line {
				t.Errorf("Line = %d, want %d", pe.Line, tc.line)
			}
			if pe.File != "test.bean" {
				t.Errorf("File = %q", pe.File)
			}
		})
	}
}

func TestDecodeWithLines(t *testing.T) {
	src := `include "accounts.bean"

2024-01-20 * "two line" "tx"
  Expenses:Food  1.00 EUR
  Assets:Cash   -1.00 EUR

; trailing comment
`
	directives, starts, err := decodeWithLines("main.bean", []byte(src))
	if err != nil {
		t.Fatalf("decodeWithLines returned %v", err)
	}
	if len(directives) != len(starts) {
		t.Fatalf("%d directives but %d line marks", len(directives), len(starts))
	}
	want := []int{1, 3, 7}
	for i, w := range want {
		if starts[i] != w {
			t.Errorf("starts[%d] = %d, want %d", i, starts[i], w)
		}
	}
}

func TestDecodeCRLF(t *testing.T) {
	src := "2024-01-01 open Assets:Cash\r\n"
	directives, err := Decode("accounts.bean", []byte(src))
	if err != nil {
		t.Fatalf("Decode returned %v", err)
	}
	if _, ok := directives[0].(Open); !ok {
		t.Fatalf("got %T, want Open", directives[0])
	}
}
