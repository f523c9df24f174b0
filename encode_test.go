package beanledger

import (
	"strings"
	"testing"
	"time"
)

func sampleDirectives() []Directive {
	return []Directive{
		Comment{Text: " generated for tests"},
		Include{Path: "accounts.bean"},
		Open{
			Date:       NewDate(2024, time.January, 15),
			Account:    "Assets:Bank:Checking",
			Currencies: []string{"EUR"},
			Metadata:   Metadata{MetaID: "01HV3TEST0000000000000000", "bank": "Crédit Mutuel"},
		},
		Transaction{
			Date:      NewDate(2024, time.January, 20),
			Flag:      "*",
			Payee:     "Grocer",
			Narration: "Weekly shopping",
			Tags:      []string{"food"},
			Links:     []string{"receipt-42"},
			Metadata:  Metadata{MetaID: "01HV3TEST0000000000000001"},
			Postings: []Posting{
				{Account: "Expenses:Food", Amount: amountPtr(A(42.50, "EUR"))},
				{Account: "Assets:Bank:Checking", Amount: amountPtr(A(-42.50, "EUR"))},
			},
		},
		Close{
			Date:     NewDate(2024, time.December, 31),
			Account:  "Assets:Bank:Checking",
			Metadata: Metadata{MetaID: "01HV3TEST0000000000000002"},
		},
		Generic{
			Date:  NewDate(2024, time.June, 1),
			Lines: []string{"2024-06-01 balance Assets:Bank:Checking  100.00 EUR"},
		},
	}
}

func amountPtr(a Amount) *Amount { return &a }

// Whatever Encode writes, Decode must read back as an equal sequence. Every
// committed file depends on this.
func TestEncodeDecodeRoundTrip(t *testing.T) {
	directives := sampleDirectives()
	data, err := EncodeToBytes(directives)
	if err != nil {
		t.Fatalf("Encode returned %v", err)
	}
	decoded, err := Decode("roundtrip.bean", data)
	if err != nil {
		t.Fatalf("Decode of encoded output returned %v:\n%s", err, data)
	}
	if len(decoded) != len(directives) {
		t.Fatalf("got %d directives back, want %d:\n%s", len(decoded), len(directives), data)
	}
	for i := range directives {
		if !directives[i].Equal(decoded[i]) {
			t.Errorf("directive %d changed through the round-trip:\ngave %#v\ngot  %#v", i, directives[i], decoded[i])
		}
	}
}

// Narrations, payees and metadata values are free-form user text: whatever
// characters they carry must come back unchanged after an encode/decode
// cycle.
func TestRoundTripEscapedStrings(t *testing.T) {
	tx := Transaction{
		Date:      NewDate(2024, time.January, 20),
		Payee:     `Quote "Unquote" & Co`,
		Narration: "line1\nline2\twith\ttabs and a \\ backslash",
		Metadata:  Metadata{MetaID: "01HV3TEST0000000000000004", "note": "a\nb \"c\" d\r"},
		Postings: []Posting{
			{Account: "Expenses:Misc", Amount: amountPtr(A(1, "EUR"))},
			{Account: "Assets:Cash", Amount: amountPtr(A(-1, "EUR"))},
		},
	}
	data, err := EncodeToBytes([]Directive{tx})
	if err != nil {
		t.Fatal(err)
	}
	decoded, err := Decode("escapes.bean", data)
	if err != nil {
		t.Fatalf("Decode of encoded output returned %v:\n%s", err, data)
	}
	got := decoded[0].(Transaction)
	if got.Payee != tx.Payee {
		t.Errorf("payee round-trip: gave %q, got %q", tx.Payee, got.Payee)
	}
	if got.Narration != tx.Narration {
		t.Errorf("narration round-trip: gave %q, got %q", tx.Narration, got.Narration)
	}
	if got.Metadata["note"] != tx.Metadata["note"] {
		t.Errorf("metadata round-trip: gave %q, got %q", tx.Metadata["note"], got.Metadata["note"])
	}
}

func TestEncodeIsStable(t *testing.T) {
	directives := sampleDirectives()
	first, err := EncodeToBytes(directives)
	if err != nil {
		t.Fatal(err)
	}
	decoded, err := Decode("stable.bean", first)
	if err != nil {
		t.Fatal(err)
	}
	second, err := EncodeToBytes(decoded)
	if err != nil {
		t.Fatal(err)
	}
	if string(first) != string(second) {
		t.Errorf("encoding is not stable:\nfirst:\n%s\nsecond:\n%s", first, second)
	}
}

func TestEncodeAlignsPostings(t *testing.T) {
	tx := Transaction{
		Date:      NewDate(2024, time.January, 20),
		Narration: "align",
		Postings: []Posting{
			{Account: "Expenses:Food", Amount: amountPtr(A(1, "EUR"))},
			{Account: "Assets:Bank:Checking", Amount: amountPtr(A(-1, "EUR"))},
		},
	}
	data, err := EncodeToBytes([]Directive{tx})
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
	short := lines[1]
	long := lines[2]
	if strings.Index(short, "1 EUR") != strings.Index(long, "-1 EUR") {
		t.Errorf("amounts not aligned:\n%s", data)
	}
	for _, l := range lines {
		if strings.TrimRight(l, " ") != l {
			t.Errorf("trailing spaces in %q", l)
		}
	}
}

func TestEncodeDefaultFlag(t *testing.T) {
	tx := Transaction{
		Date:      NewDate(2024, time.January, 1),
		Narration: "no flag",
		Postings:  []Posting{{Account: "Assets:Cash"}},
	}
	data, err := EncodeToBytes([]Directive{tx})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "2024-01-01 * ") {
		t.Errorf("missing default flag:\n%s", data)
	}
}

func TestEncodeIDFirst(t *testing.T) {
	open := Open{
		Date:     NewDate(2024, time.January, 1),
		Account:  "Assets:Cash",
		Metadata: Metadata{"aaa": "before id alphabetically", MetaID: "01HV3TEST0000000000000003"},
	}
	data, err := EncodeToBytes([]Directive{open})
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(string(data), "\n")
	if !strings.HasPrefix(strings.TrimSpace(lines[1]), "id:") {
		t.Errorf("id is not the first metadata line:\n%s", data)
	}
}
