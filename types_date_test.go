package beanledger

import (
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-03-15")
	if err != nil {
		t.Fatalf("ParseDate returned %v", err)
	}
	if d.Year() != 2024 || d.Month() != time.March || d.Day() != 15 {
		t.Errorf("got %v, want 2024-03-15", d)
	}

	for _, bad := range []string{"", "2024-3-15", "15/03/2024", "2024-03-15T00:00:00", "not a date"} {
		if _, err := ParseDate(bad); err == nil {
			t.Errorf("ParseDate(%q) accepted invalid input", bad)
		}
	}
}

func TestDateMonthKey(t *testing.T) {
	d := NewDate(2024, time.January, 5)
	if got := d.MonthKey(); got != "2024-01" {
		t.Errorf("MonthKey() = %q, want %q", got, "2024-01")
	}
	if got := MonthlyFileName(d); got != "2024-01.bean" {
		t.Errorf("MonthlyFileName() = %q, want %q", got, "2024-01.bean")
	}
}

func TestDateOrdering(t *testing.T) {
	a := NewDate(2024, time.January, 31)
	b := NewDate(2024, time.February, 1)
	if !a.Before(b) || b.Before(a) {
		t.Errorf("ordering broken between %v and %v", a, b)
	}
	if !b.After(a) {
		t.Errorf("After broken between %v and %v", b, a)
	}
	if a.Add(1) != b {
		t.Errorf("%v.Add(1) = %v, want %v", a, a.Add(1), b)
	}
}

func TestDateIsZero(t *testing.T) {
	var zero Date
	if !zero.IsZero() {
		t.Error("zero Date is not IsZero")
	}
	if Today().IsZero() {
		t.Error("Today() is IsZero")
	}
}
