package fcc

import (
	"strings"
	"testing"
)

func TestVariantMaxIndex(t *testing.T) {
	if got := FMVariant.MaxIndex(); got != 26 {
		t.Errorf("FMVariant.MaxIndex() = %d, want 26", got)
	}
	if got := AMVariant.MaxIndex(); got != 26 {
		t.Errorf("AMVariant.MaxIndex() = %d, want 26", got)
	}
}

func TestExtractTrimsFields(t *testing.T) {
	line := "|  KQED  |88.5  MHz|FM|" + strings.Repeat("|", 24)
	slots := strings.Split(line, "|")

	fields := FMVariant.Extract(slots)
	if fields[FieldCallSign] != "KQED" {
		t.Errorf("call_sign = %q, want %q", fields[FieldCallSign], "KQED")
	}
	if fields[FieldFrequency] != "88.5  MHz" {
		t.Errorf("frequency = %q, want %q", fields[FieldFrequency], "88.5  MHz")
	}
}

func TestExtractShortLineYieldsEmptyFields(t *testing.T) {
	// Only 5 slots: everything beyond the end must come back empty,
	// never panic or error.
	slots := strings.Split("|WXYZ|100.1  MHz|FM|X", "|")

	fields := FMVariant.Extract(slots)
	if fields[FieldCallSign] != "WXYZ" {
		t.Errorf("call_sign = %q, want %q", fields[FieldCallSign], "WXYZ")
	}
	for _, name := range []Field{FieldCity, FieldState, FieldPower, FieldLonSec} {
		if fields[name] != "" {
			t.Errorf("%s = %q, want empty for out-of-bounds column", name, fields[name])
		}
	}
}

func TestExtractIsPure(t *testing.T) {
	slots := strings.Split("|KQED|88.5  MHz|FM"+strings.Repeat("|x", 24), "|")

	first := FMVariant.Extract(slots)
	second := FMVariant.Extract(slots)
	for name, v := range first {
		if second[name] != v {
			t.Errorf("%s changed between extractions: %q vs %q", name, v, second[name])
		}
	}
}
