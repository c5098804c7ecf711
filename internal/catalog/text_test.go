package catalog

import (
	"strings"
	"testing"

	"pgregory.net/rapid"
)

func TestPlainText(t *testing.T) {
	t.Parallel()
	cases := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"Plain copy.", "Plain copy."},
		{"Most adults are *low* in vitamin D.", "Most adults are low in vitamin D."},
		{"A **comprehensive** look", "A comprehensive look"},
		{"First paragraph.\n\nSecond paragraph.", "First paragraph. Second paragraph."},
		{"Line with <b>inline</b> html", "Line with inline html"},
		{"Cholesterol, HDL and LDL: the \"core\" numbers - fast", "Cholesterol, HDL and LDL: the \"core\" numbers - fast"},
		{"Fish & chips", "Fish & chips"},
		{"- one\n- two", "one two"},
	}
	for _, tc := range cases {
		if got := PlainText(tc.in); got != tc.want {
			t.Fatalf("PlainText(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestCollapseSpace(t *testing.T) {
	t.Parallel()
	if got := CollapseSpace("  a \n\t b   c "); got != "a b c" {
		t.Fatalf("CollapseSpace = %q", got)
	}
}

// Plain words survive rendering unchanged apart from whitespace.
func testPlainText_PreservesPlainWords(t *rapid.T) {
	words := rapid.SliceOfN(rapid.StringMatching(`[A-Za-z0-9]{1,12}`), 1, 20).Draw(t, "words")
	in := strings.Join(words, " ")
	if got := PlainText(in); got != in {
		t.Fatalf("PlainText(%q) = %q", in, got)
	}
}

func TestPlainText_PreservesPlainWords(t *testing.T) {
	t.Parallel()
	rapid.Check(t, testPlainText_PreservesPlainWords)
}
