package core

import (
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "lowercase",
			in:   "QUILPUE",
			want: "quilpue",
		},
		{
			name: "accents stripped",
			in:   "Valparaíso",
			want: "valparaiso",
		},
		{
			name: "enie folded",
			in:   "Peñalolén",
			want: "penalolen",
		},
		{
			name: "whitespace collapsed",
			in:   "  viña   del  mar ",
			want: "vina del mar",
		},
		{
			name: "punctuation removed",
			in:   "¿Hay farmacias en La Florida?",
			want: "hay farmacias en la florida",
		},
		{
			name: "in-word hyphen kept",
			in:   "Alto Bio-Bio",
			want: "alto bio-bio",
		},
		{
			name: "dangling hyphen dropped",
			in:   "florida -",
			want: "florida",
		},
		{
			name: "empty input",
			in:   "",
			want: "",
		},
		{
			name: "punctuation only",
			in:   "¿?!...",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.in)
			if got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{
		"Quilpué",
		"¿Hay farmacias en la flórida?",
		"VIÑA DEL MAR",
		"alto bio-bio",
		"  spaced   out  ",
		"",
	}

	for _, in := range inputs {
		once := Normalize(in)
		twice := Normalize(once)
		if once != twice {
			t.Errorf("Normalize not idempotent for %q: %q != %q", in, once, twice)
		}
	}
}

func TestNormalize_SameKeyForSpellings(t *testing.T) {
	// Differently cased/accented spellings of the same locality must produce
	// the same lookup key.
	variants := []string{"Valparaíso", "valparaiso", "VALPARAISO", "valparaíso"}
	want := "valparaiso"
	for _, v := range variants {
		if got := Normalize(v); got != want {
			t.Errorf("Normalize(%q) = %q, want %q", v, got, want)
		}
	}
}
