package utils

import "testing"

func TestTruncateForLog(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		input  string
		limit  int
		expect string
	}{
		{name: "zero limit", input: "Senior Go Engineer", limit: 0, expect: ""},
		{name: "fits", input: "Go Engineer", limit: 20, expect: "Go Engineer"},
		{name: "exact length", input: "Go Engineer", limit: 11, expect: "Go Engineer"},
		{name: "cut", input: "Senior Go Engineer", limit: 6, expect: "Senior..."},
		{name: "whitespace trimmed first", input: "\n  Remote role \t", limit: 6, expect: "Remote..."},
		{name: "counts runes", input: "Développeur Go", limit: 4, expect: "Déve..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := TruncateForLog(tt.input, tt.limit); got != tt.expect {
				t.Fatalf("expected %q, got %q", tt.expect, got)
			}
		})
	}
}
