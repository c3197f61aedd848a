package cmd

import "testing"

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"a", "", 1},
		{"", "b", 1},
		{"kitten", "sitting", 3},
		{"saturday", "sunday", 3},
		{"abc", "abc", 0},
		{"abc", "abd", 1},
	}
	for _, tt := range tests {
		got := levenshtein(tt.a, tt.b)
		if got != tt.want {
			t.Errorf("levenshtein(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestSuggestCommand(t *testing.T) {
	commands := []string{"request", "curl", "batch", "catches", "profile", "auth", "env", "version", "completion"}
	tests := []struct {
		input string
		want  string
	}{
		{"reqest", "request"},
		{"ctaches", "catches"},
		{"batc", "batch"},
		{"profle", "profile"},
		{"verison", "version"},
		{"curll", "curl"},
		{"Request", "request"},
		{"zzzzzzzzz", ""}, // too far, no suggestion
	}
	for _, tt := range tests {
		got := suggestCommand(tt.input, commands)
		if got != tt.want {
			t.Errorf("suggestCommand(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestSuggestFlag(t *testing.T) {
	flags := []string{"--species", "--location", "--method", "--limit", "--caption", "--output"}
	tests := []struct {
		input string
		want  string
	}{
		{"--speces", "--species"},
		{"--locaton", "--location"},
		{"--mehtod", "--method"},
		{"--limt", "--limit"},
		{"--captoin", "--caption"},
		{"--outpt", "--output"},
		{"--zzzzzzz", ""}, // too far
	}
	for _, tt := range tests {
		got := suggestFlag(tt.input, flags)
		if got != tt.want {
			t.Errorf("suggestFlag(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestSuggestFlag_StripsDashes(t *testing.T) {
	flags := []string{"--species", "-s"}
	got := suggestFlag("--specis", flags)
	if got != "--species" {
		t.Errorf("suggestFlag(--specis) = %q, want --species", got)
	}
}
