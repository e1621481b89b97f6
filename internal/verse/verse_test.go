package verse

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestID(t *testing.T) {
	t.Run("equal verses share an id", func(t *testing.T) {
		a := Verse{Text: "A", Reference: "Gen 1:1"}
		b := Verse{Text: "A", Reference: "Gen 1:1"}
		if a.ID() != b.ID() {
			t.Error("Expected identical verses to have the same id")
		}
	})

	t.Run("fields are not ambiguous", func(t *testing.T) {
		a := Verse{Text: "a\nb", Reference: "c"}
		b := Verse{Text: "a", Reference: "b\nc"}
		if a.ID() == b.ID() {
			t.Error("Expected different field splits to produce different ids")
		}
	})

	t.Run("affirmation flag is part of identity", func(t *testing.T) {
		a := Verse{Text: "A", Reference: "R"}
		b := Verse{Text: "A", Reference: "R", IsAffirmation: true}
		if a.ID() == b.ID() {
			t.Error("Expected affirmation flag to change the id")
		}
	})
}

func TestParseReference(t *testing.T) {
	testCases := []struct {
		input string
		want  Reference
		ok    bool
	}{
		{"Genesis 1:1", Reference{Book: "Genesis", Chapter: 1, Verse: 1}, true},
		{"1 John 3:16", Reference{Book: "1 John", Chapter: 3, Verse: 16}, true},
		{"Psalms 23", Reference{Book: "Psalms", Chapter: 23}, true},
		{"Song of Solomon 2:1", Reference{Book: "Song of Solomon", Chapter: 2, Verse: 1}, true},
		{"Morning", Reference{}, false},
		{"Genesis one", Reference{}, false},
		{"", Reference{}, false},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			got, ok := ParseReference(tc.input)
			if ok != tc.ok {
				t.Fatalf("Expected ok=%v, but got %v", tc.ok, ok)
			}
			if got != tc.want {
				t.Errorf("Expected %+v, but got %+v", tc.want, got)
			}
		})
	}
}

func TestParseScripture(t *testing.T) {
	input := "Gen 1:1    A\nnot a verse line\nGen 1:2  B\r\n\nPs 23:1\tC    \n"
	verses, err := ParseScripture(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseScripture() returned an unexpected error: %v", err)
	}

	want := []Verse{
		{Text: "A", Reference: "Gen 1:1"},
		{Text: "B", Reference: "Gen 1:2"},
	}
	if len(verses) != len(want) {
		t.Fatalf("Expected %d verses, but got %d: %+v", len(want), len(verses), verses)
	}
	for i := range want {
		if verses[i] != want[i] {
			t.Errorf("Expected verse %d to be %+v, but got %+v", i, want[i], verses[i])
		}
	}
}

func TestLoadScripture(t *testing.T) {
	t.Run("bundled text", func(t *testing.T) {
		verses := LoadScripture("")
		if len(verses) < 10 {
			t.Fatalf("Expected bundled scripture, but got %d verses", len(verses))
		}
		if verses[0].Reference != "Genesis 1:1" {
			t.Errorf("Expected first verse Genesis 1:1, but got %q", verses[0].Reference)
		}
	})

	t.Run("missing file falls back to placeholder", func(t *testing.T) {
		verses := LoadScripture(filepath.Join(t.TempDir(), "missing.txt"))
		if len(verses) != 1 || verses[0] != Placeholder {
			t.Errorf("Expected placeholder verse, but got %+v", verses)
		}
	})

	t.Run("file without verses falls back to placeholder", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "corrupt.txt")
		if err := os.WriteFile(path, []byte("garbage\nmore garbage\n"), 0o644); err != nil {
			t.Fatal(err)
		}
		verses := LoadScripture(path)
		if len(verses) != 1 || verses[0] != Placeholder {
			t.Errorf("Expected placeholder verse, but got %+v", verses)
		}
	})
}

func TestParseAffirmations(t *testing.T) {
	testCases := []struct {
		name  string
		input string
		want  []Verse
	}{
		{
			name:  "double parentheses",
			input: "I am loved\n((Morning))",
			want:  []Verse{{Text: "I am loved", Reference: "Morning", IsAffirmation: true}},
		},
		{
			name:  "single parentheses",
			input: "I am loved\n(Morning)\n",
			want:  []Verse{{Text: "I am loved", Reference: "Morning", IsAffirmation: true}},
		},
		{
			name:  "multiline text and several blocks",
			input: "line one\nline two\n((Both))\n\n\n\nsecond\n((Two))\r\n",
			want: []Verse{
				{Text: "line one\nline two", Reference: "Both", IsAffirmation: true},
				{Text: "second", Reference: "Two", IsAffirmation: true},
			},
		},
		{
			name:  "missing reference",
			input: "no reference here",
			want:  []Verse{{Text: "no reference here", IsAffirmation: true}},
		},
		{
			name:  "lone parenthesised line is text",
			input: "(just text)",
			want:  []Verse{{Text: "(just text)", IsAffirmation: true}},
		},
		{
			name:  "reference without text is dropped",
			input: "((Orphan))",
			want:  nil,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseAffirmations(strings.NewReader(tc.input))
			if err != nil {
				t.Fatalf("ParseAffirmations() returned an unexpected error: %v", err)
			}
			if len(got) != len(tc.want) {
				t.Fatalf("Expected %d affirmations, but got %d: %+v", len(tc.want), len(got), got)
			}
			for i := range tc.want {
				if got[i] != tc.want[i] {
					t.Errorf("Expected %+v, but got %+v", tc.want[i], got[i])
				}
			}
		})
	}
}

func TestWriteAffirmationsRoundTrip(t *testing.T) {
	in := []Verse{
		{Text: "first line\nsecond line", Reference: "Morning", IsAffirmation: true},
		{Text: "no ref", IsAffirmation: true},
		{Text: "last", Reference: "Evening", IsAffirmation: true},
	}

	var buf bytes.Buffer
	if err := WriteAffirmations(&buf, in); err != nil {
		t.Fatalf("WriteAffirmations() returned an unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), "((Morning))") {
		t.Errorf("Expected canonical double parentheses, got %q", buf.String())
	}

	out, err := ParseAffirmations(&buf)
	if err != nil {
		t.Fatalf("ParseAffirmations() returned an unexpected error: %v", err)
	}
	if len(out) != len(in) {
		t.Fatalf("Expected %d affirmations, but got %d", len(in), len(out))
	}
	for i := range in {
		if out[i] != in[i] {
			t.Errorf("Expected %+v, but got %+v", in[i], out[i])
		}
	}
}

func TestLoadAffirmationsSeedsMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "affirmations.txt")
	affirmations := LoadAffirmations(path)
	if len(affirmations) == 0 {
		t.Fatal("Expected bundled affirmations to be seeded")
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("Expected seeded file at %s: %v", path, err)
	}

	if err := SaveAffirmations(path, affirmations[:1]); err != nil {
		t.Fatalf("SaveAffirmations() returned an unexpected error: %v", err)
	}
	reloaded := LoadAffirmations(path)
	if len(reloaded) != 1 || reloaded[0] != affirmations[0] {
		t.Errorf("Expected saved affirmation to reload, got %+v", reloaded)
	}
}
