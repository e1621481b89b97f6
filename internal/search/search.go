package search

import (
	"context"
	"strings"
	"unicode"
	"unicode/utf8"

	"biblify/internal/verse"
)

// Options control which verses a query can see.
type Options struct {
	IncludeAffirmations bool
	// MinQueryLength treats shorter non-blank queries as blank.
	MinQueryLength int
}

// cancelCheckEvery is how many verses the text scan visits between
// context checks.
const cancelCheckEvery = 256

// Normalize trims and lowercases a query.
func Normalize(query string) string {
	return strings.ToLower(strings.TrimSpace(query))
}

// Filter returns the verses matching query in collection order.
func Filter(snap *verse.Snapshot, query string, opts Options) []verse.Verse {
	results, _ := FilterContext(context.Background(), snap, query, opts)
	return results
}

// FilterContext is Filter with cancellation. It returns ctx.Err() when the
// scan is abandoned.
func FilterContext(ctx context.Context, snap *verse.Snapshot, query string, opts Options) ([]verse.Verse, error) {
	q := Normalize(query)
	if q == "" || utf8.RuneCountInString(q) < opts.MinQueryLength {
		return nil, nil
	}

	visible := func(v verse.Verse) bool {
		return opts.IncludeAffirmations || !v.IsAffirmation
	}

	// Reference fast path: "3:16", "23".
	if bucket, ok := snap.Bucket(q); ok {
		results := make([]verse.Verse, 0, len(bucket))
		for _, v := range bucket {
			if visible(v) && snap.Contains(v) {
				results = append(results, v)
			}
		}
		return results, nil
	}

	words := strings.Fields(q)

	// Book-qualified reference: "gen 1", "genesis 2:2", "1 john 3:16".
	if len(words) >= 2 {
		if bucket, ok := snap.Bucket(words[len(words)-1]); ok {
			bookPrefix := strings.Join(words[:len(words)-1], " ")
			var results []verse.Verse
			for _, v := range bucket {
				if visible(v) && strings.HasPrefix(strings.ToLower(v.Book()), bookPrefix) {
					results = append(results, v)
				}
			}
			if len(results) > 0 {
				return results, nil
			}
		}
	}

	singleWord := len(words) == 1
	var results []verse.Verse
	for i, v := range snap.Visible(opts.IncludeAffirmations) {
		if i%cancelCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		text := strings.ToLower(v.Text)
		reference := strings.ToLower(v.Reference)
		var match bool
		if singleWord {
			match = containsWordStartingWith(text, q) || containsWordStartingWith(reference, q)
		} else {
			match = strings.Contains(text, q) || strings.Contains(reference, q)
		}
		if match {
			results = append(results, v)
		}
	}
	return results, nil
}

// containsWordStartingWith reports whether part occurs in text at the start
// of a word: at position 0 or after a rune that is not a letter or digit.
func containsWordStartingWith(text, part string) bool {
	if part == "" {
		return true
	}

	start := 0
	for start <= len(text)-len(part) {
		i := strings.Index(text[start:], part)
		if i < 0 {
			return false
		}
		i += start

		if i == 0 {
			return true
		}
		prev, _ := utf8.DecodeLastRuneInString(text[:i])
		if !unicode.IsLetter(prev) && !unicode.IsDigit(prev) {
			return true
		}

		_, size := utf8.DecodeRuneInString(text[i:])
		start = i + size
	}
	return false
}
