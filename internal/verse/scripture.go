package verse

import (
	"bufio"
	_ "embed"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

//go:embed assets/kjv-scriptures.txt
var bundledScripture string

// Placeholder is shown when no scripture could be loaded at all.
var Placeholder = Verse{Text: "For God so loved the world...", Reference: "John 3:16"}

// fieldDelimiter separates the reference from the verse text on a line.
// Any run of two or more spaces counts.
const fieldDelimiter = "  "

// ParseScripture reads one verse per line in the form
// "REFERENCE<spaces>TEXT". Lines without the delimiter are skipped.
func ParseScripture(r io.Reader) ([]Verse, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var verses []Verse
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		reference, text, found := strings.Cut(line, fieldDelimiter)
		if !found {
			continue
		}
		reference = strings.TrimSpace(reference)
		text = strings.TrimSpace(text)
		if reference == "" || text == "" {
			continue
		}
		verses = append(verses, Verse{Text: text, Reference: reference})
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read scripture: %w", err)
	}
	return verses, nil
}

// LoadScripture reads the scripture file at path, or the bundled text when
// path is empty. Any failure falls back to the single placeholder verse.
func LoadScripture(path string) []Verse {
	var (
		verses []Verse
		err    error
	)

	if path == "" {
		verses, err = ParseScripture(strings.NewReader(bundledScripture))
	} else {
		verses, err = parseScriptureFile(path)
	}

	if err != nil {
		slog.Error("Error loading scripture", "path", path, "error", err)
	}
	if len(verses) == 0 {
		slog.Warn("Using fallback verse as no scripture was loaded", "path", path)
		return []Verse{Placeholder}
	}

	slog.Debug("Loaded scripture", "verses", len(verses))
	return verses
}

func parseScriptureFile(path string) ([]Verse, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return ParseScripture(file)
}
