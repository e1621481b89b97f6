package verse

import (
	"bufio"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

//go:embed assets/affirmations.txt
var bundledAffirmations string

// ParseAffirmations reads affirmation blocks separated by blank lines. Each
// block holds the text (one or more lines) followed by a reference line
// wrapped in double parentheses. Single parentheses are accepted on read.
func ParseAffirmations(r io.Reader) ([]Verse, error) {
	scanner := bufio.NewScanner(r)
	var affirmations []Verse
	var block []string

	finishBlock := func() {
		if len(block) == 0 {
			return
		}
		lines := block
		block = nil

		reference := ""
		if ref, ok := unwrapReference(lines[len(lines)-1], len(lines) > 1); ok {
			reference = ref
			lines = lines[:len(lines)-1]
		}

		text := strings.TrimSpace(strings.Join(lines, "\n"))
		if text != "" {
			affirmations = append(affirmations, Verse{Text: text, Reference: reference, IsAffirmation: true})
		}
	}

	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			finishBlock()
			continue
		}
		block = append(block, strings.TrimSpace(line))
	}
	finishBlock()

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read affirmations: %w", err)
	}
	return affirmations, nil
}

// unwrapReference strips "((ref))", or "(ref)" when allowSingle is set.
func unwrapReference(line string, allowSingle bool) (string, bool) {
	if strings.HasPrefix(line, "((") && strings.HasSuffix(line, "))") && len(line) >= 4 {
		return strings.TrimSpace(line[2 : len(line)-2]), true
	}
	if allowSingle && strings.HasPrefix(line, "(") && strings.HasSuffix(line, ")") && len(line) >= 2 {
		return strings.TrimSpace(line[1 : len(line)-1]), true
	}
	return "", false
}

// WriteAffirmations writes affirmations in the canonical block format.
func WriteAffirmations(w io.Writer, affirmations []Verse) error {
	bw := bufio.NewWriter(w)
	for i, a := range affirmations {
		if i > 0 {
			bw.WriteString("\n\n")
		}
		for _, line := range strings.Split(a.Text, "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			bw.WriteString(line)
			bw.WriteByte('\n')
		}
		fmt.Fprintf(bw, "((%s))", strings.TrimSpace(a.Reference))
	}
	if len(affirmations) > 0 {
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

// SaveAffirmations rewrites the affirmations file wholesale.
func SaveAffirmations(path string, affirmations []Verse) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create affirmations dir: %w", err)
	}

	tmp := path + ".tmp"
	file, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create affirmations file: %w", err)
	}
	if err := WriteAffirmations(file, affirmations); err != nil {
		file.Close()
		return fmt.Errorf("failed to write affirmations: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close affirmations file: %w", err)
	}
	return os.Rename(tmp, path)
}

// LoadAffirmations reads the user's affirmations. A missing file is seeded
// from the bundled defaults first. Errors are logged and yield no
// affirmations.
func LoadAffirmations(path string) []Verse {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		if err := seedAffirmations(path); err != nil {
			slog.Error("Error copying bundled affirmations", "path", path, "error", err)
			return nil
		}
		slog.Info("Copied bundled affirmations", "path", path)
	}

	file, err := os.Open(path)
	if err != nil {
		slog.Error("Error reading affirmations", "path", path, "error", err)
		return nil
	}
	defer file.Close()

	affirmations, err := ParseAffirmations(file)
	if err != nil {
		slog.Error("Error reading affirmations", "path", path, "error", err)
		return nil
	}
	slog.Debug("Loaded affirmations", "count", len(affirmations))
	return affirmations
}

func seedAffirmations(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(bundledAffirmations), 0o644)
}
