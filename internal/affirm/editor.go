// Package affirm edits the user-authored affirmations. Every change rewrites
// the affirmations file and swaps the verse store snapshot.
package affirm

import (
	"errors"
	"log/slog"
	"strings"
	"sync"

	"biblify/internal/verse"
)

var (
	ErrEmptyText = errors.New("affirmation text is empty")
	ErrDuplicate = errors.New("affirmation already exists")
	ErrNotFound  = errors.New("affirmation not found")
)

// Editor mutates the affirmation subset of a verse store.
type Editor struct {
	store *verse.Store
	path  string
	mu    sync.Mutex
}

// NewEditor creates an Editor persisting to path. An empty path keeps
// changes in memory only.
func NewEditor(store *verse.Store, path string) *Editor {
	return &Editor{store: store, path: path}
}

// List returns the affirmations in file order.
func (e *Editor) List() []verse.Verse {
	aff := e.store.Snapshot().Affirmations()
	out := make([]verse.Verse, len(aff))
	copy(out, aff)
	return out
}

// Add appends a new affirmation.
func (e *Editor) Add(text, reference string) (verse.Verse, error) {
	v, err := newAffirmation(text, reference)
	if err != nil {
		return verse.Verse{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	current := e.store.Snapshot().Affirmations()
	for _, a := range current {
		if a == v {
			return verse.Verse{}, ErrDuplicate
		}
	}
	next := append(append([]verse.Verse(nil), current...), v)
	e.commit(next, "add")
	return v, nil
}

// Edit replaces every affirmation equal to old with the new text and
// reference, keeping its position.
func (e *Editor) Edit(old verse.Verse, text, reference string) (verse.Verse, error) {
	v, err := newAffirmation(text, reference)
	if err != nil {
		return verse.Verse{}, err
	}
	old.IsAffirmation = true

	e.mu.Lock()
	defer e.mu.Unlock()

	current := e.store.Snapshot().Affirmations()
	next := make([]verse.Verse, len(current))
	found := false
	for i, a := range current {
		if a == old {
			a = v
			found = true
		}
		next[i] = a
	}
	if !found {
		return verse.Verse{}, ErrNotFound
	}
	e.commit(next, "edit")
	return v, nil
}

// Remove deletes every affirmation equal to v. It reports whether anything
// was removed.
func (e *Editor) Remove(v verse.Verse) bool {
	v.IsAffirmation = true

	e.mu.Lock()
	defer e.mu.Unlock()

	current := e.store.Snapshot().Affirmations()
	next := make([]verse.Verse, 0, len(current))
	for _, a := range current {
		if a != v {
			next = append(next, a)
		}
	}
	if len(next) == len(current) {
		return false
	}
	e.commit(next, "remove")
	return true
}

// commit persists the new list and swaps the store snapshot. A write failure
// is logged; memory is updated regardless.
func (e *Editor) commit(next []verse.Verse, op string) {
	if e.path != "" {
		if err := verse.SaveAffirmations(e.path, next); err != nil {
			slog.Error("Failed to save affirmations", "op", op, "path", e.path, "error", err)
		}
	}
	snap := e.store.ReplaceAffirmations(next)
	slog.Debug("Affirmations updated", "op", op, "count", len(next), "version", snap.Version())
}

// newAffirmation normalizes user input into the shape the file format can
// hold: no blank lines in the text, a single-line reference.
func newAffirmation(text, reference string) (verse.Verse, error) {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) == 0 {
		return verse.Verse{}, ErrEmptyText
	}
	reference = strings.Join(strings.Fields(reference), " ")
	return verse.Verse{
		Text:          strings.Join(lines, "\n"),
		Reference:     reference,
		IsAffirmation: true,
	}, nil
}
