// Package history tracks the verse currently shown and a browser-style
// back/forward history over it.
package history

import (
	"math/rand/v2"

	"biblify/internal/verse"
)

// Source provides the live collection and the affirmations preference.
type Source interface {
	Snapshot() *verse.Snapshot
	AffirmationsEnabled() bool
}

// State is the exportable history, used to persist a reading session.
type State struct {
	History []string `json:"history"`
	Cursor  int      `json:"cursor"`
}

// Navigator is the navigation state machine. It is Empty until a verse is
// shown and Ready afterwards. History holds verse IDs, so edits to the
// collection never make it point at the wrong verse.
type Navigator struct {
	source  Source
	rng     *rand.Rand
	history []string
	cursor  int
}

// New creates an empty Navigator. A nil rng uses a randomly seeded source.
func New(source Source, rng *rand.Rand) *Navigator {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Navigator{source: source, rng: rng}
}

// Ready reports whether a verse is being shown.
func (n *Navigator) Ready() bool {
	_, ok := n.Current()
	return ok
}

// Current returns the verse under the cursor.
func (n *Navigator) Current() (verse.Verse, bool) {
	if len(n.history) == 0 {
		return verse.Verse{}, false
	}
	return n.source.Snapshot().Lookup(n.history[n.cursor])
}

// CanGoBack reports whether GoBack would move.
func (n *Navigator) CanGoBack() bool {
	_, ok := n.findFrom(n.cursor-1, -1)
	return ok
}

// Len returns the number of history entries.
func (n *Navigator) Len() int { return len(n.history) }

// Cursor returns the current history position.
func (n *Navigator) Cursor() int { return n.cursor }

// ShowInitial resets history to a single entry: v when given and present,
// otherwise a uniformly random visible verse. A given verse that is not in
// the collection leaves the navigator untouched.
func (n *Navigator) ShowInitial(v *verse.Verse) {
	snap := n.source.Snapshot()

	var pick verse.Verse
	if v != nil {
		if !snap.Contains(*v) {
			return
		}
		pick = *v
	} else {
		visible := snap.Visible(n.source.AffirmationsEnabled())
		if len(visible) == 0 {
			n.history = nil
			n.cursor = 0
			return
		}
		pick = visible[n.rng.IntN(len(visible))]
	}

	n.history = []string{pick.ID()}
	n.cursor = 0
}

// FetchNext shows a new random verse different from the current one and
// appends it to history, dropping any forward entries. It does nothing when
// fewer than two distinct verses are visible.
func (n *Navigator) FetchNext() {
	snap := n.source.Snapshot()
	visible := snap.Visible(n.source.AffirmationsEnabled())

	currentID := ""
	if cur, ok := n.Current(); ok {
		currentID = cur.ID()
	}

	candidates := make([]verse.Verse, 0, len(visible))
	for _, v := range visible {
		if v.ID() != currentID {
			candidates = append(candidates, v)
		}
	}
	if len(visible) <= 1 || len(candidates) == 0 {
		return
	}

	n.push(candidates[n.rng.IntN(len(candidates))].ID())
}

// GoForward replays the next history entry, or fetches a new random verse
// at the end of history.
func (n *Navigator) GoForward() {
	if i, ok := n.findFrom(n.cursor+1, 1); ok {
		n.cursor = i
		return
	}
	n.FetchNext()
}

// GoBack steps to the previous history entry. It is a no-op at the start.
func (n *Navigator) GoBack() {
	if i, ok := n.findFrom(n.cursor-1, -1); ok {
		n.cursor = i
	}
}

// JumpTo shows a specific verse, appending it to history. Verses not in the
// collection are ignored.
func (n *Navigator) JumpTo(v verse.Verse) {
	if !n.source.Snapshot().Contains(v) {
		return
	}
	n.push(v.ID())
}

// State exports the history.
func (n *Navigator) State() State {
	h := make([]string, len(n.history))
	copy(h, n.history)
	return State{History: h, Cursor: n.cursor}
}

// Restore replaces the history with a previously exported one, dropping
// entries that no longer resolve. It reports whether a verse is shown.
func (n *Navigator) Restore(s State) bool {
	snap := n.source.Snapshot()
	var kept []string
	cursor := 0
	for i, id := range s.History {
		if _, ok := snap.Lookup(id); !ok {
			continue
		}
		if i <= s.Cursor {
			cursor = len(kept)
		}
		kept = append(kept, id)
	}
	if len(kept) == 0 {
		return false
	}
	n.history = kept
	n.cursor = cursor
	return true
}

func (n *Navigator) push(id string) {
	if len(n.history) > 0 {
		n.history = n.history[:n.cursor+1]
	}
	n.history = append(n.history, id)
	n.cursor = len(n.history) - 1
}

// findFrom walks history from start in direction step and returns the first
// entry that still resolves in the collection.
func (n *Navigator) findFrom(start, step int) (int, bool) {
	snap := n.source.Snapshot()
	for i := start; i >= 0 && i < len(n.history); i += step {
		if _, ok := snap.Lookup(n.history[i]); ok {
			return i, true
		}
	}
	return 0, false
}
