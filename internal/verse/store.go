package verse

import (
	"sort"
	"strings"
	"sync"
)

// ReferenceIndex maps a normalized reference fragment ("3:16") or chapter
// key ("3") to the verses sharing it, in collection order.
type ReferenceIndex map[string][]Verse

// Book groups the scripture verses of one book by chapter.
type Book struct {
	Name     string
	Chapters []Chapter
}

// Chapter is one chapter of a Book.
type Chapter struct {
	Number int
	Verses []Verse
}

// Snapshot is an immutable view of the verse collection together with all
// state derived from it. A new snapshot is built on every mutation.
type Snapshot struct {
	version      uint64
	verses       []Verse
	scriptureLen int
	positions    map[string]int
	byID         map[string]Verse
	index        ReferenceIndex
	books        []Book
	chapterIndex map[string]map[int][]Verse
}

func newSnapshot(version uint64, scripture, affirmations []Verse) *Snapshot {
	verses := make([]Verse, 0, len(scripture)+len(affirmations))
	verses = append(verses, scripture...)
	verses = append(verses, affirmations...)

	s := &Snapshot{
		version:      version,
		verses:       verses,
		scriptureLen: len(scripture),
		positions:    make(map[string]int, len(verses)),
		byID:         make(map[string]Verse, len(verses)),
		index:        make(ReferenceIndex),
		chapterIndex: make(map[string]map[int][]Verse),
	}

	var bookList []string
	for i, v := range verses {
		id := v.ID()
		if _, seen := s.positions[id]; !seen {
			s.positions[id] = i
			s.byID[id] = v
		}

		for _, key := range referenceKeys(v.Reference) {
			s.index[key] = append(s.index[key], v)
		}

		if v.IsAffirmation {
			continue
		}
		ref, ok := ParseReference(v.Reference)
		if !ok {
			continue
		}
		if s.chapterIndex[ref.Book] == nil {
			s.chapterIndex[ref.Book] = make(map[int][]Verse)
			bookList = append(bookList, ref.Book)
		}
		s.chapterIndex[ref.Book][ref.Chapter] = append(s.chapterIndex[ref.Book][ref.Chapter], v)
	}

	s.books = make([]Book, 0, len(bookList))
	for _, name := range bookList {
		book := Book{Name: name}
		for _, num := range sortedKeys(s.chapterIndex[name]) {
			book.Chapters = append(book.Chapters, Chapter{Number: num, Verses: s.chapterIndex[name][num]})
		}
		s.books = append(s.books, book)
	}

	return s
}

// referenceKeys returns the index keys for a reference: the fragment left
// after stripping the book name, plus its chapter part when different.
// References without a book and chapter ("Morning") are not indexed, so
// such words still reach the text search.
func referenceKeys(reference string) []string {
	if _, ok := ParseReference(reference); !ok {
		return nil
	}
	_, fragment := splitReference(strings.ToLower(reference))
	keys := []string{fragment}
	if chapter, _, found := strings.Cut(fragment, ":"); found && chapter != "" {
		keys = append(keys, chapter)
	}
	return keys
}

func sortedKeys[T any](m map[int]T) []int {
	numbers := make([]int, 0, len(m))
	for key := range m {
		numbers = append(numbers, key)
	}
	sort.Ints(numbers)
	return numbers
}

// Version increases every time the collection changes.
func (s *Snapshot) Version() uint64 { return s.version }

// Len returns the number of verses in the collection.
func (s *Snapshot) Len() int { return len(s.verses) }

// Verses returns the whole collection. Callers must not modify it.
func (s *Snapshot) Verses() []Verse { return s.verses }

// Scripture returns the non-affirmation prefix of the collection.
func (s *Snapshot) Scripture() []Verse { return s.verses[:s.scriptureLen:s.scriptureLen] }

// Affirmations returns the affirmation suffix of the collection.
func (s *Snapshot) Affirmations() []Verse { return s.verses[s.scriptureLen:] }

// Visible returns the verses a reader can see, leaving out affirmations
// unless they are enabled.
func (s *Snapshot) Visible(includeAffirmations bool) []Verse {
	if includeAffirmations {
		return s.verses
	}
	return s.Scripture()
}

// At returns the verse at position i.
func (s *Snapshot) At(i int) (Verse, bool) {
	if i < 0 || i >= len(s.verses) {
		return Verse{}, false
	}
	return s.verses[i], true
}

// IndexOf returns the live position of v in the collection.
func (s *Snapshot) IndexOf(v Verse) (int, bool) {
	i, ok := s.positions[v.ID()]
	return i, ok
}

// Contains reports whether v is part of the collection.
func (s *Snapshot) Contains(v Verse) bool {
	_, ok := s.positions[v.ID()]
	return ok
}

// Lookup resolves a verse ID.
func (s *Snapshot) Lookup(id string) (Verse, bool) {
	v, ok := s.byID[id]
	return v, ok
}

// Bucket returns the reference index entry for a normalized key.
func (s *Snapshot) Bucket(key string) ([]Verse, bool) {
	verses, ok := s.index[key]
	return verses, ok
}

// Books returns the scripture grouped by book, in collection order.
func (s *Snapshot) Books() []Book { return s.books }

// FindBook matches a book by exact name or case-insensitive prefix.
func (s *Snapshot) FindBook(name string) (Book, bool) {
	nameLower := strings.ToLower(strings.TrimSpace(name))
	if nameLower == "" {
		return Book{}, false
	}
	for _, book := range s.books {
		bookLower := strings.ToLower(book.Name)
		if bookLower == nameLower || strings.HasPrefix(bookLower, nameLower) {
			return book, true
		}
	}
	return Book{}, false
}

// Chapter returns the verses of one chapter, or nil.
func (s *Snapshot) Chapter(book string, chapter int) []Verse {
	if chapters, ok := s.chapterIndex[book]; ok {
		return chapters[chapter]
	}
	return nil
}

// FindReference returns the first verse whose reference equals ref,
// ignoring case and surrounding space.
func (s *Snapshot) FindReference(ref string) (Verse, bool) {
	ref = strings.TrimSpace(ref)
	for _, v := range s.verses {
		if strings.EqualFold(v.Reference, ref) {
			return v, true
		}
	}
	return Verse{}, false
}

// Store owns the verse collection. Readers take a Snapshot; writers swap in
// a new one.
type Store struct {
	mu      sync.RWMutex
	current *Snapshot
}

// NewStore builds a store from the scripture and affirmation lists.
func NewStore(scripture, affirmations []Verse) *Store {
	return &Store{current: newSnapshot(1, scripture, markAffirmations(affirmations))}
}

// Snapshot returns the current collection.
func (st *Store) Snapshot() *Snapshot {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.current
}

// ReplaceAffirmations swaps the affirmation subset, keeping scripture in
// place, and returns the rebuilt snapshot.
func (st *Store) ReplaceAffirmations(affirmations []Verse) *Snapshot {
	st.mu.Lock()
	defer st.mu.Unlock()
	next := newSnapshot(st.current.version+1, st.current.Scripture(), markAffirmations(affirmations))
	st.current = next
	return next
}

func markAffirmations(in []Verse) []Verse {
	out := make([]Verse, len(in))
	for i, v := range in {
		v.IsAffirmation = true
		out[i] = v
	}
	return out
}
