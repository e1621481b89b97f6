package verse

import (
	"crypto/sha256"
	"fmt"
	"strconv"
	"strings"
)

// Verse is a single scripture verse or user affirmation. It is a comparable
// value type: two verses are the same verse when all fields are equal.
type Verse struct {
	Text          string `json:"text"`
	Reference     string `json:"reference"`
	IsAffirmation bool   `json:"is_affirmation"`
}

// ID returns a stable content identifier for the verse as a hex SHA-256
// string. Equal verses always share an ID, so it survives reloads and
// reordering of the collection.
func (v Verse) ID() string {
	// Length prefixes keep "a\nb"+"c" and "a"+"b\nc" apart.
	payload := fmt.Sprintf("%d:%s|%d:%s|%t", len(v.Text), v.Text, len(v.Reference), v.Reference, v.IsAffirmation)
	sum := sha256.Sum256([]byte(payload))
	return fmt.Sprintf("%x", sum)
}

// Book returns the book part of the reference ("1 John" for "1 John 3:16").
// References without a chapter token are returned unchanged.
func (v Verse) Book() string {
	book, _ := splitReference(v.Reference)
	return book
}

// Reference is a parsed scripture reference.
type Reference struct {
	Book    string
	Chapter int
	Verse   int
}

// ParseReference splits "Book C:V" or "Book C" into its parts. The book may
// contain spaces. ok is false when the trailing token is not a chapter.
func ParseReference(ref string) (Reference, bool) {
	book, fragment := splitReference(ref)
	if book == "" || fragment == "" {
		return Reference{}, false
	}

	chapterPart, versePart, hasVerse := strings.Cut(fragment, ":")
	chapter, err := strconv.Atoi(chapterPart)
	if err != nil || chapter <= 0 {
		return Reference{}, false
	}

	r := Reference{Book: book, Chapter: chapter}
	if hasVerse {
		num, err := strconv.Atoi(versePart)
		if err != nil || num <= 0 {
			return Reference{}, false
		}
		r.Verse = num
	}
	return r, true
}

func (r Reference) String() string {
	if r.Verse > 0 {
		return fmt.Sprintf("%s %d:%d", r.Book, r.Chapter, r.Verse)
	}
	return fmt.Sprintf("%s %d", r.Book, r.Chapter)
}

// splitReference separates the leading book name from the trailing
// chapter:verse token. A reference without a space has no book.
func splitReference(ref string) (book, fragment string) {
	ref = strings.TrimSpace(ref)
	i := strings.LastIndexAny(ref, " \t")
	if i < 0 {
		return "", ref
	}
	return strings.TrimSpace(ref[:i]), ref[i+1:]
}
