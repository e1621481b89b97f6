package main

import (
	"strings"

	"biblify/internal/verse"
)

// chapterCursor points at one chapter of the scripture for the chapter
// browser. Books and chapters come from the live snapshot.
type chapterCursor struct {
	book    string
	chapter int
}

func (c chapterCursor) valid() bool { return c.book != "" && c.chapter > 0 }

// chapterFor returns the chapter containing v, or the first chapter of the
// first book when v has no parsable reference.
func chapterFor(snap *verse.Snapshot, v verse.Verse) chapterCursor {
	if !v.IsAffirmation {
		if ref, ok := verse.ParseReference(v.Reference); ok {
			if book, ok := snap.FindBook(ref.Book); ok && len(snap.Chapter(book.Name, ref.Chapter)) > 0 {
				return chapterCursor{book: book.Name, chapter: ref.Chapter}
			}
		}
	}
	return firstChapter(snap)
}

func firstChapter(snap *verse.Snapshot) chapterCursor {
	books := snap.Books()
	if len(books) == 0 || len(books[0].Chapters) == 0 {
		return chapterCursor{}
	}
	return chapterCursor{book: books[0].Name, chapter: books[0].Chapters[0].Number}
}

// lookupChapter resolves "gen 3" style input to a chapter.
func lookupChapter(snap *verse.Snapshot, input string) (chapterCursor, bool) {
	ref, ok := verse.ParseReference(strings.TrimSpace(input))
	if !ok {
		book, ok := snap.FindBook(input)
		if !ok || len(book.Chapters) == 0 {
			return chapterCursor{}, false
		}
		return chapterCursor{book: book.Name, chapter: book.Chapters[0].Number}, true
	}
	book, ok := snap.FindBook(ref.Book)
	if !ok || len(snap.Chapter(book.Name, ref.Chapter)) == 0 {
		return chapterCursor{}, false
	}
	return chapterCursor{book: book.Name, chapter: ref.Chapter}, true
}

func bookIndex(books []verse.Book, name string) int {
	for i, b := range books {
		if b.Name == name {
			return i
		}
	}
	return -1
}

func chapterIndex(book verse.Book, number int) int {
	for i, c := range book.Chapters {
		if c.Number == number {
			return i
		}
	}
	return -1
}

// nextChapter moves forward one chapter, rolling into the next book.
func nextChapter(snap *verse.Snapshot, c chapterCursor) chapterCursor {
	books := snap.Books()
	bi := bookIndex(books, c.book)
	if bi < 0 {
		return firstChapter(snap)
	}
	if ci := chapterIndex(books[bi], c.chapter); ci >= 0 && ci < len(books[bi].Chapters)-1 {
		return chapterCursor{book: c.book, chapter: books[bi].Chapters[ci+1].Number}
	}
	if bi < len(books)-1 && len(books[bi+1].Chapters) > 0 {
		return chapterCursor{book: books[bi+1].Name, chapter: books[bi+1].Chapters[0].Number}
	}
	return c
}

// previousChapter moves back one chapter, rolling into the last chapter of
// the previous book.
func previousChapter(snap *verse.Snapshot, c chapterCursor) chapterCursor {
	books := snap.Books()
	bi := bookIndex(books, c.book)
	if bi < 0 {
		return firstChapter(snap)
	}
	if ci := chapterIndex(books[bi], c.chapter); ci > 0 {
		return chapterCursor{book: c.book, chapter: books[bi].Chapters[ci-1].Number}
	}
	if bi > 0 {
		prev := books[bi-1]
		if n := len(prev.Chapters); n > 0 {
			return chapterCursor{book: prev.Name, chapter: prev.Chapters[n-1].Number}
		}
	}
	return c
}

// navigateToBook jumps to the first chapter of the book direction steps
// away. Out of range moves are ignored.
func navigateToBook(snap *verse.Snapshot, c chapterCursor, direction int) chapterCursor {
	books := snap.Books()
	bi := bookIndex(books, c.book)
	if bi < 0 {
		return firstChapter(snap)
	}
	next := bi + direction
	if next < 0 || next >= len(books) || len(books[next].Chapters) == 0 {
		return c
	}
	return chapterCursor{book: books[next].Name, chapter: books[next].Chapters[0].Number}
}
