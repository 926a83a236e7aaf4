// Package docindex provides a read-only view of a source document: its
// full text, total character count, and an optional char-offset→page
// lookup with per-page status supplied by the upstream ingester.
package docindex

import (
	"fmt"
	"sort"
)

// PageStatus is the upstream ingester's verdict on a page
type PageStatus string

const (
	PageOK         PageStatus = "ok"
	PageSuspect    PageStatus = "suspect"
	PageUnreadable PageStatus = "unreadable"
)

// Page is one page's character bounds and status
type Page struct {
	Num       int        `json:"num"`
	StartChar int        `json:"start_char"`
	EndChar   int        `json:"end_char"`
	Status    PageStatus `json:"status"`
}

// Index is an immutable view over one document. It owns no mutable
// state and is safe for concurrent use.
type Index struct {
	docID string
	text  string
	pages []Page
}

// New builds an index. Pages are optional; when supplied they are
// sorted by start offset.
func New(docID, text string, pages []Page) (*Index, error) {
	if docID == "" {
		return nil, fmt.Errorf("document id is required")
	}
	sorted := make([]Page, len(pages))
	copy(sorted, pages)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].StartChar < sorted[j].StartChar })
	for _, p := range sorted {
		if p.StartChar < 0 || p.EndChar < p.StartChar {
			return nil, fmt.Errorf("page %d: invalid bounds [%d,%d)", p.Num, p.StartChar, p.EndChar)
		}
	}
	return &Index{docID: docID, text: text, pages: sorted}, nil
}

// DocID returns the document identifier
func (ix *Index) DocID() string { return ix.docID }

// Text returns the full document text
func (ix *Index) Text() string { return ix.text }

// TotalChars returns the document length in bytes of text
func (ix *Index) TotalChars() int { return len(ix.text) }

// HasPages reports whether a page lookup was supplied
func (ix *Index) HasPages() bool { return len(ix.pages) > 0 }

// Pages returns the page table in start-offset order
func (ix *Index) Pages() []Page { return ix.pages }

// PageFor returns the page number containing the given character
// offset. The second return is false when no page lookup exists or the
// offset falls outside every page.
func (ix *Index) PageFor(offset int) (int, bool) {
	if len(ix.pages) == 0 {
		return 0, false
	}
	// First page starting after offset; the candidate is the one before it.
	i := sort.Search(len(ix.pages), func(i int) bool { return ix.pages[i].StartChar > offset })
	if i == 0 {
		return 0, false
	}
	p := ix.pages[i-1]
	if offset >= p.StartChar && offset < p.EndChar {
		return p.Num, true
	}
	return 0, false
}

// UnreadablePages returns the page numbers the ingester marked unreadable
func (ix *Index) UnreadablePages() []int {
	var nums []int
	for _, p := range ix.pages {
		if p.Status == PageUnreadable {
			nums = append(nums, p.Num)
		}
	}
	return nums
}

// Slice returns the document substring for [start, end), clamping both
// bounds into the document. Out-of-range requests return the in-range
// portion rather than panicking: producer offsets are never trusted.
func (ix *Index) Slice(start, end int) string {
	if start < 0 {
		start = 0
	}
	if end > len(ix.text) {
		end = len(ix.text)
	}
	if start >= end {
		return ""
	}
	return ix.text[start:end]
}
