package model

import "fmt"

// Chunk is a contiguous, possibly-overlapping slice of document text
// produced by the upstream chunker
type Chunk struct {
	DocID     string `json:"doc_id"`
	ChunkID   string `json:"chunk_id"`
	Index     int    `json:"index"`
	Total     int    `json:"total"`
	StartChar int    `json:"start_char"`
	EndChar   int    `json:"end_char"`
	Overlap   int    `json:"overlap"`
	PageStart *int   `json:"page_start,omitempty"`
	PageEnd   *int   `json:"page_end,omitempty"`
}

// ValidateChunkSequence checks that chunk indices are contiguous starting
// at 0 and that every chunk carries a sane range. Overlap between
// successive chunks is allowed; holes in the index sequence are not.
func ValidateChunkSequence(chunks []Chunk) error {
	seen := make(map[int]bool, len(chunks))
	for _, c := range chunks {
		if c.StartChar < 0 || c.EndChar < c.StartChar {
			return fmt.Errorf("chunk %d: %w: [%d,%d)", c.Index, ErrInvalidRange, c.StartChar, c.EndChar)
		}
		if seen[c.Index] {
			return fmt.Errorf("duplicate chunk index %d", c.Index)
		}
		seen[c.Index] = true
	}
	for i := 0; i < len(chunks); i++ {
		if !seen[i] {
			return fmt.Errorf("chunk sequence has a hole: missing index %d of %d", i, len(chunks))
		}
	}
	return nil
}
