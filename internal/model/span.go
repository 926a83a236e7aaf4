package model

import (
	"errors"
	"fmt"
)

// ErrInvalidRange indicates a span with negative or inverted character offsets.
// Raised at construction time: an impossible range must never enter the run.
var ErrInvalidRange = errors.New("invalid character range")

// Method describes how a span's text was obtained from the source document
type Method string

const (
	MethodText   Method = "text"   // Extracted from the text layer
	MethodOCR    Method = "ocr"    // Extracted from OCR output
	MethodHybrid Method = "hybrid" // Text layer with OCR fallback
)

// SourceSpan is a located, attributed range of source-document characters.
// Offsets are half-open [StartChar, EndChar) into the document text.
type SourceSpan struct {
	DocID      string  `json:"doc_id"`
	ChunkID    string  `json:"chunk_id,omitempty"`
	StartChar  int     `json:"start_char"`
	EndChar    int     `json:"end_char"`
	ProducerID string  `json:"producer_id"`
	Method     Method  `json:"method"`
	PageNum    *int    `json:"page_num,omitempty"`
	Confidence float64 `json:"confidence"`
	RawText    string  `json:"raw_text,omitempty"`
}

// NewSourceSpan constructs a span, rejecting impossible offsets with ErrInvalidRange
func NewSourceSpan(docID, producerID string, start, end int, method Method) (SourceSpan, error) {
	if start < 0 || end < start {
		return SourceSpan{}, fmt.Errorf("%w: [%d,%d)", ErrInvalidRange, start, end)
	}
	return SourceSpan{
		DocID:      docID,
		ProducerID: producerID,
		StartChar:  start,
		EndChar:    end,
		Method:     method,
		Confidence: 1.0,
	}, nil
}

// Length returns the number of characters the span covers
func (s SourceSpan) Length() int {
	return s.EndChar - s.StartChar
}
