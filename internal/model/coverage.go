package model

// CharRange is a half-open [Start, End) range of document characters
type CharRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Length returns the number of characters in the range
func (r CharRange) Length() int {
	return r.End - r.Start
}

// CoverageReport describes how much of the source document is accounted
// for by at least one processed chunk, at character and (optionally)
// page granularity.
//
// "Page covered" and "page unreadable" are not complements: a page can
// be skipped on purpose (known-bad scan) or skipped by accident (gap).
// The page tier keeps those apart.
type CoverageReport struct {
	TotalChars      int         `json:"total_chars"`
	CoveredChars    int         `json:"covered_chars"`
	CoveredRanges   []CharRange `json:"covered_ranges"`
	Gaps            []CharRange `json:"gaps"`
	CoveragePercent float64     `json:"coverage_percent"`

	// IsComplete is true only when no gap of at least the configured
	// maximum (default 100 chars) remains. Micro-gaps are tolerated.
	IsComplete bool `json:"is_complete"`

	HasPageIndex        bool    `json:"has_page_index"`
	PagesTotal          int     `json:"pages_total,omitempty"`
	PagesCovered        []int   `json:"pages_covered,omitempty"`
	PagesUnreadable     []int   `json:"pages_unreadable,omitempty"`
	PagesMissing        []int   `json:"pages_missing,omitempty"`
	PageCoveragePercent float64 `json:"page_coverage_percent,omitempty"`

	ItemsObserved int `json:"items_observed"`
}
