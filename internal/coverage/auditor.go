// Package coverage computes character- and page-level coverage of the
// processed chunks against the source document, and the uncovered gaps.
package coverage

import (
	"sort"

	"github.com/ppiankov/veridex/internal/docindex"
	"github.com/ppiankov/veridex/internal/model"
)

// Auditor computes coverage reports
type Auditor struct {
	maxGapChars int
}

// NewAuditor creates an auditor. Gaps shorter than maxGapChars are
// tolerated as micro-gaps and do not block completeness.
func NewAuditor(maxGapChars int) *Auditor {
	if maxGapChars <= 0 {
		maxGapChars = 100
	}
	return &Auditor{maxGapChars: maxGapChars}
}

// Audit computes char-level coverage of the chunks over [0, totalChars)
// and, when idx carries a page table, the page tier. Page coverage
// percent is computed over readable pages only: "page richly covered"
// and "page unreadable" are not complements, and a page skipped on
// purpose (known-bad scan) must stay distinguishable from one skipped
// by accident.
func (a *Auditor) Audit(chunks []model.Chunk, items []model.EvidenceItem, totalChars int, idx *docindex.Index) model.CoverageReport {
	report := model.CoverageReport{
		TotalChars:    totalChars,
		CoveredRanges: []model.CharRange{},
		Gaps:          []model.CharRange{},
		ItemsObserved: len(items),
	}

	report.CoveredRanges = mergeRanges(chunks, totalChars)
	for _, r := range report.CoveredRanges {
		report.CoveredChars += r.Length()
	}
	report.Gaps = complement(report.CoveredRanges, totalChars)

	if totalChars > 0 {
		report.CoveragePercent = float64(report.CoveredChars) / float64(totalChars) * 100
	}

	report.IsComplete = true
	for _, gap := range report.Gaps {
		if gap.Length() >= a.maxGapChars {
			report.IsComplete = false
			break
		}
	}

	if idx != nil && idx.HasPages() {
		a.auditPages(&report, chunks, idx)
	}

	return report
}

// auditPages fills in the page tier of the report
func (a *Auditor) auditPages(report *model.CoverageReport, chunks []model.Chunk, idx *docindex.Index) {
	report.HasPageIndex = true
	pages := idx.Pages()
	report.PagesTotal = len(pages)

	unreadable := make(map[int]bool)
	for _, n := range idx.UnreadablePages() {
		unreadable[n] = true
	}

	touched := make(map[int]bool)
	for _, c := range chunks {
		// Prefer the chunker's own page bounds; fall back to the lookup.
		if c.PageStart != nil && c.PageEnd != nil {
			for p := *c.PageStart; p <= *c.PageEnd; p++ {
				touched[p] = true
			}
			continue
		}
		if start, ok := idx.PageFor(c.StartChar); ok {
			end := start
			if last, ok := idx.PageFor(c.EndChar - 1); ok {
				end = last
			}
			for p := start; p <= end; p++ {
				touched[p] = true
			}
		}
	}

	for _, p := range pages {
		switch {
		case unreadable[p.Num]:
			report.PagesUnreadable = append(report.PagesUnreadable, p.Num)
		case touched[p.Num]:
			report.PagesCovered = append(report.PagesCovered, p.Num)
		default:
			report.PagesMissing = append(report.PagesMissing, p.Num)
		}
	}
	sort.Ints(report.PagesCovered)
	sort.Ints(report.PagesUnreadable)
	sort.Ints(report.PagesMissing)

	readable := report.PagesTotal - len(report.PagesUnreadable)
	if readable > 0 {
		report.PageCoveragePercent = float64(len(report.PagesCovered)) / float64(readable) * 100
	}
}

// mergeRanges sorts chunk ranges and merges overlapping or touching
// ones, clamped into [0, totalChars)
func mergeRanges(chunks []model.Chunk, totalChars int) []model.CharRange {
	var ranges []model.CharRange
	for _, c := range chunks {
		start, end := c.StartChar, c.EndChar
		if start < 0 {
			start = 0
		}
		if end > totalChars {
			end = totalChars
		}
		if end > start {
			ranges = append(ranges, model.CharRange{Start: start, End: end})
		}
	}
	if len(ranges) == 0 {
		return []model.CharRange{}
	}

	sort.Slice(ranges, func(i, j int) bool { return ranges[i].Start < ranges[j].Start })

	merged := []model.CharRange{ranges[0]}
	for _, r := range ranges[1:] {
		last := &merged[len(merged)-1]
		if r.Start <= last.End {
			if r.End > last.End {
				last.End = r.End
			}
			continue
		}
		merged = append(merged, r)
	}
	return merged
}

// complement returns the gaps of the merged ranges within [0, totalChars)
func complement(merged []model.CharRange, totalChars int) []model.CharRange {
	gaps := []model.CharRange{}
	cursor := 0
	for _, r := range merged {
		if r.Start > cursor {
			gaps = append(gaps, model.CharRange{Start: cursor, End: r.Start})
		}
		if r.End > cursor {
			cursor = r.End
		}
	}
	if cursor < totalChars {
		gaps = append(gaps, model.CharRange{Start: cursor, End: totalChars})
	}
	return gaps
}
