package coverage

import (
	"testing"

	"github.com/ppiankov/veridex/internal/docindex"
	"github.com/ppiankov/veridex/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chunk(index, start, end int) model.Chunk {
	return model.Chunk{DocID: "doc-1", Index: index, StartChar: start, EndChar: end}
}

func TestAudit_FullCoverageAdditivity(t *testing.T) {
	// Non-overlapping chunks covering the whole document: 100%, no gaps.
	chunks := []model.Chunk{
		chunk(0, 0, 400),
		chunk(1, 400, 750),
		chunk(2, 750, 1000),
	}

	report := NewAuditor(100).Audit(chunks, nil, 1000, nil)

	assert.Equal(t, 100.0, report.CoveragePercent)
	assert.Empty(t, report.Gaps)
	assert.True(t, report.IsComplete)
	assert.Equal(t, 1000, report.CoveredChars)
}

func TestAudit_OverlappingChunksDoNotDoubleCount(t *testing.T) {
	chunks := []model.Chunk{
		chunk(0, 0, 600),
		chunk(1, 500, 1000),
	}

	report := NewAuditor(100).Audit(chunks, nil, 1000, nil)

	assert.Equal(t, 1000, report.CoveredChars)
	assert.Equal(t, 100.0, report.CoveragePercent)
	assert.True(t, report.IsComplete)
}

func TestAudit_GapDetection(t *testing.T) {
	chunks := []model.Chunk{
		chunk(0, 0, 300),
		chunk(1, 500, 1000),
	}

	report := NewAuditor(100).Audit(chunks, nil, 1000, nil)

	require.Len(t, report.Gaps, 1)
	assert.Equal(t, model.CharRange{Start: 300, End: 500}, report.Gaps[0])
	assert.False(t, report.IsComplete, "a 200-char gap blocks completeness")
	assert.InDelta(t, 80.0, report.CoveragePercent, 0.001)
}

func TestAudit_MicroGapsTolerated(t *testing.T) {
	chunks := []model.Chunk{
		chunk(0, 0, 480),
		chunk(1, 520, 1000),
	}

	report := NewAuditor(100).Audit(chunks, nil, 1000, nil)

	require.Len(t, report.Gaps, 1)
	assert.Equal(t, 40, report.Gaps[0].Length())
	assert.True(t, report.IsComplete, "gaps under the limit are micro-gaps")
}

func TestAudit_ChunksClampedToDocument(t *testing.T) {
	chunks := []model.Chunk{chunk(0, -50, 1200)}

	report := NewAuditor(100).Audit(chunks, nil, 1000, nil)

	assert.Equal(t, 1000, report.CoveredChars)
	assert.Equal(t, 100.0, report.CoveragePercent)
}

func TestAudit_EmptyChunks(t *testing.T) {
	report := NewAuditor(100).Audit(nil, nil, 1000, nil)

	assert.Equal(t, 0.0, report.CoveragePercent)
	require.Len(t, report.Gaps, 1)
	assert.Equal(t, 1000, report.Gaps[0].Length())
	assert.False(t, report.IsComplete)
}

func TestAudit_ProducerScenario(t *testing.T) {
	// Producer A covers [0,1000), producer B covers [500,1000):
	// full coverage, complete.
	chunks := []model.Chunk{
		chunk(0, 0, 1000),
		chunk(1, 500, 1000),
	}

	report := NewAuditor(100).Audit(chunks, nil, 1000, nil)

	assert.Equal(t, 100.0, report.CoveragePercent)
	assert.True(t, report.IsComplete)
}

func TestAudit_PageTier(t *testing.T) {
	pages := []docindex.Page{
		{Num: 1, StartChar: 0, EndChar: 250, Status: docindex.PageOK},
		{Num: 2, StartChar: 250, EndChar: 500, Status: docindex.PageOK},
		{Num: 3, StartChar: 500, EndChar: 750, Status: docindex.PageUnreadable},
		{Num: 4, StartChar: 750, EndChar: 1000, Status: docindex.PageOK},
	}
	ix, err := docindex.New("doc-1", string(make([]byte, 1000)), pages)
	require.NoError(t, err)

	// Chunks touch pages 1 and 2 only.
	chunks := []model.Chunk{chunk(0, 0, 500)}

	report := NewAuditor(100).Audit(chunks, nil, 1000, ix)

	assert.True(t, report.HasPageIndex)
	assert.Equal(t, 4, report.PagesTotal)
	assert.Equal(t, []int{1, 2}, report.PagesCovered)
	assert.Equal(t, []int{3}, report.PagesUnreadable)
	assert.Equal(t, []int{4}, report.PagesMissing)
	// Percent over readable pages only: 2 covered of 3 readable.
	assert.InDelta(t, 66.67, report.PageCoveragePercent, 0.01)
}

func TestAudit_PageBoundsFromChunker(t *testing.T) {
	pages := []docindex.Page{
		{Num: 1, StartChar: 0, EndChar: 500, Status: docindex.PageOK},
		{Num: 2, StartChar: 500, EndChar: 1000, Status: docindex.PageOK},
	}
	ix, err := docindex.New("doc-1", string(make([]byte, 1000)), pages)
	require.NoError(t, err)

	p1, p2 := 1, 2
	chunks := []model.Chunk{
		{DocID: "doc-1", Index: 0, StartChar: 0, EndChar: 1000, PageStart: &p1, PageEnd: &p2},
	}

	report := NewAuditor(100).Audit(chunks, nil, 1000, ix)
	assert.Equal(t, []int{1, 2}, report.PagesCovered)
	assert.Equal(t, 100.0, report.PageCoveragePercent)
}
