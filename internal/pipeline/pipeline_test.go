package pipeline

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/ppiankov/veridex/internal/consistency"
	"github.com/ppiankov/veridex/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDocText = "This contract was signed on 2024-03-01 in Lisbon. " +
	"The total amount due is EUR 1500.00, payable within thirty days. " +
	"Both parties agreed to the terms stated above without reservation."

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// testWorkspace lays out a document and two producer payloads that
// disagree about the contract date
func testWorkspace(t *testing.T) (docPath, payloadDir string) {
	t.Helper()
	dir := t.TempDir()

	docPath = filepath.Join(dir, "contract.json")
	doc := map[string]any{"doc_id": "contract", "text": testDocText}
	data, err := json.Marshal(doc)
	require.NoError(t, err)
	writeFile(t, docPath, string(data))

	payloadDir = filepath.Join(dir, "payloads")
	require.NoError(t, os.Mkdir(payloadDir, 0o755))

	writeFile(t, filepath.Join(payloadDir, "extractor-a.json"),
		`{"items": [
			{"kind": "date", "value": "2024-03-01", "raw_text": "2024-03-01", "start_char": 28, "end_char": 38},
			{"kind": "amount", "value": "1500.00", "raw_text": "EUR 1500.00", "start_char": 74, "end_char": 85}
		]}`)
	writeFile(t, filepath.Join(payloadDir, "extractor-b.json"),
		`{"items": [
			{"kind": "date", "value": "2024-03-10", "raw_text": "2024-03-01", "start_char": 28, "end_char": 38}
		]}`)

	return docPath, payloadDir
}

func testPipeline() *Pipeline {
	return NewPipeline(model.DefaultConfig())
}

func TestAudit_FromPayloadDir(t *testing.T) {
	docPath, payloadDir := testWorkspace(t)

	result, err := testPipeline().Audit(context.Background(), AuditRequest{
		DocPath:    docPath,
		PayloadDir: payloadDir,
	})
	require.NoError(t, err)
	report := result.Report

	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, []string{"contract"}, report.DocIDs)
	require.Len(t, report.Producers, 2)

	// Union keeps all three items; nothing merged away.
	assert.Len(t, report.Items, 3)

	// The two extractors disagree about the date at the same location.
	require.Len(t, report.Conflicts, 1)
	assert.Equal(t, model.KindDate, report.Conflicts[0].Kind)
	assert.Len(t, report.Conflicts[0].Values, 2)

	assert.True(t, report.Principles.Lossless)
	assert.False(t, report.FinishedAt.Before(report.StartedAt))
}

func TestAudit_MissingDocument(t *testing.T) {
	_, err := testPipeline().Audit(context.Background(), AuditRequest{
		DocPath: filepath.Join(t.TempDir(), "missing.json"),
	})
	assert.Error(t, err)
}

func TestAudit_NoPayloadSource(t *testing.T) {
	docPath, _ := testWorkspace(t)

	_, err := testPipeline().Audit(context.Background(), AuditRequest{DocPath: docPath})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no payload source")
}

func TestAudit_ClaimsValidated(t *testing.T) {
	docPath, payloadDir := testWorkspace(t)
	claimsPath := filepath.Join(filepath.Dir(docPath), "claims.json")

	claims := []model.Claim{
		{
			ClaimID: "claim-1",
			Source:  "audit",
			Text:    "Contract signed on 2024-03-01",
			Citations: []model.Citation{
				{DocID: "contract", StartChar: 28, EndChar: 38, Excerpt: "2024-03-01"},
			},
		},
		{
			ClaimID:     "claim-2",
			Source:      "decision",
			Text:        "Payment obligation exists",
			Determinant: true,
			// No citations: correctness failure.
		},
	}
	data, err := json.Marshal(claims)
	require.NoError(t, err)
	writeFile(t, claimsPath, string(data))

	result, err := testPipeline().Audit(context.Background(), AuditRequest{
		DocPath:    docPath,
		PayloadDir: payloadDir,
		ClaimsPath: claimsPath,
	})
	require.NoError(t, err)
	report := result.Report

	assert.Equal(t, 1, report.CitationTotal)

	var kinds []model.FindingKind
	for _, f := range report.Findings {
		kinds = append(kinds, f.Kind)
	}
	assert.Contains(t, kinds, model.FindingMissingDeterminantProof)

	// The determinant ceiling binds the adjusted confidence.
	require.NotNil(t, report.Penalty.ConfidenceCeiling)
	assert.LessOrEqual(t, report.Penalty.AdjustedConfidence, 0.60)

	// The validated claim set is carried on the report, annotations included.
	require.Len(t, report.Claims, 2)
	assert.NotEmpty(t, report.Claims[1].Errors)
}

func TestAudit_MalformedPayloadDegrades(t *testing.T) {
	docPath, payloadDir := testWorkspace(t)
	writeFile(t, filepath.Join(payloadDir, "extractor-c.json"), "total garbage, not json at all")

	result, err := testPipeline().Audit(context.Background(), AuditRequest{
		DocPath:    docPath,
		PayloadDir: payloadDir,
	})
	require.NoError(t, err)
	report := result.Report

	// The garbage payload degrades to a minimal recovered record.
	require.Len(t, report.Producers, 3)
	var stat model.ProducerStat
	for _, s := range report.Producers {
		if s.ProducerID == "extractor-c" {
			stat = s
		}
	}
	assert.Equal(t, 1, stat.Items)
	assert.Equal(t, 1, stat.Recovered)

	// Parse recovery caps the run's confidence.
	require.NotNil(t, report.Penalty.ConfidenceCeiling)
	assert.LessOrEqual(t, report.Penalty.AdjustedConfidence, 0.75)
}

func TestRender_ArtifactsPassConsistencyCheck(t *testing.T) {
	docPath, payloadDir := testWorkspace(t)
	outDir := filepath.Join(t.TempDir(), "run")

	p := testPipeline()
	result, err := p.Audit(context.Background(), AuditRequest{
		DocPath:    docPath,
		PayloadDir: payloadDir,
	})
	require.NoError(t, err)

	require.NoError(t, p.Render(result, outDir, MarkdownPathFor(outDir), false))

	for _, name := range []string{
		consistency.ArtifactRun, consistency.ArtifactAggregation,
		consistency.ArtifactCoverage, consistency.ArtifactFindings,
		consistency.ArtifactPenalty, "summary.md",
	} {
		_, err := os.Stat(filepath.Join(outDir, name))
		assert.NoError(t, err, name)
	}

	// The artifacts a fresh run writes must audit clean.
	checker := consistency.NewChecker(model.DefaultConfig().Consistency)
	metaReport, err := checker.Check(outDir)
	require.NoError(t, err)
	assert.True(t, metaReport.IsConsistent, "checks: %+v", metaReport.Checks)
	assert.Zero(t, metaReport.Errors)
}

func TestLoadDocument_PlainText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	writeFile(t, path, "plain text document")

	idx, err := LoadDocument(path)
	require.NoError(t, err)
	assert.Equal(t, "notes", idx.DocID())
	assert.Equal(t, len("plain text document"), idx.TotalChars())
	assert.False(t, idx.HasPages())
}

func TestLoadDocument_WithPages(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.json")
	writeFile(t, path, `{
		"doc_id": "doc-1",
		"text": "page one text page two text",
		"pages": [
			{"num": 1, "start_char": 0, "end_char": 14, "status": "ok"},
			{"num": 2, "start_char": 14, "end_char": 27, "status": "unreadable"}
		]
	}`)

	idx, err := LoadDocument(path)
	require.NoError(t, err)
	assert.True(t, idx.HasPages())
	assert.Equal(t, []int{2}, idx.UnreadablePages())
}

func TestLoadChunks_Optional(t *testing.T) {
	chunks, err := LoadChunks(filepath.Join(t.TempDir(), "chunks.json"))
	require.NoError(t, err)
	assert.Nil(t, chunks)
}

func TestLoadChunks_RejectsHoles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chunks.json")
	writeFile(t, path, `[
		{"doc_id": "d", "chunk_id": "c0", "index": 0, "total": 2, "start_char": 0, "end_char": 10},
		{"doc_id": "d", "chunk_id": "c2", "index": 2, "total": 2, "start_char": 20, "end_char": 30}
	]`)

	_, err := LoadChunks(path)
	assert.Error(t, err)
}

func TestLoadPayloads_Empty(t *testing.T) {
	_, _, err := LoadPayloads(t.TempDir())
	assert.Error(t, err)
}
