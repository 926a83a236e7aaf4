package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ppiankov/veridex/internal/consistency"
	"github.com/ppiankov/veridex/internal/model"
	"github.com/ppiankov/veridex/internal/worker"
)

// Renderer writes run artifacts, the markdown summary, and the stderr
// digest
type Renderer struct {
	includeFooter   bool
	artifactWorkers int
}

// NewRenderer creates a new renderer
func NewRenderer(includeFooter bool, artifactWorkers int) *Renderer {
	if artifactWorkers <= 0 {
		artifactWorkers = 4
	}
	return &Renderer{includeFooter: includeFooter, artifactWorkers: artifactWorkers}
}

// artifactJob marshals and writes one artifact file
type artifactJob struct {
	path  string
	value any
}

// artifactResult reports one artifact write
type artifactResult struct {
	path string
	err  error
}

func (r *artifactResult) GetError() error { return r.err }

func (j *artifactJob) Execute(ctx context.Context) worker.Result {
	data, err := json.MarshalIndent(j.value, "", "  ")
	if err != nil {
		return &artifactResult{path: j.path, err: fmt.Errorf("marshal %s: %w", filepath.Base(j.path), err)}
	}
	if err := os.WriteFile(j.path, data, 0o644); err != nil {
		return &artifactResult{path: j.path, err: fmt.Errorf("write %s: %w", filepath.Base(j.path), err)}
	}
	return &artifactResult{path: j.path}
}

// RenderArtifacts writes the run artifact set into dir, creating it if
// needed. Artifacts are independent files, so they are written
// concurrently.
func (r *Renderer) RenderArtifacts(result *AuditResult, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create run dir: %w", err)
	}

	jobs := []*artifactJob{
		{path: filepath.Join(dir, consistency.ArtifactRun), value: result.Report},
		{path: filepath.Join(dir, consistency.ArtifactAggregation), value: result.Aggregation},
		{path: filepath.Join(dir, consistency.ArtifactCoverage), value: result.Report.Coverage},
		{path: filepath.Join(dir, consistency.ArtifactFindings), value: result.Report.Findings},
		{path: filepath.Join(dir, consistency.ArtifactPenalty), value: result.Report.Penalty},
	}

	pool := worker.NewPool(r.artifactWorkers)
	pool.Start()
	for _, job := range jobs {
		pool.Submit(job)
	}
	for _, res := range pool.Wait() {
		if err := res.GetError(); err != nil {
			return err
		}
	}
	return nil
}

// RenderMarkdown writes the human-readable run summary
func (r *Renderer) RenderMarkdown(report *model.RunReport, path string) error {
	var b strings.Builder

	fmt.Fprintf(&b, "# Evidence Provenance Report\n\n")
	fmt.Fprintf(&b, "**Run:** `%s`  \n", report.RunID)
	fmt.Fprintf(&b, "**Documents:** %s  \n", strings.Join(report.DocIDs, ", "))
	fmt.Fprintf(&b, "**Finished:** %s\n\n", report.FinishedAt.UTC().Format(time.RFC3339))

	fmt.Fprintf(&b, "## Adjusted Confidence: %.2f\n\n", report.Penalty.AdjustedConfidence)
	fmt.Fprintf(&b, "Base %.2f, total penalty %.2f", report.Penalty.BaseConfidence, report.Penalty.TotalPenalty)
	if report.Penalty.ConfidenceCeiling != nil {
		fmt.Fprintf(&b, ", ceiling %.2f", *report.Penalty.ConfidenceCeiling)
	}
	b.WriteString(".\n\n")

	fmt.Fprintf(&b, "## Producers\n\n")
	fmt.Fprintf(&b, "| Producer | Items | Recovered | Status |\n")
	fmt.Fprintf(&b, "|----------|-------|-----------|--------|\n")
	for _, p := range report.Producers {
		status := "ok"
		if p.Failed {
			status = "failed: " + p.Error
		}
		fmt.Fprintf(&b, "| %s | %d | %d | %s |\n", p.ProducerID, p.Items, p.Recovered, status)
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "## Evidence\n\n")
	fmt.Fprintf(&b, "- Items: %d\n", len(report.Items))
	fmt.Fprintf(&b, "- Conflicts: %d\n", len(report.Conflicts))
	for _, c := range report.Conflicts {
		fmt.Fprintf(&b, "  - `%s` (%s): ", c.LocationKey, c.Kind)
		var parts []string
		for _, v := range c.Values {
			parts = append(parts, fmt.Sprintf("%s=%q", v.ProducerID, v.Value))
		}
		b.WriteString(strings.Join(parts, " vs "))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "## Coverage\n\n")
	cov := report.Coverage
	fmt.Fprintf(&b, "- Characters: %d/%d (%.1f%%)\n", cov.CoveredChars, cov.TotalChars, cov.CoveragePercent)
	fmt.Fprintf(&b, "- Complete: %t, gaps: %d\n", cov.IsComplete, len(cov.Gaps))
	if cov.HasPageIndex {
		fmt.Fprintf(&b, "- Pages: %d/%d readable covered (%.1f%%), %d unreadable\n",
			len(cov.PagesCovered), cov.PagesTotal, cov.PageCoveragePercent, len(cov.PagesUnreadable))
	}
	b.WriteString("\n")

	errs, warns, infos := model.CountBySeverity(report.Findings)
	fmt.Fprintf(&b, "## Findings\n\n")
	fmt.Fprintf(&b, "%d errors, %d warnings, %d info.\n\n", errs, warns, infos)
	for _, f := range report.Findings {
		fmt.Fprintf(&b, "- **%s** [%s] %s\n", f.Severity, f.Kind, f.Message)
	}
	b.WriteString("\n")

	if r.includeFooter {
		b.WriteString("---\n\n")
		b.WriteString("*Veridex evaluates provenance, not truth: every number above is explainable from the artifacts, and no observation was discarded to produce it.*\n")
	}

	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write markdown: %w", err)
	}
	return nil
}

// RenderSummary prints the run digest to stderr
func (r *Renderer) RenderSummary(report *model.RunReport) {
	errs, warns, _ := model.CountBySeverity(report.Findings)

	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Run %s\n", report.RunID)
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Documents:           %s\n", strings.Join(report.DocIDs, ", "))
	fmt.Fprintf(os.Stderr, "  Producers:           %d\n", len(report.Producers))
	fmt.Fprintf(os.Stderr, "  Evidence items:      %d\n", len(report.Items))
	fmt.Fprintf(os.Stderr, "  Conflicts:           %d\n", len(report.Conflicts))
	fmt.Fprintf(os.Stderr, "  Coverage:            %.1f%%\n", report.Coverage.CoveragePercent)
	fmt.Fprintf(os.Stderr, "  Findings:            %d errors, %d warnings\n", errs, warns)
	fmt.Fprintf(os.Stderr, "  Adjusted confidence: %.2f", report.Penalty.AdjustedConfidence)
	if report.Penalty.ConfidenceCeiling != nil {
		fmt.Fprintf(os.Stderr, " (ceiling %.2f)", *report.Penalty.ConfidenceCeiling)
	}
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
}
