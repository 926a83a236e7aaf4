// Package consistency audits a finished run directory against itself:
// the meta-validator. It re-derives counts, sums and percentages from
// the artifacts and flags every place where the numbers disagree. The
// audit is read-only with one exception: its own report, meta.json.
package consistency

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/ppiankov/veridex/internal/aggregate"
	"github.com/ppiankov/veridex/internal/model"
)

// Check is one verdict of the meta-validation pass
type Check struct {
	Name     string         `json:"name"`
	Artifact string         `json:"artifact,omitempty"`
	Severity model.Severity `json:"severity"`
	Message  string         `json:"message"`
}

// Report is the full meta-validation result for one run directory
type Report struct {
	Dir          string    `json:"dir"`
	CheckedAt    time.Time `json:"checked_at"`
	Checks       []Check   `json:"checks"`
	Errors       int       `json:"errors"`
	Warnings     int       `json:"warnings"`
	Infos        int       `json:"infos"`
	IsConsistent bool      `json:"is_consistent"`
}

// Checker validates run directories
type Checker struct {
	cfg model.ConsistencyConfig
	now func() time.Time
}

// NewChecker creates a checker with the given tolerances
func NewChecker(cfg model.ConsistencyConfig) *Checker {
	if cfg.CountTolerance < 0 {
		cfg.CountTolerance = 0
	}
	if cfg.PercentTolerance <= 0 {
		cfg.PercentTolerance = 1.0
	}
	if cfg.TimeTolerance <= 0 {
		cfg.TimeTolerance = 5 * time.Minute
	}
	return &Checker{cfg: cfg, now: time.Now}
}

// Check audits one run directory and returns the report. Only an
// unusable directory fails outright; every inconsistency inside a
// readable run lands in the report instead.
func (c *Checker) Check(dir string) (*Report, error) {
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("run directory: %w", err)
	}

	report := &Report{Dir: dir, CheckedAt: c.now()}

	// Read all artifacts concurrently; each slot is owned by exactly
	// one goroutine.
	files := make([]artifactFile, len(artifactSpecs))
	var wg sync.WaitGroup
	for i, spec := range artifactSpecs {
		wg.Add(1)
		go func(i int, name string) {
			defer wg.Done()
			files[i] = readArtifact(dir, name)
		}(i, spec.Name)
	}
	wg.Wait()

	byName := make(map[string]artifactFile, len(files))
	for i, spec := range artifactSpecs {
		byName[spec.Name] = files[i]
		c.checkPresence(report, spec, files[i])
	}

	run := c.decodeRun(report, byName[ArtifactRun])
	agg := c.decodeAggregation(report, byName[ArtifactAggregation])
	cov := c.decodeCoverage(report, byName[ArtifactCoverage])
	c.decodeFindings(report, byName[ArtifactFindings])
	penalty := c.decodePenalty(report, byName[ArtifactPenalty])

	if run != nil {
		c.checkTemporal(report, run, files)
		c.checkDocRefs(report, run, agg)
		c.checkCitationCount(report, run)
		if agg != nil {
			c.checkItemCounts(report, run, agg)
		}
		if penalty != nil {
			c.checkPenalty(report, run, penalty)
		}
	}
	if cov != nil {
		c.checkCoverageArithmetic(report, cov)
	}

	for _, check := range report.Checks {
		switch check.Severity {
		case model.SeverityError:
			report.Errors++
		case model.SeverityWarning:
			report.Warnings++
		default:
			report.Infos++
		}
	}
	report.IsConsistent = report.Errors == 0

	return report, nil
}

// WriteMeta persists the report as meta.json inside the run directory
func (c *Checker) WriteMeta(dir string, report *Report) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal meta report: %w", err)
	}
	path := filepath.Join(dir, ArtifactMeta)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write meta report: %w", err)
	}
	return nil
}

func (c *Checker) add(report *Report, name, artifact string, severity model.Severity, format string, args ...any) {
	report.Checks = append(report.Checks, Check{
		Name:     name,
		Artifact: artifact,
		Severity: severity,
		Message:  fmt.Sprintf(format, args...),
	})
}

func (c *Checker) checkPresence(report *Report, spec artifactSpec, af artifactFile) {
	if af.Err != nil {
		c.add(report, "artifact_readable", spec.Name, model.SeverityError, "%v", af.Err)
		return
	}
	if af.Exists {
		return
	}
	if spec.Required {
		c.add(report, "artifact_present", spec.Name, model.SeverityError, "required artifact missing")
	} else {
		c.add(report, "artifact_present", spec.Name, model.SeverityInfo, "optional artifact missing")
	}
}

func (c *Checker) decodeRun(report *Report, af artifactFile) *model.RunReport {
	if !af.Exists || af.Err != nil {
		return nil
	}
	var run model.RunReport
	if err := decodeArtifact(af, &run); err != nil {
		c.add(report, "artifact_decodes", af.Name, model.SeverityError, "%v", err)
		return nil
	}
	return &run
}

func (c *Checker) decodeAggregation(report *Report, af artifactFile) *aggregate.Result {
	if !af.Exists || af.Err != nil {
		return nil
	}
	var agg aggregate.Result
	if err := decodeArtifact(af, &agg); err != nil {
		c.add(report, "artifact_decodes", af.Name, model.SeverityError, "%v", err)
		return nil
	}
	return &agg
}

func (c *Checker) decodeCoverage(report *Report, af artifactFile) *model.CoverageReport {
	if !af.Exists || af.Err != nil {
		return nil
	}
	var cov model.CoverageReport
	if err := decodeArtifact(af, &cov); err != nil {
		c.add(report, "artifact_decodes", af.Name, model.SeverityError, "%v", err)
		return nil
	}
	return &cov
}

func (c *Checker) decodeFindings(report *Report, af artifactFile) []model.ValidationFinding {
	if !af.Exists || af.Err != nil {
		return nil
	}
	var findings []model.ValidationFinding
	if err := decodeArtifact(af, &findings); err != nil {
		c.add(report, "artifact_decodes", af.Name, model.SeverityError, "%v", err)
		return nil
	}
	return findings
}

func (c *Checker) decodePenalty(report *Report, af artifactFile) *model.PenaltyResult {
	if !af.Exists || af.Err != nil {
		return nil
	}
	var penalty model.PenaltyResult
	if err := decodeArtifact(af, &penalty); err != nil {
		c.add(report, "artifact_decodes", af.Name, model.SeverityError, "%v", err)
		return nil
	}
	return &penalty
}

// checkTemporal verifies artifact timestamps sit inside the plausible
// window [run start - tolerance, now + tolerance]. Files from before
// the run likely belong to an earlier run in the same directory; files
// from the future mean clock trouble and invalidate the audit.
func (c *Checker) checkTemporal(report *Report, run *model.RunReport, files []artifactFile) {
	now := c.now()

	if run.FinishedAt.Before(run.StartedAt) {
		c.add(report, "run_times_ordered", ArtifactRun, model.SeverityError,
			"finished_at %s precedes started_at %s", run.FinishedAt.Format(time.RFC3339), run.StartedAt.Format(time.RFC3339))
	}
	if run.FinishedAt.After(now.Add(c.cfg.TimeTolerance)) {
		c.add(report, "run_times_plausible", ArtifactRun, model.SeverityError,
			"finished_at %s is in the future", run.FinishedAt.Format(time.RFC3339))
	}

	earliest := run.StartedAt.Add(-c.cfg.TimeTolerance)
	latest := now.Add(c.cfg.TimeTolerance)
	for _, af := range files {
		if !af.Exists || af.Err != nil {
			continue
		}
		if af.ModTime.Before(earliest) {
			c.add(report, "artifact_mtime_plausible", af.Name, model.SeverityWarning,
				"modified %s, before run start %s", af.ModTime.Format(time.RFC3339), run.StartedAt.Format(time.RFC3339))
		}
		if af.ModTime.After(latest) {
			c.add(report, "artifact_mtime_plausible", af.Name, model.SeverityError,
				"modified %s, in the future", af.ModTime.Format(time.RFC3339))
		}
	}
}

// checkDocRefs verifies every document referenced by evidence spans and
// claim citations is declared in the run manifest
func (c *Checker) checkDocRefs(report *Report, run *model.RunReport, agg *aggregate.Result) {
	known := make(map[string]bool, len(run.DocIDs))
	for _, id := range run.DocIDs {
		known[id] = true
	}

	unknown := make(map[string]bool)
	for _, item := range run.Items {
		for _, span := range item.Spans {
			if !known[span.DocID] {
				unknown[span.DocID] = true
			}
		}
	}
	if agg != nil {
		for _, item := range agg.Items {
			for _, span := range item.Spans {
				if !known[span.DocID] {
					unknown[span.DocID] = true
				}
			}
		}
	}
	for _, claim := range run.Claims {
		for _, cit := range claim.Citations {
			if !known[cit.DocID] {
				unknown[cit.DocID] = true
			}
		}
	}

	if len(unknown) > 0 {
		ids := make([]string, 0, len(unknown))
		for id := range unknown {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		c.add(report, "doc_refs_declared", ArtifactRun, model.SeverityError,
			"references to undeclared documents: %v", ids)
	}
}

// checkCitationCount recounts citations across claims and compares with
// the recorded total
func (c *Checker) checkCitationCount(report *Report, run *model.RunReport) {
	recount := 0
	for _, claim := range run.Claims {
		recount += len(claim.Citations)
	}
	if diff := abs(recount - run.CitationTotal); diff > c.cfg.CountTolerance {
		c.add(report, "citation_total_matches", ArtifactRun, model.SeverityError,
			"recounted %d citations, run records %d (tolerance %d)", recount, run.CitationTotal, c.cfg.CountTolerance)
	}
}

// checkItemCounts cross-checks the run's item list against the
// aggregation artifact
func (c *Checker) checkItemCounts(report *Report, run *model.RunReport, agg *aggregate.Result) {
	if diff := abs(len(run.Items) - len(agg.Items)); diff > c.cfg.CountTolerance {
		c.add(report, "item_counts_match", ArtifactAggregation, model.SeverityError,
			"run has %d items, aggregation has %d (tolerance %d)", len(run.Items), len(agg.Items), c.cfg.CountTolerance)
	}

	sum := 0
	for _, n := range agg.ByProducer {
		sum += n
	}
	if sum != len(agg.Items) {
		c.add(report, "producer_counts_sum", ArtifactAggregation, model.SeverityError,
			"per-producer counts sum to %d, aggregation has %d items", sum, len(agg.Items))
	}

	if diff := abs(len(run.Conflicts) - len(agg.Conflicts)); diff > c.cfg.CountTolerance {
		c.add(report, "conflict_counts_match", ArtifactAggregation, model.SeverityError,
			"run has %d conflicts, aggregation has %d (tolerance %d)", len(run.Conflicts), len(agg.Conflicts), c.cfg.CountTolerance)
	}
}

// checkCoverageArithmetic re-derives the coverage numbers
func (c *Checker) checkCoverageArithmetic(report *Report, cov *model.CoverageReport) {
	if cov.HasPageIndex {
		sum := len(cov.PagesCovered) + len(cov.PagesMissing) + len(cov.PagesUnreadable)
		if sum != cov.PagesTotal {
			c.add(report, "pages_sum_matches", ArtifactCoverage, model.SeverityError,
				"covered %d + missing %d + unreadable %d = %d, expected %d pages",
				len(cov.PagesCovered), len(cov.PagesMissing), len(cov.PagesUnreadable), sum, cov.PagesTotal)
		}
	}

	if cov.TotalChars > 0 {
		derived := float64(cov.CoveredChars) / float64(cov.TotalChars) * 100.0
		if math.Abs(derived-cov.CoveragePercent) > c.cfg.PercentTolerance {
			c.add(report, "coverage_percent_matches", ArtifactCoverage, model.SeverityError,
				"derived coverage %.2f%%, recorded %.2f%% (tolerance %.2f)", derived, cov.CoveragePercent, c.cfg.PercentTolerance)
		}
	}

	covered := 0
	for _, r := range cov.CoveredRanges {
		covered += r.Length()
	}
	if covered != cov.CoveredChars {
		c.add(report, "covered_chars_match", ArtifactCoverage, model.SeverityError,
			"covered ranges sum to %d chars, recorded %d", covered, cov.CoveredChars)
	}
}

// checkPenalty cross-checks the penalty artifact with the copy embedded
// in the run report
func (c *Checker) checkPenalty(report *Report, run *model.RunReport, penalty *model.PenaltyResult) {
	if math.Abs(run.Penalty.AdjustedConfidence-penalty.AdjustedConfidence) > 1e-9 {
		c.add(report, "penalty_matches", ArtifactPenalty, model.SeverityError,
			"run records adjusted confidence %.4f, penalty artifact has %.4f",
			run.Penalty.AdjustedConfidence, penalty.AdjustedConfidence)
	}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
