// Package pipeline orchestrates a full provenance audit: load the
// document, collect producer payloads, decode, aggregate, audit
// coverage, validate claims, apply the penalty policy, and render the
// run artifacts.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/ppiankov/veridex/internal/aggregate"
	"github.com/ppiankov/veridex/internal/cache"
	"github.com/ppiankov/veridex/internal/coverage"
	"github.com/ppiankov/veridex/internal/docindex"
	"github.com/ppiankov/veridex/internal/extract"
	"github.com/ppiankov/veridex/internal/llm"
	"github.com/ppiankov/veridex/internal/model"
	"github.com/ppiankov/veridex/internal/score"
	"github.com/ppiankov/veridex/internal/validate"
	"github.com/ppiankov/veridex/internal/worker"
)

// Pipeline orchestrates the complete audit process
type Pipeline struct {
	validator *validate.Validator
	auditor   *coverage.Auditor
	policy    *score.Policy
	renderer  *Renderer
	provider  llm.Provider // Optional extraction backend (nil if disabled)
	fanOut    *worker.FanOut
	config    *model.Config
}

// NewPipeline creates a new pipeline with the given configuration
func NewPipeline(cfg *model.Config) *Pipeline {
	var c cache.Cache
	if cfg.Cache.Enabled {
		if cfg.Cache.Dir != "" {
			c = cache.NewLayeredCache(cfg.Cache.TTL, cfg.Cache.Dir, cfg.Cache.TTL)
		} else {
			c = cache.NewMemoryCache(cfg.Cache.TTL, 10*time.Minute)
		}
	}

	var provider llm.Provider
	if cfg.LLM.Provider != "" {
		p, err := llm.NewProvider(llm.ConfigFromModel(cfg.LLM))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to initialize LLM provider: %v\n", err)
		} else {
			provider = p
		}
	}

	limiter := worker.NewLimiter(cfg.Concurrency.RatePerProducer, cfg.Concurrency.Burst)

	return &Pipeline{
		validator: validate.NewValidator(cfg.Match, c, cfg.Cache.TTL),
		auditor:   coverage.NewAuditor(cfg.Coverage.MaxGapChars),
		policy:    score.NewPolicy(cfg.Penalty.GlobalCap, cfg.Coverage.LowCoveragePercent, cfg.Coverage.MaxGapChars),
		renderer:  NewRenderer(cfg.Output.IncludeFooter, cfg.Concurrency.ArtifactWorkers),
		provider:  provider,
		fanOut:    worker.NewFanOut(cfg.Concurrency.ProducerWorkers, limiter),
		config:    cfg,
	}
}

// AuditRequest names the inputs of one audit run
type AuditRequest struct {
	// DocPath is the ingested document (.json with page table, or .txt)
	DocPath string

	// PayloadDir holds pre-recorded producer payloads, one file per
	// producer. When empty, payloads are produced live via the LLM
	// backend using Roles.
	PayloadDir string

	// Roles are the extraction roles to fan out to the LLM backend
	// (ignored when PayloadDir is set)
	Roles []string

	// ChunksPath is the optional chunker output for coverage
	ChunksPath string

	// ClaimsPath is the optional downstream claims file
	ClaimsPath string
}

// AuditResult contains the complete audit result
type AuditResult struct {
	Report      *model.RunReport
	Aggregation aggregate.Result
}

// Audit runs one complete audit over one document
func (p *Pipeline) Audit(ctx context.Context, req AuditRequest) (*AuditResult, error) {
	startedAt := time.Now().UTC()

	// 1. Load the document index.
	idx, err := LoadDocument(req.DocPath)
	if err != nil {
		return nil, fmt.Errorf("load document: %w", err)
	}
	p.verbose("loaded document %s (%d chars, %d pages)", idx.DocID(), idx.TotalChars(), len(idx.Pages()))

	// 2. Collect raw payloads.
	payloads, producerIDs, err := p.collectPayloads(ctx, req, idx)
	if err != nil {
		return nil, err
	}

	// 3. Decode every payload; failures degrade, never abort.
	byProducer := make(map[string][]model.EvidenceItem, len(producerIDs))
	var stats []model.ProducerStat
	var findings []model.ValidationFinding

	for _, id := range producerIDs {
		pr := payloads[id]
		stat := model.ProducerStat{ProducerID: id}

		if pr.err != nil {
			stat.Failed = true
			stat.Error = pr.err.Error()
			byProducer[id] = nil
			findings = append(findings, model.ValidationFinding{
				Kind:     model.FindingProducerFailure,
				Severity: model.SeverityWarning,
				Message:  fmt.Sprintf("producer %s failed: %v", id, pr.err),
				Source:   id,
			})
			stats = append(stats, stat)
			continue
		}

		decoded := extract.Decode(id, idx.DocID(), pr.payload)
		byProducer[id] = decoded.Items
		stat.Items = len(decoded.Items)
		for _, item := range decoded.Items {
			if item.Recovered {
				stat.Recovered++
			}
		}
		findings = append(findings, score.FromErrors(decoded.Notes)...)
		stats = append(stats, stat)
		p.verbose("producer %s: %d items, %d notes", id, len(decoded.Items), len(decoded.Notes))
	}

	// 4. Aggregate: lossless union plus conflict detection.
	agg := aggregate.Aggregate(byProducer, p.config.Aggregate.BucketSize)
	p.verbose("aggregated %d items, %d conflicts", len(agg.Items), len(agg.Conflicts))

	// 5. Coverage audit over the chunker output. Without chunk records
	// the evidence spans themselves stand in as observed ranges.
	chunks, err := LoadChunks(req.ChunksPath)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		chunks = chunksFromSpans(agg.Items)
	}
	cov := p.auditor.Audit(chunks, agg.Items, idx.TotalChars(), idx)
	findings = append(findings, p.policy.CoverageFindings(cov)...)
	p.verbose("coverage %.1f%% (%d gaps)", cov.CoveragePercent, len(cov.Gaps))

	// 6. Claim validation.
	claims, err := LoadClaims(req.ClaimsPath)
	if err != nil {
		return nil, err
	}
	citationTotal := 0
	for i := range claims {
		findings = append(findings, p.validator.ValidateClaim(&claims[i], idx)...)
		citationTotal += len(claims[i].Citations)
	}
	if len(claims) > 0 {
		p.verbose("validated %d claims, %d citations", len(claims), citationTotal)
	}

	// 7. Penalty policy. Coverage findings are already in the list, so
	// the policy must not synthesize them again.
	penalty := p.policy.ComputePenalty(findings, nil, p.config.Penalty.BaseConfidence)

	report := &model.RunReport{
		RunID:         uuid.NewString(),
		DocIDs:        []string{idx.DocID()},
		StartedAt:     startedAt,
		FinishedAt:    time.Now().UTC(),
		Producers:     stats,
		Items:         agg.Items,
		Conflicts:     agg.Conflicts,
		Coverage:      cov,
		Claims:        claims,
		CitationTotal: citationTotal,
		Findings:      findings,
		Penalty:       penalty,
		Principles:    model.DefaultPrinciples(),
	}

	return &AuditResult{Report: report, Aggregation: agg}, nil
}

// payloadResult is one producer's raw payload or failure
type payloadResult struct {
	payload string
	err     error
}

// collectPayloads gathers producer payloads from disk or the LLM
// backend
func (p *Pipeline) collectPayloads(ctx context.Context, req AuditRequest, idx *docindex.Index) (map[string]payloadResult, []string, error) {
	if req.PayloadDir != "" {
		files, ids, err := LoadPayloads(req.PayloadDir)
		if err != nil {
			return nil, nil, err
		}
		results := make(map[string]payloadResult, len(files))
		for id, payload := range files {
			results[id] = payloadResult{payload: payload}
		}
		return results, ids, nil
	}

	if p.provider == nil {
		return nil, nil, fmt.Errorf("no payload source: set --payloads or configure an LLM provider")
	}

	roles := req.Roles
	if len(roles) == 0 {
		roles = []string{""}
	}
	producers := make([]worker.Producer, 0, len(roles))
	for _, role := range roles {
		producers = append(producers, &llmProducer{provider: p.provider, role: role})
	}

	results := make(map[string]payloadResult, len(producers))
	var ids []string
	for _, res := range p.fanOut.Run(ctx, idx.DocID(), idx.Text(), producers) {
		results[res.ProducerID] = payloadResult{payload: res.Payload, err: res.Error}
		ids = append(ids, res.ProducerID)
	}
	sort.Strings(ids)
	return results, ids, nil
}

// llmProducer adapts an LLM provider into a worker.Producer
type llmProducer struct {
	provider llm.Provider
	role     string
}

func (l *llmProducer) ID() string {
	if l.role == "" {
		return l.provider.Name()
	}
	return l.provider.Name() + ":" + l.role
}

func (l *llmProducer) Produce(ctx context.Context, docID, docText string) (string, error) {
	resp, err := l.provider.Extract(ctx, llm.ExtractRequest{
		DocID:   docID,
		DocText: docText,
		Role:    l.role,
	})
	if err != nil {
		return "", err
	}
	return resp.Payload, nil
}

// chunksFromSpans synthesizes chunk records from evidence spans so the
// coverage audit has observed ranges to work with
func chunksFromSpans(items []model.EvidenceItem) []model.Chunk {
	var chunks []model.Chunk
	i := 0
	for _, item := range items {
		for _, span := range item.Spans {
			if span.Length() == 0 {
				continue
			}
			chunks = append(chunks, model.Chunk{
				DocID:     span.DocID,
				ChunkID:   fmt.Sprintf("span-%d", i),
				Index:     i,
				StartChar: span.StartChar,
				EndChar:   span.EndChar,
			})
			i++
		}
	}
	for j := range chunks {
		chunks[j].Total = len(chunks)
	}
	return chunks
}

// Render writes artifacts, optional markdown, and the stderr digest
func (p *Pipeline) Render(result *AuditResult, outputDir, mdPath string, verboseFlag bool) error {
	if outputDir != "" {
		if err := p.renderer.RenderArtifacts(result, outputDir); err != nil {
			return fmt.Errorf("render artifacts: %w", err)
		}
		if verboseFlag {
			fmt.Fprintf(os.Stderr, "✓ Wrote artifacts: %s\n", outputDir)
		}
	}

	if mdPath != "" {
		if err := p.renderer.RenderMarkdown(result.Report, mdPath); err != nil {
			return fmt.Errorf("render markdown: %w", err)
		}
		if verboseFlag {
			fmt.Fprintf(os.Stderr, "✓ Wrote Markdown: %s\n", mdPath)
		}
	}

	p.renderer.RenderSummary(result.Report)
	return nil
}

// MarkdownPathFor derives the markdown summary path inside a run dir
func MarkdownPathFor(outputDir string) string {
	return filepath.Join(outputDir, "summary.md")
}

func (p *Pipeline) verbose(format string, args ...any) {
	if p.config.Output.Verbose {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	}
}
