package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/ppiankov/veridex/internal/pipeline"
	"github.com/ppiankov/veridex/internal/worker"
	"github.com/spf13/cobra"
)

var (
	concurrency    int
	batchOutputDir string
	batchTimeout   time.Duration
	batchPayloads  string
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <manifest>",
	Short: "Audit multiple documents from a manifest in parallel",
	Long: `Batch audits multiple documents concurrently:
- Read document paths from a manifest file (one per line)
- Audit documents in parallel with a configurable worker count
- Each document gets its own run directory under the output dir

Payloads are looked up per document: for a document at docs/contract.json
the payload directory is <payload-root>/contract/.

Example:
  veridex batch manifest.txt
  veridex batch manifest.txt --concurrency 8 --output-dir ./runs
  veridex batch manifest.txt --payload-root ./payloads --timeout 30m`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&concurrency, "concurrency", runtime.NumCPU(), "number of concurrent document audits")
	batchCmd.Flags().StringVar(&batchOutputDir, "output-dir", "./veridex-runs", "output directory for run artifacts")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 30*time.Minute, "total timeout for batch processing")
	batchCmd.Flags().StringVar(&batchPayloads, "payload-root", "./payloads", "root directory of per-document payload directories")

	batchCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the excerpt-match cache")
	batchCmd.Flags().BoolVar(&noFooter, "no-footer", false, "disable footer in Markdown reports")

	// LLM flags
	batchCmd.Flags().BoolVar(&llmEnabled, "llm", false, "produce payloads live via an LLM backend")
	batchCmd.Flags().StringVar(&llmProvider, "llm-provider", "openai", "LLM provider (openai, ollama)")
	batchCmd.Flags().StringVar(&llmModel, "llm-model", "gpt-4o-mini", "LLM model name")
	batchCmd.Flags().StringVar(&llmRoles, "roles", "", "comma-separated extraction roles to fan out")
}

// auditJob audits one document from the manifest
type auditJob struct {
	docPath  string
	pipeline *pipeline.Pipeline
	request  pipeline.AuditRequest
	runDir   string
}

// auditJobResult is one document's batch outcome
type auditJobResult struct {
	docPath string
	runDir  string
	result  *pipeline.AuditResult
	err     error
}

func (r *auditJobResult) GetError() error { return r.err }

func (j *auditJob) Execute(ctx context.Context) worker.Result {
	result, err := j.pipeline.Audit(ctx, j.request)
	return &auditJobResult{docPath: j.docPath, runDir: j.runDir, result: result, err: err}
}

func runBatch(cmd *cobra.Command, args []string) error {
	manifest := args[0]
	ctx, cancel := context.WithTimeout(context.Background(), batchTimeout)
	defer cancel()

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Veridex Batch Processing\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Manifest:     %s\n", manifest)
	fmt.Fprintf(os.Stderr, "  Workers:      %d\n", concurrency)
	fmt.Fprintf(os.Stderr, "  Output dir:   %s\n", batchOutputDir)
	fmt.Fprintf(os.Stderr, "  Timeout:      %v\n", batchTimeout)
	fmt.Fprintf(os.Stderr, "\n")

	cfg, err := buildConfig()
	if err != nil {
		return err
	}
	if llmEnabled {
		fmt.Fprintf(os.Stderr, "  LLM:          %s/%s\n\n", llmProvider, llmModel)
	}

	docPaths, err := worker.ReadManifest(manifest)
	if err != nil {
		return fmt.Errorf("read manifest: %w", err)
	}
	fmt.Fprintf(os.Stderr, "✓ Loaded %d documents\n", len(docPaths))

	if err := os.MkdirAll(batchOutputDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	p := pipeline.NewPipeline(cfg)

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "⚙️  Auditing documents with %d workers...\n", concurrency)
	fmt.Fprintf(os.Stderr, "\n")

	pool := worker.NewPoolWithContext(ctx, concurrency)
	pool.Start()
	for _, docPath := range docPaths {
		slug := docSlug(docPath)
		req := pipeline.AuditRequest{
			DocPath:    docPath,
			ChunksPath: "",
			ClaimsPath: "",
			Roles:      splitRoles(llmRoles),
		}
		if !llmEnabled {
			req.PayloadDir = filepath.Join(batchPayloads, slug)
		}
		pool.Submit(&auditJob{
			docPath:  docPath,
			pipeline: p,
			request:  req,
			runDir:   filepath.Join(batchOutputDir, slug),
		})
	}

	successCount := 0
	failureCount := 0
	for _, res := range pool.Wait() {
		jr := res.(*auditJobResult)
		if jr.err != nil {
			failureCount++
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", jr.docPath, jr.err)
			continue
		}

		if err := p.Render(jr.result, jr.runDir, pipeline.MarkdownPathFor(jr.runDir), false); err != nil {
			failureCount++
			fmt.Fprintf(os.Stderr, "✗ %s: failed to write artifacts: %v\n", jr.docPath, err)
			continue
		}

		successCount++
		fmt.Fprintf(os.Stderr, "✓ %s (confidence: %.2f, conflicts: %d)\n",
			jr.docPath, jr.result.Report.Penalty.AdjustedConfidence, len(jr.result.Report.Conflicts))
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Batch Complete\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Total:     %d documents\n", len(docPaths))
	fmt.Fprintf(os.Stderr, "  Success:   %d\n", successCount)
	fmt.Fprintf(os.Stderr, "  Failures:  %d\n", failureCount)
	fmt.Fprintf(os.Stderr, "  Output:    %s\n", batchOutputDir)
	fmt.Fprintf(os.Stderr, "\n")

	if failureCount > 0 {
		return fmt.Errorf("%d of %d documents failed", failureCount, len(docPaths))
	}
	return nil
}

// docSlug derives a filesystem-safe run directory name from a document path
func docSlug(path string) string {
	base := filepath.Base(path)
	slug := strings.TrimSuffix(base, filepath.Ext(base))

	replacer := strings.NewReplacer(
		"/", "_", "\\", "_", ":", "_", "*", "_", "?", "_",
		"\"", "_", "<", "_", ">", "_", "|", "_", " ", "-",
	)
	slug = replacer.Replace(slug)

	if len(slug) > 100 {
		slug = slug[:100]
	}
	if slug == "" {
		slug = "document"
	}
	return slug
}
