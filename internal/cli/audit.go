package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ppiankov/veridex/internal/model"
	"github.com/ppiankov/veridex/internal/pipeline"
	"github.com/spf13/cobra"
)

var (
	payloadDir  string
	chunksPath  string
	claimsPath  string
	outputDir   string
	outMD       string
	timeout     time.Duration
	bucketSize  int
	noCache     bool
	noFooter    bool
	llmEnabled  bool
	llmProvider string
	llmModel    string
	llmRoles    string
)

// auditCmd represents the audit command
var auditCmd = &cobra.Command{
	Use:   "audit <document>",
	Short: "Audit one document's evidence provenance and write run artifacts",
	Long: `Audit runs the full provenance pipeline over one document:
- Decode producer payloads into typed, span-tracked evidence
- Aggregate without deduplication and surface extractor conflicts
- Measure character- and page-level coverage with gap detection
- Revalidate downstream claims and citations against the real text
- Apply the deterministic confidence penalty policy
- Write the run artifact set (run.json, aggregation.json, ...)

Payloads come from a directory of pre-recorded producer outputs
(--payloads, one file per producer) or live from an LLM backend (--llm).

Example:
  veridex audit contract.json --payloads ./payloads --out ./run
  veridex audit contract.json --payloads ./payloads --claims claims.json --out ./run
  veridex audit contract.json --llm --llm-provider ollama --llm-model llama3.1:8b --roles dates,amounts`,
	Args: cobra.ExactArgs(1),
	RunE: runAudit,
}

func init() {
	rootCmd.AddCommand(auditCmd)

	// Input flags
	auditCmd.Flags().StringVar(&payloadDir, "payloads", "", "directory of pre-recorded producer payloads")
	auditCmd.Flags().StringVar(&chunksPath, "chunks", "", "chunker output JSON for coverage (optional)")
	auditCmd.Flags().StringVar(&claimsPath, "claims", "", "downstream claims JSON to validate (optional)")

	// Output flags
	auditCmd.Flags().StringVar(&outputDir, "out", "./veridex-run", "output directory for run artifacts")
	auditCmd.Flags().StringVar(&outMD, "md", "", "markdown summary path (default: <out>/summary.md)")
	auditCmd.Flags().BoolVar(&noFooter, "no-footer", false, "disable footer in Markdown reports")

	// Tuning flags
	auditCmd.Flags().DurationVar(&timeout, "timeout", 5*time.Minute, "overall audit timeout")
	auditCmd.Flags().IntVar(&bucketSize, "bucket-size", 0, "conflict bucket width in characters (0 = default)")
	auditCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the excerpt-match cache")

	// LLM flags
	auditCmd.Flags().BoolVar(&llmEnabled, "llm", false, "produce payloads live via an LLM backend")
	auditCmd.Flags().StringVar(&llmProvider, "llm-provider", "openai", "LLM provider (openai, ollama)")
	auditCmd.Flags().StringVar(&llmModel, "llm-model", "gpt-4o-mini", "LLM model name")
	auditCmd.Flags().StringVar(&llmRoles, "roles", "", "comma-separated extraction roles to fan out (e.g. dates,amounts)")
}

func runAudit(cmd *cobra.Command, args []string) error {
	docPath := args[0]
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if verbose {
		fmt.Fprintf(os.Stderr, "Auditing: %s\n", docPath)
		fmt.Fprintf(os.Stderr, "Timeout: %v\n", timeout)
		fmt.Fprintf(os.Stderr, "Cache: %v\n", !noCache)
		fmt.Fprintln(os.Stderr)
	}

	cfg, err := buildConfig()
	if err != nil {
		return err
	}

	p := pipeline.NewPipeline(cfg)

	result, err := p.Audit(ctx, pipeline.AuditRequest{
		DocPath:    docPath,
		PayloadDir: payloadDir,
		Roles:      splitRoles(llmRoles),
		ChunksPath: chunksPath,
		ClaimsPath: claimsPath,
	})
	if err != nil {
		return fmt.Errorf("audit failed: %w", err)
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "✓ Aggregated %d evidence items from %d producers\n", len(result.Report.Items), len(result.Report.Producers))
		fmt.Fprintf(os.Stderr, "✓ Detected %d conflicts\n", len(result.Report.Conflicts))
		fmt.Fprintf(os.Stderr, "✓ Coverage: %.1f%%\n", result.Report.Coverage.CoveragePercent)
		fmt.Fprintf(os.Stderr, "✓ Adjusted confidence: %.2f\n", result.Report.Penalty.AdjustedConfidence)
		fmt.Fprintln(os.Stderr)
	}

	mdPath := outMD
	if mdPath == "" {
		mdPath = pipeline.MarkdownPathFor(outputDir)
	}
	if err := p.Render(result, outputDir, mdPath, verbose); err != nil {
		return fmt.Errorf("render failed: %w", err)
	}

	return nil
}

// buildConfig assembles the run configuration from defaults and flags
func buildConfig() (*model.Config, error) {
	cfg := model.DefaultConfig()
	cfg.Cache.Enabled = !noCache
	cfg.Output.Verbose = verbose
	cfg.Output.IncludeFooter = !noFooter
	if bucketSize > 0 {
		cfg.Aggregate.BucketSize = bucketSize
	}

	if llmEnabled {
		cfg.LLM.Provider = llmProvider
		cfg.LLM.Model = llmModel

		switch llmProvider {
		case "openai":
			cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
			if cfg.LLM.APIKey == "" {
				return nil, fmt.Errorf("OPENAI_API_KEY environment variable not set")
			}
		case "ollama":
			// Ollama doesn't need an API key
			if baseURL := os.Getenv("OLLAMA_BASE_URL"); baseURL != "" {
				cfg.LLM.BaseURL = baseURL
			}
		}
	}

	return cfg, nil
}

// splitRoles parses the comma-separated roles flag
func splitRoles(s string) []string {
	if s == "" {
		return nil
	}
	var roles []string
	for _, r := range strings.Split(s, ",") {
		if r = strings.TrimSpace(r); r != "" {
			roles = append(roles, r)
		}
	}
	return roles
}
