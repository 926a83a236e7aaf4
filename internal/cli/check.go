package cli

import (
	"fmt"
	"os"

	"github.com/ppiankov/veridex/internal/consistency"
	"github.com/ppiankov/veridex/internal/model"
	"github.com/spf13/cobra"
)

var noMeta bool

// checkCmd represents the check command
var checkCmd = &cobra.Command{
	Use:   "check <run-dir>",
	Short: "Meta-validate a finished run directory",
	Long: `Check audits a run directory against itself:
- Every expected artifact is present and decodable
- Counts, sums and percentages re-derive to the recorded values
- Every referenced document is declared in the run manifest
- Timestamps fall inside the plausible window

The verdict is written back as meta.json. Exit status is non-zero when
the run is inconsistent.

Example:
  veridex check ./veridex-run
  veridex check ./runs/contract --no-meta`,
	Args: cobra.ExactArgs(1),
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().BoolVar(&noMeta, "no-meta", false, "do not write meta.json into the run directory")
}

func runCheck(cmd *cobra.Command, args []string) error {
	dir := args[0]

	cfg := model.DefaultConfig()
	checker := consistency.NewChecker(cfg.Consistency)

	report, err := checker.Check(dir)
	if err != nil {
		return fmt.Errorf("check failed: %w", err)
	}

	if !noMeta {
		if err := checker.WriteMeta(dir, report); err != nil {
			return fmt.Errorf("write meta: %w", err)
		}
	}

	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Consistency Check: %s\n", dir)
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	for _, check := range report.Checks {
		marker := "•"
		switch check.Severity {
		case model.SeverityError:
			marker = "✗"
		case model.SeverityWarning:
			marker = "!"
		}
		fmt.Fprintf(os.Stderr, "  %s [%s] %s: %s\n", marker, check.Severity, check.Name, check.Message)
	}
	if len(report.Checks) == 0 {
		fmt.Fprintf(os.Stderr, "  All checks passed.\n")
	}
	fmt.Fprintf(os.Stderr, "───────────────────────────────────────────────────────────\n")
	fmt.Fprintf(os.Stderr, "  %d errors, %d warnings, %d info\n", report.Errors, report.Warnings, report.Infos)
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")

	if !report.IsConsistent {
		return fmt.Errorf("run directory is inconsistent (%d errors)", report.Errors)
	}
	return nil
}
