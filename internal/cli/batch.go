package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ppiankov/broadsheet/internal/worker"
	"github.com/spf13/cobra"
)

var (
	concurrency int
	outputDir   string
	writeMD     bool
	batchOpts   runFlags
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Process many documents listed in a file",
	Long: `Batch processes documents concurrently:
- Read sources from an input file (one path or URL per line, # comments)
- Process documents in parallel, pages in parallel within each document
- Rate limit requests per remote host
- Write one report per document

Example:
  broadsheet batch issues.txt
  broadsheet batch issues.txt --concurrency 4 --output-dir ./reports --md`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&concurrency, "concurrency", 0, "documents processed in parallel (default: config)")
	batchCmd.Flags().StringVar(&outputDir, "output-dir", "./broadsheet-reports", "output directory for reports")
	batchCmd.Flags().BoolVar(&writeMD, "md", false, "also write Markdown reports")
	addRunFlags(batchCmd.Flags(), &batchOpts, 30*time.Minute)
}

func runBatch(cmd *cobra.Command, args []string) error {
	file := args[0]

	cfg, err := buildConfig(cmd, &batchOpts)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("concurrency") {
		cfg.Concurrency.Documents = concurrency
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), batchOpts.timeout)
	defer cancel()

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Broadsheet batch\n")
	fmt.Fprintf(os.Stderr, "  Input file:   %s\n", file)
	fmt.Fprintf(os.Stderr, "  Documents:    %d in parallel\n", cfg.Concurrency.Documents)
	fmt.Fprintf(os.Stderr, "  Output dir:   %s\n", outputDir)
	fmt.Fprintf(os.Stderr, "  Timeout:      %v\n", batchOpts.timeout)
	fmt.Fprintf(os.Stderr, "\n")

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	p, err := newPipeline(ctx, cfg)
	if err != nil {
		return fmt.Errorf("create pipeline: %w", err)
	}
	defer func() { _ = p.Close() }()

	processor := worker.NewBatchProcessor(p, cfg.Concurrency.Documents, cfg.HTTP.RequestsPerSecond, cfg.HTTP.Burst)

	results, err := processor.ProcessFile(ctx, file)
	if err != nil {
		return fmt.Errorf("process file: %w", err)
	}

	renderer := p.Renderer()
	successCount, failureCount := 0, 0
	for _, result := range results {
		if result.Error != nil {
			failureCount++
			fmt.Fprintf(os.Stderr, "x %s: %v\n", result.Source, result.Error)
			continue
		}

		base := filepath.Join(outputDir, reportBaseName(result.Index, result.Report.DocumentID))
		if err := renderer.RenderJSON(result.Report, base+".json"); err != nil {
			failureCount++
			fmt.Fprintf(os.Stderr, "x %s: write JSON: %v\n", result.Source, err)
			continue
		}
		if writeMD {
			if err := renderer.RenderMarkdown(result.Report, base+".md"); err != nil {
				failureCount++
				fmt.Fprintf(os.Stderr, "x %s: write Markdown: %v\n", result.Source, err)
				continue
			}
		}

		successCount++
		fmt.Fprintf(os.Stderr, "ok %s (%d pages, %d stories, %d jumps)\n",
			result.Source, len(result.Report.Pages), len(result.Report.Stories), result.Report.JumpCount())
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Total:     %d documents\n", len(results))
	fmt.Fprintf(os.Stderr, "  Success:   %d\n", successCount)
	fmt.Fprintf(os.Stderr, "  Failures:  %d\n", failureCount)
	fmt.Fprintf(os.Stderr, "  Output:    %s\n", outputDir)
	if hosts := processor.Hosts(); len(hosts) > 0 {
		fmt.Fprintf(os.Stderr, "  Hosts:     %s\n", strings.Join(hosts, ", "))
	}
	fmt.Fprintf(os.Stderr, "\n")

	if failureCount > 0 && successCount == 0 {
		return fmt.Errorf("all %d documents failed", failureCount)
	}
	return nil
}

// reportBaseName builds a file name unique within one batch
func reportBaseName(index int, documentID string) string {
	return fmt.Sprintf("%03d-%s", index+1, sanitizeFilename(documentID))
}

var filenameReplacer = strings.NewReplacer(
	"/", "_",
	"\\", "_",
	":", "_",
	"*", "_",
	"?", "_",
	"\"", "_",
	"<", "_",
	">", "_",
	"|", "_",
	" ", "-",
)

// sanitizeFilename makes s safe to use as a file name
func sanitizeFilename(s string) string {
	s = filenameReplacer.Replace(strings.TrimSpace(s))
	s = strings.Trim(s, ".")
	if s == "" {
		s = "document"
	}
	if len(s) > 100 {
		s = s[:100]
	}
	return s
}
