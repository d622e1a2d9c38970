package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/ppiankov/broadsheet/internal/model"
	"github.com/ppiankov/broadsheet/internal/pipeline"
	"github.com/ppiankov/broadsheet/internal/sink"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// runFlags are the flags shared by process and batch
type runFlags struct {
	timeout      time.Duration
	workers      int
	provider     string
	embedModel   string
	noCache      bool
	noRobots     bool
	noText       bool
	sinkDir      string
	s3Bucket     string
	kafkaBrokers []string
	kafkaTopic   string
	httpProxy    string
	httpsProxy   string
}

var (
	outJSON string
	outMD   string
	runOpts runFlags
)

// processCmd represents the process command
var processCmd = &cobra.Command{
	Use:   "process <source>",
	Short: "Reconstruct stories from one detected document",
	Long: `Process reads one layout-detector document and:
- Checks each page's layout quality, falling back to alternative blocks
- Orders blocks into columns and reading order
- Groups headlines, bylines and bodies into items
- Scores every item for ad likelihood and salience, with reasons
- Links story continuations across pages into complete stories

The source is a JSON, YAML or hOCR file path, or an http(s) URL.

Example:
  broadsheet process issue-0412.json
  broadsheet process scans/issue-0412.hocr --md report.md
  broadsheet process https://archive.example.org/issue.json --embedding-provider openai`,
	Args: cobra.ExactArgs(1),
	RunE: runProcess,
}

func init() {
	rootCmd.AddCommand(processCmd)

	processCmd.Flags().StringVar(&outJSON, "json", "report.json", "output JSON path (empty to skip)")
	processCmd.Flags().StringVar(&outMD, "md", "", "output Markdown path (optional)")
	addRunFlags(processCmd.Flags(), &runOpts, 5*time.Minute)
}

func addRunFlags(fs *pflag.FlagSet, f *runFlags, defaultTimeout time.Duration) {
	fs.DurationVar(&f.timeout, "timeout", defaultTimeout, "overall timeout")
	fs.IntVar(&f.workers, "workers", 0, "pages processed in parallel (default: config or CPU count)")
	fs.StringVar(&f.provider, "embedding-provider", "", "embedding provider for semantic linking (openai, cohere, ollama)")
	fs.StringVar(&f.embedModel, "embedding-model", "", "embedding model name")
	fs.BoolVar(&f.noCache, "no-cache", false, "disable fetch and embedding caches")
	fs.BoolVar(&f.noRobots, "no-robots", false, "ignore robots.txt for remote sources")
	fs.BoolVar(&f.noText, "no-text", false, "omit item and story text from reports")
	fs.StringVar(&f.sinkDir, "sink-dir", "", "also store reports under this directory")
	fs.StringVar(&f.s3Bucket, "s3-bucket", "", "also upload reports to this S3 bucket")
	fs.StringSliceVar(&f.kafkaBrokers, "kafka-brokers", nil, "also publish stories to these Kafka brokers")
	fs.StringVar(&f.kafkaTopic, "kafka-topic", "", "Kafka topic (default: "+sink.DefaultKafkaTopic+")")
	fs.StringVar(&f.httpProxy, "http-proxy", "", "HTTP proxy URL (overrides HTTP_PROXY env var)")
	fs.StringVar(&f.httpsProxy, "https-proxy", "", "HTTPS proxy URL (overrides HTTPS_PROXY env var)")
}

// buildConfig loads the layered configuration and applies changed flags
func buildConfig(cmd *cobra.Command, f *runFlags) (*model.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("workers") {
		cfg.Concurrency.Workers = f.workers
	}
	if flags.Changed("embedding-provider") {
		cfg.Embedding.Provider = f.provider
	}
	if flags.Changed("embedding-model") {
		cfg.Embedding.Model = f.embedModel
	}
	if f.noCache {
		cfg.Cache.Enabled = false
	}
	if f.noRobots {
		cfg.HTTP.RespectRobots = false
	}
	if f.noText {
		cfg.Output.IncludeText = false
	}
	if f.sinkDir != "" {
		cfg.Sink.Dir = f.sinkDir
	}
	if f.s3Bucket != "" {
		cfg.Sink.S3Bucket = f.s3Bucket
	}
	if len(f.kafkaBrokers) > 0 {
		cfg.Sink.KafkaBrokers = f.kafkaBrokers
	}
	if f.kafkaTopic != "" {
		cfg.Sink.KafkaTopic = f.kafkaTopic
	}
	if f.httpProxy != "" {
		cfg.HTTP.HTTPProxy = f.httpProxy
	}
	if f.httpsProxy != "" {
		cfg.HTTP.HTTPSProxy = f.httpsProxy
	}
	cfg.Output.Verbose = cfg.Output.Verbose || verbose

	return cfg, nil
}

// newPipeline builds the pipeline and its configured sinks
func newPipeline(ctx context.Context, cfg *model.Config) (*pipeline.Pipeline, error) {
	s, err := sink.NewFromConfig(ctx, cfg.Sink)
	if err != nil {
		return nil, err
	}
	p, err := pipeline.NewPipelineWithDeps(cfg, pipeline.Deps{Sink: s})
	if err != nil {
		if s != nil {
			_ = s.Close()
		}
		return nil, err
	}
	return p, nil
}

func runProcess(cmd *cobra.Command, args []string) error {
	source := args[0]

	cfg, err := buildConfig(cmd, &runOpts)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), runOpts.timeout)
	defer cancel()

	if cfg.Output.Verbose {
		fmt.Fprintf(os.Stderr, "Processing: %s\n", source)
		fmt.Fprintf(os.Stderr, "Timeout: %v\n", runOpts.timeout)
		fmt.Fprintf(os.Stderr, "Cache: %v\n", cfg.Cache.Enabled)
		if cfg.Embedding.Provider != "" {
			fmt.Fprintf(os.Stderr, "Embedding: %s %s\n", cfg.Embedding.Provider, cfg.Embedding.Model)
		}
		fmt.Fprintln(os.Stderr)
	}

	p, err := newPipeline(ctx, cfg)
	if err != nil {
		return fmt.Errorf("create pipeline: %w", err)
	}
	defer func() { _ = p.Close() }()

	report, err := p.ProcessSource(ctx, source)
	if err != nil {
		return fmt.Errorf("process failed: %w", err)
	}

	renderer := p.Renderer()
	if outJSON != "" {
		if err := renderer.RenderJSON(report, outJSON); err != nil {
			return fmt.Errorf("render JSON: %w", err)
		}
		if cfg.Output.Verbose {
			fmt.Fprintf(os.Stderr, "Wrote JSON: %s\n", outJSON)
		}
	}
	if outMD != "" {
		if err := renderer.RenderMarkdown(report, outMD); err != nil {
			return fmt.Errorf("render markdown: %w", err)
		}
		if cfg.Output.Verbose {
			fmt.Fprintf(os.Stderr, "Wrote Markdown: %s\n", outMD)
		}
	}

	renderer.WriteSummary(os.Stderr, report)
	return nil
}
