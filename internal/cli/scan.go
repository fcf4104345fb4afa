package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/policyscope/policyscope/internal/model"
	"github.com/policyscope/policyscope/internal/orchestrator"
	"github.com/policyscope/policyscope/internal/settings"
	"github.com/policyscope/policyscope/internal/store"
)

var (
	outJSON    string
	timeout    time.Duration
	userAgent  string
	maxBytes   int64
	noRobots   bool
	noCache    bool
	cacheDir   string
	httpProxy  string
	httpsProxy string
	llmModel   string
)

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan <domain-or-url>",
	Short: "Analyze the policies of a single website",
	Long: `Scan locates a website's Terms of Service and Privacy Policy through
well-known paths, retrieves and extracts the policy text, and produces a
risk analysis:
- A 0-100 risk score
- The specific risk factors found, each with a severity level
- A summary of what the policies allow

With OPENAI_API_KEY set, a language model refines the heuristic verdict.

Example:
  policyscope scan example.com
  policyscope scan https://example.com --json report.json
  policyscope scan example.com --llm-model gpt-4o-mini`,
	Args: cobra.ExactArgs(1),
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)

	// Output flags
	scanCmd.Flags().StringVar(&outJSON, "json", "", "output JSON path (default: stdout)")

	// HTTP flags
	scanCmd.Flags().DurationVar(&timeout, "timeout", 60*time.Second, "overall analysis timeout")
	scanCmd.Flags().StringVar(&userAgent, "ua", "", "HTTP User-Agent override")
	scanCmd.Flags().Int64Var(&maxBytes, "max-bytes", 2_000_000, "max response bytes to read")
	scanCmd.Flags().BoolVar(&noRobots, "no-robots", false, "skip robots.txt checks")
	scanCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the document cache (force fresh fetches)")
	scanCmd.Flags().StringVar(&cacheDir, "cache-dir", "", "persist fetched documents under this directory")
	scanCmd.Flags().StringVar(&httpProxy, "http-proxy", "", "HTTP proxy URL (overrides HTTP_PROXY env var)")
	scanCmd.Flags().StringVar(&httpsProxy, "https-proxy", "", "HTTPS proxy URL (overrides HTTPS_PROXY env var)")

	// LLM flags
	scanCmd.Flags().StringVar(&llmModel, "llm-model", "", "LLM model name (default: gpt-4o-mini)")
}

func runScan(cmd *cobra.Command, args []string) error {
	target := args[0]
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	cfg := buildConfig()
	analyzer := newAnalyzer(cfg)

	if verbose {
		fmt.Fprintf(os.Stderr, "Analyzing: %s\n", target)
		fmt.Fprintf(os.Stderr, "Timeout: %v\n", timeout)
		fmt.Fprintln(os.Stderr)
	}

	analysis, err := analyzer.AnalyzeDomain(ctx, target)
	if err != nil {
		return fmt.Errorf("analyze failed: %w", err)
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "✓ Risk score: %d/100 (%s)\n", analysis.RiskScore, model.RiskLevelForScore(analysis.RiskScore))
		fmt.Fprintf(os.Stderr, "✓ Risk factors: %d\n", len(analysis.RiskFactors))
		if analysis.IsFallback {
			fmt.Fprintf(os.Stderr, "✓ Heuristic analysis (no LLM verdict)\n")
		}
		fmt.Fprintln(os.Stderr)
	}

	return renderAnalysis(analysis, outJSON)
}

// renderAnalysis writes the analysis as indented JSON to the given path, or
// to stdout when the path is empty
func renderAnalysis(analysis *model.Analysis, path string) error {
	data, err := json.MarshalIndent(analysis, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal analysis: %w", err)
	}
	if path == "" {
		fmt.Println(string(data))
		return nil
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	if verbose {
		fmt.Fprintf(os.Stderr, "✓ Wrote %s\n", path)
	}
	return nil
}

// buildConfig assembles the effective configuration from defaults and flags
func buildConfig() *model.Config {
	cfg := model.DefaultConfig()
	if userAgent != "" {
		cfg.HTTP.UserAgent = userAgent
	}
	cfg.HTTP.MaxBodyBytes = maxBytes
	cfg.HTTP.HTTPProxy = httpProxy
	cfg.HTTP.HTTPSProxy = httpsProxy
	if noRobots {
		cfg.Fetch.RespectRobots = false
	}
	if noCache {
		cfg.Cache.ContentTTL = 0
	}
	if cacheDir != "" {
		cfg.Cache.Dir = cacheDir
	}
	if llmModel != "" {
		cfg.LLM.Model = llmModel
	}
	if addr := viper.GetString("server.addr"); addr != "" {
		cfg.Server.Addr = addr
	}
	return cfg
}

// newAnalyzer builds a one-shot orchestrator over the shared viper instance.
// The API key comes from the config file or the OPENAI_API_KEY environment
// variable; without one, analyses are heuristic-only.
func newAnalyzer(cfg *model.Config) *orchestrator.Orchestrator {
	set := settings.New(viper.GetViper())
	if set.Credential() == "" {
		if key := os.Getenv("OPENAI_API_KEY"); key != "" {
			set.Set(settings.KeyAPIKey, key)
		}
	}
	st := store.New(cfg.Cache)
	return orchestrator.NewDefault(cfg, st, set, nil, orchestrator.NopSink{})
}
