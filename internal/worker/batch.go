package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/policyscope/policyscope/internal/model"
)

// Analyzer produces a risk analysis for one domain
type Analyzer interface {
	AnalyzeDomain(ctx context.Context, domain string) (*model.Analysis, error)
}

// AnalyzeJob analyzes a single domain
type AnalyzeJob struct {
	Domain   string
	Analyzer Analyzer
}

// Execute implements Job
func (j *AnalyzeJob) Execute(ctx context.Context) Result {
	analysis, err := j.Analyzer.AnalyzeDomain(ctx, j.Domain)
	return &AnalyzeResult{
		Domain:   j.Domain,
		Analysis: analysis,
		Error:    err,
	}
}

// AnalyzeResult is the outcome of analyzing one domain
type AnalyzeResult struct {
	Domain   string
	Analysis *model.Analysis
	Error    error
}

// Err implements Result
func (r *AnalyzeResult) Err() error {
	return r.Error
}

// BatchProcessor analyzes many domains concurrently
type BatchProcessor struct {
	analyzer    Analyzer
	concurrency int
}

// NewBatchProcessor creates a batch processor with the given concurrency
func NewBatchProcessor(analyzer Analyzer, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		analyzer:    analyzer,
		concurrency: concurrency,
	}
}

// ProcessDomains analyzes the given domains and returns one result each
func (b *BatchProcessor) ProcessDomains(ctx context.Context, domains []string) []*AnalyzeResult {
	if len(domains) == 0 {
		return []*AnalyzeResult{}
	}

	pool := NewPool(ctx, b.concurrency)
	pool.Start()

	for _, domain := range domains {
		pool.Submit(&AnalyzeJob{
			Domain:   domain,
			Analyzer: b.analyzer,
		})
	}

	results := pool.Wait()

	analyzeResults := make([]*AnalyzeResult, len(results))
	for i, result := range results {
		analyzeResults[i] = result.(*AnalyzeResult)
	}
	return analyzeResults
}

// ProcessFile reads domains from a file and analyzes them concurrently
func (b *BatchProcessor) ProcessFile(ctx context.Context, filePath string) ([]*AnalyzeResult, error) {
	domains, err := ReadDomainsFromFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read domains: %w", err)
	}
	return b.ProcessDomains(ctx, domains), nil
}

// ReadDomainsFromFile reads domains from a file, one per line. Blank lines
// and #-comments are skipped, duplicates dropped.
func ReadDomainsFromFile(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var domains []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !seen[line] {
			seen[line] = true
			domains = append(domains, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}
	return domains, nil
}
