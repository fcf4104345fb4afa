// Package llm implements the credentialed judgment provider that turns
// policy text into a structured risk verdict. The orchestrator falls back to
// heuristic scoring whenever judgment is unavailable or fails.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/policyscope/policyscope/internal/model"
	"github.com/policyscope/policyscope/internal/score"
	"github.com/policyscope/policyscope/internal/util"
)

// ErrMissingCredential distinguishes "no API key configured" from judgment
// failures, so a manual-trigger caller can point the user at configuration.
var ErrMissingCredential = errors.New("no API key configured")

// Provider produces a structured risk verdict for policy text
type Provider interface {
	// Name returns the provider name
	Name() string

	// Judge analyzes the combined policy text and returns a full Analysis,
	// or an error when the provider is unreachable or its output is
	// malformed. Judge never returns a partial Analysis.
	Judge(ctx context.Context, req JudgeRequest) (*model.Analysis, error)
}

// JudgeRequest is the input for one judgment call
type JudgeRequest struct {
	// Domain the policy text belongs to
	Domain string

	// Content is the combined terms+privacy text
	Content string

	// Heuristic carries the prior keyword findings; they are included in the
	// prompt as context for the model
	Heuristic score.Result
}

// Config holds judgment provider configuration
type Config struct {
	APIKey         string
	Model          string
	BaseURL        string
	MaxTokens      int
	Timeout        time.Duration
	MaxPromptChars int
}

// BuildPrompt constructs the judgment prompt: domain, the heuristic findings
// as context, the (truncated) policy text, and strict JSON output
// instructions.
func BuildPrompt(req JudgeRequest, maxChars int) string {
	content := req.Content
	if maxChars > 0 && len(content) > maxChars {
		content = util.Truncate(content, maxChars) + "..."
	}

	return fmt.Sprintf(`Analyze the following Terms & Conditions and/or Privacy Policy from %s.

Initial automated analysis found:
- High risk factors: %s
- Medium risk factors: %s
- Low risk factors: %s
- Initial risk score: %d/100

TEXT TO ANALYZE:
%s

Even if this isn't explicitly a terms of service page, analyze it as if it were and extract any relevant legal or policy information.

Provide the following:
1. A concise summary (maximum 5 bullet points) of the most important points
2. An overall risk assessment score (0-100)
3. A list of 3-5 specific risk factors with:
   - Title
   - Brief description
   - Risk level (high/medium/low)

Format your response as JSON:
{
  "summary": "Bullet point summary in HTML format",
  "riskScore": number,
  "riskFactors": [
    {
      "title": "string",
      "description": "string",
      "level": "high|medium|low"
    }
  ]
}
`, req.Domain,
		joinOrNone(req.Heuristic.HighMatches),
		joinOrNone(req.Heuristic.MediumMatches),
		joinOrNone(req.Heuristic.LowMatches),
		req.Heuristic.Score,
		content)
}

func joinOrNone(matches []string) string {
	if len(matches) == 0 {
		return "None"
	}
	return strings.Join(matches, ", ")
}
