package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/policyscope/policyscope/internal/model"
	"github.com/sashabaranov/go-openai"
)

// OpenAIJudge implements Provider on OpenAI's Chat Completions API
type OpenAIJudge struct {
	client *openai.Client
	config Config
}

// NewOpenAIJudge creates an OpenAI-backed judgment provider
func NewOpenAIJudge(config Config) (*OpenAIJudge, error) {
	if config.APIKey == "" {
		return nil, ErrMissingCredential
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}

	return &OpenAIJudge{
		client: openai.NewClientWithConfig(clientConfig),
		config: config,
	}, nil
}

// Name returns the provider name
func (j *OpenAIJudge) Name() string {
	return "openai"
}

// Judge sends the policy text plus heuristic findings for judgment and
// parses the structured verdict leniently.
func (j *OpenAIJudge) Judge(ctx context.Context, req JudgeRequest) (*model.Analysis, error) {
	judgeModel := j.config.Model
	if judgeModel == "" {
		judgeModel = openai.GPT4oMini
	}

	maxTokens := j.config.MaxTokens
	if maxTokens == 0 {
		maxTokens = 1000
	}

	timeout := j.config.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	ctxWithTimeout, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	chatReq := openai.ChatCompletionRequest{
		Model: judgeModel,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleSystem,
				Content: "You are a legal expert that analyzes Terms & Conditions and " +
					"Privacy Policies. Format your response strictly as JSON.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: BuildPrompt(req, j.config.MaxPromptChars),
			},
		},
		MaxTokens:   maxTokens,
		Temperature: 0.7,
	}

	resp, err := j.client.CreateChatCompletion(ctxWithTimeout, chatReq)
	if err != nil {
		return nil, fmt.Errorf("OpenAI API error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from OpenAI")
	}

	v, err := DecodeVerdict(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, fmt.Errorf("decode verdict: %w", err)
	}

	analysis := analysisFromVerdict(v, req.Domain)
	analysis.Timestamp = time.Now()
	return analysis, nil
}
