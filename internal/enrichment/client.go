package enrichment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/STRATINT/radar/internal/models"
	openai "github.com/sashabaranov/go-openai"
)

// summaryTemperature is slightly higher than analysis to allow prose.
const summaryTemperature = 0.3

// OpenAIConfig holds configuration for OpenAI API usage.
type OpenAIConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	MaxTokens   int
}

// DefaultOpenAIConfig returns the defaults used for regulatory analysis.
func DefaultOpenAIConfig() OpenAIConfig {
	return OpenAIConfig{
		Model:       openai.GPT4o,
		Temperature: 0.2,
		MaxTokens:   800,
	}
}

type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAIClient implements both Enricher and Summarizer on top of the chat
// completions API. Callers bound each call with a context deadline.
type OpenAIClient struct {
	chat    chatCompleter
	config  OpenAIConfig
	prompts *PromptTemplates
	logger  *slog.Logger
}

// NewOpenAIClient creates an OpenAI-backed collaborator.
func NewOpenAIClient(cfg OpenAIConfig, logger *slog.Logger) (*OpenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai api key is required")
	}
	defaults := DefaultOpenAIConfig()
	if cfg.Model == "" {
		cfg.Model = defaults.Model
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaults.MaxTokens
	}
	if logger == nil {
		logger = slog.Default()
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	return &OpenAIClient{
		chat:    openai.NewClientWithConfig(clientConfig),
		config:  cfg,
		prompts: NewPromptTemplates(),
		logger:  logger,
	}, nil
}

func (c *OpenAIClient) Available() bool { return true }

// Enrich sends every change in one request and maps the returned analysis
// entries back by position.
func (c *OpenAIClient) Enrich(ctx context.Context, changes []models.Change) ([]*models.Enrichment, error) {
	if len(changes) == 0 {
		return []*models.Enrichment{}, nil
	}

	prompt, err := c.prompts.BuildAnalysisPrompt(changes)
	if err != nil {
		return nil, &EnrichmentError{Err: err}
	}

	start := time.Now()
	content, err := c.complete(ctx, c.prompts.AnalysisSystemPrompt, prompt, c.config.Temperature, true)
	c.logger.Info("openai analysis call complete",
		"changes", len(changes),
		"duration_ms", time.Since(start).Milliseconds(),
		"success", err == nil)
	if err != nil {
		return nil, &EnrichmentError{Err: err}
	}

	enrichments, err := ParseAnalysis(content, len(changes))
	if err != nil {
		return nil, &EnrichmentError{Err: err}
	}
	return enrichments, nil
}

// Summarize asks the model for an executive summary of the cycle's alerts.
func (c *OpenAIClient) Summarize(ctx context.Context, result models.CycleResult) (string, error) {
	if len(result.Alerts) == 0 {
		return NoChangesSummary, nil
	}

	prompt, err := c.prompts.BuildSummaryPrompt(result.Alerts)
	if err != nil {
		return "", &SummaryError{Err: err}
	}

	start := time.Now()
	content, err := c.complete(ctx, c.prompts.SummarySystemPrompt, prompt, summaryTemperature, false)
	c.logger.Info("openai summary call complete",
		"alerts", len(result.Alerts),
		"duration_ms", time.Since(start).Milliseconds(),
		"success", err == nil)
	if err != nil {
		return "", &SummaryError{Err: err}
	}

	summary := strings.TrimSpace(content)
	if summary == "" {
		return "", &SummaryError{Err: errors.New("empty summary from openai")}
	}
	return summary, nil
}

func (c *OpenAIClient) complete(ctx context.Context, systemPrompt, userPrompt string, temperature float32, jsonMode bool) (string, error) {
	var request openai.ChatCompletionRequest

	if isReasoningModel(c.config.Model) {
		// Reasoning models reject system messages, temperature and JSON mode.
		request = openai.ChatCompletionRequest{
			Model:               c.config.Model,
			MaxCompletionTokens: c.config.MaxTokens,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleUser, Content: systemPrompt + "\n\n" + userPrompt},
			},
		}
	} else {
		request = openai.ChatCompletionRequest{
			Model:               c.config.Model,
			Temperature:         temperature,
			MaxCompletionTokens: c.config.MaxTokens,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
				{Role: openai.ChatMessageRoleUser, Content: userPrompt},
			},
		}
		if jsonMode {
			request.ResponseFormat = &openai.ChatCompletionResponseFormat{
				Type: openai.ChatCompletionResponseFormatTypeJSONObject,
			}
		}
	}

	resp, err := c.chat.CreateChatCompletion(ctx, request)
	if err != nil {
		return "", fmt.Errorf("openai api call failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from openai")
	}
	return resp.Choices[0].Message.Content, nil
}

func isReasoningModel(model string) bool {
	m := strings.ToLower(model)
	for _, prefix := range []string{"o1", "o3", "o4", "gpt-5"} {
		if strings.HasPrefix(m, prefix) {
			return true
		}
	}
	return false
}
