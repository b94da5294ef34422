package openai

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/errmatch/internal/domain"
	"github.com/kailas-cloud/errmatch/internal/transport/prompt"
)

// ClassifierConfig configures the chat-completion classifier.
type ClassifierConfig struct {
	Config
	Temperature float32
	MaxTokens   int
}

// Classifier scores labels with a chat model that answers in JSON mode.
type Classifier struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
	logger      *zap.Logger
}

// NewClassifier creates a chat-completion classifier.
func NewClassifier(cfg *ClassifierConfig) *Classifier {
	return &Classifier{
		client:      newClient(&cfg.Config),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		logger:      cfg.Logger,
	}
}

// Classify implements domain.Classifier.
func (c *Classifier) Classify(ctx context.Context, text string, labels []string) ([]domain.LabelScore, error) {
	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: prompt.System},
			{Role: openai.ChatMessageRoleUser, Content: prompt.User(text, labels)},
		},
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, parseAPIError(err, domain.ErrClassifierProviderError)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("empty completion: %w", domain.ErrClassifierProviderError)
	}

	c.logger.Debug("Chat classification completed",
		zap.String("model", c.model),
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
	)

	return prompt.ParseScores(resp.Choices[0].Message.Content)
}

// HealthCheck verifies API availability via ListModels.
func (c *Classifier) HealthCheck(ctx context.Context) error {
	if _, err := c.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}
