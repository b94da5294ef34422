// Package anthropic scores candidate labels with the Anthropic Messages API.
package anthropic

import (
	"context"
	"errors"
	"fmt"
	"strings"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.uber.org/zap"

	"github.com/kailas-cloud/errmatch/internal/domain"
	"github.com/kailas-cloud/errmatch/internal/transport/prompt"
)

// DefaultMaxTokens bounds the JSON answer.
const DefaultMaxTokens = 512

// Config holds the classifier settings.
type Config struct {
	APIKey      string
	BaseURL     string // optional, useful for testing against a mock server
	Model       string
	Temperature float64
	MaxTokens   int
	// MaxRetries is the SDK retry count; negative keeps the SDK default.
	MaxRetries int
	Logger     *zap.Logger
}

// Classifier implements domain.Classifier on top of Messages.New.
type Classifier struct {
	client      anthropicsdk.Client
	model       string
	temperature float64
	maxTokens   int64
	logger      *zap.Logger
}

// NewClassifier creates a Messages API classifier.
func NewClassifier(cfg Config) (*Classifier, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic: missing api_key in config")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("anthropic: missing model in config")
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.MaxRetries >= 0 {
		opts = append(opts, option.WithMaxRetries(cfg.MaxRetries))
	}

	maxTokens := int64(cfg.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	return &Classifier{
		client:      anthropicsdk.NewClient(opts...),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   maxTokens,
		logger:      cfg.Logger,
	}, nil
}

// Classify implements domain.Classifier.
func (c *Classifier) Classify(ctx context.Context, text string, labels []string) ([]domain.LabelScore, error) {
	params := anthropicsdk.MessageNewParams{
		Model:     anthropicsdk.Model(c.model),
		MaxTokens: c.maxTokens,
		System: []anthropicsdk.TextBlockParam{
			{Text: prompt.System},
		},
		Messages: []anthropicsdk.MessageParam{
			anthropicsdk.NewUserMessage(anthropicsdk.NewTextBlock(prompt.User(text, labels))),
		},
		Temperature: anthropicsdk.Float(c.temperature),
	}

	msg, err := c.client.Messages.New(ctx, params)
	if err != nil {
		var apiErr *anthropicsdk.Error
		if errors.As(err, &apiErr) {
			return nil, fmt.Errorf("anthropic API error %d: %w: %w", apiErr.StatusCode, domain.ErrClassifierProviderError, err)
		}
		return nil, fmt.Errorf("anthropic request: %w: %w", domain.ErrClassifierProviderError, err)
	}

	var reply strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			reply.WriteString(block.Text)
		}
	}

	c.logger.Debug("Anthropic classification completed",
		zap.String("model", c.model),
		zap.Int64("input_tokens", msg.Usage.InputTokens),
		zap.Int64("output_tokens", msg.Usage.OutputTokens),
		zap.String("stop_reason", string(msg.StopReason)),
	)

	return prompt.ParseScores(reply.String())
}
