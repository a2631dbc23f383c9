package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sashabaranov/go-openai"
	"google.golang.org/genai"

	"github.com/dvloznov/rosacash/internal/config"
)

// Default model names per provider.
const (
	DefaultGeminiModel = "gemini-2.5-flash"
	DefaultOpenAIModel = "gpt-4o-mini"

	defaultMaxRetries  = 3
	defaultTemperature = 0.2
)

// ErrEmptyResponse is returned when the model answers with no text.
var ErrEmptyResponse = errors.New("empty response from model")

// Model generates a text completion for a system instruction and a user prompt.
type Model interface {
	Generate(ctx context.Context, system, prompt string) (string, error)
}

// NewModel builds the model selected by cfg.LLMProvider.
func NewModel(ctx context.Context, cfg *config.Config) (Model, error) {
	switch cfg.LLMProvider {
	case config.ProviderOpenAI:
		return NewOpenAIModel(openai.NewClient(cfg.OpenAIAPIKey), cfg.OpenAIModel), nil
	case config.ProviderGemini, "":
		return NewGeminiModel(ctx, cfg.GeminiModel)
	}
	return nil, fmt.Errorf("NewModel: unknown provider %q", cfg.LLMProvider)
}

// GeminiModel calls Gemini through the GenAI SDK.
type GeminiModel struct {
	client     *genai.Client
	name       string
	maxRetries uint64
}

// NewGeminiModel creates a Gemini client. Credentials come from the environment.
func NewGeminiModel(ctx context.Context, name string) (*GeminiModel, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("NewGeminiModel: create genai client: %w", err)
	}
	if name == "" {
		name = DefaultGeminiModel
	}
	return &GeminiModel{client: client, name: name, maxRetries: defaultMaxRetries}, nil
}

// Generate implements Model.
func (m *GeminiModel) Generate(ctx context.Context, system, prompt string) (string, error) {
	temperature := float32(defaultTemperature)
	cfg := &genai.GenerateContentConfig{
		Temperature: &temperature,
	}
	if system != "" {
		cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: system}}}
	}

	contents := []*genai.Content{
		{
			Role:  "user",
			Parts: []*genai.Part{{Text: prompt}},
		},
	}

	var text string
	err := retry(ctx, m.maxRetries, func() error {
		resp, err := m.client.Models.GenerateContent(ctx, m.name, contents, cfg)
		if err != nil {
			return fmt.Errorf("generate content: %w", err)
		}
		text = strings.TrimSpace(resp.Text())
		if text == "" {
			return ErrEmptyResponse
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("GeminiModel.Generate: %w", err)
	}
	return text, nil
}

// ChatCompleter is the part of the OpenAI client the model uses.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAIModel calls the OpenAI chat completions API.
type OpenAIModel struct {
	client     ChatCompleter
	name       string
	maxRetries uint64
}

// NewOpenAIModel wraps client. An empty name selects DefaultOpenAIModel.
func NewOpenAIModel(client ChatCompleter, name string) *OpenAIModel {
	if name == "" {
		name = DefaultOpenAIModel
	}
	return &OpenAIModel{client: client, name: name, maxRetries: defaultMaxRetries}
}

// Generate implements Model.
func (m *OpenAIModel) Generate(ctx context.Context, system, prompt string) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if system != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: system})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: prompt})

	req := openai.ChatCompletionRequest{
		Model:       m.name,
		Messages:    messages,
		Temperature: defaultTemperature,
	}

	var text string
	err := retry(ctx, m.maxRetries, func() error {
		resp, err := m.client.CreateChatCompletion(ctx, req)
		if err != nil {
			return fmt.Errorf("chat completion: %w", err)
		}
		if len(resp.Choices) == 0 {
			return ErrEmptyResponse
		}
		text = strings.TrimSpace(resp.Choices[0].Message.Content)
		if text == "" {
			return ErrEmptyResponse
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("OpenAIModel.Generate: %w", err)
	}
	return text, nil
}

// retry runs op with exponential backoff until it succeeds, maxRetries is exhausted or ctx ends.
func retry(ctx context.Context, maxRetries uint64, op func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxElapsedTime = 30 * time.Second

	return backoff.Retry(func() error {
		err := op()
		if err != nil && ctx.Err() != nil {
			return backoff.Permanent(err)
		}
		return err
	}, backoff.WithContext(backoff.WithMaxRetries(b, maxRetries), ctx))
}
