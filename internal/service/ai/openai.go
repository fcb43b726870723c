package ai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/twocards/backoffice/internal/apperr"
	"github.com/twocards/backoffice/internal/gateway/rest"
)

const openAIProvider = "openai"

// ErrNotConfigured is returned when the provider has no API key.
var ErrNotConfigured = errors.New("ai provider is not configured")

// OpenAIConfig selects endpoint and models.
type OpenAIConfig struct {
	BaseURL    string
	Model      string
	ImageModel string
}

// OpenAI generates content through the OpenAI API. The key is resolved per
// call so a key saved in settings is used without a restart.
type OpenAI struct {
	cfg     OpenAIConfig
	creds   rest.Credentials
	prompts *PromptBuilder
}

var _ Generator = (*OpenAI)(nil)

// NewOpenAI creates the provider.
func NewOpenAI(cfg OpenAIConfig, creds rest.Credentials) *OpenAI {
	if cfg.Model == "" {
		cfg.Model = openai.GPT4oMini
	}
	if cfg.ImageModel == "" {
		cfg.ImageModel = openai.CreateImageModelDallE3
	}
	return &OpenAI{cfg: cfg, creds: creds, prompts: NewPromptBuilder()}
}

func (o *OpenAI) client(ctx context.Context) (*openai.Client, error) {
	key, ok := o.creds.Lookup(ctx, "OPENAI_API_KEY")
	if !ok {
		return nil, apperr.Gateway(openAIProvider, ErrNotConfigured)
	}
	config := openai.DefaultConfig(key)
	if o.cfg.BaseURL != "" {
		config.BaseURL = o.cfg.BaseURL
	}
	return openai.NewClientWithConfig(config), nil
}

func (o *OpenAI) messages(req DescriptionRequest) []openai.ChatCompletionMessage {
	return []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: o.prompts.System(req)},
		{Role: openai.ChatMessageRoleUser, Content: o.prompts.User(req)},
	}
}

// Describe implements Generator.
func (o *OpenAI) Describe(ctx context.Context, req DescriptionRequest) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}
	client, err := o.client(ctx)
	if err != nil {
		return "", err
	}

	resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    o.cfg.Model,
		Messages: o.messages(req),
	})
	if err != nil {
		return "", gatewayError(err)
	}
	if len(resp.Choices) == 0 {
		return "", apperr.Gateway(openAIProvider, errors.New("no response choices"))
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// StreamDescribe implements Generator.
func (o *OpenAI) StreamDescribe(ctx context.Context, req DescriptionRequest, onChunk func(string) error) error {
	if err := req.Validate(); err != nil {
		return err
	}
	client, err := o.client(ctx)
	if err != nil {
		return err
	}

	stream, err := client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:    o.cfg.Model,
		Messages: o.messages(req),
		Stream:   true,
	})
	if err != nil {
		return gatewayError(err)
	}
	defer stream.Close()

	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return gatewayError(err)
		}
		if len(resp.Choices) == 0 || resp.Choices[0].Delta.Content == "" {
			continue
		}
		if err := onChunk(resp.Choices[0].Delta.Content); err != nil {
			return err
		}
	}
}

// Image implements Generator.
func (o *OpenAI) Image(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", apperr.Invalid("prompt is required")
	}
	client, err := o.client(ctx)
	if err != nil {
		return "", err
	}

	resp, err := client.CreateImage(ctx, openai.ImageRequest{
		Prompt:         prompt,
		Model:          o.cfg.ImageModel,
		N:              1,
		Size:           openai.CreateImageSize1024x1024,
		ResponseFormat: openai.CreateImageResponseFormatURL,
	})
	if err != nil {
		return "", gatewayError(err)
	}
	if len(resp.Data) == 0 || resp.Data[0].URL == "" {
		return "", apperr.Gateway(openAIProvider, errors.New("no image returned"))
	}
	return resp.Data[0].URL, nil
}

func gatewayError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &apperr.GatewayError{Provider: openAIProvider, Status: apiErr.HTTPStatusCode, Err: err}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &apperr.GatewayError{Provider: openAIProvider, Status: reqErr.HTTPStatusCode, Err: err}
	}
	return apperr.Gateway(openAIProvider, fmt.Errorf("request failed: %w", err))
}
