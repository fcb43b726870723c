package ai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/twocards/backoffice/internal/apperr"
)

const arkProvider = "ark"

// Ark generates descriptions through an eino chain over a chat model.
// Image generation is not offered by this provider.
type Ark struct {
	chain   compose.Runnable[map[string]any, *schema.Message]
	prompts *PromptBuilder
	logger  *slog.Logger
}

var _ Generator = (*Ark)(nil)

// NewArk compiles the prompt→model chain.
func NewArk(ctx context.Context, chatModel model.BaseChatModel, logger *slog.Logger) (*Ark, error) {
	if chatModel == nil {
		return nil, errors.New("chat model is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile description chain: %w", err)
	}

	return &Ark{chain: runnable, prompts: NewPromptBuilder(), logger: logger}, nil
}

func (a *Ark) input(req DescriptionRequest) map[string]any {
	return map[string]any{
		"system": a.prompts.System(req),
		"query":  a.prompts.User(req),
	}
}

// Describe implements Generator.
func (a *Ark) Describe(ctx context.Context, req DescriptionRequest) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}

	resp, err := a.chain.Invoke(ctx, a.input(req))
	if err != nil {
		return "", apperr.Gateway(arkProvider, err)
	}

	a.logger.Debug("generated description", "provider", arkProvider, "length", len(resp.Content))
	return strings.TrimSpace(resp.Content), nil
}

// StreamDescribe implements Generator.
func (a *Ark) StreamDescribe(ctx context.Context, req DescriptionRequest, onChunk func(string) error) error {
	if err := req.Validate(); err != nil {
		return err
	}

	stream, err := a.chain.Stream(ctx, a.input(req))
	if err != nil {
		return apperr.Gateway(arkProvider, err)
	}
	defer stream.Close()

	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return apperr.Gateway(arkProvider, err)
		}
		if chunk == nil || chunk.Content == "" {
			continue
		}
		if err := onChunk(chunk.Content); err != nil {
			return err
		}
	}
}

// Image implements Generator.
func (a *Ark) Image(context.Context, string) (string, error) {
	return "", &apperr.GatewayError{Provider: arkProvider, Err: errors.New("image generation is not supported")}
}
