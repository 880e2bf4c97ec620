package llm

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
)

// systemText must stay free of template braces; the JSON schema travels in
// the user prompt.
const systemText = "You are ChatFit, a precise e-commerce assistant. Reply with exactly one JSON object and nothing else."

// ChainGenerator runs the prompt through an eino chain:
// chat template -> chat model.
type ChainGenerator struct {
	name  string
	chain compose.Runnable[map[string]any, *schema.Message]
}

// NewChainGenerator compiles the chain around any eino chat model.
func NewChainGenerator(ctx context.Context, name string, chatModel model.BaseChatModel) (*ChainGenerator, error) {
	template := prompt.FromMessages(schema.FString,
		schema.SystemMessage(systemText),
		schema.UserMessage("{prompt}"),
	)

	chain, err := compose.NewChain[map[string]any, *schema.Message]().
		AppendChatTemplate(template).
		AppendChatModel(chatModel).
		Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("error creating eino chain: %w", err)
	}

	return &ChainGenerator{name: name, chain: chain}, nil
}

func (g *ChainGenerator) Name() string {
	return g.name
}

func (g *ChainGenerator) Generate(ctx context.Context, text string, opts Options) (string, error) {
	msg, err := g.chain.Invoke(ctx, map[string]any{"prompt": text},
		compose.WithChatModelOption(
			model.WithTemperature(float32(opts.Temperature)),
			model.WithTopP(float32(opts.TopP)),
			model.WithMaxTokens(opts.MaxTokens),
		),
	)
	if err != nil {
		return "", classifyError(ctx, err)
	}
	if msg == nil {
		return "", &UpstreamError{Message: "empty model reply"}
	}
	return msg.Content, nil
}
