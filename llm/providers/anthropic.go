// Package providers implements llm.Provider adapters over each backend's
// official SDK (spec §4.G/§4.H "LLM" strategies), mirroring the teacher's
// llm/providers package one file per backend. There is no init()
// registration: each adapter's Register method adds it to the llm registry.
package providers

import (
	"context"
	"os"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/mandubian/ccos-sub008/ccoserr"
	"github.com/mandubian/ccos-sub008/llm"
)

const defaultAnthropicModel = "claude-sonnet-4-5"

// Anthropic adapts llm.Provider to the official Anthropic SDK.
type Anthropic struct {
	client anthropic.Client
}

// NewAnthropic builds an Anthropic provider. apiKey empty defers to the
// SDK's own ANTHROPIC_API_KEY environment lookup.
func NewAnthropic(apiKey string) *Anthropic {
	opts := []option.RequestOption{}
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	} else if env := os.Getenv("ANTHROPIC_API_KEY"); env != "" {
		opts = append(opts, option.WithAPIKey(env))
	}
	return &Anthropic{client: anthropic.NewClient(opts...)}
}

// Register installs this provider under the name "anthropic" so config-
// driven callers can select it by string.
func (a *Anthropic) Register() { llm.RegisterProvider(a) }

func (a *Anthropic) Name() string { return "anthropic" }

func (a *Anthropic) Complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	model := req.Model
	if model == "" {
		model = defaultAnthropicModel
	}
	maxTokens := int64(req.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	var system []anthropic.TextBlockParam
	var messages []anthropic.MessageParam
	for _, m := range req.Messages {
		switch m.Role {
		case "system":
			system = append(system, anthropic.TextBlockParam{Text: m.Content})
		case "assistant":
			messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		default:
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: maxTokens,
		Messages:  messages,
	}
	if len(system) > 0 {
		params.System = system
	}

	msg, err := a.client.Messages.New(ctx, params)
	if err != nil {
		return nil, ccoserr.Wrap(ccoserr.KindProviderError, err, "anthropic completion failed")
	}

	var content string
	for _, block := range msg.Content {
		if text, ok := block.AsAny().(anthropic.TextBlock); ok {
			content += text.Text
		}
	}

	return &llm.Response{
		Content:      content,
		Model:        string(msg.Model),
		FinishReason: string(msg.StopReason),
		Usage: llm.TokenUsage{
			PromptTokens:     int(msg.Usage.InputTokens),
			CompletionTokens: int(msg.Usage.OutputTokens),
			TotalTokens:      int(msg.Usage.InputTokens + msg.Usage.OutputTokens),
		},
	}, nil
}
