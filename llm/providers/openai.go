package providers

import (
	"context"
	"os"

	openai "github.com/sashabaranov/go-openai"

	"github.com/mandubian/ccos-sub008/ccoserr"
	"github.com/mandubian/ccos-sub008/llm"
)

const defaultOpenAIModel = openai.GPT4o

// OpenAI adapts llm.Provider to github.com/sashabaranov/go-openai.
type OpenAI struct {
	client *openai.Client
}

// NewOpenAI builds an OpenAI provider. apiKey empty defers to the
// OPENAI_API_KEY environment variable.
func NewOpenAI(apiKey string) *OpenAI {
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	return &OpenAI{client: openai.NewClient(apiKey)}
}

func (o *OpenAI) Register() { llm.RegisterProvider(o) }

func (o *OpenAI) Name() string { return "openai" }

func (o *OpenAI) Complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	model := req.Model
	if model == "" {
		model = defaultOpenAIModel
	}

	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		role := openai.ChatMessageRoleUser
		switch m.Role {
		case "system":
			role = openai.ChatMessageRoleSystem
		case "assistant":
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}

	apiReq := openai.ChatCompletionRequest{
		Model:    model,
		Messages: messages,
	}
	if req.MaxTokens > 0 {
		apiReq.MaxTokens = req.MaxTokens
	}
	if req.Temperature != nil {
		apiReq.Temperature = float32(*req.Temperature)
	}

	resp, err := o.client.CreateChatCompletion(ctx, apiReq)
	if err != nil {
		return nil, ccoserr.Wrap(ccoserr.KindProviderError, err, "openai completion failed")
	}
	if len(resp.Choices) == 0 {
		return nil, ccoserr.New(ccoserr.KindProviderError, "openai completion returned no choices")
	}

	choice := resp.Choices[0]
	return &llm.Response{
		Content:      choice.Message.Content,
		Model:        resp.Model,
		FinishReason: string(choice.FinishReason),
		Usage: llm.TokenUsage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}
