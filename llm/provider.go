// Package llm provides a provider-agnostic chat-completion client used by
// the Modular Planner's LLM decomposition/resolution strategies and by the
// Synthesis harness's LLM-backed synthesis strategy (spec §4.G, §4.H).
// The provider-registry/interface split follows the teacher's llm package
// (llm/provider.go, llm/providers/*.go): one small interface per backend,
// registered by name through RegisterProvider, with the real HTTP work delegated to
// each backend's official SDK rather than a hand-rolled wire format.
package llm

import "context"

// Message is one chat turn.
type Message struct {
	Role    string // "system", "user", or "assistant"
	Content string
}

// Request is a provider-agnostic completion request.
type Request struct {
	Model       string
	Messages    []Message
	Temperature *float64
	MaxTokens   int
}

// TokenUsage reports token consumption for a single Complete call.
type TokenUsage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Response is a provider-agnostic completion result.
type Response struct {
	Content      string
	Model        string
	FinishReason string
	Usage        TokenUsage
}

// Provider adapts one backend's wire format to the provider-agnostic
// Request/Response shape (spec §4.H "LLM synthesis" strategy, §4.G step 2
// "LLM" decompose strategy).
type Provider interface {
	Name() string
	Complete(ctx context.Context, req Request) (*Response, error)
}

var providerRegistry = make(map[string]Provider)

// RegisterProvider installs a Provider under its Name(), mirroring the
// teacher's llm.RegisterProvider. The backend adapters in llm/providers
// call it from their Register methods; nothing registers from init().
func RegisterProvider(p Provider) {
	providerRegistry[p.Name()] = p
}

// GetProvider looks up a previously registered Provider by name.
func GetProvider(name string) (Provider, bool) {
	p, ok := providerRegistry[name]
	return p, ok
}

// ListProviders returns every registered provider name.
func ListProviders() []string {
	names := make([]string, 0, len(providerRegistry))
	for name := range providerRegistry {
		names = append(names, name)
	}
	return names
}
