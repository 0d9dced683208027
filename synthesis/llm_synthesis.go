package synthesis

import (
	"context"
	"strings"

	"github.com/mandubian/ccos-sub008/capability"
	"github.com/mandubian/ccos-sub008/ccoserr"
	"github.com/mandubian/ccos-sub008/llm"
	"github.com/mandubian/ccos-sub008/pl"
)

// LLMSynthesis asks a chat-completion backend to write a PL-source
// capability body for the unresolved request (spec §4.H "LLM synthesis").
// The prompt asks for a single top-level PL form and nothing else; the
// strategy rejects (rather than silently truncates) any response that
// doesn't parse as exactly one form, so a malformed completion surfaces
// as a synthesis failure instead of a corrupt manifest.
type LLMSynthesis struct {
	Client *llm.Client
	Model  string
}

func NewLLMSynthesis(client *llm.Client) *LLMSynthesis {
	return &LLMSynthesis{Client: client}
}

func (s *LLMSynthesis) Name() string { return "llm_synthesis" }

func (s *LLMSynthesis) CanHandle(req Request) bool {
	return s.Client != nil && req.CapabilityID != ""
}

func (s *LLMSynthesis) Resolve(ctx context.Context, req Request) (*Result, error) {
	prompt := synthesisPrompt(req)
	resp, err := s.Client.Complete(ctx, llm.Request{
		Model: s.Model,
		Messages: []llm.Message{
			{Role: "system", Content: "You write single-form Plan Language capability bodies. Reply with exactly one PL form, no prose, no markdown fences."},
			{Role: "user", Content: prompt},
		},
	})
	if err != nil {
		return nil, ccoserr.Wrap(ccoserr.KindProviderError, err, "llm synthesis request failed")
	}

	body := strings.TrimSpace(stripFences(resp.Content))
	forms, err := pl.Parse(body)
	if err != nil {
		return nil, ccoserr.Wrap(ccoserr.KindParseError, err, "llm synthesis produced unparseable PL")
	}
	if len(forms) != 1 {
		return nil, ccoserr.New(ccoserr.KindParseError, "llm synthesis must produce exactly one PL form, got %d", len(forms))
	}

	manifest := &capability.Manifest{
		ID:           req.CapabilityID,
		Description:  "synthesized: " + req.CapabilityID,
		ProviderType: capability.ProviderLocal,
	}
	return &Result{Manifest: manifest, PLSource: pl.Canonical(forms[0])}, nil
}

func synthesisPrompt(req Request) string {
	var sb strings.Builder
	sb.WriteString("Write a PL capability body implementing: ")
	sb.WriteString(req.CapabilityID)
	for k, v := range req.Context {
		sb.WriteString("\n")
		sb.WriteString(k)
		sb.WriteString(": ")
		sb.WriteString(v)
	}
	return sb.String()
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```pl")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return s
}
