package discovery

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	readability "github.com/go-shiori/go-readability"

	"github.com/mandubian/ccos-sub008/ccoserr"
)

// Introspector inspects one candidate's endpoint to extract the operations
// it exposes (spec §4.I "an introspection stage runs (mcp, openapi,
// browser ...); the first success wins").
type Introspector interface {
	Kind() IntrospectionKind
	Applies(candidate RegistrySearchResult) bool
	Introspect(ctx context.Context, candidate RegistrySearchResult) (*IntrospectionResult, error)
}

// IntrospectFirst tries each Introspector in order, returning the first
// one that both applies and succeeds.
func IntrospectFirst(ctx context.Context, candidate RegistrySearchResult, introspectors []Introspector) (*IntrospectionResult, error) {
	for _, in := range introspectors {
		if !in.Applies(candidate) {
			continue
		}
		result, err := in.Introspect(ctx, candidate)
		if err == nil {
			return result, nil
		}
	}
	return nil, ccoserr.New(ccoserr.KindProviderError, "no introspector could resolve %q", candidate.Endpoint)
}

// MCPIntrospector calls an MCP server's tools/list method.
type MCPIntrospector struct {
	Client httpDoer
}

func NewMCPIntrospector(client httpDoer) *MCPIntrospector {
	return &MCPIntrospector{Client: client}
}

func (MCPIntrospector) Kind() IntrospectionKind { return IntrospectMCP }

func (m *MCPIntrospector) Applies(candidate RegistrySearchResult) bool {
	return candidate.Category == CategoryMCP && candidate.Endpoint != ""
}

func (m *MCPIntrospector) Introspect(ctx context.Context, candidate RegistrySearchResult) (*IntrospectionResult, error) {
	var payload struct {
		Tools []struct {
			Name        string `json:"name"`
			Description string `json:"description"`
		} `json:"tools"`
	}
	if err := fetchJSON(ctx, m.Client, candidate.Endpoint+"/tools/list", &payload); err != nil {
		return nil, err
	}
	ops := make([]Operation, 0, len(payload.Tools))
	for _, t := range payload.Tools {
		ops = append(ops, Operation{ID: t.Name, Description: t.Description})
	}
	return &IntrospectionResult{Kind: IntrospectMCP, Operations: ops, Title: candidate.Name, Description: candidate.Description}, nil
}

// OpenAPIIntrospector fetches and flattens an OpenAPI/Swagger document's
// paths into Operations.
type OpenAPIIntrospector struct {
	Client httpDoer
}

func NewOpenAPIIntrospector(client httpDoer) *OpenAPIIntrospector {
	return &OpenAPIIntrospector{Client: client}
}

func (OpenAPIIntrospector) Kind() IntrospectionKind { return IntrospectOpenAPI }

func (o *OpenAPIIntrospector) Applies(candidate RegistrySearchResult) bool {
	return candidate.Category == CategoryOpenAPI && candidate.Endpoint != ""
}

func (o *OpenAPIIntrospector) Introspect(ctx context.Context, candidate RegistrySearchResult) (*IntrospectionResult, error) {
	var doc struct {
		Info struct {
			Title       string `json:"title"`
			Description string `json:"description"`
		} `json:"info"`
		Paths map[string]map[string]struct {
			OperationID string `json:"operationId"`
			Summary     string `json:"summary"`
		} `json:"paths"`
	}
	if err := fetchJSON(ctx, o.Client, candidate.Endpoint, &doc); err != nil {
		return nil, err
	}
	var ops []Operation
	for path, methods := range doc.Paths {
		for method, op := range methods {
			id := op.OperationID
			if id == "" {
				id = strings.ToUpper(method) + " " + path
			}
			ops = append(ops, Operation{ID: id, Description: op.Summary})
		}
	}
	return &IntrospectionResult{Kind: IntrospectOpenAPI, Operations: ops, Title: doc.Info.Title, Description: doc.Info.Description}, nil
}

// BrowserIntrospector fetches a candidate's documentation page and extracts
// readable text with go-readability, offering a last-resort introspection
// path for web-doc candidates that expose neither an MCP nor an OpenAPI
// endpoint (spec §4.I browser introspection stage).
type BrowserIntrospector struct {
	Client httpDoer
}

func NewBrowserIntrospector(client httpDoer) *BrowserIntrospector {
	return &BrowserIntrospector{Client: client}
}

func (BrowserIntrospector) Kind() IntrospectionKind { return IntrospectBrowser }

func (b *BrowserIntrospector) Applies(candidate RegistrySearchResult) bool {
	return candidate.Category == CategoryWebDoc && candidate.Endpoint != ""
}

func (b *BrowserIntrospector) Introspect(ctx context.Context, candidate RegistrySearchResult) (*IntrospectionResult, error) {
	pageURL, err := url.Parse(candidate.Endpoint)
	if err != nil {
		return nil, ccoserr.Wrap(ccoserr.KindParseError, err, "invalid endpoint %q", candidate.Endpoint)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, candidate.Endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := b.Client.Do(req)
	if err != nil {
		return nil, ccoserr.Wrap(ccoserr.KindProviderError, err, "fetching %q failed", candidate.Endpoint)
	}
	defer resp.Body.Close()

	article, err := readability.FromReader(resp.Body, pageURL)
	if err != nil {
		return nil, ccoserr.Wrap(ccoserr.KindParseError, err, "readability extraction failed for %q", candidate.Endpoint)
	}

	ops := extractOperationsFromText(article.TextContent)
	return &IntrospectionResult{
		Kind:        IntrospectBrowser,
		Operations:  ops,
		Title:       article.Title,
		Description: article.Excerpt,
	}, nil
}

// extractOperationsFromText turns action-verb-led lines of free text into
// candidate Operations — a heuristic stand-in for structured API docs,
// reusing the same action-verb list semantic scoring uses.
func extractOperationsFromText(text string) []Operation {
	var ops []Operation
	for _, line := range strings.Split(text, "\n") {
		words := extractKeywordsFromText(line)
		if len(extractActionVerbs(words)) == 0 {
			continue
		}
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		ops = append(ops, Operation{ID: strings.Join(strings.Fields(trimmed), "_"), Description: trimmed})
		if len(ops) >= 20 {
			break
		}
	}
	return ops
}
