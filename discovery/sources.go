package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// Source is one registry_search collaborator (spec §4.I "multi-source: MCP
// registry, NPM, local overrides, APIs.guru, web search if enabled").
type Source interface {
	Name() string
	Search(ctx context.Context, query string) ([]RegistrySearchResult, error)
}

// MultiSource fans a query out to every configured Source and concatenates
// results; a single source's failure is swallowed (the error is not
// returned) rather than aborting the whole registry_search stage, since the later
// dedupe/rank stages tolerate an empty result set from any one source.
type MultiSource struct {
	Sources []Source
}

func NewMultiSource(sources ...Source) *MultiSource {
	return &MultiSource{Sources: sources}
}

func (m *MultiSource) Search(ctx context.Context, query string) []RegistrySearchResult {
	var all []RegistrySearchResult
	for _, s := range m.Sources {
		results, err := s.Search(ctx, query)
		if err != nil {
			continue
		}
		all = append(all, results...)
	}
	return all
}

// httpDoer is satisfied by *http.Client; small interface so sources are
// testable without a live network.
type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// MCPRegistrySource queries an MCP server registry's search endpoint.
type MCPRegistrySource struct {
	BaseURL string
	Client  httpDoer
}

func NewMCPRegistrySource(baseURL string, client httpDoer) *MCPRegistrySource {
	return &MCPRegistrySource{BaseURL: baseURL, Client: client}
}

func (s *MCPRegistrySource) Name() string { return "mcp_registry" }

func (s *MCPRegistrySource) Search(ctx context.Context, query string) ([]RegistrySearchResult, error) {
	var payload struct {
		Servers []struct {
			ID          string   `json:"id"`
			Name        string   `json:"name"`
			Description string   `json:"description"`
			Endpoint    string   `json:"endpoint"`
			Tags        []string `json:"tags"`
		} `json:"servers"`
	}
	if err := fetchJSON(ctx, s.Client, s.BaseURL+"/search?q="+url.QueryEscape(query), &payload); err != nil {
		return nil, err
	}
	out := make([]RegistrySearchResult, 0, len(payload.Servers))
	for _, srv := range payload.Servers {
		out = append(out, RegistrySearchResult{
			ID: srv.ID, Name: srv.Name, Description: srv.Description,
			Endpoint: srv.Endpoint, Source: s.Name(), Category: CategoryMCP, Tags: srv.Tags,
		})
	}
	return out, nil
}

// NPMSource runs a text search of the npm registry; results are not
// filtered to MCP server packages.
type NPMSource struct {
	BaseURL string // defaults to https://registry.npmjs.org when empty
	Client  httpDoer
}

func NewNPMSource(client httpDoer) *NPMSource {
	return &NPMSource{BaseURL: "https://registry.npmjs.org", Client: client}
}

func (s *NPMSource) Name() string { return "npm" }

func (s *NPMSource) Search(ctx context.Context, query string) ([]RegistrySearchResult, error) {
	var payload struct {
		Objects []struct {
			Package struct {
				Name        string `json:"name"`
				Description string `json:"description"`
				Links       struct {
					NPM string `json:"npm"`
				} `json:"links"`
			} `json:"package"`
		} `json:"objects"`
	}
	endpoint := s.BaseURL + "/-/v1/search?text=" + url.QueryEscape(query)
	if err := fetchJSON(ctx, s.Client, endpoint, &payload); err != nil {
		return nil, err
	}
	out := make([]RegistrySearchResult, 0, len(payload.Objects))
	for _, obj := range payload.Objects {
		out = append(out, RegistrySearchResult{
			ID: obj.Package.Name, Name: obj.Package.Name, Description: obj.Package.Description,
			Endpoint: obj.Package.Links.NPM, Source: s.Name(), Category: CategoryNPM,
		})
	}
	return out, nil
}

// APIsGuruSource queries the APIs.guru OpenAPI directory.
type APIsGuruSource struct {
	BaseURL string // defaults to https://api.apis.guru/v2
	Client  httpDoer
}

func NewAPIsGuruSource(client httpDoer) *APIsGuruSource {
	return &APIsGuruSource{BaseURL: "https://api.apis.guru/v2", Client: client}
}

func (s *APIsGuruSource) Name() string { return "apis_guru" }

func (s *APIsGuruSource) Search(ctx context.Context, query string) ([]RegistrySearchResult, error) {
	var payload map[string]struct {
		Versions map[string]struct {
			Info struct {
				Title       string `json:"title"`
				Description string `json:"description"`
			} `json:"info"`
			SwaggerURL string `json:"swaggerUrl"`
		} `json:"versions"`
	}
	if err := fetchJSON(ctx, s.Client, s.BaseURL+"/list.json", &payload); err != nil {
		return nil, err
	}
	var out []RegistrySearchResult
	q := strings.ToLower(query)
	for id, api := range payload {
		if !strings.Contains(strings.ToLower(id), q) {
			continue
		}
		for _, v := range api.Versions {
			out = append(out, RegistrySearchResult{
				ID: id, Name: v.Info.Title, Description: v.Info.Description,
				Endpoint: v.SwaggerURL, Source: s.Name(), Category: CategoryOpenAPI,
			})
		}
	}
	return out, nil
}

// LocalOverrideSource serves operator-configured local entries ahead of any
// network search — e.g. an internal capability registry or a pinned
// endpoint the operator does not want re-discovered.
type LocalOverrideSource struct {
	Entries []RegistrySearchResult
}

func NewLocalOverrideSource(entries ...RegistrySearchResult) *LocalOverrideSource {
	return &LocalOverrideSource{Entries: entries}
}

func (s *LocalOverrideSource) Name() string { return "local_override" }

func (s *LocalOverrideSource) Search(_ context.Context, query string) ([]RegistrySearchResult, error) {
	q := strings.ToLower(query)
	queryWords := extractKeywordsFromText(query)
	var out []RegistrySearchResult
	for _, e := range s.Entries {
		if strings.Contains(strings.ToLower(e.Name), q) || strings.Contains(strings.ToLower(e.Description), q) ||
			overlapCount(queryWords, extractKeywordsFromText(e.Name+" "+e.Description)) > 0 {
			e.Category = CategoryLocal
			e.Source = s.Name()
			out = append(out, e)
		}
	}
	return out, nil
}

// WebSearchFunc adapts an arbitrary web search backend (commonly an LLM
// tool call or a search API) into a Source; nil means disabled.
type WebSearchFunc func(ctx context.Context, query string) ([]RegistrySearchResult, error)

// WebSearchSource is only active when Fn is non-nil (spec §4.I "web search
// if enabled").
type WebSearchSource struct {
	Fn WebSearchFunc
}

func NewWebSearchSource(fn WebSearchFunc) *WebSearchSource {
	return &WebSearchSource{Fn: fn}
}

func (s *WebSearchSource) Name() string { return "web_search" }

func (s *WebSearchSource) Search(ctx context.Context, query string) ([]RegistrySearchResult, error) {
	if s.Fn == nil {
		return nil, nil
	}
	return s.Fn(ctx, query)
}

func fetchJSON(ctx context.Context, client httpDoer, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("discovery source %s: status %d", endpoint, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
