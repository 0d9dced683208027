package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/mandubian/ccos-sub008/capability"
	"github.com/mandubian/ccos-sub008/ccoserr"
	"github.com/mandubian/ccos-sub008/value"
)

// OpenAPI dispatches capabilities resolved against a described REST
// operation (spec §4.C "OpenAPI"). Inputs are a map; path parameters are
// substituted from it, remaining keys become query parameters, and auth is
// applied per the operation's configured location with inputs overriding
// the environment variable default.
type OpenAPI struct {
	Client *http.Client
}

func NewOpenAPI() *OpenAPI {
	return &OpenAPI{Client: &http.Client{Timeout: 30 * time.Second}}
}

func (o *OpenAPI) Execute(ctx context.Context, manifest *capability.Manifest, inputs value.Value) (value.Value, error) {
	op := manifest.OpenAPI
	if op == nil {
		return value.Nil, ccoserr.New(ccoserr.KindProviderError, "openapi capability %q has no resolved operation", manifest.ID)
	}
	if inputs.Kind() != value.KindMap && !inputs.IsNil() {
		return value.Nil, ccoserr.New(ccoserr.KindSchemaError, "openapi capability %q requires map inputs", manifest.ID)
	}

	path, remaining, err := substitutePathParams(op.Path, inputs)
	if err != nil {
		return value.Nil, err
	}

	query := url.Values{}
	var authToken string
	if op.AuthParam != "" {
		if v, ok := remaining[op.AuthParam]; ok {
			authToken = v
			delete(remaining, op.AuthParam)
		} else if op.AuthEnvVar != "" {
			authToken = os.Getenv(op.AuthEnvVar)
		}
	}
	for k, v := range remaining {
		query.Set(k, v)
	}

	fullURL := strings.TrimRight(manifest.BaseURL, "/") + path
	if encoded := query.Encode(); encoded != "" {
		fullURL += "?" + encoded
	}

	method := op.Method
	if method == "" {
		method = http.MethodGet
	}

	timeout := time.Duration(manifest.TimeoutMS) * time.Millisecond
	if timeout <= 0 {
		timeout = o.Client.Timeout
	}
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, method, fullURL, nil)
	if err != nil {
		return value.Nil, ccoserr.Wrap(ccoserr.KindProviderError, err, "building openapi request for %q", manifest.ID)
	}

	switch op.AuthIn {
	case capability.OpenAPIAuthHeader:
		if authToken != "" {
			req.Header.Set(op.AuthParam, authToken)
		}
	case capability.OpenAPIAuthCookie:
		if authToken != "" {
			req.AddCookie(&http.Cookie{Name: op.AuthParam, Value: authToken})
		}
	case capability.OpenAPIAuthQuery:
		if authToken != "" {
			q := req.URL.Query()
			q.Set(op.AuthParam, authToken)
			req.URL.RawQuery = q.Encode()
		}
	}

	resp, err := o.Client.Do(req)
	if err != nil {
		return value.Nil, ccoserr.Wrap(ccoserr.KindProviderError, err, "openapi call to %q failed", manifest.ID)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return value.Nil, ccoserr.Wrap(ccoserr.KindProviderError, err, "reading openapi response from %q", manifest.ID)
	}

	isJSON := false
	var bodyVal value.Value
	var parsed any
	if json.Unmarshal(body, &parsed) == nil {
		if v, cerr := value.FromJSON(parsed); cerr == nil {
			bodyVal = v
			isJSON = true
		}
	}
	if !isJSON {
		bodyVal = value.String(string(body))
	}

	respHeaders := make([]value.MapEntry, 0, len(resp.Header))
	for k := range resp.Header {
		respHeaders = append(respHeaders, value.Entry(value.KeywordKey(k), value.String(resp.Header.Get(k))))
	}

	return value.Map(
		value.Entry(value.KeywordKey("status"), value.Int(int64(resp.StatusCode))),
		value.Entry(value.KeywordKey("body"), bodyVal),
		value.Entry(value.KeywordKey("headers"), value.Map(respHeaders...)),
		value.Entry(value.KeywordKey("json?"), value.Bool(isJSON)),
	), nil
}

// substitutePathParams replaces `{name}` placeholders in path from inputs,
// returning the remaining (unused) map keys as plain strings for query
// parameter assembly.
func substitutePathParams(path string, inputs value.Value) (string, map[string]string, error) {
	remaining := make(map[string]string)
	for _, k := range inputs.MapKeys() {
		v, _ := inputs.MapGet(k)
		remaining[k.String()] = valueToQueryString(v)
	}

	for {
		start := strings.IndexByte(path, '{')
		if start < 0 {
			break
		}
		end := strings.IndexByte(path[start:], '}')
		if end < 0 {
			return "", nil, ccoserr.New(ccoserr.KindSchemaError, "openapi path %q has an unterminated {param}", path)
		}
		name := path[start+1 : start+end]
		val, ok := remaining[name]
		if !ok {
			return "", nil, ccoserr.New(ccoserr.KindSchemaError, "openapi path %q requires param %q", path, name)
		}
		path = path[:start] + url.PathEscape(val) + path[start+end+1:]
		delete(remaining, name)
	}
	return path, remaining, nil
}

func valueToQueryString(v value.Value) string {
	if s, ok := v.Str(); ok {
		return s
	}
	if i, ok := v.Int(); ok {
		return fmt.Sprintf("%d", i)
	}
	if f, ok := v.Float(); ok {
		return fmt.Sprintf("%g", f)
	}
	if b, ok := v.Bool(); ok {
		return fmt.Sprintf("%t", b)
	}
	return v.String()
}
