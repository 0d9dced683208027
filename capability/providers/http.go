package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/mandubian/ccos-sub008/capability"
	"github.com/mandubian/ccos-sub008/ccoserr"
	"github.com/mandubian/ccos-sub008/value"
)

// HTTP executes capabilities backed by a plain HTTP endpoint (spec §4.C
// "HTTP"). Inputs are a vector `[url method headers_map body]`, with any
// trailing elements defaulted from the manifest; a bare non-vector input is
// treated as the body against the manifest's BaseURL and "POST".
type HTTP struct {
	Client *http.Client
	// MaxRetries bounds the retry/backoff loop for ProviderError responses
	// (idempotent-only per spec §7's Retryable rule); 0 disables retries.
	MaxRetries uint64
}

func NewHTTP() *HTTP {
	return &HTTP{Client: &http.Client{Timeout: 30 * time.Second}, MaxRetries: 2}
}

func (h *HTTP) Execute(ctx context.Context, manifest *capability.Manifest, inputs value.Value) (value.Value, error) {
	url, method, headers, body, err := h.decodeInputs(manifest, inputs)
	if err != nil {
		return value.Nil, err
	}

	var result value.Value
	op := func() error {
		resp, rerr := h.do(ctx, manifest, url, method, headers, body)
		if rerr != nil {
			return rerr
		}
		result = resp
		return nil
	}

	idempotent := false
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodPut, http.MethodDelete, http.MethodTrace:
		idempotent = true
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), h.MaxRetries), ctx)
	if err := backoff.Retry(func() error {
		err := op()
		if err != nil && (!idempotent || ccoserr.KindOf(err) != ccoserr.KindProviderError) {
			return backoff.Permanent(err)
		}
		return err
	}, policy); err != nil {
		if perr, ok := err.(*backoff.PermanentError); ok {
			return value.Nil, perr.Err
		}
		return value.Nil, err
	}
	return result, nil
}

func (h *HTTP) decodeInputs(manifest *capability.Manifest, inputs value.Value) (url, method string, headers map[string]string, body []byte, err error) {
	url = manifest.BaseURL
	method = "POST"
	headers = map[string]string{}

	items, isVec := inputs.Items()
	if !isVec {
		if !inputs.IsNil() {
			j, jerr := value.ToJSON(inputs)
			if jerr != nil {
				return "", "", nil, nil, jerr
			}
			body, err = json.Marshal(j)
		}
		return url, method, headers, body, err
	}

	if len(items) > 0 {
		if s, ok := items[0].Str(); ok && s != "" {
			url = s
		}
	}
	if len(items) > 1 {
		if s, ok := items[1].Str(); ok && s != "" {
			method = s
		}
	}
	if len(items) > 2 {
		for _, k := range items[2].MapKeys() {
			v, _ := items[2].MapGet(k)
			s, _ := v.Str()
			headers[k.String()] = s
		}
	}
	if len(items) > 3 && !items[3].IsNil() {
		j, jerr := value.ToJSON(items[3])
		if jerr != nil {
			return "", "", nil, nil, jerr
		}
		body, err = json.Marshal(j)
	}
	return url, method, headers, body, err
}

func (h *HTTP) do(ctx context.Context, manifest *capability.Manifest, url, method string, headers map[string]string, body []byte) (value.Value, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
	if err != nil {
		return value.Nil, ccoserr.Wrap(ccoserr.KindProviderError, err, "building HTTP request for %q", manifest.ID)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	if manifest.AuthToken != "" {
		req.Header.Set("Authorization", "Bearer "+manifest.AuthToken)
	}
	if req.Header.Get("Content-Type") == "" && len(body) > 0 {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := h.Client.Do(req)
	if err != nil {
		return value.Nil, ccoserr.Wrap(ccoserr.KindProviderError, err, "HTTP call to %q failed", manifest.ID)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return value.Nil, ccoserr.Wrap(ccoserr.KindProviderError, err, "reading HTTP response from %q", manifest.ID)
	}

	respHeaders := make([]value.MapEntry, 0, len(resp.Header))
	for k := range resp.Header {
		respHeaders = append(respHeaders, value.Entry(value.KeywordKey(k), value.String(resp.Header.Get(k))))
	}

	isJSON := false
	var bodyVal value.Value
	var parsed any
	if json.Unmarshal(respBody, &parsed) == nil {
		if v, cerr := value.FromJSON(parsed); cerr == nil {
			bodyVal = v
			isJSON = true
		}
	}
	if !isJSON {
		bodyVal = value.String(string(respBody))
	}

	if resp.StatusCode >= 500 {
		return value.Nil, ccoserr.New(ccoserr.KindProviderError, "HTTP %d from %q", resp.StatusCode, manifest.ID)
	}

	return value.Map(
		value.Entry(value.KeywordKey("status"), value.Int(int64(resp.StatusCode))),
		value.Entry(value.KeywordKey("body"), bodyVal),
		value.Entry(value.KeywordKey("headers"), value.Map(respHeaders...)),
		value.Entry(value.KeywordKey("json?"), value.Bool(isJSON)),
	), nil
}
