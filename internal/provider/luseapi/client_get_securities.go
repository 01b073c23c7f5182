package luseapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/chamatitus-cpu/luse-price-api/internal/httpx"
)

// ErrDecode marks a response body that is not the expected JSON shape.
var ErrDecode = errors.New("decoding securities response")

// Security is one record as the endpoint returns it. Numbers are json.Number.
type Security map[string]any

// recordKeys are tried in order when no records key is configured and the
// body is an object rather than an array.
var recordKeys = []string{"data", "securities", "results", "items", "listings"}

// GetSecurities retrieves the listing.
func (c *Client) GetSecurities(ctx context.Context, opts ...Option) ([]Security, error) {
	var override = &Client{
		url:        c.url,
		httpClient: c.httpClient,
		header:     c.header.Clone(),
		recordsKey: c.recordsKey,
	}
	for _, opt := range opts {
		opt(override)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, override.url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header = override.header

	res, err := override.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("performing request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return nil, &httpx.StatusError{Code: res.StatusCode, URL: override.url}
	}

	body, err := io.ReadAll(io.LimitReader(res.Body, httpx.MaxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("reading body: %w", err)
	}

	var doc any
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}

	list, err := locateRecords(doc, override.recordsKey)
	if err != nil {
		return nil, err
	}

	out := make([]Security, 0, len(list))
	for _, v := range list {
		if rec, ok := v.(map[string]any); ok {
			out = append(out, rec)
		}
	}
	return out, nil
}

func locateRecords(doc any, key string) ([]any, error) {
	if list, ok := doc.([]any); ok {
		return list, nil
	}
	obj, ok := doc.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected top-level %T", ErrDecode, doc)
	}

	if key != "" {
		var cur any = obj
		for _, part := range strings.Split(key, ".") {
			m, ok := cur.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("%w: %q not found", ErrDecode, key)
			}
			cur = m[part]
		}
		list, ok := cur.([]any)
		if !ok {
			return nil, fmt.Errorf("%w: %q is not an array", ErrDecode, key)
		}
		return list, nil
	}

	for _, k := range recordKeys {
		if list, ok := obj[k].([]any); ok {
			return list, nil
		}
	}
	return nil, fmt.Errorf("%w: no records array", ErrDecode)
}
