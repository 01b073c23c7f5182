// Package luseapi talks to the exchange's structured JSON securities
// endpoint and adapts it to the provider contract.
package luseapi

import (
	"net/http"
)

// HTTPClient describes an HTTP client.
//
//go:generate mockgen -package=luseapi_test -destination=mock_http_client_test.go -source=client.go HTTPClient
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client is a client for the securities listing endpoint.
type Client struct {
	// url is the listing endpoint.
	url string
	// httpClient performs the requests.
	httpClient HTTPClient
	// header contains additional headers to be sent with each request.
	header http.Header
	// recordsKey is the dotted path to the records array in the response.
	recordsKey string
}

// Option is a configuration option for the Client.
type Option func(*Client)

// WithURL sets the listing endpoint.
func WithURL(url string) Option {
	return func(c *Client) {
		c.url = url
	}
}

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(httpClient HTTPClient) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithHeader adds headers to be sent with each request.
func WithHeader(header http.Header) Option {
	return func(c *Client) {
		for key, values := range header {
			for _, value := range values {
				c.header.Add(key, value)
			}
		}
	}
}

// WithUserAgent replaces the User-Agent header. An empty agent is ignored.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.header.Set("User-Agent", ua)
		}
	}
}

// WithRecordsKey sets where the records array lives, e.g. "data.securities".
func WithRecordsKey(key string) Option {
	return func(c *Client) {
		c.recordsKey = key
	}
}

// NewClient creates a new Client.
func NewClient(options ...Option) *Client {
	c := &Client{
		httpClient: http.DefaultClient,
		header:     http.Header{"Accept": []string{"application/json"}},
	}
	for _, option := range options {
		option(c)
	}
	return c
}
