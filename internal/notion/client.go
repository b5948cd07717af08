package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

const (
	baseURL = "https://api.notion.com"

	// apiVersion is the pinned Notion API version header value.
	apiVersion = "2022-06-28"
)

// HTTPClient describes an HTTP client.
//
//go:generate mockgen -package=notion_test -destination=mock_http_client_test.go -source=client.go HTTPClient
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client is a client for the Notion API scoped to a single database.
type Client struct {
	// baseURL is the base URL for the API.
	baseURL string
	// databaseID identifies the database holding one row per (symbol, day).
	databaseID string
	// token is the opaque integration bearer token.
	token string
	// httpClient is the HTTP client.
	httpClient HTTPClient
	// header contains additional headers to be sent with each request.
	header http.Header
}

// ClientOption is a configuration option for the Notion client.
type ClientOption func(*Client)

// WithBaseURL sets the base URL for the API.
func WithBaseURL(u string) ClientOption {
	return func(c *Client) {
		c.baseURL = u
	}
}

// WithHTTPClient sets the HTTP client for the API.
func WithHTTPClient(httpClient HTTPClient) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithHeader sets additional headers to be sent with each request.
func WithHeader(header http.Header) ClientOption {
	return func(c *Client) {
		for key, values := range header {
			for _, value := range values {
				c.header.Add(key, value)
			}
		}
	}
}

// NewClient creates a new Notion client for one database.
func NewClient(token, databaseID string, options ...ClientOption) (*Client, error) {
	if token == "" {
		return nil, errors.New("notion: token is required")
	}
	if databaseID == "" {
		return nil, errors.New("notion: database id is required")
	}
	client := &Client{
		baseURL:    baseURL,
		databaseID: databaseID,
		token:      token,
		httpClient: http.DefaultClient,
		header:     http.Header{},
	}
	for _, option := range options {
		option(client)
	}
	return client, nil
}

// do sends an authenticated request and returns the response when the status
// is 2xx. Non-2xx responses become errors carrying the status and a body
// excerpt.
func (c *Client) do(ctx context.Context, method, path string, payload any) (*http.Response, error) {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal payload: %w", err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Notion-Version", apiVersion)
	req.Header.Set("Content-Type", "application/json")
	for key, values := range c.header {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 2<<10))
		resp.Body.Close()
		return nil, fmt.Errorf("%s %s -> %d: %s", method, path, resp.StatusCode, string(b))
	}
	return resp, nil
}
