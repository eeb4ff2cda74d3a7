package graphstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/c360studio/semshacl/rdfgraph"
	"github.com/c360studio/semstreams/pkg/retry"
	"golang.org/x/oauth2"
)

// maxGraphSize limits downloaded graph bodies to prevent memory exhaustion.
const maxGraphSize = 512 * 1024 * 1024 // 512MB

// DefaultEndpoint is the graph proxy endpoint identifier.
const DefaultEndpoint = "default"

// HTTPError is returned for non-success responses from the graph store.
type HTTPError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	msg := fmt.Sprintf("%s %s: status %d", e.Method, e.URL, e.StatusCode)
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

// Temporary reports whether the request may succeed when retried.
func (e *HTTPError) Temporary() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// Client is the HTTP graph store client.
type Client struct {
	baseURL     string
	endpoint    string
	httpClient  *http.Client
	tokens      oauth2.TokenSource
	retryConfig retry.Config
	logger      *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(client *Client) {
		client.httpClient = c
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(client *Client) {
		client.logger = logger
	}
}

// WithTokenSource sets the source of bearer tokens for requests that carry
// no user access token.
func WithTokenSource(ts oauth2.TokenSource) Option {
	return func(client *Client) {
		client.tokens = ts
	}
}

// WithCredentials authenticates with static or client credentials.
func WithCredentials(creds Credentials) Option {
	return func(client *Client) {
		client.tokens = creds.TokenSource(context.Background())
	}
}

// WithEndpoint sets the graph proxy endpoint identifier.
func WithEndpoint(endpoint string) Option {
	return func(client *Client) {
		client.endpoint = endpoint
	}
}

// WithRetryConfig sets the retry policy for transient failures.
func WithRetryConfig(cfg retry.Config) Option {
	return func(client *Client) {
		client.retryConfig = cfg
	}
}

// NewClient creates a client for the DataPlatform API rooted at baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse graph store URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("graph store URL must be http or https: %q", baseURL)
	}

	c := &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		endpoint:    DefaultEndpoint,
		httpClient:  &http.Client{Timeout: 5 * time.Minute},
		retryConfig: retry.DefaultConfig(),
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) graphURL(iri string, params url.Values) string {
	params.Set("graph", iri)
	return fmt.Sprintf("%s/proxy/%s/graph?%s", c.baseURL, url.PathEscape(c.endpoint), params.Encode())
}

// ListGraphs returns the graph catalog.
func (c *Client) ListGraphs(ctx context.Context) ([]GraphInfo, error) {
	var graphs []GraphInfo
	err := c.do(ctx, http.MethodGet, c.baseURL+"/graphs/list", nil, "", func(req *http.Request) {
		req.Header.Set("Accept", "application/json")
	}, func(resp *http.Response) error {
		if err := json.NewDecoder(resp.Body).Decode(&graphs); err != nil {
			return retry.NonRetryable(fmt.Errorf("decode graph list: %w", err))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list graphs: %w", err)
	}
	return graphs, nil
}

// GetGraph downloads and parses a graph.
func (c *Client) GetGraph(ctx context.Context, iri string, opts GetOptions) (*rdfgraph.Graph, error) {
	params := url.Values{}
	params.Set("owlImportsResolution", strconv.FormatBool(opts.OWLImportsResolution))
	target := c.graphURL(iri, params)

	var g *rdfgraph.Graph
	err := c.do(ctx, http.MethodGet, target, nil, "", func(req *http.Request) {
		req.Header.Set("Accept", rdfgraph.MIMETurtle)
	}, func(resp *http.Response) error {
		body, err := io.ReadAll(io.LimitReader(resp.Body, maxGraphSize))
		if err != nil {
			return fmt.Errorf("read graph body: %w", err)
		}
		format := rdfgraph.FormatForContentType(resp.Header.Get("Content-Type"))
		parsed, err := rdfgraph.ParseBytes(ctx, body, format)
		if err != nil {
			return retry.NonRetryable(err)
		}
		g = parsed
		return nil
	})
	if err != nil {
		var httpErr *HTTPError
		if errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("get graph <%s>: %w", iri, ErrGraphNotFound)
		}
		return nil, fmt.Errorf("get graph <%s>: %w", iri, err)
	}
	return g, nil
}

// PostGraph uploads g as N-Triples.
func (c *Client) PostGraph(ctx context.Context, iri string, g *rdfgraph.Graph, opts PostOptions) error {
	body, err := g.Bytes(ctx, rdfgraph.FormatNTriples)
	if err != nil {
		return fmt.Errorf("post graph <%s>: %w", iri, err)
	}
	params := url.Values{}
	params.Set("replace", strconv.FormatBool(opts.Replace))
	target := c.graphURL(iri, params)

	c.logger.Debug("Posting graph", "graph", iri, "bytes", len(body), "replace", opts.Replace)
	err = c.do(ctx, http.MethodPost, target, body, rdfgraph.MIMENTriples, nil, nil)
	if err != nil {
		return fmt.Errorf("post graph <%s>: %w", iri, err)
	}
	return nil
}

// DeleteGraph removes a graph.
func (c *Client) DeleteGraph(ctx context.Context, iri string) error {
	err := c.do(ctx, http.MethodDelete, c.graphURL(iri, url.Values{}), nil, "", nil, nil)
	if err != nil {
		var httpErr *HTTPError
		if errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusNotFound {
			return fmt.Errorf("delete graph <%s>: %w", iri, ErrGraphNotFound)
		}
		return fmt.Errorf("delete graph <%s>: %w", iri, err)
	}
	return nil
}

// do sends a request with retry. Network errors and temporary statuses are
// retried; everything else fails immediately.
func (c *Client) do(
	ctx context.Context,
	method, target string,
	body []byte,
	contentType string,
	prepare func(*http.Request),
	handle func(*http.Response) error,
) error {
	attempt := 0
	err := retry.Do(ctx, c.retryConfig, func() error {
		attempt++
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, target, reader)
		if err != nil {
			return retry.NonRetryable(fmt.Errorf("create request: %w", err))
		}
		if contentType != "" {
			req.Header.Set("Content-Type", contentType)
		}
		if prepare != nil {
			prepare(req)
		}
		if err := c.authorize(ctx, req); err != nil {
			return retry.NonRetryable(err)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			c.logger.Debug("Graph store request failed", "method", method, "attempt", attempt, "error", err)
			return fmt.Errorf("send request: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
			httpErr := &HTTPError{
				Method:     method,
				URL:        req.URL.Redacted(),
				StatusCode: resp.StatusCode,
				Body:       strings.TrimSpace(string(snippet)),
			}
			if httpErr.Temporary() {
				c.logger.Debug("Graph store returned temporary error", "status", resp.StatusCode, "attempt", attempt)
				return httpErr
			}
			return retry.NonRetryable(httpErr)
		}
		if handle != nil {
			return handle(resp)
		}
		return nil
	})
	var nre *retry.NonRetryableError
	if errors.As(err, &nre) {
		return nre.Err
	}
	return err
}

func (c *Client) authorize(ctx context.Context, req *http.Request) error {
	if token, ok := AccessTokenFrom(ctx); ok {
		req.Header.Set("Authorization", "Bearer "+token)
		return nil
	}
	if c.tokens == nil {
		return nil
	}
	tok, err := c.tokens.Token()
	if err != nil {
		return fmt.Errorf("obtain access token: %w", err)
	}
	tok.SetAuthHeader(req)
	return nil
}
