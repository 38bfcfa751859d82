// Copyright (c) 2025 AssistBridge
// Licensed under the MIT License. See LICENSE file in the project root for details.

package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode"

	"github.com/rs/zerolog"

	"assistbridge/cli/internal/errors"
	"assistbridge/cli/internal/httperrors"
)

const (
	DefaultBaseURL   = "https://www.modelscope.cn/openapi/v1"
	DefaultUserAgent = "IntelAIA/2.2.0"
	DefaultTimeout   = 30 * time.Second
)

// TokenSource supplies an optional bearer token. An empty token means anonymous access.
type TokenSource interface {
	CatalogToken() (string, error)
}

// Client talks to the catalog HTTP API.
type Client struct {
	baseURL   string
	userAgent string
	http      *http.Client
	tokens    TokenSource
	log       zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client (its Timeout is kept as given).
func WithHTTPClient(h *http.Client) Option { return func(c *Client) { c.http = h } }

// WithTokenSource attaches an Authorization bearer token to every request.
func WithTokenSource(t TokenSource) Option { return func(c *Client) { c.tokens = t } }

// WithLogger sets the request logger.
func WithLogger(l zerolog.Logger) Option { return func(c *Client) { c.log = l } }

// New returns a Client for baseURL. Empty arguments fall back to the defaults.
func New(baseURL, userAgent string, timeout time.Duration, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	c := &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: userAgent,
		http:      &http.Client{Timeout: timeout},
		log:       zerolog.Nop(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Query fetches one page of catalog entries and returns the raw, unparsed body.
func (c *Client) Query(ctx context.Context, q Query) (string, error) {
	if err := q.Validate(); err != nil {
		return "", err
	}
	body, err := json.Marshal(newRequest(q))
	if err != nil {
		return "", errors.Wrap(errors.InvalidInput, "encode catalog query", err)
	}
	return c.do(ctx, http.MethodPut, c.baseURL+"/mcp/servers", body)
}

// QueryByID fetches one catalog entry, including its server configuration.
func (c *Client) QueryByID(ctx context.Context, id string) (string, error) {
	p, err := ServerPath(id)
	if err != nil {
		return "", err
	}
	return c.do(ctx, http.MethodGet, c.baseURL+p, nil)
}

// ServerPath builds the escaped /mcp/servers/{id} path. Catalog ids look like
// "@owner/name", so "/" separators are kept while each segment is escaped. Empty,
// "." and ".." segments and control characters are rejected.
func ServerPath(id string) (string, error) {
	if strings.TrimSpace(id) == "" {
		return "", errors.New(errors.InvalidInput, "catalog id is required")
	}
	for _, r := range id {
		if unicode.IsControl(r) {
			return "", errors.New(errors.InvalidInput, fmt.Sprintf("catalog id %q contains control characters", id))
		}
	}
	segs := strings.Split(id, "/")
	for i, s := range segs {
		if s == "" || s == "." || s == ".." {
			return "", errors.New(errors.InvalidInput, fmt.Sprintf("catalog id %q has an invalid path segment", id))
		}
		segs[i] = url.PathEscape(s)
	}
	return "/mcp/servers/" + strings.Join(segs, "/"), nil
}

func (c *Client) do(ctx context.Context, method, target string, body []byte) (string, error) {
	var rdr io.Reader
	if body != nil {
		rdr = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, rdr)
	if err != nil {
		return "", errors.Wrap(errors.InvalidInput, "build catalog request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if c.tokens != nil {
		tok, err := c.tokens.CatalogToken()
		if err != nil {
			c.log.Debug().Err(err).Msg("catalog token unavailable, continuing anonymously")
		} else if tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Debug().Str("method", method).Str("url", target).Err(err).Msg("catalog request failed")
		return "", errors.Wrap(errors.Transport, "catalog "+httperrors.Describe(err), err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errors.Wrap(errors.Transport, "read catalog response", err)
	}
	c.log.Debug().Str("method", method).Str("url", target).Int("status", resp.StatusCode).Dur("took", time.Since(start)).Msg("catalog request")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", errors.HTTP(resp.StatusCode, "catalog request failed: "+http.StatusText(resp.StatusCode))
	}
	return string(raw), nil
}
