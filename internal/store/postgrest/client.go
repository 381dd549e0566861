// SPDX-License-Identifier: MIT

// Package postgrest implements the document store against a Supabase
// PostgREST endpoint. Server-side access uses the service role key, which
// bypasses row level security; org scoping happens in queries.
package postgrest

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

	"github.com/rs/zerolog"

	xlog "github.com/thakurdishanttt/Project-DocuLens/internal/log"
	"github.com/thakurdishanttt/Project-DocuLens/internal/metrics"
)

const upstreamName = "postgrest"

// Config holds the Supabase connection settings.
type Config struct {
	// BaseURL is the project URL, e.g. https://xyz.supabase.co.
	BaseURL string
	// APIKey is the anon key, used when no service key is configured.
	APIKey string
	// ServiceKey is the service role key for server-side writes. Falls
	// back to APIKey when empty.
	ServiceKey string
}

// Client is a thin PostgREST HTTP client with Supabase auth headers.
type Client struct {
	base       string
	apiKey     string
	serviceKey string
	http       *http.Client
	logger     zerolog.Logger
}

// NewClient builds a PostgREST client.
func NewClient(cfg Config, opts ...Option) *Client {
	serviceKey := cfg.ServiceKey
	if serviceKey == "" {
		serviceKey = cfg.APIKey
	}
	c := &Client{
		base:       strings.TrimRight(cfg.BaseURL, "/") + "/rest/v1",
		apiKey:     cfg.APIKey,
		serviceKey: serviceKey,
		http:       &http.Client{Timeout: 30 * time.Second},
		logger:     xlog.WithComponent("store.postgrest"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// filter is a PostgREST query filter, rendered as column=op.value.
type filter struct {
	column string
	op     string
	value  string
}

func eq(column, value string) filter {
	return filter{column: column, op: "eq", value: value}
}

func (c *Client) endpoint(table string, filters []filter, extra url.Values) string {
	q := url.Values{}
	q.Set("select", "*")
	for _, f := range filters {
		q.Set(f.column, f.op+"."+f.value)
	}
	for k, vs := range extra {
		for _, v := range vs {
			q.Set(k, v)
		}
	}
	return c.base + "/" + table + "?" + q.Encode()
}

func (c *Client) do(ctx context.Context, method, u string, body any, prefer string, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return err
	}

	// Mutations run with the service role key.
	key := c.apiKey
	if method != http.MethodGet {
		key = c.serviceKey
	}
	req.Header.Set("apikey", key)
	req.Header.Set("Authorization", "Bearer "+key)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if prefer != "" {
		req.Header.Set("Prefer", prefer)
	}

	start := time.Now()
	res, err := c.http.Do(req)
	metrics.ObserveUpstreamDuration(upstreamName, time.Since(start))
	if err != nil {
		metrics.IncUpstreamRequest(upstreamName, "failure")
		return fmt.Errorf("postgrest %s: %w", method, err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		metrics.IncUpstreamRequest(upstreamName, "failure")
		snippet, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return fmt.Errorf("postgrest %s %s: status %d: %s", method, res.Request.URL.Path, res.StatusCode, strings.TrimSpace(string(snippet)))
	}
	metrics.IncUpstreamRequest(upstreamName, "success")

	if out != nil {
		if err := json.NewDecoder(res.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// selectRows fetches rows matching the filters into out (a slice pointer).
func (c *Client) selectRows(ctx context.Context, table string, filters []filter, out any) error {
	return c.do(ctx, http.MethodGet, c.endpoint(table, filters, nil), nil, "", out)
}

// insert writes one row and decodes the representation into out if non-nil.
func (c *Client) insert(ctx context.Context, table string, row any, out any) error {
	prefer := "return=representation"
	return c.do(ctx, http.MethodPost, c.endpoint(table, nil, nil), row, prefer, out)
}

// upsert inserts or merges on conflict.
func (c *Client) upsert(ctx context.Context, table string, row any, out any) error {
	prefer := "resolution=merge-duplicates,return=representation"
	return c.do(ctx, http.MethodPost, c.endpoint(table, nil, nil), row, prefer, out)
}

// patch updates rows matching the filters.
func (c *Client) patch(ctx context.Context, table string, filters []filter, row any, out any) error {
	prefer := "return=representation"
	return c.do(ctx, http.MethodPatch, c.endpoint(table, filters, nil), row, prefer, out)
}

// delete removes rows matching the filters and returns the deleted rows.
func (c *Client) delete(ctx context.Context, table string, filters []filter, out any) error {
	prefer := "return=representation"
	return c.do(ctx, http.MethodDelete, c.endpoint(table, filters, nil), nil, prefer, out)
}

// Ping verifies the REST endpoint answers.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/", nil)
	if err != nil {
		return err
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("postgrest ping: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode >= 500 {
		return fmt.Errorf("postgrest ping: status %d", res.StatusCode)
	}
	return nil
}
