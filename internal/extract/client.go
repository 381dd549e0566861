// SPDX-License-Identifier: MIT

// Package extract pulls structured fields out of parsed document text via
// the LlamaExtract API. Extraction agents are created per contract schema
// and re-used across documents of the same type.
package extract

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	xlog "github.com/thakurdishanttt/Project-DocuLens/internal/log"
	"github.com/thakurdishanttt/Project-DocuLens/internal/metrics"
	"github.com/thakurdishanttt/Project-DocuLens/internal/schema"
)

// ErrNoData indicates extraction finished without producing any fields.
var ErrNoData = errors.New("extract: no data extracted")

const upstreamName = "llamaextract"

// Client is a LlamaExtract API client.
type Client struct {
	base   string
	apiKey string
	http   *http.Client
	logger zerolog.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// New builds a LlamaExtract client.
func New(base, apiKey string, opts ...Option) *Client {
	c := &Client{
		base:   strings.TrimRight(base, "/"),
		apiKey: apiKey,
		http:   &http.Client{Timeout: 120 * time.Second},
		logger: xlog.WithComponent("extract"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AgentName derives a stable agent name from the document type and its
// schema. A schema change produces a new agent instead of mutating the old
// one, so in-flight extractions keep their schema.
func AgentName(documentType string, def schema.Definition) string {
	canonical, _ := json.Marshal(def)
	sum := sha256.Sum256(canonical)
	slug := strings.ReplaceAll(schema.NormalizeDocumentType(documentType), " ", "")
	if slug == "" {
		slug = "document"
	}
	return fmt.Sprintf("doculens-%s-%s", slug, hex.EncodeToString(sum[:8]))
}

type agent struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Extract runs the contract schema against the document text, creating the
// extraction agent on first use.
func (c *Client) Extract(ctx context.Context, documentType string, def schema.Definition, text string) (map[string]any, error) {
	start := time.Now()
	defer func() { metrics.ObserveUpstreamDuration(upstreamName, time.Since(start)) }()

	name := AgentName(documentType, def)
	ag, err := c.findAgent(ctx, name)
	if err != nil {
		metrics.IncUpstreamRequest(upstreamName, "failure")
		return nil, err
	}
	if ag == nil {
		ag, err = c.createAgent(ctx, name, def)
		if err != nil {
			metrics.IncUpstreamRequest(upstreamName, "failure")
			return nil, err
		}
		c.logger.Info().
			Str("agent", name).
			Str(xlog.FieldDocumentType, documentType).
			Msg("extraction agent created")
	}

	data, err := c.run(ctx, ag.ID, text)
	if err != nil {
		metrics.IncUpstreamRequest(upstreamName, "failure")
		return nil, err
	}
	metrics.IncUpstreamRequest(upstreamName, "success")
	return data, nil
}

// findAgent looks an agent up by name. Returns nil without error when the
// agent does not exist yet.
func (c *Client) findAgent(ctx context.Context, name string) (*agent, error) {
	u := c.base + "/api/extraction/agents?name=" + url.QueryEscape(name)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	c.authorize(req)

	res, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("find agent: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if res.StatusCode != http.StatusOK {
		return nil, statusError("find agent", res)
	}

	var agents []agent
	if err := json.NewDecoder(res.Body).Decode(&agents); err != nil {
		return nil, fmt.Errorf("decode agent list: %w", err)
	}
	for i := range agents {
		if agents[i].Name == name {
			return &agents[i], nil
		}
	}
	return nil, nil
}

func (c *Client) createAgent(ctx context.Context, name string, def schema.Definition) (*agent, error) {
	body, err := json.Marshal(map[string]any{
		"name":        name,
		"data_schema": def,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/api/extraction/agents", strings.NewReader(string(body)))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	res, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("create agent: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK && res.StatusCode != http.StatusCreated {
		return nil, statusError("create agent", res)
	}

	var ag agent
	if err := json.NewDecoder(res.Body).Decode(&ag); err != nil {
		return nil, fmt.Errorf("decode agent: %w", err)
	}
	if ag.ID == "" {
		return nil, fmt.Errorf("create agent: response missing id")
	}
	return &ag, nil
}

func (c *Client) run(ctx context.Context, agentID, text string) (map[string]any, error) {
	body, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return nil, err
	}

	u := c.base + "/api/extraction/agents/" + url.PathEscape(agentID) + "/extract"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, strings.NewReader(string(body)))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	res, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("run extraction: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, statusError("run extraction", res)
	}

	var out struct {
		Data map[string]any `json:"data"`
	}
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode extraction result: %w", err)
	}
	if len(out.Data) == 0 {
		return nil, ErrNoData
	}
	return out.Data, nil
}

func (c *Client) authorize(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
}

func statusError(op string, res *http.Response) error {
	snippet, _ := io.ReadAll(io.LimitReader(res.Body, 512))
	return fmt.Errorf("%s: unexpected status %d: %s", op, res.StatusCode, strings.TrimSpace(string(snippet)))
}
