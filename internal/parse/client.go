// SPDX-License-Identifier: MIT

// Package parse talks to the LlamaParse API: upload a document, poll the
// parsing job and fetch the markdown result.
package parse

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	xlog "github.com/thakurdishanttt/Project-DocuLens/internal/log"
	"github.com/thakurdishanttt/Project-DocuLens/internal/metrics"
)

// ErrJobFailed indicates the parsing job finished with an error status.
var ErrJobFailed = errors.New("parse: job failed")

// ErrEmptyResult indicates the job succeeded but produced no text.
var ErrEmptyResult = errors.New("parse: empty result")

const upstreamName = "llamaparse"

// Client is a LlamaParse API client.
type Client struct {
	base         string
	apiKey       string
	http         *http.Client
	pollInterval time.Duration
	logger       zerolog.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithPollInterval sets how often job status is polled.
func WithPollInterval(d time.Duration) Option {
	return func(c *Client) { c.pollInterval = d }
}

// New builds a LlamaParse client for the given base URL and API key.
func New(base, apiKey string, opts ...Option) *Client {
	c := &Client{
		base:         strings.TrimRight(base, "/"),
		apiKey:       apiKey,
		http:         &http.Client{Timeout: 60 * time.Second},
		pollInterval: 2 * time.Second,
		logger:       xlog.WithComponent("parse"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type uploadResponse struct {
	ID string `json:"id"`
}

type jobStatusResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type markdownResponse struct {
	Markdown string `json:"markdown"`
}

// Parse uploads a document and blocks until the parsed markdown is
// available or the context expires.
func (c *Client) Parse(ctx context.Context, filename string, content []byte) (string, error) {
	start := time.Now()
	defer func() { metrics.ObserveUpstreamDuration(upstreamName, time.Since(start)) }()

	jobID, err := c.upload(ctx, filename, content)
	if err != nil {
		metrics.IncUpstreamRequest(upstreamName, "failure")
		return "", err
	}

	log := c.logger.With().Str("job_id", jobID).Str(xlog.FieldFilename, filename).Logger()
	log.Debug().Msg("parse job submitted")

	if err := c.waitForJob(ctx, jobID); err != nil {
		metrics.IncUpstreamRequest(upstreamName, "failure")
		return "", err
	}

	markdown, err := c.result(ctx, jobID)
	if err != nil {
		metrics.IncUpstreamRequest(upstreamName, "failure")
		return "", err
	}

	metrics.IncUpstreamRequest(upstreamName, "success")
	log.Debug().Int("chars", len(markdown)).Msg("parse job complete")
	return markdown, nil
}

func (c *Client) upload(ctx context.Context, filename string, content []byte) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("build multipart body: %w", err)
	}
	if _, err := fw.Write(content); err != nil {
		return "", fmt.Errorf("build multipart body: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("build multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/api/parsing/upload", &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	c.authorize(req)

	res, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return "", statusError("upload", res)
	}

	var up uploadResponse
	if err := json.NewDecoder(res.Body).Decode(&up); err != nil {
		return "", fmt.Errorf("decode upload response: %w", err)
	}
	if up.ID == "" {
		return "", fmt.Errorf("upload response missing job id")
	}
	return up.ID, nil
}

func (c *Client) waitForJob(ctx context.Context, jobID string) error {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		status, err := c.jobStatus(ctx, jobID)
		if err != nil {
			return err
		}
		switch strings.ToUpper(status.Status) {
		case "SUCCESS", "COMPLETED":
			return nil
		case "ERROR", "FAILED":
			if status.Error != "" {
				return fmt.Errorf("%w: %s", ErrJobFailed, status.Error)
			}
			return ErrJobFailed
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for job %s: %w", jobID, ctx.Err())
		case <-ticker.C:
		}
	}
}

func (c *Client) jobStatus(ctx context.Context, jobID string) (jobStatusResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/api/parsing/job/"+jobID, nil)
	if err != nil {
		return jobStatusResponse{}, err
	}
	c.authorize(req)

	res, err := c.http.Do(req)
	if err != nil {
		return jobStatusResponse{}, fmt.Errorf("job status: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return jobStatusResponse{}, statusError("job status", res)
	}

	var status jobStatusResponse
	if err := json.NewDecoder(res.Body).Decode(&status); err != nil {
		return jobStatusResponse{}, fmt.Errorf("decode job status: %w", err)
	}
	return status, nil
}

func (c *Client) result(ctx context.Context, jobID string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/api/parsing/job/"+jobID+"/result/markdown", nil)
	if err != nil {
		return "", err
	}
	c.authorize(req)

	res, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch result: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return "", statusError("fetch result", res)
	}

	var md markdownResponse
	if err := json.NewDecoder(res.Body).Decode(&md); err != nil {
		return "", fmt.Errorf("decode result: %w", err)
	}
	if strings.TrimSpace(md.Markdown) == "" {
		return "", ErrEmptyResult
	}
	return md.Markdown, nil
}

func (c *Client) authorize(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
}

func statusError(op string, res *http.Response) error {
	snippet, _ := io.ReadAll(io.LimitReader(res.Body, 512))
	return fmt.Errorf("%s: unexpected status %d: %s", op, res.StatusCode, strings.TrimSpace(string(snippet)))
}
