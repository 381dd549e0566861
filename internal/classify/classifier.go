// SPDX-License-Identifier: MIT

// Package classify determines a document's type by asking the Gemini API to
// pick the best matching category from the active contract set.
package classify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/thakurdishanttt/Project-DocuLens/internal/cache"
	xlog "github.com/thakurdishanttt/Project-DocuLens/internal/log"
	"github.com/thakurdishanttt/Project-DocuLens/internal/metrics"
)

// ErrEmptyDocument indicates there is no text to classify.
var ErrEmptyDocument = errors.New("classify: empty document text")

// ErrUnparsableResponse indicates the model returned no usable reply.
var ErrUnparsableResponse = errors.New("classify: unparsable model response")

const (
	upstreamName = "gemini"

	// classifyExcerptLen limits how much document text goes into the
	// prompt. The opening of a document is enough to type it.
	classifyExcerptLen = 2000

	cacheNamespace = "classify"
	cacheTTL       = 24 * time.Hour
)

// CategoryUnknown is returned when the model cannot match a category or
// the upstream call fails. Callers treat it as "no contract applies".
const CategoryUnknown = "unknown"

// Result is a classification outcome.
type Result struct {
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason"`
}

// Classifier calls Gemini's generateContent endpoint. Calls are rate limited
// so burst uploads do not exhaust the API quota.
type Classifier struct {
	base    string
	apiKey  string
	model   string
	http    *http.Client
	limiter *rate.Limiter
	cache   cache.Cache
	logger  zerolog.Logger
}

// Config holds classifier settings.
type Config struct {
	// BaseURL of the Gemini API. Empty uses the public endpoint.
	BaseURL string
	APIKey  string
	Model   string
	// RequestsPerSecond caps the upstream call rate. Zero disables limiting.
	RequestsPerSecond float64
	// Cache stores results keyed by content hash. Nil disables caching.
	Cache cache.Cache
}

// New builds a Classifier.
func New(cfg Config, opts ...Option) *Classifier {
	base := cfg.BaseURL
	if base == "" {
		base = "https://generativelanguage.googleapis.com"
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	c := cfg.Cache
	if c == nil {
		c = cache.NewNoOpCache()
	}
	cl := &Classifier{
		base:    strings.TrimRight(base, "/"),
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		http:    &http.Client{Timeout: 30 * time.Second},
		limiter: limiter,
		cache:   c,
		logger:  xlog.WithComponent("classify"),
	}
	for _, opt := range opts {
		opt(cl)
	}
	return cl
}

// Option customizes a Classifier.
type Option func(*Classifier)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Classifier) { c.http = h }
}

// Classify picks the best category for the document text from the candidate
// list. Identical content re-uses the cached result. Upstream failures and
// unparsable replies degrade to CategoryUnknown instead of an error; only an
// empty document or a cancelled context fail outright.
func (c *Classifier) Classify(ctx context.Context, text string, categories []string) (Result, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Result{}, ErrEmptyDocument
	}

	excerpt := text
	if len(excerpt) > classifyExcerptLen {
		excerpt = excerpt[:classifyExcerptLen]
	}

	key := cache.ContentKey(cacheNamespace, []byte(excerpt+"\x00"+strings.Join(categories, ",")))
	if cached, ok := c.cache.Get(key); ok {
		if result, ok := decodeCached(cached); ok {
			metrics.IncCacheHit()
			c.logger.Debug().Str("category", result.Category).Msg("classification cache hit")
			return result, nil
		}
	}
	metrics.IncCacheMiss()

	if err := c.limiter.Wait(ctx); err != nil {
		return Result{}, fmt.Errorf("rate limiter: %w", err)
	}

	start := time.Now()
	reply, err := c.generate(ctx, buildPrompt(excerpt, categories))
	metrics.ObserveUpstreamDuration(upstreamName, time.Since(start))
	if err != nil {
		metrics.IncUpstreamRequest(upstreamName, "failure")
		c.logger.Warn().Err(err).Msg("classification degraded to unknown")
		return Result{Category: CategoryUnknown, Reason: err.Error()}, nil
	}
	metrics.IncUpstreamRequest(upstreamName, "success")

	result, ok := ParseReply(reply)
	if !ok {
		// A chatty or malformed reply is not a processing failure. The
		// document simply stays untyped. Degraded results are not cached
		// so a retry gets a fresh attempt.
		c.logger.Warn().Str("reply", reply).Msg("classification degraded to unknown")
		return result, nil
	}

	metrics.ObserveConfidence(result.Confidence)
	c.cache.Set(key, result, cacheTTL)
	c.logger.Info().
		Str("category", result.Category).
		Float64(xlog.FieldConfidence, result.Confidence).
		Msg("document classified")
	return result, nil
}

func buildPrompt(excerpt string, categories []string) string {
	var b strings.Builder
	b.WriteString("You are a document classifier for property management documents.\n")
	b.WriteString("Classify the document below into exactly one of these categories:\n")
	for _, cat := range categories {
		b.WriteString("- ")
		b.WriteString(cat)
		b.WriteString("\n")
	}
	b.WriteString("If none fit, answer with the category 'unknown'.\n")
	b.WriteString("Answer with a single line in the format: category|confidence|reason\n")
	b.WriteString("where confidence is a number between 0 and 1.\n\n")
	b.WriteString("Document:\n")
	b.WriteString(excerpt)
	return b.String()
}

// ParseReply parses a category|confidence|reason line. Surrounding
// whitespace, code fences and extra lines from the model are tolerated. A
// reply with no parsable line yields CategoryUnknown and ok=false.
func ParseReply(reply string) (Result, bool) {
	for _, line := range strings.Split(reply, "\n") {
		line = strings.TrimSpace(strings.Trim(line, "`"))
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, "|", 3)
		if len(parts) < 2 {
			continue
		}
		confidence, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if err != nil || confidence < 0 || confidence > 1 {
			continue
		}
		result := Result{
			Category:   strings.ToLower(strings.TrimSpace(parts[0])),
			Confidence: confidence,
		}
		if len(parts) == 3 {
			result.Reason = strings.TrimSpace(parts[2])
		}
		if result.Category == "" {
			continue
		}
		return result, true
	}
	return Result{Category: CategoryUnknown, Reason: "invalid response format"}, false
}

// Gemini generateContent request/response shapes, trimmed to what we use.
type generateRequest struct {
	Contents         []content         `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

// Temperature 0 keeps replies deterministic for the same excerpt, which is
// what makes the content-hash cache coherent.
type generationConfig struct {
	Temperature float64 `json:"temperature"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

func (c *Classifier) generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(generateRequest{
		Contents:         []content{{Parts: []part{{Text: prompt}}}},
		GenerationConfig: &generationConfig{Temperature: 0},
	})
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.base, c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(string(body)))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	res, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return "", fmt.Errorf("generate content: unexpected status %d: %s", res.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var out generateResponse
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("%w: no candidates", ErrUnparsableResponse)
	}
	return out.Candidates[0].Content.Parts[0].Text, nil
}

// decodeCached converts a cached value back into a Result. Redis returns
// generic maps, the in-memory cache returns the original struct.
func decodeCached(v any) (Result, bool) {
	switch val := v.(type) {
	case Result:
		return val, true
	case map[string]any:
		data, err := json.Marshal(val)
		if err != nil {
			return Result{}, false
		}
		var result Result
		if err := json.Unmarshal(data, &result); err != nil || result.Category == "" {
			return Result{}, false
		}
		return result, true
	}
	return Result{}, false
}
