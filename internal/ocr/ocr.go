// SPDX-License-Identifier: MIT

// Package ocr extracts text from scanned images with Tesseract. It is the
// fallback path when the parsing upstream is unavailable or a document is an
// image upload.
package ocr

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"
	"github.com/rs/zerolog"

	"github.com/thakurdishanttt/Project-DocuLens/internal/imaging"
	xlog "github.com/thakurdishanttt/Project-DocuLens/internal/log"
)

// ErrNoText indicates OCR produced no recognizable text.
var ErrNoText = errors.New("ocr: no text recognized")

// Result is the outcome of one OCR pass.
type Result struct {
	Text       string
	Confidence float64
	Language   string
}

// Engine runs Tesseract against image content. A fresh gosseract client is
// created per document; the client holds C state and is not safe to share.
type Engine struct {
	tessdataPrefix string
	languages      []string
	dpi            int
	logger         zerolog.Logger

	clientFactory func() *gosseract.Client
}

// Config holds OCR settings.
type Config struct {
	// TessdataPrefix points at the traineddata directory. Empty uses the
	// system default.
	TessdataPrefix string
	// Languages passed to Tesseract, e.g. ["eng"].
	Languages []string
	// DPI hints Tesseract about the source resolution. Zero leaves the
	// engine default.
	DPI int
}

// NewEngine builds an OCR engine.
func NewEngine(cfg Config) *Engine {
	langs := cfg.Languages
	if len(langs) == 0 {
		langs = []string{"eng"}
	}
	return &Engine{
		tessdataPrefix: cfg.TessdataPrefix,
		languages:      langs,
		dpi:            cfg.DPI,
		logger:         xlog.WithComponent("ocr"),
		clientFactory:  gosseract.NewClient,
	}
}

// Recognize converts image content to grayscale PNG, runs Tesseract and
// returns the recognized text with an average word confidence. Tesseract
// recognizes grayscale input more reliably than color.
func (e *Engine) Recognize(ctx context.Context, content []byte) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	pngData, err := imaging.Grayscale(content)
	if err != nil {
		return Result{}, fmt.Errorf("prepare image: %w", err)
	}

	client := e.clientFactory()
	defer client.Close()

	if e.tessdataPrefix != "" {
		if err := client.SetTessdataPrefix(e.tessdataPrefix); err != nil {
			return Result{}, fmt.Errorf("set tessdata prefix: %w", err)
		}
	}
	if err := client.SetLanguage(e.languages...); err != nil {
		return Result{}, fmt.Errorf("set languages: %w", err)
	}
	if e.dpi > 0 {
		if err := client.SetVariable(gosseract.SettableVariable("user_defined_dpi"), fmt.Sprint(e.dpi)); err != nil {
			return Result{}, fmt.Errorf("set dpi: %w", err)
		}
	}
	if err := client.SetImageFromBytes(pngData); err != nil {
		return Result{}, fmt.Errorf("set image: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return Result{}, fmt.Errorf("recognize text: %w", err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return Result{}, ErrNoText
	}

	confidence := averageConfidence(client)
	e.logger.Debug().
		Int("chars", len(text)).
		Float64(xlog.FieldConfidence, confidence).
		Msg("ocr pass complete")

	return Result{
		Text:       text,
		Confidence: confidence,
		Language:   e.languages[0],
	}, nil
}

func averageConfidence(client *gosseract.Client) float64 {
	boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil || len(boxes) == 0 {
		return 0
	}
	var sum float64
	for _, b := range boxes {
		sum += b.Confidence / 100.0
	}
	return sum / float64(len(boxes))
}
