// SPDX-License-Identifier: MIT

package ocr

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/thakurdishanttt/Project-DocuLens/internal/imaging"
)

func TestNewEngine_DefaultLanguage(t *testing.T) {
	e := NewEngine(Config{})
	assert.Equal(t, []string{"eng"}, e.languages)

	e = NewEngine(Config{Languages: []string{"deu", "eng"}})
	assert.Equal(t, []string{"deu", "eng"}, e.languages)
}

func TestRecognize_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	_, err := NewEngine(Config{}).Recognize(ctx, []byte("irrelevant"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRecognize_UnsupportedContent(t *testing.T) {
	_, err := NewEngine(Config{}).Recognize(t.Context(), []byte("definitely not an image"))
	assert.ErrorIs(t, err, imaging.ErrUnsupportedFormat)
}
