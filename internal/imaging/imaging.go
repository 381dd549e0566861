// SPDX-License-Identifier: MIT

// Package imaging detects upload formats and converts image uploads into
// PNG so the OCR engine only ever sees one input format.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"strings"

	_ "image/gif"
	_ "image/jpeg"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ErrUnsupportedFormat indicates an upload type the pipeline cannot handle.
var ErrUnsupportedFormat = errors.New("imaging: unsupported file format")

// Kind classifies an upload by how the pipeline should treat it.
type Kind int

const (
	KindUnknown Kind = iota
	KindPDF
	KindImage
	KindText
)

// sniffers maps magic prefixes to detected kinds and MIME types.
var sniffers = []struct {
	prefix []byte
	mime   string
	kind   Kind
}{
	{[]byte("%PDF-"), "application/pdf", KindPDF},
	{[]byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}, "image/png", KindImage},
	{[]byte{0xff, 0xd8, 0xff}, "image/jpeg", KindImage},
	{[]byte("GIF87a"), "image/gif", KindImage},
	{[]byte("GIF89a"), "image/gif", KindImage},
	{[]byte("BM"), "image/bmp", KindImage},
	{[]byte{0x49, 0x49, 0x2a, 0x00}, "image/tiff", KindImage},
	{[]byte{0x4d, 0x4d, 0x00, 0x2a}, "image/tiff", KindImage},
}

// Detect sniffs content and returns its kind and MIME type. The filename is
// only consulted for text formats that have no magic bytes.
func Detect(content []byte, filename string) (Kind, string) {
	for _, s := range sniffers {
		if bytes.HasPrefix(content, s.prefix) {
			return s.kind, s.mime
		}
	}
	// RIFF....WEBP
	if len(content) >= 12 && bytes.HasPrefix(content, []byte("RIFF")) && bytes.Equal(content[8:12], []byte("WEBP")) {
		return KindImage, "image/webp"
	}

	switch strings.ToLower(ext(filename)) {
	case "txt", "md", "markdown":
		return KindText, "text/plain"
	case "docx":
		return KindText, "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	}
	return KindUnknown, "application/octet-stream"
}

func ext(filename string) string {
	if i := strings.LastIndexByte(filename, '.'); i >= 0 {
		return filename[i+1:]
	}
	return ""
}

// ToPNG decodes any supported image format and re-encodes it as PNG. PNG
// input is returned unchanged.
func ToPNG(content []byte) ([]byte, error) {
	if bytes.HasPrefix(content, []byte{0x89, 'P', 'N', 'G'}) {
		return content, nil
	}

	img, format, err := image.Decode(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode %s as png: %w", format, err)
	}
	return buf.Bytes(), nil
}

// Grayscale converts an image to 8-bit grayscale PNG. Tesseract generally
// performs better on grayscale input.
func Grayscale(content []byte) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}

	bounds := img.Bounds()
	gray := image.NewGray(bounds)
	draw.Draw(gray, bounds, img, bounds.Min, draw.Src)

	// draw.Draw on *image.Gray already converts, but keep alpha handling
	// explicit for images with transparency.
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			_, _, _, a := img.At(x, y).RGBA()
			if a == 0 {
				gray.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, gray); err != nil {
		return nil, fmt.Errorf("encode grayscale png: %w", err)
	}
	return buf.Bytes(), nil
}
