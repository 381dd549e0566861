// SPDX-License-Identifier: MIT

// Package pipeline orchestrates document processing: parse, classify,
// resolve the matching contract, extract fields and persist the result.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/thakurdishanttt/Project-DocuLens/internal/classify"
	"github.com/thakurdishanttt/Project-DocuLens/internal/imaging"
	xlog "github.com/thakurdishanttt/Project-DocuLens/internal/log"
	"github.com/thakurdishanttt/Project-DocuLens/internal/metrics"
	"github.com/thakurdishanttt/Project-DocuLens/internal/ocr"
	"github.com/thakurdishanttt/Project-DocuLens/internal/schema"
	"github.com/thakurdishanttt/Project-DocuLens/internal/store"
)

// ErrEmptyDocument indicates an upload with no content.
var ErrEmptyDocument = errors.New("pipeline: empty document")

// ErrUnsupportedFormat indicates an upload type the pipeline cannot handle.
var ErrUnsupportedFormat = errors.New("pipeline: unsupported file format")

// ErrNoContracts indicates there are no contracts to classify against.
var ErrNoContracts = errors.New("pipeline: no contracts configured")

// Parser converts a document into markdown text.
type Parser interface {
	Parse(ctx context.Context, filename string, content []byte) (string, error)
}

// Classifier picks a document type from candidate categories.
type Classifier interface {
	Classify(ctx context.Context, text string, categories []string) (classify.Result, error)
}

// Extractor pulls structured fields out of document text.
type Extractor interface {
	Extract(ctx context.Context, documentType string, def schema.Definition, text string) (map[string]any, error)
}

// Recognizer is the OCR fallback for image uploads.
type Recognizer interface {
	Recognize(ctx context.Context, content []byte) (ocr.Result, error)
}

// Request is one document to process.
type Request struct {
	DocumentID string // assigned when empty
	Filename   string
	Content    []byte
	UserEmail  string
	OrgName    string
}

// Processor runs the processing pipeline.
type Processor struct {
	parser     Parser
	classifier Classifier
	extractor  Extractor
	recognizer Recognizer
	store      store.Store
	logger     zerolog.Logger

	// minConfidence below which a classification is recorded but the
	// document is not extracted.
	minConfidence float64
}

// Options configures a Processor.
type Options struct {
	Parser     Parser
	Classifier Classifier
	Extractor  Extractor
	// Recognizer is optional; without it image parse failures are fatal.
	Recognizer    Recognizer
	Store         store.Store
	MinConfidence float64
}

// New builds a Processor.
func New(opts Options) *Processor {
	minConfidence := opts.MinConfidence
	if minConfidence <= 0 {
		minConfidence = 0.3
	}
	return &Processor{
		parser:        opts.Parser,
		classifier:    opts.Classifier,
		extractor:     opts.Extractor,
		recognizer:    opts.Recognizer,
		store:         opts.Store,
		logger:        xlog.WithComponent("pipeline"),
		minConfidence: minConfidence,
	}
}

// Process runs the full pipeline for one document. The returned document
// reflects the final persisted state; a non-nil error always comes with a
// persisted failed record when the document got far enough to be created.
func (p *Processor) Process(ctx context.Context, req Request) (*store.Document, error) {
	totalStart := time.Now()
	defer func() { metrics.ObserveStageDuration("total", time.Since(totalStart)) }()

	if len(req.Content) == 0 {
		metrics.IncUploadRejected("empty")
		return nil, ErrEmptyDocument
	}

	kind, mimeType := imaging.Detect(req.Content, req.Filename)
	if kind == imaging.KindUnknown {
		metrics.IncUploadRejected("unsupported_format")
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, mimeType)
	}

	doc := &store.Document{
		ID:       req.DocumentID,
		FileName: req.Filename,
		Status:   store.StatusProcessing,
	}
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}

	if req.UserEmail != "" {
		userID, orgID, err := p.store.EnsureUserOrganization(ctx, req.UserEmail, req.OrgName)
		if err != nil {
			return nil, fmt.Errorf("resolve user: %w", err)
		}
		doc.UserID = userID
		doc.OrgID = orgID
	}

	ctx = xlog.ContextWithDocumentID(ctx, doc.ID)
	log := p.logger.With().
		Str(xlog.FieldDocumentID, doc.ID).
		Str(xlog.FieldFilename, req.Filename).
		Str(xlog.FieldMimeType, mimeType).
		Logger()

	if err := p.store.SaveDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("create document record: %w", err)
	}

	if err := p.run(ctx, log, doc, req, kind, mimeType); err != nil {
		doc.Status = store.StatusFailed
		doc.Error = err.Error()
		if saveErr := p.store.SaveDocument(ctx, doc); saveErr != nil {
			log.Error().Err(saveErr).Msg("persist failed state")
		}
		p.audit(ctx, doc, "document_failed", err.Error())
		metrics.IncDocumentProcessed("failed")
		log.Error().Err(err).Msg("document processing failed")
		return doc, err
	}

	metrics.IncDocumentProcessed("completed")
	metrics.IncDocumentType(doc.DocumentType)
	p.audit(ctx, doc, "document_processed", fmt.Sprintf("classified as %s", doc.DocumentType))
	log.Info().
		Str(xlog.FieldDocumentType, doc.DocumentType).
		Float64(xlog.FieldConfidence, doc.Confidence).
		Dur("elapsed", time.Since(totalStart)).
		Msg("document processed")
	return doc, nil
}

func (p *Processor) run(ctx context.Context, log zerolog.Logger, doc *store.Document, req Request, kind imaging.Kind, mimeType string) error {
	text, err := p.extractText(ctx, log, req, kind, mimeType)
	if err != nil {
		return err
	}
	if strings.TrimSpace(text) == "" {
		return ErrEmptyDocument
	}

	contracts, err := p.loadContracts(ctx, doc.OrgID)
	if err != nil {
		return err
	}
	if len(contracts) == 0 {
		return ErrNoContracts
	}

	classifyStart := time.Now()
	result, err := p.classifier.Classify(ctx, text, contracts.Types())
	metrics.ObserveStageDuration("classify", time.Since(classifyStart))
	if err != nil {
		return fmt.Errorf("classify: %w", err)
	}
	doc.DocumentType = result.Category
	doc.Confidence = result.Confidence

	if result.Confidence < p.minConfidence || result.Category == classify.CategoryUnknown {
		log.Warn().
			Str("category", result.Category).
			Float64(xlog.FieldConfidence, result.Confidence).
			Msg("classification below threshold, skipping extraction")
		doc.Status = store.StatusProcessed
		doc.Error = "could not classify document"
		return p.store.SaveDocument(ctx, doc)
	}

	documentType, raw, ok := ResolveContract(contracts, result.Category)
	if !ok {
		return fmt.Errorf("no contract matches category %q", result.Category)
	}
	doc.DocumentType = documentType

	def, err := schema.Parse(raw)
	if err != nil {
		return fmt.Errorf("contract schema for %q: %w", documentType, err)
	}
	if err := def.Validate(); err != nil {
		return fmt.Errorf("contract schema for %q: %w", documentType, err)
	}

	extractStart := time.Now()
	data, err := p.extractor.Extract(ctx, documentType, def, text)
	metrics.ObserveStageDuration("extract", time.Since(extractStart))
	if err != nil {
		return fmt.Errorf("extract: %w", err)
	}

	if err := def.ValidateData(data); err != nil {
		// Partial extractions are kept; the mismatch is surfaced in logs.
		log.Warn().Err(err).Msg("extracted data does not fully satisfy contract")
	}

	// The stored payload carries its own provenance so a row is
	// self-describing outside the documents table.
	if data == nil {
		data = map[string]any{}
	}
	data["document_id"] = doc.ID
	data["filename"] = doc.FileName
	data["document_type"] = doc.DocumentType
	data["confidence"] = doc.Confidence

	doc.ExtractedData = data
	doc.Status = store.StatusCompleted

	persistStart := time.Now()
	err = p.store.SaveDocument(ctx, doc)
	metrics.ObserveStageDuration("persist", time.Since(persistStart))
	return err
}

// parserNativeFormats are upload types the parse service accepts as-is.
// Anything else that decodes as an image is re-encoded to PNG first.
var parserNativeFormats = map[string]bool{
	"application/pdf": true,
	"image/jpeg":      true,
	"image/png":       true,
	"image/tiff":      true,
	"image/bmp":       true,
}

// extractText turns the upload into text: parser for documents, with OCR as
// fallback for images when the parser is unavailable or fails.
func (p *Processor) extractText(ctx context.Context, log zerolog.Logger, req Request, kind imaging.Kind, mimeType string) (string, error) {
	if kind == imaging.KindText {
		return string(req.Content), nil
	}

	filename, content := req.Filename, req.Content
	if kind == imaging.KindImage && !parserNativeFormats[mimeType] {
		png, err := imaging.ToPNG(content)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
		}
		content = png
		filename = pngFilename(filename)
	}

	parseStart := time.Now()
	text, err := p.parser.Parse(ctx, filename, content)
	metrics.ObserveStageDuration("parse", time.Since(parseStart))
	if err == nil {
		return text, nil
	}

	if kind == imaging.KindImage && p.recognizer != nil {
		log.Warn().Err(err).Msg("parse failed, falling back to ocr")
		ocrStart := time.Now()
		result, ocrErr := p.recognizer.Recognize(ctx, content)
		metrics.ObserveStageDuration("ocr", time.Since(ocrStart))
		if ocrErr != nil {
			return "", fmt.Errorf("parse failed (%v), ocr fallback failed: %w", err, ocrErr)
		}
		return result.Text, nil
	}
	return "", fmt.Errorf("parse: %w", err)
}

// pngFilename swaps the extension so the upload name matches its content
// after conversion.
func pngFilename(name string) string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		name = name[:i]
	}
	return name + ".png"
}

// loadContracts builds the classification contract set: the org's user
// contracts, falling back to the system templates when the org has none.
func (p *Processor) loadContracts(ctx context.Context, orgID string) (store.ContractSet, error) {
	contracts, err := p.store.UserContracts(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("load user contracts: %w", err)
	}
	set := store.ContractSetOf(contracts)
	if len(set) > 0 {
		metrics.SetContractCount("user", len(set))
		return set, nil
	}

	templates, err := p.store.SystemContracts(ctx)
	if err != nil {
		return nil, fmt.Errorf("load system contracts: %w", err)
	}
	set = make(store.ContractSet, len(templates))
	for _, t := range templates {
		docType := t.DocumentType
		if docType == "" {
			docType = strings.ToLower(t.Name)
		}
		if len(t.Fields) == 0 {
			continue
		}
		set[docType] = t.Fields
	}
	metrics.SetContractCount("system", len(set))
	return set, nil
}

func (p *Processor) audit(ctx context.Context, doc *store.Document, action, description string) {
	err := p.store.AppendAudit(ctx, store.AuditEntry{
		OrgID:       doc.OrgID,
		UserID:      doc.UserID,
		Action:      action,
		EntityID:    doc.ID,
		EntityType:  "document",
		Description: description,
	})
	if err != nil {
		p.logger.Warn().Err(err).Str(xlog.FieldDocumentID, doc.ID).Msg("audit append failed")
	}
}
