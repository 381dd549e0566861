// SPDX-License-Identifier: MIT

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Attribute keys used across the processing pipeline spans.
const (
	DocumentIDKey   = "document.id"
	DocumentTypeKey = "document.type"
	FilenameKey     = "document.filename"
	MimeTypeKey     = "document.mime_type"
	ConfidenceKey   = "classify.confidence"
	StageKey        = "pipeline.stage"
	UpstreamKey     = "upstream.name"
	ContractIDKey   = "contract.id"
	OrgIDKey        = "org.id"

	ErrorKey     = "error"
	ErrorTypeKey = "error.type"
)

// DocumentAttributes builds the standard span attributes for one document.
func DocumentAttributes(documentID, documentType, filename string) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 3)
	if documentID != "" {
		attrs = append(attrs, attribute.String(DocumentIDKey, documentID))
	}
	if documentType != "" {
		attrs = append(attrs, attribute.String(DocumentTypeKey, documentType))
	}
	if filename != "" {
		attrs = append(attrs, attribute.String(FilenameKey, filename))
	}
	return attrs
}

// ClassificationAttributes builds span attributes for a classification
// outcome.
func ClassificationAttributes(category string, confidence float64) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(DocumentTypeKey, category),
		attribute.Float64(ConfidenceKey, confidence),
	}
}

// UpstreamAttributes builds span attributes for an upstream call.
func UpstreamAttributes(upstream, stage string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(UpstreamKey, upstream),
		attribute.String(StageKey, stage),
	}
}

// HTTPAttributes builds span attributes for an HTTP server request.
func HTTPAttributes(method, route, url string, statusCode int) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String("http.method", method),
		attribute.String("http.route", route),
		attribute.String("http.url", url),
	}
	if statusCode > 0 {
		attrs = append(attrs, attribute.Int("http.status_code", statusCode))
	}
	return attrs
}

// ErrorAttributes builds span attributes for a failure.
func ErrorAttributes(errorType string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Bool(ErrorKey, true),
		attribute.String(ErrorTypeKey, errorType),
	}
}
