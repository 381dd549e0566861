// SPDX-License-Identifier: MIT

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldRequestID     = "request_id"
	FieldCorrelationID = "correlation_id"
	FieldDocumentID    = "document_id"
	FieldContractID    = "contract_id"
	FieldUserID        = "user_id"
	FieldOrgID         = "org_id"

	// Process / pipeline fields
	FieldEvent     = "event"
	FieldComponent = "component"
	FieldStage     = "stage"

	// Document fields
	FieldFilename     = "filename"
	FieldMimeType     = "mime_type"
	FieldDocumentType = "document_type"
	FieldConfidence   = "confidence"

	// State fields
	FieldOldStatus = "old_status"
	FieldNewStatus = "new_status"

	// Path / URL fields
	FieldPath    = "path"
	FieldBaseURL = "base_url"
)
