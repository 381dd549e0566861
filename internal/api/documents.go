// SPDX-License-Identifier: MIT

package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/thakurdishanttt/Project-DocuLens/internal/jobs"
	"github.com/thakurdishanttt/Project-DocuLens/internal/metrics"
	"github.com/thakurdishanttt/Project-DocuLens/internal/pipeline"
	"github.com/thakurdishanttt/Project-DocuLens/internal/store"
)

// documentResponse is the JSON shape returned by the processing endpoints.
type documentResponse struct {
	DocumentID    string         `json:"document_id"`
	FileName      string         `json:"file_name"`
	DocumentType  string         `json:"document_type"`
	Confidence    float64        `json:"confidence"`
	Status        string         `json:"status"`
	ExtractedData map[string]any `json:"extracted_data,omitempty"`
	Error         string         `json:"error,omitempty"`
}

func toDocumentResponse(doc *store.Document) documentResponse {
	return documentResponse{
		DocumentID:    doc.ID,
		FileName:      doc.FileName,
		DocumentType:  doc.DocumentType,
		Confidence:    doc.Confidence,
		Status:        doc.Status,
		ExtractedData: doc.ExtractedData,
		Error:         doc.Error,
	}
}

// readUpload extracts the uploaded file and optional identity form values.
// A nil byte slice return means the response has already been written.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (filename string, content []byte, email, orgName string, ok bool) {
	cfg := s.holder.Current()
	r.Body = http.MaxBytesReader(w, r.Body, cfg.MaxUploadBytes)

	if err := r.ParseMultipartForm(cfg.MaxUploadBytes); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			metrics.IncUploadRejected("too_large")
			writeError(w, http.StatusRequestEntityTooLarge, "upload_too_large", "uploaded file exceeds the size limit")
			return "", nil, "", "", false
		}
		metrics.IncUploadRejected("invalid_multipart")
		writeBadRequest(w, "invalid_multipart", "request body is not valid multipart form data")
		return "", nil, "", "", false
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		metrics.IncUploadRejected("missing_file")
		writeBadRequest(w, "missing_file", "multipart field 'file' is required")
		return "", nil, "", "", false
	}
	defer file.Close()

	content, err = io.ReadAll(file)
	if err != nil {
		writeBadRequest(w, "unreadable_file", "uploaded file could not be read")
		return "", nil, "", "", false
	}

	return header.Filename, content, r.FormValue("email"), r.FormValue("org_name"), true
}

// handleProcess runs the pipeline synchronously and returns the final
// document state.
func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	filename, content, email, orgName, ok := s.readUpload(w, r)
	if !ok {
		return
	}

	doc, err := s.processor.Process(r.Context(), pipeline.Request{
		Filename:  filename,
		Content:   content,
		UserEmail: email,
		OrgName:   orgName,
	})
	if err != nil {
		switch {
		case errors.Is(err, pipeline.ErrEmptyDocument):
			writeBadRequest(w, "empty_file", "uploaded file is empty")
		case errors.Is(err, pipeline.ErrUnsupportedFormat):
			writeBadRequest(w, "unsupported_format", "file format is not supported")
		default:
			s.logger.Error().Err(err).Str("file", filename).Msg("document processing failed")
			if doc != nil {
				// The failure is persisted; give the caller the document ID
				// so the record can be inspected.
				writeJSON(w, http.StatusInternalServerError, toDocumentResponse(doc))
				return
			}
			writeInternalError(w, "document processing failed")
		}
		return
	}

	writeJSON(w, http.StatusOK, toDocumentResponse(doc))
}

// handleProcessAsync enqueues the document and returns a processing ID.
func (s *Server) handleProcessAsync(w http.ResponseWriter, r *http.Request) {
	filename, content, email, orgName, ok := s.readUpload(w, r)
	if !ok {
		return
	}
	if len(content) == 0 {
		metrics.IncUploadRejected("empty")
		writeBadRequest(w, "empty_file", "uploaded file is empty")
		return
	}

	processingID, err := s.queue.Enqueue(r.Context(), filename, content, email, orgName)
	if err != nil {
		if errors.Is(err, jobs.ErrQueueFull) {
			writeServiceUnavailable(w, "queue_full", "processing queue is full, retry later")
			return
		}
		s.logger.Error().Err(err).Str("file", filename).Msg("enqueue failed")
		writeInternalError(w, "could not enqueue document")
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{
		"processing_id": processingID,
		"status":        store.StatusPending,
	})
}

// handleStatus reports processing status, preferring the transient job
// status store so in-flight async work is visible without a document row.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "documentID")

	if s.queue != nil {
		if st, err := s.queue.Status(r.Context(), id); err == nil {
			writeJSON(w, http.StatusOK, map[string]any{
				"processing_id": st.ProcessingID,
				"document_id":   st.DocumentID,
				"status":        st.Status,
				"error":         st.Error,
			})
			return
		}
	}

	doc, err := s.store.GetDocument(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeNotFound(w, "no document or processing job with this ID")
			return
		}
		s.logger.Error().Err(err).Str("document_id", id).Msg("status lookup failed")
		writeInternalError(w, "status lookup failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"document_id": doc.ID,
		"status":      doc.Status,
		"error":       doc.Error,
	})
}

// handleData returns extracted data once processing has finished.
func (s *Server) handleData(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "documentID")

	doc, err := s.store.GetDocument(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeNotFound(w, "no document with this ID")
			return
		}
		s.logger.Error().Err(err).Str("document_id", id).Msg("data lookup failed")
		writeInternalError(w, "data lookup failed")
		return
	}

	if doc.Status != store.StatusCompleted && doc.Status != store.StatusProcessed {
		writeBadRequest(w, "document_not_ready", "document status is "+doc.Status)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"document_id":    doc.ID,
		"file_name":      doc.FileName,
		"document_type":  doc.DocumentType,
		"confidence":     doc.Confidence,
		"status":         doc.Status,
		"extracted_data": doc.ExtractedData,
	})
}
