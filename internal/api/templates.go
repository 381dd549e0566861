// SPDX-License-Identifier: MIT

package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/thakurdishanttt/Project-DocuLens/internal/metrics"
	"github.com/thakurdishanttt/Project-DocuLens/internal/schema"
	"github.com/thakurdishanttt/Project-DocuLens/internal/store"
)

// templateSummary is the list shape for system templates, without fields.
type templateSummary struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// contractSummary is the list shape for user contracts, without fields.
type contractSummary struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	DocumentType string    `json:"document_type"`
	Version      int       `json:"version"`
	CreatedAt    time.Time `json:"created_at"`
}

// handleListTemplates lists system templates without their field schemas.
func (s *Server) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := s.store.SystemContracts(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("list templates failed")
		writeInternalError(w, "could not list templates")
		return
	}

	summaries := make([]templateSummary, 0, len(templates))
	for _, t := range templates {
		summaries = append(summaries, templateSummary{ID: t.ID, Name: t.Name, CreatedAt: t.CreatedAt})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"templates": summaries,
		"count":     len(summaries),
	})
}

// handleTemplate returns one template including its field schema.
func (s *Server) handleTemplate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "templateID")

	template, err := s.store.SystemContractByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeNotFound(w, "no template with this ID")
			return
		}
		s.logger.Error().Err(err).Str("template_id", id).Msg("template lookup failed")
		writeInternalError(w, "could not load template")
		return
	}
	writeJSON(w, http.StatusOK, template)
}

// handleListContracts lists user contracts, optionally scoped by org_id.
func (s *Server) handleListContracts(w http.ResponseWriter, r *http.Request) {
	contracts, err := s.store.UserContracts(r.Context(), r.URL.Query().Get("org_id"))
	if err != nil {
		s.logger.Error().Err(err).Msg("list contracts failed")
		writeInternalError(w, "could not list contracts")
		return
	}

	summaries := make([]contractSummary, 0, len(contracts))
	for _, c := range contracts {
		summaries = append(summaries, contractSummary{
			ID:           c.ID,
			Name:         c.Name,
			DocumentType: c.DocumentType,
			Version:      c.Version,
			CreatedAt:    c.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"contracts": summaries,
		"count":     len(summaries),
	})
}

// handleContract returns one user contract including its field schema.
func (s *Server) handleContract(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "contractID")

	contract, err := s.store.ContractByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeNotFound(w, "no contract with this ID")
			return
		}
		s.logger.Error().Err(err).Str("contract_id", id).Msg("contract lookup failed")
		writeInternalError(w, "could not load contract")
		return
	}
	writeJSON(w, http.StatusOK, contract)
}

type copyTemplateRequest struct {
	TemplateID string `json:"template_id"`
	// UserID accepts a user UUID or an email address. Emails are resolved
	// to an account, creating it on first use.
	UserID         string                     `json:"user_id,omitempty"`
	OrgName        string                     `json:"org_name,omitempty"`
	Name           string                     `json:"name,omitempty"`
	Customizations map[string]schema.Property `json:"customizations,omitempty"`
}

// handleCopyTemplate copies a system template into a user contract with
// optional per-field customization.
func (s *Server) handleCopyTemplate(w http.ResponseWriter, r *http.Request) {
	var req copyTemplateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid_json", "request body is not valid JSON")
		return
	}
	if req.TemplateID == "" {
		writeBadRequest(w, "missing_template_id", "template_id is required")
		return
	}

	var userID, orgID string
	switch {
	case strings.Contains(req.UserID, "@"):
		var err error
		userID, orgID, err = s.store.EnsureUserOrganization(r.Context(), req.UserID, req.OrgName)
		if err != nil {
			s.logger.Error().Err(err).Msg("user resolution failed")
			writeInternalError(w, "could not resolve user")
			return
		}
	case req.UserID != "":
		if _, err := uuid.Parse(req.UserID); err != nil {
			writeBadRequest(w, "invalid_user_id", "user_id must be a UUID or an email address")
			return
		}
		userID = req.UserID
	}

	template, err := s.store.SystemContractByID(r.Context(), req.TemplateID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			metrics.IncContractOperation("copy_template", "not_found")
			writeNotFound(w, "no template with this ID")
			return
		}
		s.logger.Error().Err(err).Str("template_id", req.TemplateID).Msg("template lookup failed")
		writeInternalError(w, "could not load template")
		return
	}

	def, err := schema.Parse(template.Fields)
	if err != nil {
		s.logger.Error().Err(err).Str("template_id", template.ID).Msg("template has invalid field schema")
		writeInternalError(w, "template field schema is invalid")
		return
	}
	if len(req.Customizations) > 0 {
		def = def.Customize(req.Customizations)
	}
	fields, err := json.Marshal(def)
	if err != nil {
		writeInternalError(w, "could not encode contract fields")
		return
	}

	name := req.Name
	if name == "" {
		name = template.Name
	}
	documentType := template.DocumentType
	if documentType == "" {
		documentType = strings.ToLower(template.Name)
	}

	contract := &store.Contract{
		OrgID:            orgID,
		UserID:           userID,
		DocumentType:     documentType,
		SystemContractID: template.ID,
		Name:             name,
		Fields:           fields,
	}
	if err := s.store.InsertContract(r.Context(), contract); err != nil {
		metrics.IncContractOperation("copy_template", "error")
		s.logger.Error().Err(err).Str("template_id", template.ID).Msg("contract insert failed")
		writeInternalError(w, "could not create contract")
		return
	}

	metrics.IncContractOperation("copy_template", "ok")
	s.auditContract(r, "contract_copied", contract.ID, "copied from template "+template.Name)
	writeJSON(w, http.StatusCreated, contract)
}

type uploadContractRequest struct {
	Name         string          `json:"name"`
	DocumentType string          `json:"document_type,omitempty"`
	Fields       json.RawMessage `json:"fields"`
	UserID       string          `json:"user_id,omitempty"`
	OrgID        string          `json:"org_id,omitempty"`
}

// handleUploadContract creates a user contract from a JSON field schema.
func (s *Server) handleUploadContract(w http.ResponseWriter, r *http.Request) {
	var req uploadContractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid_json", "request body is not valid JSON")
		return
	}
	if req.Name == "" {
		writeBadRequest(w, "missing_name", "name is required")
		return
	}
	if len(req.Fields) == 0 {
		writeBadRequest(w, "missing_fields", "fields is required")
		return
	}

	def, err := schema.Parse(req.Fields)
	if err == nil {
		err = def.Validate()
	}
	if err != nil {
		metrics.IncContractOperation("upload", "invalid_schema")
		writeBadRequest(w, "invalid_schema", err.Error())
		return
	}

	fields, err := json.Marshal(def)
	if err != nil {
		writeInternalError(w, "could not encode contract fields")
		return
	}

	documentType := req.DocumentType
	if documentType == "" {
		documentType = schema.NormalizeDocumentType(req.Name)
	}

	contract := &store.Contract{
		OrgID:        req.OrgID,
		UserID:       req.UserID,
		DocumentType: documentType,
		Name:         req.Name,
		Fields:       fields,
	}
	if err := s.store.InsertContract(r.Context(), contract); err != nil {
		metrics.IncContractOperation("upload", "error")
		s.logger.Error().Err(err).Str("name", req.Name).Msg("contract insert failed")
		writeInternalError(w, "could not create contract")
		return
	}

	metrics.IncContractOperation("upload", "ok")
	s.auditContract(r, "contract_uploaded", contract.ID, "contract created from uploaded schema")
	writeJSON(w, http.StatusCreated, contract)
}

type updateContractRequest struct {
	Fields json.RawMessage `json:"fields"`
	OrgID  string          `json:"org_id,omitempty"`
}

// handleUpdateContract replaces a contract's field schema. The update applies
// to every contract with the same document type within the org, mirroring how
// classification resolves contracts by type.
func (s *Server) handleUpdateContract(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "contractID")

	var req updateContractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid_json", "request body is not valid JSON")
		return
	}
	if len(req.Fields) == 0 {
		writeBadRequest(w, "missing_fields", "fields is required")
		return
	}

	contract, err := s.store.ContractByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			metrics.IncContractOperation("update", "not_found")
			writeNotFound(w, "no contract with this ID")
			return
		}
		s.logger.Error().Err(err).Str("contract_id", id).Msg("contract lookup failed")
		writeInternalError(w, "could not load contract")
		return
	}

	def, err := schema.Parse(req.Fields)
	if err == nil {
		err = def.Validate()
	}
	if err != nil {
		metrics.IncContractOperation("update", "invalid_schema")
		writeBadRequest(w, "invalid_schema", err.Error())
		return
	}
	fields, err := json.Marshal(def)
	if err != nil {
		writeInternalError(w, "could not encode contract fields")
		return
	}

	orgID := req.OrgID
	if orgID == "" {
		orgID = contract.OrgID
	}
	if err := s.store.UpdateContractFields(r.Context(), contract.DocumentType, fields, orgID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			metrics.IncContractOperation("update", "not_found")
			writeNotFound(w, "no contract with this document type in the org")
			return
		}
		metrics.IncContractOperation("update", "error")
		s.logger.Error().Err(err).Str("contract_id", id).Msg("contract update failed")
		writeInternalError(w, "could not update contract")
		return
	}

	metrics.IncContractOperation("update", "ok")
	s.auditContract(r, "contract_updated", id, "contract fields replaced")
	writeJSON(w, http.StatusOK, map[string]string{
		"status":        "updated",
		"contract_id":   id,
		"document_type": contract.DocumentType,
	})
}

// handleDeleteContract removes a user contract.
func (s *Server) handleDeleteContract(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "contractID")

	if err := s.store.DeleteContract(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			metrics.IncContractOperation("delete", "not_found")
			writeNotFound(w, "no contract with this ID")
			return
		}
		metrics.IncContractOperation("delete", "error")
		s.logger.Error().Err(err).Str("contract_id", id).Msg("contract delete failed")
		writeInternalError(w, "could not delete contract")
		return
	}

	metrics.IncContractOperation("delete", "ok")
	s.auditContract(r, "contract_deleted", id, "contract removed")
	writeJSON(w, http.StatusOK, map[string]string{
		"status":      "deleted",
		"contract_id": id,
	})
}
