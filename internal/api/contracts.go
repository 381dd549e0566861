// SPDX-License-Identifier: MIT

package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/thakurdishanttt/Project-DocuLens/internal/metrics"
	"github.com/thakurdishanttt/Project-DocuLens/internal/store"
)

// handlePredefinedContracts lists the built-in system contracts.
func (s *Server) handlePredefinedContracts(w http.ResponseWriter, r *http.Request) {
	templates, err := s.store.SystemContracts(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("list system contracts failed")
		writeInternalError(w, "could not list predefined contracts")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"contracts": templates,
		"count":     len(templates),
	})
}

// handleActiveContract returns the currently selected contract.
func (s *Server) handleActiveContract(w http.ResponseWriter, r *http.Request) {
	active, err := s.store.ActiveContract(r.Context())
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeNotFound(w, "no active contract selected")
			return
		}
		s.logger.Error().Err(err).Msg("active contract lookup failed")
		writeInternalError(w, "could not load active contract")
		return
	}
	writeJSON(w, http.StatusOK, active)
}

// handleSelectContract makes the given system contract the active one.
func (s *Server) handleSelectContract(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "contractID")

	selected, err := s.store.SelectActiveContract(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			metrics.IncContractOperation("select", "not_found")
			writeNotFound(w, "no predefined contract with this ID")
			return
		}
		metrics.IncContractOperation("select", "error")
		s.logger.Error().Err(err).Str("contract_id", id).Msg("contract selection failed")
		writeInternalError(w, "could not select contract")
		return
	}

	metrics.IncContractOperation("select", "ok")
	s.auditContract(r, "contract_selected", selected.ID, "active contract set to "+selected.Name)
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "selected",
		"contract": selected,
	})
}

// auditContract writes a best-effort audit entry for a contract operation.
func (s *Server) auditContract(r *http.Request, action, entityID, description string) {
	err := s.store.AppendAudit(r.Context(), store.AuditEntry{
		Action:      action,
		EntityID:    entityID,
		EntityType:  "contract",
		Description: description,
	})
	if err != nil {
		s.logger.Warn().Err(err).Str("action", action).Msg("audit write failed")
	}
}
