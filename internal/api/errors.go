// SPDX-License-Identifier: MIT

package api

import (
	"encoding/json"
	"net/http"
)

// errorResponse is the uniform JSON error body.
type errorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, errCode, detail string) {
	writeJSON(w, code, errorResponse{Error: errCode, Detail: detail})
}

func writeBadRequest(w http.ResponseWriter, errCode, detail string) {
	writeError(w, http.StatusBadRequest, errCode, detail)
}

func writeNotFound(w http.ResponseWriter, detail string) {
	writeError(w, http.StatusNotFound, "not_found", detail)
}

func writeServiceUnavailable(w http.ResponseWriter, errCode, detail string) {
	writeError(w, http.StatusServiceUnavailable, errCode, detail)
}

func writeInternalError(w http.ResponseWriter, detail string) {
	writeError(w, http.StatusInternalServerError, "internal_error", detail)
}
