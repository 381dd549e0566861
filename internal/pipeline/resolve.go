// SPDX-License-Identifier: MIT

package pipeline

import (
	"encoding/json"
	"strings"

	"github.com/thakurdishanttt/Project-DocuLens/internal/schema"
)

// ResolveContract finds the contract whose document type matches the
// classified category. Matching relaxes step by step: exact, then
// case-insensitive, then case and spacing variants, then normalized
// (separators and known misspellings removed). Returns the matched
// contract's document type and raw schema.
func ResolveContract(set map[string]json.RawMessage, category string) (string, json.RawMessage, bool) {
	if raw, ok := set[category]; ok {
		return category, raw, true
	}

	lower := strings.ToLower(category)
	for docType, raw := range set {
		if strings.ToLower(docType) == lower {
			return docType, raw, true
		}
	}

	for _, variant := range schema.CaseVariations(category) {
		if raw, ok := set[variant]; ok {
			return variant, raw, true
		}
	}

	normalized := schema.NormalizeDocumentType(category)
	if normalized == "" {
		return "", nil, false
	}
	for docType, raw := range set {
		if schema.NormalizeDocumentType(docType) == normalized {
			return docType, raw, true
		}
	}
	return "", nil, false
}
