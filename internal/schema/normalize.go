// SPDX-License-Identifier: MIT

package schema

import "strings"

// NormalizeDocumentType canonicalizes a document type for matching: lowercase
// with spaces, underscores and hyphens removed, plus fixups for common
// misspellings seen in user contracts.
func NormalizeDocumentType(documentType string) string {
	if documentType == "" {
		return ""
	}
	normalized := strings.ToLower(documentType)
	normalized = strings.NewReplacer(" ", "", "_", "", "-", "").Replace(normalized)
	normalized = strings.ReplaceAll(normalized, "employement", "employment")
	return normalized
}

// CaseVariations generates case/spacing variants of a document type for
// matching against loosely-named contracts. Duplicates are removed; order is
// not guaranteed.
func CaseVariations(text string) []string {
	words := strings.Fields(text)

	title := make([]string, len(words))
	camel := make([]string, len(words))
	for i, w := range words {
		title[i] = capitalize(w)
		camel[i] = capitalize(w)
	}

	variants := []string{
		strings.ToLower(text),
		strings.ToUpper(text),
		strings.Join(title, " "),
		strings.Join(words, ""),
		strings.ToLower(strings.Join(words, "_")),
		strings.Join(camel, ""),
	}

	seen := make(map[string]struct{}, len(variants))
	out := make([]string, 0, len(variants))
	for _, v := range variants {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func capitalize(w string) string {
	if w == "" {
		return w
	}
	return strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
}
