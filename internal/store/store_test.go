// SPDX-License-Identifier: MIT

package store

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContractSetOf(t *testing.T) {
	fields := json.RawMessage(`{"properties":{"rent":{"type":"number"}}}`)
	contracts := []Contract{
		{DocumentType: "rental agreement", Fields: fields},
		{DocumentType: "invoice", Fields: fields},
		{DocumentType: "", Fields: fields},            // no type, skipped
		{DocumentType: "empty", Fields: nil},          // no fields, skipped
		{DocumentType: "invoice", Fields: json.RawMessage(`{"properties":{"total":{"type":"number"}}}`)}, // later wins
	}

	set := ContractSetOf(contracts)
	assert.Len(t, set, 2)
	assert.Contains(t, string(set["invoice"]), "total")
	assert.ElementsMatch(t, []string{"rental agreement", "invoice"}, set.Types())
}
