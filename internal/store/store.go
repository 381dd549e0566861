// SPDX-License-Identifier: MIT

// Package store defines the persistence boundary of doculens: documents,
// contracts, templates, users/organizations and the audit trail.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// ErrNotFound indicates the requested entity does not exist.
var ErrNotFound = errors.New("store: not found")

// Document processing statuses.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusProcessed  = "processed"
	StatusFailed     = "failed"
)

// Document is a processed (or in-flight) document record.
type Document struct {
	ID            string         `json:"id"`
	FileName      string         `json:"file_name"`
	FileURL       string         `json:"file_url,omitempty"`
	DocumentType  string         `json:"document_type"`
	Confidence    float64        `json:"confidence"`
	ExtractedData map[string]any `json:"extracted_data,omitempty"`
	Status        string         `json:"status"`
	Error         string         `json:"error,omitempty"`
	UserID        string         `json:"user_id,omitempty"`
	OrgID         string         `json:"org_id,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// Contract is a user-defined extraction contract for one document type.
type Contract struct {
	ID               string          `json:"id"`
	OrgID            string          `json:"org_id,omitempty"`
	UserID           string          `json:"user_id,omitempty"`
	DocumentType     string          `json:"document_type"`
	SystemContractID string          `json:"system_contract_id,omitempty"`
	Name             string          `json:"name"`
	Fields           json.RawMessage `json:"fields"`
	Version          int             `json:"version"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// Template is a system-defined contract template.
type Template struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	DocumentType string          `json:"document_type,omitempty"`
	Fields       json.RawMessage `json:"fields,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

// User is an account keyed by email.
type User struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name,omitempty"`
	OrgID       string    `json:"org_id,omitempty"`
	Role        string    `json:"role,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Organization groups users and contracts.
type Organization struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// AuditEntry records a data-changing action for the audit trail.
type AuditEntry struct {
	OrgID       string `json:"org_id,omitempty"`
	UserID      string `json:"user_id,omitempty"`
	Action      string `json:"action"`
	EntityID    string `json:"entity_id"`
	EntityType  string `json:"entity_type"`
	Description string `json:"description,omitempty"`
}

// Store is the persistence interface shared by the PostgREST and SQLite
// backends. All methods honor context cancellation.
type Store interface {
	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error

	// Documents
	GetDocument(ctx context.Context, id string) (*Document, error)
	SaveDocument(ctx context.Context, doc *Document) error // insert or update by ID

	// User contracts
	UserContracts(ctx context.Context, orgID string) ([]Contract, error)
	ContractByID(ctx context.Context, id string) (*Contract, error)
	InsertContract(ctx context.Context, c *Contract) error
	UpdateContractFields(ctx context.Context, documentType string, fields json.RawMessage, orgID string) error
	DeleteContract(ctx context.Context, id string) error

	// System contract templates
	SystemContracts(ctx context.Context) ([]Template, error)
	SystemContractByID(ctx context.Context, id string) (*Template, error)

	// Active contract selection
	ActiveContract(ctx context.Context) (*Template, error)
	SelectActiveContract(ctx context.Context, id string) (*Template, error)

	// Users and organizations
	EnsureUserOrganization(ctx context.Context, email, orgName string) (userID, orgID string, err error)

	// Audit trail
	AppendAudit(ctx context.Context, entry AuditEntry) error

	Close() error
}

// ContractSet maps document types to parsed contract field schemas. It is the
// in-memory shape the classifier and extractor work against.
type ContractSet map[string]json.RawMessage

// ContractSetOf builds a ContractSet from a contract list, keyed by document
// type. Later entries win on duplicate types.
func ContractSetOf(contracts []Contract) ContractSet {
	set := make(ContractSet, len(contracts))
	for _, c := range contracts {
		if c.DocumentType == "" || len(c.Fields) == 0 {
			continue
		}
		set[c.DocumentType] = c.Fields
	}
	return set
}

// Types returns the document types of the set.
func (s ContractSet) Types() []string {
	out := make([]string, 0, len(s))
	for t := range s {
		out = append(out, t)
	}
	return out
}
