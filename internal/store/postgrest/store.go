// SPDX-License-Identifier: MIT

package postgrest

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/thakurdishanttt/Project-DocuLens/internal/store"
)

// Store implements store.Store on a Supabase PostgREST endpoint.
type Store struct {
	client *Client
}

var _ store.Store = (*Store)(nil)

// New builds the PostgREST-backed store.
func New(cfg Config, opts ...Option) *Store {
	return &Store{client: NewClient(cfg, opts...)}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx)
}

// Close is a no-op; the client holds no persistent connections.
func (s *Store) Close() error { return nil }

func (s *Store) GetDocument(ctx context.Context, id string) (*store.Document, error) {
	var docs []store.Document
	if err := s.client.selectRows(ctx, "documents", []filter{eq("id", id)}, &docs); err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("document %s: %w", id, store.ErrNotFound)
	}
	return &docs[0], nil
}

func (s *Store) SaveDocument(ctx context.Context, doc *store.Document) error {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	row := map[string]any{
		"id":            doc.ID,
		"file_name":     doc.FileName,
		"file_url":      doc.FileURL,
		"document_type": doc.DocumentType,
		"confidence":    doc.Confidence,
		"status":        doc.Status,
		"error":         doc.Error,
	}
	if doc.ExtractedData != nil {
		row["extracted_data"] = doc.ExtractedData
	}
	if doc.UserID != "" {
		row["user_id"] = doc.UserID
	}
	if doc.OrgID != "" {
		row["org_id"] = doc.OrgID
	}
	return s.client.upsert(ctx, "documents", row, nil)
}

func (s *Store) UserContracts(ctx context.Context, orgID string) ([]store.Contract, error) {
	var filters []filter
	if orgID != "" {
		filters = append(filters, eq("org_id", orgID))
	}
	var contracts []store.Contract
	if err := s.client.selectRows(ctx, "user_contracts", filters, &contracts); err != nil {
		return nil, err
	}
	return contracts, nil
}

func (s *Store) ContractByID(ctx context.Context, id string) (*store.Contract, error) {
	var contracts []store.Contract
	if err := s.client.selectRows(ctx, "user_contracts", []filter{eq("id", id)}, &contracts); err != nil {
		return nil, err
	}
	if len(contracts) == 0 {
		return nil, fmt.Errorf("contract %s: %w", id, store.ErrNotFound)
	}
	return &contracts[0], nil
}

func (s *Store) InsertContract(ctx context.Context, c *store.Contract) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.Version == 0 {
		c.Version = 1
	}
	row := map[string]any{
		"id":            c.ID,
		"document_type": c.DocumentType,
		"name":          c.Name,
		"fields":        json.RawMessage(c.Fields),
		"version":       c.Version,
	}
	if c.OrgID != "" {
		row["org_id"] = c.OrgID
	}
	if c.UserID != "" {
		row["user_id"] = c.UserID
	}
	if c.SystemContractID != "" {
		row["system_contract_id"] = c.SystemContractID
	}
	return s.client.insert(ctx, "user_contracts", row, nil)
}

func (s *Store) UpdateContractFields(ctx context.Context, documentType string, fields json.RawMessage, orgID string) error {
	filters := []filter{eq("document_type", documentType)}
	if orgID != "" {
		filters = append(filters, eq("org_id", orgID))
	}

	var updated []store.Contract
	err := s.client.patch(ctx, "user_contracts", filters, map[string]any{
		"fields": json.RawMessage(fields),
	}, &updated)
	if err != nil {
		return err
	}
	if len(updated) == 0 {
		return fmt.Errorf("contract for type %q: %w", documentType, store.ErrNotFound)
	}
	return nil
}

func (s *Store) DeleteContract(ctx context.Context, id string) error {
	var deleted []store.Contract
	if err := s.client.delete(ctx, "user_contracts", []filter{eq("id", id)}, &deleted); err != nil {
		return err
	}
	if len(deleted) == 0 {
		return fmt.Errorf("contract %s: %w", id, store.ErrNotFound)
	}
	return nil
}

func (s *Store) SystemContracts(ctx context.Context) ([]store.Template, error) {
	var templates []store.Template
	if err := s.client.selectRows(ctx, "system_contracts", nil, &templates); err != nil {
		return nil, err
	}
	return templates, nil
}

func (s *Store) SystemContractByID(ctx context.Context, id string) (*store.Template, error) {
	var templates []store.Template
	if err := s.client.selectRows(ctx, "system_contracts", []filter{eq("id", id)}, &templates); err != nil {
		return nil, err
	}
	if len(templates) == 0 {
		return nil, fmt.Errorf("system contract %s: %w", id, store.ErrNotFound)
	}
	return &templates[0], nil
}

// activeRow is the single-row active_contract table.
type activeRow struct {
	Slot             int    `json:"slot"`
	SystemContractID string `json:"system_contract_id"`
}

func (s *Store) ActiveContract(ctx context.Context) (*store.Template, error) {
	var rows []activeRow
	if err := s.client.selectRows(ctx, "active_contract", []filter{eq("slot", "1")}, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("active contract: %w", store.ErrNotFound)
	}
	return s.SystemContractByID(ctx, rows[0].SystemContractID)
}

func (s *Store) SelectActiveContract(ctx context.Context, id string) (*store.Template, error) {
	t, err := s.SystemContractByID(ctx, id)
	if err != nil {
		return nil, err
	}
	err = s.client.upsert(ctx, "active_contract", activeRow{Slot: 1, SystemContractID: id}, nil)
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (s *Store) EnsureUserOrganization(ctx context.Context, email, orgName string) (string, string, error) {
	var orgs []store.Organization
	if err := s.client.selectRows(ctx, "organizations", []filter{eq("name", orgName)}, &orgs); err != nil {
		return "", "", err
	}
	var orgID string
	if len(orgs) > 0 {
		orgID = orgs[0].ID
	} else {
		var created []store.Organization
		if err := s.client.insert(ctx, "organizations", map[string]string{"name": orgName}, &created); err != nil {
			return "", "", fmt.Errorf("create organization: %w", err)
		}
		if len(created) == 0 {
			return "", "", fmt.Errorf("create organization: empty representation")
		}
		orgID = created[0].ID
	}

	var users []store.User
	if err := s.client.selectRows(ctx, "users", []filter{eq("email", email)}, &users); err != nil {
		return "", "", err
	}
	if len(users) > 0 {
		return users[0].ID, orgID, nil
	}

	var created []store.User
	err := s.client.insert(ctx, "users", map[string]string{"email": email, "org_id": orgID}, &created)
	if err != nil {
		return "", "", fmt.Errorf("create user: %w", err)
	}
	if len(created) == 0 {
		return "", "", fmt.Errorf("create user: empty representation")
	}
	return created[0].ID, orgID, nil
}

func (s *Store) AppendAudit(ctx context.Context, entry store.AuditEntry) error {
	row := map[string]string{
		"action":      entry.Action,
		"entity_id":   entry.EntityID,
		"entity_type": entry.EntityType,
		"description": entry.Description,
	}
	if entry.OrgID != "" {
		row["org_id"] = entry.OrgID
	}
	if entry.UserID != "" {
		row["user_id"] = entry.UserID
	}
	return s.client.insert(ctx, "audit_logs", row, nil)
}
