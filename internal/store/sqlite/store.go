// SPDX-License-Identifier: MIT

package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	xlog "github.com/thakurdishanttt/Project-DocuLens/internal/log"
	"github.com/thakurdishanttt/Project-DocuLens/internal/store"
)

// Store is the SQLite-backed implementation of store.Store.
type Store struct {
	db     *sql.DB
	logger zerolog.Logger
}

var _ store.Store = (*Store)(nil)

// New opens the database at path, applies pending migrations and returns
// the store.
func New(path string, cfg Config) (*Store, error) {
	db, err := open(path, cfg)
	if err != nil {
		return nil, err
	}
	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: migrate: %w", err)
	}
	return &Store{
		db:     db,
		logger: xlog.WithComponent("store.sqlite"),
	}, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}

const timeLayout = time.RFC3339Nano

func now() string {
	return time.Now().UTC().Format(timeLayout)
}

func parseTime(v string) time.Time {
	t, err := time.Parse(timeLayout, v)
	if err != nil {
		return time.Time{}
	}
	return t
}

func (s *Store) GetDocument(ctx context.Context, id string) (*store.Document, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, file_name, file_url, document_type, confidence,
		       extracted_data, status, error, user_id, org_id, created_at, updated_at
		FROM documents WHERE id = ?`, id)

	var doc store.Document
	var extracted sql.NullString
	var createdAt, updatedAt string
	err := row.Scan(&doc.ID, &doc.FileName, &doc.FileURL, &doc.DocumentType, &doc.Confidence,
		&extracted, &doc.Status, &doc.Error, &doc.UserID, &doc.OrgID, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("document %s: %w", id, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}

	if extracted.Valid && extracted.String != "" {
		if err := json.Unmarshal([]byte(extracted.String), &doc.ExtractedData); err != nil {
			return nil, fmt.Errorf("decode extracted data for %s: %w", id, err)
		}
	}
	doc.CreatedAt = parseTime(createdAt)
	doc.UpdatedAt = parseTime(updatedAt)
	return &doc, nil
}

func (s *Store) SaveDocument(ctx context.Context, doc *store.Document) error {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	var extracted any
	if doc.ExtractedData != nil {
		data, err := json.Marshal(doc.ExtractedData)
		if err != nil {
			return fmt.Errorf("encode extracted data: %w", err)
		}
		extracted = string(data)
	}

	ts := now()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (id, file_name, file_url, document_type, confidence,
			extracted_data, status, error, user_id, org_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			file_name = excluded.file_name,
			file_url = excluded.file_url,
			document_type = excluded.document_type,
			confidence = excluded.confidence,
			extracted_data = excluded.extracted_data,
			status = excluded.status,
			error = excluded.error,
			updated_at = excluded.updated_at`,
		doc.ID, doc.FileName, doc.FileURL, doc.DocumentType, doc.Confidence,
		extracted, doc.Status, doc.Error, doc.UserID, doc.OrgID, ts, ts)
	if err != nil {
		return fmt.Errorf("save document: %w", err)
	}
	return nil
}

func (s *Store) UserContracts(ctx context.Context, orgID string) ([]store.Contract, error) {
	query := `
		SELECT id, org_id, user_id, document_type, system_contract_id, name,
		       fields, version, created_at, updated_at
		FROM user_contracts`
	args := []any{}
	if orgID != "" {
		query += " WHERE org_id = ?"
		args = append(args, orgID)
	}
	query += " ORDER BY created_at"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list user contracts: %w", err)
	}
	defer rows.Close()

	var contracts []store.Contract
	for rows.Next() {
		c, err := scanContract(rows)
		if err != nil {
			return nil, err
		}
		contracts = append(contracts, *c)
	}
	return contracts, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanContract(row rowScanner) (*store.Contract, error) {
	var c store.Contract
	var fields string
	var createdAt, updatedAt string
	err := row.Scan(&c.ID, &c.OrgID, &c.UserID, &c.DocumentType, &c.SystemContractID,
		&c.Name, &fields, &c.Version, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	c.Fields = json.RawMessage(fields)
	c.CreatedAt = parseTime(createdAt)
	c.UpdatedAt = parseTime(updatedAt)
	return &c, nil
}

func (s *Store) ContractByID(ctx context.Context, id string) (*store.Contract, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, org_id, user_id, document_type, system_contract_id, name,
		       fields, version, created_at, updated_at
		FROM user_contracts WHERE id = ?`, id)

	c, err := scanContract(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("contract %s: %w", id, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get contract: %w", err)
	}
	return c, nil
}

func (s *Store) InsertContract(ctx context.Context, c *store.Contract) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.Version == 0 {
		c.Version = 1
	}
	ts := now()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_contracts (id, org_id, user_id, document_type, system_contract_id,
			name, fields, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.OrgID, c.UserID, c.DocumentType, c.SystemContractID,
		c.Name, string(c.Fields), c.Version, ts, ts)
	if err != nil {
		return fmt.Errorf("insert contract: %w", err)
	}
	return nil
}

func (s *Store) UpdateContractFields(ctx context.Context, documentType string, fields json.RawMessage, orgID string) error {
	query := `UPDATE user_contracts SET fields = ?, version = version + 1, updated_at = ? WHERE document_type = ?`
	args := []any{string(fields), now(), documentType}
	if orgID != "" {
		query += " AND org_id = ?"
		args = append(args, orgID)
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update contract fields: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("contract for type %q: %w", documentType, store.ErrNotFound)
	}
	return nil
}

func (s *Store) DeleteContract(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM user_contracts WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete contract: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("contract %s: %w", id, store.ErrNotFound)
	}
	return nil
}

func (s *Store) SystemContracts(ctx context.Context) ([]store.Template, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, document_type, fields, created_at
		FROM system_contracts ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list system contracts: %w", err)
	}
	defer rows.Close()

	var templates []store.Template
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		templates = append(templates, *t)
	}
	return templates, rows.Err()
}

func scanTemplate(row rowScanner) (*store.Template, error) {
	var t store.Template
	var fields, createdAt string
	if err := row.Scan(&t.ID, &t.Name, &t.DocumentType, &fields, &createdAt); err != nil {
		return nil, err
	}
	t.Fields = json.RawMessage(fields)
	t.CreatedAt = parseTime(createdAt)
	return &t, nil
}

func (s *Store) SystemContractByID(ctx context.Context, id string) (*store.Template, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, document_type, fields, created_at
		FROM system_contracts WHERE id = ?`, id)

	t, err := scanTemplate(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("system contract %s: %w", id, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get system contract: %w", err)
	}
	return t, nil
}

// InsertSystemContract seeds a template. Used by tests and the seed
// command; templates are otherwise managed out of band.
func (s *Store) InsertSystemContract(ctx context.Context, t *store.Template) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO system_contracts (id, name, document_type, fields, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		t.ID, t.Name, t.DocumentType, string(t.Fields), now())
	if err != nil {
		return fmt.Errorf("insert system contract: %w", err)
	}
	return nil
}

func (s *Store) ActiveContract(ctx context.Context) (*store.Template, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT sc.id, sc.name, sc.document_type, sc.fields, sc.created_at
		FROM active_contract ac JOIN system_contracts sc ON sc.id = ac.system_contract_id
		WHERE ac.slot = 1`)

	t, err := scanTemplate(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("active contract: %w", store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get active contract: %w", err)
	}
	return t, nil
}

func (s *Store) SelectActiveContract(ctx context.Context, id string) (*store.Template, error) {
	t, err := s.SystemContractByID(ctx, id)
	if err != nil {
		return nil, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO active_contract (slot, system_contract_id, selected_at)
		VALUES (1, ?, ?)
		ON CONFLICT(slot) DO UPDATE SET
			system_contract_id = excluded.system_contract_id,
			selected_at = excluded.selected_at`,
		id, now())
	if err != nil {
		return nil, fmt.Errorf("select active contract: %w", err)
	}

	s.logger.Info().Str(xlog.FieldContractID, id).Msg("active contract selected")
	return t, nil
}

func (s *Store) EnsureUserOrganization(ctx context.Context, email, orgName string) (string, string, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", "", err
	}
	defer func() { _ = tx.Rollback() }()

	var orgID string
	err = tx.QueryRowContext(ctx, "SELECT id FROM organizations WHERE name = ?", orgName).Scan(&orgID)
	if errors.Is(err, sql.ErrNoRows) {
		orgID = uuid.NewString()
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO organizations (id, name, created_at) VALUES (?, ?, ?)",
			orgID, orgName, now()); err != nil {
			return "", "", fmt.Errorf("create organization: %w", err)
		}
	} else if err != nil {
		return "", "", fmt.Errorf("lookup organization: %w", err)
	}

	var userID string
	err = tx.QueryRowContext(ctx, "SELECT id FROM users WHERE email = ?", email).Scan(&userID)
	if errors.Is(err, sql.ErrNoRows) {
		userID = uuid.NewString()
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO users (id, email, org_id, created_at) VALUES (?, ?, ?, ?)",
			userID, email, orgID, now()); err != nil {
			return "", "", fmt.Errorf("create user: %w", err)
		}
	} else if err != nil {
		return "", "", fmt.Errorf("lookup user: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", "", err
	}
	return userID, orgID, nil
}

func (s *Store) AppendAudit(ctx context.Context, entry store.AuditEntry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_logs (org_id, user_id, action, entity_id, entity_type, description, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.OrgID, entry.UserID, entry.Action, entry.EntityID, entry.EntityType, entry.Description, now())
	if err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}
	return nil
}
