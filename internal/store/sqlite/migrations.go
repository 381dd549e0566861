// SPDX-License-Identifier: MIT

package sqlite

import (
	"database/sql"
	"fmt"
)

// migrations are applied in order; user_version tracks the last applied one.
var migrations = []string{
	`CREATE TABLE documents (
		id             TEXT PRIMARY KEY,
		file_name      TEXT NOT NULL,
		file_url       TEXT NOT NULL DEFAULT '',
		document_type  TEXT NOT NULL DEFAULT '',
		confidence     REAL NOT NULL DEFAULT 0,
		extracted_data TEXT,
		status         TEXT NOT NULL,
		error          TEXT NOT NULL DEFAULT '',
		user_id        TEXT NOT NULL DEFAULT '',
		org_id         TEXT NOT NULL DEFAULT '',
		created_at     TEXT NOT NULL,
		updated_at     TEXT NOT NULL
	);
	CREATE INDEX idx_documents_status ON documents(status);
	CREATE INDEX idx_documents_org ON documents(org_id);

	CREATE TABLE user_contracts (
		id                 TEXT PRIMARY KEY,
		org_id             TEXT NOT NULL DEFAULT '',
		user_id            TEXT NOT NULL DEFAULT '',
		document_type      TEXT NOT NULL,
		system_contract_id TEXT NOT NULL DEFAULT '',
		name               TEXT NOT NULL,
		fields             TEXT NOT NULL,
		version            INTEGER NOT NULL DEFAULT 1,
		created_at         TEXT NOT NULL,
		updated_at         TEXT NOT NULL
	);
	CREATE INDEX idx_user_contracts_org ON user_contracts(org_id);
	CREATE INDEX idx_user_contracts_type ON user_contracts(document_type);

	CREATE TABLE system_contracts (
		id            TEXT PRIMARY KEY,
		name          TEXT NOT NULL,
		document_type TEXT NOT NULL DEFAULT '',
		fields        TEXT NOT NULL,
		created_at    TEXT NOT NULL
	);

	CREATE TABLE active_contract (
		slot               INTEGER PRIMARY KEY CHECK (slot = 1),
		system_contract_id TEXT NOT NULL REFERENCES system_contracts(id),
		selected_at        TEXT NOT NULL
	);

	CREATE TABLE users (
		id           TEXT PRIMARY KEY,
		email        TEXT NOT NULL UNIQUE,
		display_name TEXT NOT NULL DEFAULT '',
		org_id       TEXT NOT NULL DEFAULT '',
		role         TEXT NOT NULL DEFAULT 'member',
		created_at   TEXT NOT NULL
	);

	CREATE TABLE organizations (
		id         TEXT PRIMARY KEY,
		name       TEXT NOT NULL UNIQUE,
		created_at TEXT NOT NULL
	);

	CREATE TABLE audit_logs (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		org_id      TEXT NOT NULL DEFAULT '',
		user_id     TEXT NOT NULL DEFAULT '',
		action      TEXT NOT NULL,
		entity_id   TEXT NOT NULL DEFAULT '',
		entity_type TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		created_at  TEXT NOT NULL
	);`,
}

func migrate(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read user_version: %w", err)
	}

	for i := version; i < len(migrations); i++ {
		tx, err := db.Begin()
		if err != nil {
			return err
		}
		if _, err := tx.Exec(migrations[i]); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("apply migration %d: %w", i+1, err)
		}
		if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", i+1)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("bump user_version: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return err
		}
	}
	return nil
}
