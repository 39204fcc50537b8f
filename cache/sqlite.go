//
// Expected Parrot is pleased to support the open source community by making edsl-go available.
//
// Copyright (C) 2026 Expected Parrot.  All rights reserved.
//
// edsl-go is licensed under the Apache License Version 2.0.
//
//

package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS cache_entries (
	fingerprint       TEXT PRIMARY KEY,
	model_identity    TEXT NOT NULL,
	parameters_json   TEXT NOT NULL,
	system_prompt     TEXT NOT NULL,
	user_prompt       TEXT NOT NULL,
	iteration         INTEGER NOT NULL,
	output_raw        TEXT NOT NULL,
	timestamp_unix_ms INTEGER NOT NULL
);
`

// SQLiteStore is a single-file Store backed by SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) the cache database at path.
// Use ":memory:" for an ephemeral store.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, &Error{Backend: "sqlite", Op: "open", Err: err}
	}
	// The modernc driver serializes writes; a single connection avoids
	// SQLITE_BUSY churn under concurrent inserts.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, &Error{Backend: "sqlite", Op: "migrate", Err: err}
	}
	return &SQLiteStore{db: db}, nil
}

// Lookup implements Store.
func (s *SQLiteStore) Lookup(ctx context.Context, fingerprint string) (*Entry, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT fingerprint, model_identity, parameters_json, system_prompt,
		       user_prompt, iteration, output_raw, timestamp_unix_ms
		FROM cache_entries WHERE fingerprint = ?`, fingerprint)

	var e Entry
	var paramsJSON string
	err := row.Scan(&e.Fingerprint, &e.ModelIdentity, &paramsJSON,
		&e.SystemPrompt, &e.UserPrompt, &e.Iteration, &e.Output, &e.TimestampMS)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, &Error{Backend: "sqlite", Op: "lookup", Err: err}
	}
	if err := json.Unmarshal([]byte(paramsJSON), &e.Parameters); err != nil {
		return nil, false, &Error{Backend: "sqlite", Op: "lookup",
			Err: fmt.Errorf("corrupt parameters for %s: %w", fingerprint, err)}
	}
	return &e, true, nil
}

// Insert implements Store. INSERT OR IGNORE keeps the first write.
func (s *SQLiteStore) Insert(ctx context.Context, e *Entry) error {
	paramsJSON, err := json.Marshal(e.Parameters)
	if err != nil {
		return &Error{Backend: "sqlite", Op: "insert", Err: err}
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO cache_entries
			(fingerprint, model_identity, parameters_json, system_prompt,
			 user_prompt, iteration, output_raw, timestamp_unix_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.Fingerprint, e.ModelIdentity, string(paramsJSON), e.SystemPrompt,
		e.UserPrompt, e.Iteration, e.Output, e.TimestampMS)
	if err != nil {
		return &Error{Backend: "sqlite", Op: "insert", Err: err}
	}
	return nil
}

// Len returns the number of stored entries.
func (s *SQLiteStore) Len() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM cache_entries`).Scan(&n); err != nil {
		return 0, &Error{Backend: "sqlite", Op: "count", Err: err}
	}
	return n, nil
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
