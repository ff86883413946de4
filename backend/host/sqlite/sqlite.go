// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package sqlite provides an SQLite based key/value store for hosting the
// execution unit with persistent storage in a single file.
package sqlite

import (
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"github.com/panoptisDev/triehost/go/backend/host"
)

const (
	createTable = "CREATE TABLE IF NOT EXISTS storage (key BLOB PRIMARY KEY, value BLOB NOT NULL)"
	selectValue = "SELECT value FROM storage WHERE key = ?"
	upsertValue = "INSERT OR REPLACE INTO storage (key, value) VALUES (?, ?)"
	deleteValue = "DELETE FROM storage WHERE key = ?"
)

// Store is a host.KeyValueStore persisted in an SQLite database.
type Store struct {
	db     *sql.DB
	get    *sql.Stmt
	put    *sql.Stmt
	delete *sql.Stmt
}

// Open opens or creates a store in the given database file.
func Open(file string) (*Store, error) {
	db, err := sql.Open("sqlite3", file)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database %s: %w", file, err)
	}
	// The store is used by a single logical caller at a time.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(createTable); err != nil {
		return nil, errors.Join(fmt.Errorf("failed to create storage table: %w", err), db.Close())
	}

	res := &Store{db: db}
	for _, cur := range []struct {
		stmt  **sql.Stmt
		query string
	}{
		{&res.get, selectValue},
		{&res.put, upsertValue},
		{&res.delete, deleteValue},
	} {
		stmt, err := db.Prepare(cur.query)
		if err != nil {
			return nil, errors.Join(fmt.Errorf("failed to prepare %q: %w", cur.query, err), res.Close())
		}
		*cur.stmt = stmt
	}
	return res, nil
}

func (s *Store) Get(key []byte) ([]byte, error) {
	var value []byte
	err := s.get.QueryRow(key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, host.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if value == nil {
		value = []byte{}
	}
	return value, nil
}

func (s *Store) Put(key, value []byte) error {
	if value == nil {
		value = []byte{}
	}
	_, err := s.put.Exec(key, value)
	return err
}

func (s *Store) Delete(key []byte) error {
	_, err := s.delete.Exec(key)
	return err
}

func (s *Store) Close() error {
	var errs []error
	for _, stmt := range []*sql.Stmt{s.get, s.put, s.delete} {
		if stmt != nil {
			errs = append(errs, stmt.Close())
		}
	}
	errs = append(errs, s.db.Close())
	return errors.Join(errs...)
}
