package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"tokensafe/internal/ledger"
	"tokensafe/pkg/platform/sentinel"
)

// PostgresRecordStore persists records in a single table keyed by address.
// Uniqueness on the address column provides create-if-absent.
type PostgresRecordStore struct {
	db *sql.DB
}

func NewPostgresRecordStore(db *sql.DB) *PostgresRecordStore {
	return &PostgresRecordStore{db: db}
}

// Schema is the DDL for the records table. Applied by the operator or by
// test setup; the store itself never migrates.
const Schema = `
CREATE TABLE IF NOT EXISTS records (
	address    TEXT PRIMARY KEY,
	size       INTEGER NOT NULL,
	data       BYTEA NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

func (s *PostgresRecordStore) Create(ctx context.Context, addr ledger.Address, size int, data []byte) error {
	if len(data) != size {
		return fmt.Errorf("create %s: data length %d does not match declared size %d", addr, len(data), size)
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO records (address, size, data) VALUES ($1, $2, $3) ON CONFLICT (address) DO NOTHING`,
		addr.String(), size, data,
	)
	if err != nil {
		return fmt.Errorf("create %s: %w", addr, err)
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("create %s: %w", addr, err)
	}
	if inserted == 0 {
		return fmt.Errorf("create %s: %w", addr, sentinel.ErrAlreadyExists)
	}
	return nil
}

func (s *PostgresRecordStore) Read(ctx context.Context, addr ledger.Address) ([]byte, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM records WHERE address = $1`,
		addr.String(),
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("read %s: %w", addr, sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", addr, err)
	}
	return data, nil
}

func (s *PostgresRecordStore) Write(ctx context.Context, addr ledger.Address, data []byte) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE records SET data = $2, updated_at = now() WHERE address = $1 AND size = $3`,
		addr.String(), data, len(data),
	)
	if err != nil {
		return fmt.Errorf("write %s: %w", addr, err)
	}
	updated, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("write %s: %w", addr, err)
	}
	if updated == 0 {
		return fmt.Errorf("write %s: %w", addr, sentinel.ErrNotFound)
	}
	return nil
}
