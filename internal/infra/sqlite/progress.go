// Package sqlite persists interrupted fetches in a local SQLite file so a
// later run can resume them.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	jsoniter "github.com/json-iterator/go"
	_ "github.com/mattn/go-sqlite3"

	"github.com/dvloznov/cheqd-ledger/internal/fetch"
)

const schema = `
create table if not exists fetch_progress (
    address text not null primary key,
    next_offset integer not null,
    updated_at timestamp not null default current_timestamp
);
create table if not exists fetch_envelope (
    address text not null,
    position integer not null,
    body text not null,
    primary key (address, position)
);`

// ProgressStore keeps the progress of one address.
type ProgressStore struct {
	db      *sql.DB
	address string
}

// Open opens (or creates) the database at path.
func Open(ctx context.Context, path, address string) (*ProgressStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("Open: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("Open: creating tables: %w", err)
	}
	return &ProgressStore{db: db, address: address}, nil
}

func (s *ProgressStore) Close() error {
	return s.db.Close()
}

func (s *ProgressStore) Load(ctx context.Context) (fetch.Progress, error) {
	var p fetch.Progress
	err := s.db.QueryRowContext(ctx,
		"select next_offset from fetch_progress where address = ?", s.address).Scan(&p.Offset)
	if errors.Is(err, sql.ErrNoRows) {
		return p, fetch.ErrNoProgress
	}
	if err != nil {
		return p, fmt.Errorf("Load: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		"select body from fetch_envelope where address = ? order by position", s.address)
	if err != nil {
		return p, fmt.Errorf("Load: querying envelopes: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return p, fmt.Errorf("Load: %w", err)
		}
		p.Envelopes = append(p.Envelopes, jsoniter.RawMessage(body))
	}
	if err := rows.Err(); err != nil {
		return p, fmt.Errorf("Load: %w", err)
	}
	return p, nil
}

// Save replaces the stored progress. Envelopes already stored are kept and
// only the new tail is inserted.
func (s *ProgressStore) Save(ctx context.Context, p fetch.Progress) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("Save: starting transaction: %w", err)
	}
	defer tx.Rollback()

	var stored int
	if err := tx.QueryRowContext(ctx,
		"select count(*) from fetch_envelope where address = ?", s.address).Scan(&stored); err != nil {
		return fmt.Errorf("Save: %w", err)
	}
	if stored > len(p.Envelopes) {
		if _, err := tx.ExecContext(ctx,
			"delete from fetch_envelope where address = ? and position >= ?", s.address, len(p.Envelopes)); err != nil {
			return fmt.Errorf("Save: trimming envelopes: %w", err)
		}
		stored = len(p.Envelopes)
	}

	stmt, err := tx.PrepareContext(ctx,
		"insert or replace into fetch_envelope(address, position, body) values(?,?,?)")
	if err != nil {
		return fmt.Errorf("Save: preparing insert: %w", err)
	}
	defer stmt.Close()
	for i := stored; i < len(p.Envelopes); i++ {
		if _, err := stmt.ExecContext(ctx, s.address, i, string(p.Envelopes[i])); err != nil {
			return fmt.Errorf("Save: inserting envelope %d: %w", i, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `
		insert into fetch_progress(address, next_offset, updated_at) values(?, ?, current_timestamp)
		on conflict(address) do update set next_offset = excluded.next_offset, updated_at = excluded.updated_at`,
		s.address, p.Offset); err != nil {
		return fmt.Errorf("Save: updating offset: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("Save: committing: %w", err)
	}
	return nil
}

func (s *ProgressStore) Clear(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("Clear: %w", err)
	}
	defer tx.Rollback()
	for _, q := range []string{
		"delete from fetch_envelope where address = ?",
		"delete from fetch_progress where address = ?",
	} {
		if _, err := tx.ExecContext(ctx, q, s.address); err != nil {
			return fmt.Errorf("Clear: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("Clear: committing: %w", err)
	}
	return nil
}

var _ fetch.ProgressStore = (*ProgressStore)(nil)
