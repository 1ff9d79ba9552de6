package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/yemenflix/yflix/internal/ports"
)

// DocumentStore range les documents JSON dans la table documents.
type DocumentStore struct {
	db *DB
}

func NewDocumentStore(db *DB) *DocumentStore {
	return &DocumentStore{db: db}
}

func (s *DocumentStore) Get(ctx context.Context, collection, id string) ([]byte, error) {
	var body string
	err := s.db.SQL.QueryRowContext(ctx, `SELECT body_json FROM documents WHERE collection = ? AND id = ?`, collection, id).Scan(&body)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ports.ErrNotFound
		}
		return nil, err
	}
	return []byte(body), nil
}

func (s *DocumentStore) List(ctx context.Context, collection string) ([][]byte, error) {
	rows, err := s.db.SQL.QueryContext(ctx, `SELECT body_json FROM documents WHERE collection = ? ORDER BY id ASC`, collection)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([][]byte, 0)
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, err
		}
		out = append(out, []byte(body))
	}
	return out, rows.Err()
}

func (s *DocumentStore) Put(ctx context.Context, collection, id string, body []byte) error {
	if collection == "" || id == "" {
		return errors.New("sqlite: empty collection or id")
	}
	if !json.Valid(body) {
		return errors.New("sqlite: invalid json document")
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.SQL.ExecContext(ctx, `
		INSERT INTO documents(collection, id, body_json, created_at, updated_at)
		VALUES(?, ?, ?, ?, ?)
		ON CONFLICT(collection, id) DO UPDATE SET body_json = excluded.body_json, updated_at = excluded.updated_at
	`, collection, id, string(body), now, now)
	return err
}

func (s *DocumentStore) Delete(ctx context.Context, collection, id string) error {
	res, err := s.db.SQL.ExecContext(ctx, `DELETE FROM documents WHERE collection = ? AND id = ?`, collection, id)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ports.ErrNotFound
	}
	return nil
}

func (s *DocumentStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

func (s *DocumentStore) Close() error {
	return s.db.Close()
}
