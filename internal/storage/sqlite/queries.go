package sqlite

import (
	"context"
	"database/sql"
)

type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

const getEntry = `SELECT value FROM kv_entries WHERE namespace = ? AND key = ?`

func (q *Queries) GetEntry(ctx context.Context, namespace, key string) ([]byte, error) {
	row := q.db.QueryRowContext(ctx, getEntry, namespace, key)
	var value []byte
	err := row.Scan(&value)
	return value, err
}

const upsertEntry = `INSERT INTO kv_entries (namespace, key, value, updated_at)
VALUES (?, ?, ?, CURRENT_TIMESTAMP)
ON CONFLICT (namespace, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`

func (q *Queries) UpsertEntry(ctx context.Context, namespace, key string, value []byte) error {
	_, err := q.db.ExecContext(ctx, upsertEntry, namespace, key, value)
	return err
}

const deleteEntry = `DELETE FROM kv_entries WHERE namespace = ? AND key = ?`

func (q *Queries) DeleteEntry(ctx context.Context, namespace, key string) error {
	_, err := q.db.ExecContext(ctx, deleteEntry, namespace, key)
	return err
}

