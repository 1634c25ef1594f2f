package database

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/academictoken/registry/storage/records"
)

const uniqueViolation = "23505"

// Store is the PostgreSQL records.Store.
type Store struct {
	db *sqlx.DB
}

var _ records.Store = (*Store)(nil)

func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

func (s *Store) NextSequence(ctx context.Context, name string) (uint64, error) {
	var value uint64
	err := s.db.GetContext(ctx, &value, `
		INSERT INTO sequences (name, value) VALUES ($1, 1)
		ON CONFLICT (name) DO UPDATE SET value = sequences.value + 1
		RETURNING value`, name)
	return value, errors.Wrap(err, "incrementing sequence")
}

func (s *Store) Get(ctx context.Context, kind, id string, dst interface{}) error {
	var data []byte
	err := s.db.GetContext(ctx, &data, `SELECT data FROM records WHERE kind = $1 AND id = $2`, kind, id)
	if err != nil {
		if errors.Cause(err) == sql.ErrNoRows {
			return errors.WithStack(records.ErrNoRecord)
		}
		return errors.Wrap(err, "selecting record")
	}
	return errors.Wrap(json.Unmarshal(data, dst), "decoding record")
}

func (s *Store) Insert(ctx context.Context, kind, id, owner string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.Wrap(err, "encoding record")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO records (kind, id, owner, data) VALUES ($1, $2, $3, $4)`,
		kind, id, owner, string(data),
	)
	if pqErr, ok := errors.Cause(err).(*pq.Error); ok && pqErr.Code == uniqueViolation {
		return errors.WithStack(records.ErrRecordExists)
	}
	return errors.Wrap(err, "inserting record")
}

func (s *Store) Put(ctx context.Context, kind, id, owner string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.Wrap(err, "encoding record")
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO records (kind, id, owner, data) VALUES ($1, $2, $3, $4)
		ON CONFLICT (kind, id) DO UPDATE SET owner = EXCLUDED.owner, data = EXCLUDED.data, updated_at = now()`,
		kind, id, owner, string(data),
	)
	return errors.Wrap(err, "upserting record")
}

func (s *Store) Delete(ctx context.Context, kind, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM records WHERE kind = $1 AND id = $2`, kind, id)
	if err != nil {
		return errors.Wrap(err, "deleting record")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errors.WithStack(records.ErrNoRecord)
	}
	return nil
}

func (s *Store) List(ctx context.Context, kind, owner string, each func(raw []byte) error) error {
	var (
		rows *sqlx.Rows
		err  error
	)
	if owner == "" {
		rows, err = s.db.QueryxContext(ctx, `SELECT data FROM records WHERE kind = $1 ORDER BY seq`, kind)
	} else {
		rows, err = s.db.QueryxContext(ctx,
			`SELECT data FROM records WHERE kind = $1 AND owner = $2 ORDER BY seq`, kind, owner)
	}
	if err != nil {
		return errors.Wrap(err, "listing records")
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var data []byte
		if err = rows.Scan(&data); err != nil {
			return errors.Wrap(err, "scanning record")
		}
		if err = each(data); err != nil {
			return err
		}
	}
	return errors.Wrap(rows.Err(), "listing records")
}
