package database

import (
	"context"
	"database/sql"
	"math"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/academictoken/registry/core/ledger"
)

type blockRow struct {
	Height   int64     `db:"height"`
	Time     time.Time `db:"time"`
	Type     string    `db:"type"`
	Creator  string    `db:"creator"`
	Ref      string    `db:"ref"`
	Payload  string    `db:"payload"`
	PrevHash string    `db:"prev_hash"`
	Hash     string    `db:"hash"`
}

func (r blockRow) block() ledger.Block {
	return ledger.Block{
		Height:   uint64(r.Height),
		Time:     r.Time.UTC(),
		Type:     r.Type,
		Creator:  r.Creator,
		Ref:      r.Ref,
		Payload:  []byte(r.Payload),
		PrevHash: r.PrevHash,
		Hash:     r.Hash,
	}
}

const blockColumns = `height, time, type, creator, ref, payload, prev_hash, hash`

type LedgerRepository struct {
	db *sqlx.DB
}

var _ ledger.Repository = (*LedgerRepository)(nil)

func NewLedgerRepository(db *sqlx.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

func (repo *LedgerRepository) AppendBlock(ctx context.Context, b ledger.Block) error {
	_, err := repo.db.NamedExecContext(ctx,
		`INSERT INTO blocks (`+blockColumns+`)
		VALUES (:height, :time, :type, :creator, :ref, :payload, :prev_hash, :hash)`,
		blockRow{
			Height:   int64(b.Height),
			Time:     b.Time,
			Type:     b.Type,
			Creator:  b.Creator,
			Ref:      b.Ref,
			Payload:  string(b.Payload),
			PrevHash: b.PrevHash,
			Hash:     b.Hash,
		},
	)
	if pqErr, ok := errors.Cause(err).(*pq.Error); ok && pqErr.Code == uniqueViolation {
		return errors.WithStack(ledger.ErrHeightExists)
	}
	return errors.Wrap(err, "inserting block")
}

func (repo *LedgerRepository) GetHead(ctx context.Context) (ledger.Block, error) {
	var row blockRow
	err := repo.db.GetContext(ctx, &row, `SELECT `+blockColumns+` FROM blocks ORDER BY height DESC LIMIT 1`)
	if err != nil {
		if errors.Cause(err) == sql.ErrNoRows {
			return ledger.Block{}, errors.WithStack(ledger.ErrEmpty)
		}
		return ledger.Block{}, errors.Wrap(err, "selecting head")
	}
	return row.block(), nil
}

func (repo *LedgerRepository) GetBlock(ctx context.Context, height uint64) (ledger.Block, error) {
	var row blockRow
	err := repo.db.GetContext(ctx, &row, `SELECT `+blockColumns+` FROM blocks WHERE height = $1`, clamp(height))
	if err != nil {
		if errors.Cause(err) == sql.ErrNoRows {
			return ledger.Block{}, errors.WithStack(ledger.ErrNotFound)
		}
		return ledger.Block{}, errors.Wrap(err, "selecting block")
	}
	return row.block(), nil
}

func (repo *LedgerRepository) QueryBlocks(ctx context.Context, from, to uint64, limit int) ([]ledger.Block, error) {
	if limit <= 0 {
		limit = math.MaxInt32
	}
	var rows []blockRow
	err := repo.db.SelectContext(ctx, &rows,
		`SELECT `+blockColumns+` FROM blocks WHERE height >= $1 AND height <= $2 ORDER BY height LIMIT $3`,
		clamp(from), clamp(to), limit,
	)
	if err != nil {
		return nil, errors.Wrap(err, "selecting blocks")
	}
	blocks := make([]ledger.Block, 0, len(rows))
	for _, row := range rows {
		blocks = append(blocks, row.block())
	}
	return blocks, nil
}

// clamp keeps heights within the BIGINT range.
func clamp(h uint64) int64 {
	if h > math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(h)
}
