package eventlog

import (
	"context"
	"encoding/json"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGColdStore keeps offloaded aggregates in a Postgres table, keyed by the
// aggregate's canonical ID string
type PGColdStore struct {
	pool *pgxpool.Pool
}

const pgColdSchema = `
	CREATE TABLE IF NOT EXISTS cold_aggregates (
		aggregate_id TEXT PRIMARY KEY,
		record       JSONB NOT NULL,
		offloaded_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`

func NewPGColdStore(ctx context.Context, dsn string) (*PGColdStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	if _, err := pool.Exec(ctx, pgColdSchema); err != nil {
		pool.Close()
		return nil, err
	}
	return &PGColdStore{pool: pool}, nil
}

func (p *PGColdStore) Put(
	ctx context.Context, id AggregateID, record *ColdRecord,
) error {
	data, err := json.Marshal(record)
	if err != nil {
		return err
	}

	_, err = p.pool.Exec(ctx, `
		INSERT INTO cold_aggregates (aggregate_id, record)
		VALUES ($1, $2)
		ON CONFLICT (aggregate_id)
		DO UPDATE SET record = EXCLUDED.record, offloaded_at = now()`,
		id.Key(), data,
	)
	return err
}

// Get retrieves an offloaded record, or nil when none exists
func (p *PGColdStore) Get(
	ctx context.Context, id AggregateID,
) (*ColdRecord, error) {
	var data []byte
	err := p.pool.QueryRow(ctx, `
		SELECT record FROM cold_aggregates WHERE aggregate_id = $1`,
		id.Key(),
	).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	record := &ColdRecord{}
	if err := json.Unmarshal(data, record); err != nil {
		return nil, err
	}
	return record, nil
}

func (p *PGColdStore) Close() error {
	p.pool.Close()
	return nil
}
