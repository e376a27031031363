package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/okian/battle64/internal/domain/model"
	"github.com/okian/battle64/internal/domain/types"
	"github.com/okian/battle64/pkg/metrics"
)

const schema = `
CREATE TABLE IF NOT EXISTS race_entries (
	seq                BIGSERIAL PRIMARY KEY,
	event_id           TEXT        NOT NULL,
	entry_id           TEXT        NOT NULL,
	user_id            TEXT        NOT NULL,
	username           TEXT        NOT NULL,
	raw_time           TEXT        NOT NULL,
	verified           BOOLEAN     NOT NULL DEFAULT FALSE,
	submitted_at       TIMESTAMPTZ NOT NULL,
	documentation_type TEXT        NOT NULL DEFAULT '',
	media_url          TEXT        NOT NULL DEFAULT '',
	livestream_url     TEXT        NOT NULL DEFAULT '',
	notes              TEXT        NOT NULL DEFAULT '',
	UNIQUE (event_id, entry_id)
);
CREATE INDEX IF NOT EXISTS race_entries_event_seq ON race_entries (event_id, seq);
CREATE TABLE IF NOT EXISTS race_event_versions (
	event_id TEXT   PRIMARY KEY,
	version  BIGINT NOT NULL
);
INSERT INTO race_event_versions (event_id, version)
SELECT event_id, COUNT(*) FROM race_entries GROUP BY event_id
ON CONFLICT (event_id) DO NOTHING;
`

const (
	insertEntrySQL = `
INSERT INTO race_entries (event_id, entry_id, user_id, username, raw_time, verified,
	submitted_at, documentation_type, media_url, livestream_url, notes)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
ON CONFLICT (event_id, entry_id) DO NOTHING
RETURNING seq`

	selectEntriesSQL = `
SELECT seq, entry_id, user_id, username, raw_time, verified, submitted_at,
	documentation_type, media_url, livestream_url, notes
FROM race_entries WHERE event_id = $1 ORDER BY seq`

	bumpVersionSQL = `
INSERT INTO race_event_versions (event_id, version) VALUES ($1, 1)
ON CONFLICT (event_id) DO UPDATE SET version = race_event_versions.version + 1
RETURNING version`

	selectVersionSQL = `SELECT version FROM race_event_versions WHERE event_id = $1`
	selectEventsSQL  = `SELECT event_id, COUNT(*) FROM race_entries GROUP BY event_id ORDER BY event_id`
	selectCountSQL   = `SELECT COUNT(*) FROM race_entries`
)

// PostgresStore persists entries in the race_entries table. Each event has a
// counter row in race_event_versions that is bumped in the same transaction
// as the insert. The row lock orders appends to one event by commit, so a
// snapshot at version v holds exactly the first v committed entries.
type PostgresStore struct {
	pool    *pgxpool.Pool
	migrate bool
}

// NewPostgresStore connects to dsn and prepares the schema.
func NewPostgresStore(ctx context.Context, dsn string, opts ...PostgresOption) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	s := &PostgresStore{pool: pool, migrate: true}
	for _, opt := range opts {
		opt(s)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if s.migrate {
		if _, err := pool.Exec(ctx, schema); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrate race_entries: %w", err)
		}
	}
	return s, nil
}

// Append implements Store.
func (s *PostgresStore) Append(ctx context.Context, eventID string, e model.RaceEntry) (uint64, error) { //nolint:gocritic // hugeParam: mirrors Store
	start := time.Now()
	defer func() {
		metrics.RecordStoreLatency("append", float64(time.Since(start).Microseconds())/1000)
	}()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin append: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var seq int64
	err = tx.QueryRow(ctx, insertEntrySQL,
		eventID, e.ID, e.UserID, e.Username, e.RawTime, e.Verified,
		e.SubmissionDate, string(e.DocumentationType), e.MediaURL, e.LivestreamURL, e.Notes,
	).Scan(&seq)
	if errors.Is(err, pgx.ErrNoRows) {
		_ = tx.Rollback(ctx)
		version, verr := s.Version(ctx, eventID)
		if verr != nil {
			return 0, verr
		}
		return version, ErrDuplicate
	}
	if err != nil {
		return 0, fmt.Errorf("insert entry %s: %w", e.ID, err)
	}

	var version int64
	if err := tx.QueryRow(ctx, bumpVersionSQL, eventID).Scan(&version); err != nil {
		return 0, fmt.Errorf("bump version of %s: %w", eventID, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit entry %s: %w", e.ID, err)
	}
	return uint64(version), nil
}

// Snapshot implements Store.
func (s *PostgresStore) Snapshot(ctx context.Context, eventID string) ([]model.RaceEntry, uint64, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreLatency("snapshot", float64(time.Since(start).Microseconds())/1000)
	}()

	// Version and rows are read from one snapshot so they always agree.
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, 0, fmt.Errorf("begin snapshot: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var version int64
	err = tx.QueryRow(ctx, selectVersionSQL, eventID).Scan(&version)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, 0, ErrNotFound
	}
	if err != nil {
		return nil, 0, fmt.Errorf("select version: %w", err)
	}

	rows, err := tx.Query(ctx, selectEntriesSQL, eventID)
	if err != nil {
		return nil, 0, fmt.Errorf("select entries: %w", err)
	}
	entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.RaceEntry, error) {
		var (
			e       model.RaceEntry
			seq     int64
			docType string
		)
		if err := row.Scan(&seq, &e.ID, &e.UserID, &e.Username, &e.RawTime, &e.Verified,
			&e.SubmissionDate, &docType, &e.MediaURL, &e.LivestreamURL, &e.Notes); err != nil {
			return e, err
		}
		e.DocumentationType = model.DocumentationType(docType)
		return e, nil
	})
	if err != nil {
		return nil, 0, fmt.Errorf("scan entries: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, 0, fmt.Errorf("end snapshot: %w", err)
	}
	return entries, uint64(version), nil
}

// Version implements Store.
func (s *PostgresStore) Version(ctx context.Context, eventID string) (uint64, error) {
	var version int64
	err := s.pool.QueryRow(ctx, selectVersionSQL, eventID).Scan(&version)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("select version: %w", err)
	}
	return uint64(version), nil
}

// Events implements Store.
func (s *PostgresStore) Events(ctx context.Context) ([]types.EventSummary, error) {
	rows, err := s.pool.Query(ctx, selectEventsSQL)
	if err != nil {
		return nil, fmt.Errorf("select events: %w", err)
	}
	events, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (types.EventSummary, error) {
		var (
			summary types.EventSummary
			count   int64
		)
		err := row.Scan(&summary.EventID, &count)
		summary.Entries = int(count)
		return summary, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan events: %w", err)
	}
	return events, nil
}

// Count implements Store.
func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var count int64
	if err := s.pool.QueryRow(ctx, selectCountSQL).Scan(&count); err != nil {
		return 0, fmt.Errorf("count entries: %w", err)
	}
	metrics.UpdateStoreEntries(int(count))
	return int(count), nil
}

// Close implements Store.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
