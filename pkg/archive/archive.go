// Package archive provides long-term storage of completed sessions in
// PostgreSQL. Archiving is optional; it is active only when a DSN is
// configured.
package archive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	rterrors "github.com/otherjamesbrown/roundtable/pkg/errors"
	"github.com/otherjamesbrown/roundtable/pkg/snapshot"
)

const connectTimeout = 10 * time.Second

// Record is one archived session as listed, without the full snapshot body.
type Record struct {
	SessionID        string    `json:"sessionId"`
	Topic            string    `json:"topic"`
	Facilitator      string    `json:"facilitator"`
	StartedAt        time.Time `json:"startedAt"`
	DurationMs       int64     `json:"durationMs"`
	ParticipantCount int       `json:"participantCount"`
	EntryCount       int       `json:"entryCount"`
	InsightCount     int       `json:"insightCount"`
	ArchivedAt       time.Time `json:"archivedAt"`
}

// Repository stores completed-session snapshots in PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// Connect creates a connection pool from a DSN and verifies it.
// The caller is responsible for calling Close when done.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parsing archive DSN: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("creating archive pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: pinging archive database: %v", rterrors.ErrUnavailable, err)
	}

	return pool, nil
}

// NewRepository creates a repository on an existing pool.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// EnsureSchema creates the archive table if it does not exist.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	_, err := r.db.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS session_archive (
			session_id        TEXT PRIMARY KEY,
			topic             TEXT NOT NULL DEFAULT '',
			facilitator       TEXT NOT NULL DEFAULT '',
			started_at        TIMESTAMPTZ,
			duration_ms       BIGINT NOT NULL DEFAULT 0,
			participant_count INT NOT NULL DEFAULT 0,
			entry_count       INT NOT NULL DEFAULT 0,
			insight_count     INT NOT NULL DEFAULT 0,
			snapshot          JSONB NOT NULL,
			archived_at       TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`)
	if err != nil {
		return fmt.Errorf("ensuring archive schema: %w", err)
	}
	return nil
}

// SaveCompleted archives one completed session. Saving the same session
// again replaces the previous archive row.
func (r *Repository) SaveCompleted(ctx context.Context, snap *snapshot.Snapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}

	query := `
		INSERT INTO session_archive (
			session_id, topic, facilitator, started_at, duration_ms,
			participant_count, entry_count, insight_count, snapshot, archived_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now())
		ON CONFLICT (session_id) DO UPDATE SET
			topic = EXCLUDED.topic,
			facilitator = EXCLUDED.facilitator,
			started_at = EXCLUDED.started_at,
			duration_ms = EXCLUDED.duration_ms,
			participant_count = EXCLUDED.participant_count,
			entry_count = EXCLUDED.entry_count,
			insight_count = EXCLUDED.insight_count,
			snapshot = EXCLUDED.snapshot,
			archived_at = now()
	`

	var startedAt *time.Time
	if snap.StartTime > 0 {
		t := time.UnixMilli(snap.StartTime).UTC()
		startedAt = &t
	}

	_, err = r.db.Exec(ctx, query,
		snap.SessionID,
		snap.Topic,
		snap.Facilitator,
		startedAt,
		snap.DurationMs,
		snap.ParticipantCount,
		len(snap.LiveTranscript),
		len(snap.AIInsights),
		payload,
	)
	if err != nil {
		return fmt.Errorf("archiving session %s: %w", snap.SessionID, err)
	}
	return nil
}

// Get retrieves one archived session's full snapshot.
func (r *Repository) Get(ctx context.Context, sessionID string) (*snapshot.Snapshot, error) {
	var payload []byte
	err := r.db.QueryRow(ctx,
		`SELECT snapshot FROM session_archive WHERE session_id = $1`,
		sessionID,
	).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: archived session %s", rterrors.ErrNotFound, sessionID)
	}
	if err != nil {
		return nil, fmt.Errorf("reading archived session: %w", err)
	}

	var snap snapshot.Snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return nil, fmt.Errorf("decoding archived snapshot: %w", err)
	}
	return &snap, nil
}

// List returns archived sessions, newest first.
func (r *Repository) List(ctx context.Context, limit, offset int) ([]Record, error) {
	query := `
		SELECT session_id, topic, facilitator, started_at, duration_ms,
			participant_count, entry_count, insight_count, archived_at
		FROM session_archive
		ORDER BY archived_at DESC
	`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}
	if offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", offset)
	}

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing archived sessions: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		var startedAt *time.Time
		if err := rows.Scan(
			&rec.SessionID,
			&rec.Topic,
			&rec.Facilitator,
			&startedAt,
			&rec.DurationMs,
			&rec.ParticipantCount,
			&rec.EntryCount,
			&rec.InsightCount,
			&rec.ArchivedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning archive row: %w", err)
		}
		if startedAt != nil {
			rec.StartedAt = *startedAt
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating archive rows: %w", err)
	}
	return records, nil
}

// Delete removes one archived session.
func (r *Repository) Delete(ctx context.Context, sessionID string) error {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM session_archive WHERE session_id = $1`, sessionID)
	if err != nil {
		return fmt.Errorf("deleting archived session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: archived session %s", rterrors.ErrNotFound, sessionID)
	}
	return nil
}
