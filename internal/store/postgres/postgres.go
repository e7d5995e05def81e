// Package postgres persists finished transcription results in PostgreSQL.
//
// Storage is optional: the pipeline produces results without it, and the CLI
// only wires a store when a database URL is configured. Structured sub-fields
// (segments, chunk errors) are serialised as JSONB so consumers can query
// into them without another schema migration.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/MrWong99/longscribe/internal/job"
	"github.com/MrWong99/longscribe/pkg/types"
)

// Schema is the SQL DDL for the transcripts table. Execute it via
// [Store.Migrate] or apply it manually during deployment.
const Schema = `
CREATE TABLE IF NOT EXISTS transcripts (
    job_id           TEXT PRIMARY KEY,
    media_path       TEXT NOT NULL,
    language         TEXT NOT NULL DEFAULT '',
    strategy         TEXT NOT NULL DEFAULT '',
    duration_sec     DOUBLE PRECISION NOT NULL DEFAULT 0,
    processing_sec   DOUBLE PRECISION NOT NULL DEFAULT 0,
    num_chunks       INTEGER NOT NULL DEFAULT 0,
    segments         JSONB NOT NULL DEFAULT '[]',
    chunk_errors     JSONB NOT NULL DEFAULT '[]',
    plain_text       TEXT NOT NULL DEFAULT '',
    created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_transcripts_media ON transcripts(media_path);
CREATE INDEX IF NOT EXISTS idx_transcripts_created ON transcripts(created_at);
`

// DB is the database interface used by [Store]. Both *pgxpool.Pool and
// *pgx.Conn satisfy this interface.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Record is one stored transcription result.
type Record struct {
	JobID         string
	MediaPath     string
	Language      string
	Strategy      string
	DurationSec   float64
	ProcessingSec float64
	NumChunks     int
	Segments      []types.Segment
	ChunkErrors   []job.ChunkError
	PlainText     string
	CreatedAt     time.Time
}

// Store persists transcription results in a PostgreSQL database.
type Store struct {
	db DB
}

// New creates a Store using the given database connection or pool. The caller
// is responsible for calling [Store.Migrate] to ensure the schema exists
// before issuing queries.
func New(db DB) *Store {
	return &Store{db: db}
}

// Migrate executes the [Schema] DDL against the database, creating the
// transcripts table and indexes if they do not already exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("store: migrate: %w", err)
	}
	return nil
}

// Save upserts a finished job result under its job ID.
func (s *Store) Save(ctx context.Context, mediaPath string, res *job.Result) error {
	segJSON, err := json.Marshal(emptySegments(res.Outputs.Segments))
	if err != nil {
		return fmt.Errorf("store: marshal segments: %w", err)
	}
	errJSON, err := json.Marshal(emptyErrors(res.PerChunkErrors))
	if err != nil {
		return fmt.Errorf("store: marshal chunk_errors: %w", err)
	}

	const query = `
		INSERT INTO transcripts (
			job_id, media_path, language, strategy,
			duration_sec, processing_sec, num_chunks,
			segments, chunk_errors, plain_text
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		ON CONFLICT (job_id) DO UPDATE SET
			media_path = EXCLUDED.media_path,
			language = EXCLUDED.language,
			strategy = EXCLUDED.strategy,
			duration_sec = EXCLUDED.duration_sec,
			processing_sec = EXCLUDED.processing_sec,
			num_chunks = EXCLUDED.num_chunks,
			segments = EXCLUDED.segments,
			chunk_errors = EXCLUDED.chunk_errors,
			plain_text = EXCLUDED.plain_text`

	_, err = s.db.Exec(ctx, query,
		res.JobID, mediaPath, res.Language, res.Strategy,
		res.Duration, res.ProcessingTime, res.NumChunks,
		segJSON, errJSON, res.Outputs.PlainText,
	)
	if err != nil {
		return fmt.Errorf("store: save %q: %w", res.JobID, err)
	}
	return nil
}

const selectColumns = `job_id, media_path, language, strategy,
	       duration_sec, processing_sec, num_chunks,
	       segments, chunk_errors, plain_text, created_at`

// Get retrieves a stored result by job ID. It returns (nil, nil) when no
// record with the given ID exists.
func (s *Store) Get(ctx context.Context, jobID string) (*Record, error) {
	const query = `SELECT ` + selectColumns + ` FROM transcripts WHERE job_id = $1`

	var rec Record
	var segJSON, errJSON []byte
	err := s.db.QueryRow(ctx, query, jobID).Scan(
		&rec.JobID, &rec.MediaPath, &rec.Language, &rec.Strategy,
		&rec.DurationSec, &rec.ProcessingSec, &rec.NumChunks,
		&segJSON, &errJSON, &rec.PlainText, &rec.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("store: get %q: %w", jobID, err)
	}
	if err := unmarshalFields(&rec, segJSON, errJSON); err != nil {
		return nil, err
	}
	return &rec, nil
}

// List returns the most recent stored results, newest first, up to limit.
// A non-positive limit returns 50 records.
func (s *Store) List(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}
	const query = `SELECT ` + selectColumns + `
		FROM transcripts ORDER BY created_at DESC LIMIT $1`

	rows, err := s.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("store: list: %w", err)
	}
	defer rows.Close()

	var recs []Record
	for rows.Next() {
		var rec Record
		var segJSON, errJSON []byte
		if err := rows.Scan(
			&rec.JobID, &rec.MediaPath, &rec.Language, &rec.Strategy,
			&rec.DurationSec, &rec.ProcessingSec, &rec.NumChunks,
			&segJSON, &errJSON, &rec.PlainText, &rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("store: list scan: %w", err)
		}
		if err := unmarshalFields(&rec, segJSON, errJSON); err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: list: %w", err)
	}
	return recs, nil
}

// Delete removes a stored result by job ID. Deleting a missing record is not
// an error.
func (s *Store) Delete(ctx context.Context, jobID string) error {
	const query = `DELETE FROM transcripts WHERE job_id = $1`
	if _, err := s.db.Exec(ctx, query, jobID); err != nil {
		return fmt.Errorf("store: delete %q: %w", jobID, err)
	}
	return nil
}

// unmarshalFields deserialises the JSONB columns into the corresponding
// [Record] fields.
func unmarshalFields(rec *Record, segments, chunkErrs []byte) error {
	if err := json.Unmarshal(segments, &rec.Segments); err != nil {
		return fmt.Errorf("store: unmarshal segments: %w", err)
	}
	if err := json.Unmarshal(chunkErrs, &rec.ChunkErrors); err != nil {
		return fmt.Errorf("store: unmarshal chunk_errors: %w", err)
	}
	return nil
}

// emptySegments ensures JSON marshalling produces "[]" instead of "null".
func emptySegments(s []types.Segment) []types.Segment {
	if s == nil {
		return []types.Segment{}
	}
	return s
}

// emptyErrors ensures JSON marshalling produces "[]" instead of "null".
func emptyErrors(e []job.ChunkError) []job.ChunkError {
	if e == nil {
		return []job.ChunkError{}
	}
	return e
}
