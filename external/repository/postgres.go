package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/foxseedlab/tsuyaku/internal/repository"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const sessionColumns = `id, source_language, target_language, translation_mode, primary_channel, timezone,
	started_at, ended_at, status, stop_reason, duration_seconds, segment_count, created_at, updated_at`

type PostgresRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresRepository(pool *pgxpool.Pool) repository.Repository {
	return &PostgresRepository{pool: pool}
}

func (r *PostgresRepository) CreateSession(ctx context.Context, input repository.CreateSessionInput) (*repository.Session, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO sessions (source_language, target_language, translation_mode, primary_channel, timezone, started_at, status)
		 VALUES ($1, $2, $3, $4, $5, $6, 'running')
		 RETURNING `+sessionColumns,
		input.SourceLanguage, input.TargetLanguage, input.TranslationMode, input.PrimaryChannel, input.Timezone, input.StartedAt)
	return scanSession(row)
}

func (r *PostgresRepository) CompleteSession(ctx context.Context, input repository.CompleteSessionInput) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE sessions
		 SET status = $2, ended_at = $3, stop_reason = $4, duration_seconds = $5, segment_count = $6, updated_at = NOW()
		 WHERE id = $1`,
		input.SessionID, string(input.Status), input.EndedAt, input.StopReason, input.DurationSeconds, input.SegmentCount)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", repository.ErrSessionNotFound, input.SessionID)
	}
	return nil
}

func (r *PostgresRepository) SaveSessionOutput(ctx context.Context, input repository.SaveSessionOutputInput) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO session_outputs (session_id, transcript_filename, transcript_text, webhook_payload)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (session_id) DO UPDATE
		 SET transcript_filename = EXCLUDED.transcript_filename,
		     transcript_text = EXCLUDED.transcript_text,
		     webhook_payload = EXCLUDED.webhook_payload`,
		input.SessionID, input.TranscriptFilename, input.TranscriptText, input.WebhookPayloadJSON)
	return err
}

func (r *PostgresRepository) GetSession(ctx context.Context, sessionID string) (*repository.Session, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = $1`, sessionID)
	s, err := scanSession(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", repository.ErrSessionNotFound, sessionID)
	}
	return s, err
}

func (r *PostgresRepository) InsertSegment(ctx context.Context, input repository.InsertSegmentInput) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO transcript_segments
		 (session_id, segment_index, channel_id, transcript, translation, translated, latency_ms, translation_ms, spoken_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		input.SessionID, input.SegmentIndex, input.ChannelID, input.Transcript, input.Translation,
		input.Translated, input.LatencyMs, input.TranslationMs, input.SpokenAt)
	return err
}

func (r *PostgresRepository) ListSegmentsBySessionID(ctx context.Context, sessionID string) ([]repository.TranscriptSegment, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, session_id, segment_index, channel_id, transcript, translation, translated,
		        latency_ms, translation_ms, spoken_at, created_at
		 FROM transcript_segments WHERE session_id = $1 ORDER BY segment_index ASC`,
		sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []repository.TranscriptSegment
	for rows.Next() {
		var seg repository.TranscriptSegment
		if err := rows.Scan(&seg.ID, &seg.SessionID, &seg.SegmentIndex, &seg.ChannelID, &seg.Transcript,
			&seg.Translation, &seg.Translated, &seg.LatencyMs, &seg.TranslationMs, &seg.SpokenAt, &seg.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, seg)
	}
	return list, rows.Err()
}

func (r *PostgresRepository) Close() {
	r.pool.Close()
}

func scanSession(row pgx.Row) (*repository.Session, error) {
	var s repository.Session
	var status string
	err := row.Scan(&s.ID, &s.SourceLanguage, &s.TargetLanguage, &s.TranslationMode, &s.PrimaryChannel, &s.Timezone,
		&s.StartedAt, &s.EndedAt, &status, &s.StopReason, &s.DurationSeconds, &s.SegmentCount, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	s.Status = repository.SessionStatus(status)
	return &s, nil
}
