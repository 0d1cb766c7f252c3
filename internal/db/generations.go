package db

import (
	"context"
	"fmt"

	"quizify/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

// DBTX is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

const (
	DefaultListLimit = 50
	MaxListLimit     = 500
)

const createGenerationsTable = `
CREATE TABLE IF NOT EXISTS quiz_generations (
    id            UUID PRIMARY KEY,
    request_id    TEXT        NOT NULL,
    lesson_name   TEXT        NOT NULL DEFAULT '',
    num_questions TEXT        NOT NULL DEFAULT '',
    status        TEXT        NOT NULL,
    error_kind    TEXT,
    csv_bytes     INTEGER     NOT NULL DEFAULT 0,
    archive_url   TEXT,
    duration_ms   BIGINT      NOT NULL DEFAULT 0,
    created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS quiz_generations_created_at_idx ON quiz_generations (created_at DESC);
`

// Migrate creates the history table when it does not exist.
func (q *Queries) Migrate(ctx context.Context) error {
	if _, err := q.db.Exec(ctx, createGenerationsTable); err != nil {
		return fmt.Errorf("failed to create quiz_generations table: %w", err)
	}
	return nil
}

const insertGeneration = `
INSERT INTO quiz_generations
    (id, request_id, lesson_name, num_questions, status, error_kind, csv_bytes, archive_url, duration_ms, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
`

// RecordGeneration inserts one history row.
func (q *Queries) RecordGeneration(ctx context.Context, g *models.Generation) error {
	_, err := q.db.Exec(ctx, insertGeneration,
		g.ID,
		g.RequestID,
		g.LessonName,
		g.NumQuestions,
		string(g.Status),
		nullText(g.ErrorKind),
		g.CSVBytes,
		nullText(g.ArchiveURL),
		g.DurationMS,
		g.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert generation %s: %w", g.ID, err)
	}
	return nil
}

const listGenerations = `
SELECT id, request_id, lesson_name, num_questions, status, error_kind, csv_bytes, archive_url, duration_ms, created_at
FROM quiz_generations
ORDER BY created_at DESC
LIMIT $1
`

// ListGenerations returns the most recent rows first.
func (q *Queries) ListGenerations(ctx context.Context, limit int) ([]models.Generation, error) {
	rows, err := q.db.Query(ctx, listGenerations, ClampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to list generations: %w", err)
	}
	defer rows.Close()

	var items []models.Generation
	for rows.Next() {
		var (
			g          models.Generation
			status     string
			errorKind  pgtype.Text
			archiveURL pgtype.Text
		)
		if err := rows.Scan(
			&g.ID,
			&g.RequestID,
			&g.LessonName,
			&g.NumQuestions,
			&status,
			&errorKind,
			&g.CSVBytes,
			&archiveURL,
			&g.DurationMS,
			&g.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan generation: %w", err)
		}
		g.Status = models.GenerationStatus(status)
		g.ErrorKind = errorKind.String
		g.ArchiveURL = archiveURL.String
		items = append(items, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate generations: %w", err)
	}
	return items, nil
}

// ClampLimit bounds a requested page size.
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	if limit > MaxListLimit {
		return MaxListLimit
	}
	return limit
}

func nullText(s string) pgtype.Text {
	return pgtype.Text{String: s, Valid: s != ""}
}
