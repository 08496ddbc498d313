package deltecho

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/zoobzio/astql/postgres"
	"github.com/zoobzio/soy"
)

// archiveRow is the table shape of one archived memory. Tags drive soy's
// schema generation against Postgres with pgvector.
type archiveRow struct {
	ID           string  `db:"id" type:"uuid" constraints:"primarykey" default:"gen_random_uuid()"`
	Scope        string  `db:"scope" type:"text" constraints:"notnull"`
	Author       string  `db:"author" type:"text" constraints:"notnull"`
	Content      string  `db:"content" type:"text" constraints:"notnull"`
	Timestamp    int64   `db:"ts" type:"bigint" constraints:"notnull"`
	Significance float64 `db:"significance" type:"double precision" constraints:"notnull"`
	Embedding    Vector  `db:"embedding" type:"vector(128)"`
}

// SoyArchive implements Archive using soy for Postgres persistence.
// It is the durable counterpart of MemoryArchive: one row per archived
// memory, scoped by conversation.
type SoyArchive struct {
	memories *soy.Soy[archiveRow]
	db       *sqlx.DB
}

// NewSoyArchive creates a soy-backed Archive implementation.
func NewSoyArchive(db *sqlx.DB) (*SoyArchive, error) {
	renderer := postgres.New()

	memories, err := soy.New[archiveRow](db, "memories", renderer)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize memories table: %w", err)
	}

	return &SoyArchive{
		memories: memories,
		db:       db,
	}, nil
}

// Store implements Archive.
func (a *SoyArchive) Store(ctx context.Context, mem ArchivedMemory) error {
	row := archiveRow{
		ID:           mem.ID,
		Scope:        mem.Scope,
		Author:       mem.Author,
		Content:      mem.Content,
		Timestamp:    mem.Timestamp.UnixMilli(),
		Significance: mem.Significance,
		Embedding:    mem.Embedding,
	}
	if _, err := a.memories.Insert().Exec(ctx, &row); err != nil {
		return fmt.Errorf("failed to insert memory: %w", err)
	}
	return nil
}

// Scan implements Archive, returning the scope's rows oldest first.
func (a *SoyArchive) Scan(ctx context.Context, scope string) ([]ArchivedMemory, error) {
	rows, err := a.memories.Query().
		Where("scope", "=", "scope").
		OrderBy("ts", "asc").
		Exec(ctx, map[string]any{"scope": scope})
	if err != nil {
		return nil, fmt.Errorf("failed to scan memories: %w", err)
	}

	out := make([]ArchivedMemory, 0, len(rows))
	for _, row := range rows {
		out = append(out, ArchivedMemory{
			ID:           row.ID,
			Scope:        row.Scope,
			Author:       row.Author,
			Content:      row.Content,
			Timestamp:    msToTime(row.Timestamp),
			Significance: row.Significance,
			Embedding:    row.Embedding,
		})
	}
	return out, nil
}

// Purge removes every row for one scope. Used when a session is cleared.
func (a *SoyArchive) Purge(ctx context.Context, scope string) error {
	_, err := a.memories.Remove().
		Where("scope", "=", "scope").
		Exec(ctx, map[string]any{"scope": scope})
	if err != nil {
		return fmt.Errorf("failed to purge memories: %w", err)
	}
	return nil
}

// Close closes the underlying database connection.
func (a *SoyArchive) Close() error {
	return a.db.Close()
}

var _ Archive = (*SoyArchive)(nil)

func msToTime(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
