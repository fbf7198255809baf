package storage

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"arxivdigest/internal/domain"
	"arxivdigest/internal/ports"
)

// PostgresArchive keeps an audit trail of selected papers. It is optional
// infrastructure: the flat-file stores remain the source of truth for
// selection, the archive only records what was published and when.
type PostgresArchive struct {
	db      *sql.DB
	builder sq.StatementBuilderType
}

var _ ports.DigestArchive = (*PostgresArchive)(nil)

// NewPostgresArchive wires a sql.DB implementation.
func NewPostgresArchive(db *sql.DB) *PostgresArchive {
	return &PostgresArchive{
		db:      db,
		builder: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// SaveSelection inserts every selected paper for the run's date. Replays of
// the same selection are harmless: the digest date + identity key conflicts
// are ignored.
func (a *PostgresArchive) SaveSelection(ctx context.Context, sel domain.Selection) error {
	if a.db == nil || len(sel.Papers) == 0 {
		return nil
	}

	insert := a.builder.
		Insert("selected_papers").
		Columns("digest_date", "external_id", "title", "score", "published", "primary_category", "authors", "abs_url")

	for _, candidate := range sel.Papers {
		record := candidate.Record
		insert = insert.Values(
			sel.Date,
			record.ID,
			record.Title,
			candidate.Score,
			record.Published,
			record.PrimaryCategory,
			pq.StringArray(record.Authors),
			record.AbsURL,
		)
	}

	query, args, err := insert.
		Suffix("ON CONFLICT (digest_date, external_id) DO NOTHING").
		ToSql()
	if err != nil {
		return fmt.Errorf("build archive insert: %w", err)
	}

	if _, err := a.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("archive selection: %w", err)
	}

	return nil
}

// WasArchived reports whether an identity appears in the archive. Used by
// operational tooling, not by the selection path.
func (a *PostgresArchive) WasArchived(ctx context.Context, id string) (bool, error) {
	if a.db == nil {
		return false, nil
	}

	query, args, err := a.builder.
		Select("1").
		From("selected_papers").
		Where(sq.Eq{"external_id": id}).
		Limit(1).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build archive lookup: %w", err)
	}

	var one int
	err = a.db.QueryRowContext(ctx, query, args...).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("archive lookup: %w", err)
	}
	return true, nil
}
