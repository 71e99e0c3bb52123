package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	domain "github.com/librilane/book-import/internal/domain/importing"
)

// CatalogRepository upserts catalog records keyed by (library_id, isbn).
// The conflict target makes the operation idempotent: importing the same
// ISBN twice updates the one existing row instead of creating a duplicate.
type CatalogRepository struct {
	pool *pgxpool.Pool
}

func NewCatalogRepository(pool *pgxpool.Pool) *CatalogRepository {
	return &CatalogRepository{pool: pool}
}

const upsertBookSQL = `
INSERT INTO books (
    id, library_id, isbn, title, subtitle, authors, publisher,
    published_date, cover_url, page_count, subjects, created_by,
    created_at, updated_at
)
VALUES (
    gen_random_uuid(), $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11,
    NOW(), NOW()
)
ON CONFLICT (library_id, isbn) DO UPDATE
  SET title          = EXCLUDED.title,
      subtitle       = EXCLUDED.subtitle,
      authors        = EXCLUDED.authors,
      publisher      = EXCLUDED.publisher,
      published_date = EXCLUDED.published_date,
      cover_url      = EXCLUDED.cover_url,
      page_count     = EXCLUDED.page_count,
      subjects       = EXCLUDED.subjects,
      updated_at     = NOW()
`

func (r *CatalogRepository) Upsert(ctx context.Context, meta domain.BookMetadata, libraryID, actor string) error {
	_, err := r.pool.Exec(ctx, upsertBookSQL,
		libraryID,
		meta.ISBN,
		meta.Title,
		meta.Subtitle,
		meta.Authors,
		meta.Publisher,
		meta.PublishedDate,
		meta.CoverURL,
		meta.PageCount,
		meta.Subjects,
		actor,
	)
	if err != nil {
		return fmt.Errorf("upsert book %s: %w", meta.ISBN, err)
	}
	return nil
}

// QuotaRepository answers the subscription quota check consulted once at
// submission: can this library take on additional catalog records.
type QuotaRepository struct {
	pool *pgxpool.Pool
	// maxRecords is the per-library record ceiling; 0 disables the check.
	maxRecords int
}

func NewQuotaRepository(pool *pgxpool.Pool, maxRecords int) *QuotaRepository {
	return &QuotaRepository{pool: pool, maxRecords: maxRecords}
}

func (r *QuotaRepository) CanAccommodate(ctx context.Context, libraryID string, additional int) (bool, error) {
	if r.maxRecords <= 0 {
		return true, nil
	}

	var current int
	err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM books WHERE library_id = $1", libraryID).Scan(&current)
	if err != nil {
		return false, fmt.Errorf("count library books: %w", err)
	}
	return current+additional <= r.maxRecords, nil
}
