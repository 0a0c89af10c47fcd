package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/journal-submission-api/internal/models"
	"github.com/lib/pq"
)

// journalRepo is the concrete implementation of JournalRepository
type journalRepo struct {
	db querier
}

const journalColumns = `id, slug, name_en, name_uz, name_ru, description_en, description_uz, description_ru,
	is_paid, price_per_page, created_at`

func scanJournal(row interface{ Scan(...any) error }) (*models.Journal, error) {
	var j models.Journal
	err := row.Scan(
		&j.ID, &j.Slug, &j.NameEN, &j.NameUZ, &j.NameRU,
		&j.DescriptionEN, &j.DescriptionUZ, &j.DescriptionRU,
		&j.IsPaid, &j.PricePerPage, &j.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &j, nil
}

// List returns all journals ordered by English name
func (r *journalRepo) List(ctx context.Context) ([]*models.Journal, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+journalColumns+` FROM journals ORDER BY name_en`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var journals []*models.Journal
	for rows.Next() {
		j, err := scanJournal(rows)
		if err != nil {
			return nil, err
		}
		journals = append(journals, j)
	}
	return journals, rows.Err()
}

// GetByID retrieves a journal by ID
func (r *journalRepo) GetByID(ctx context.Context, id int64) (*models.Journal, error) {
	return scanJournal(r.db.QueryRowContext(ctx, `SELECT `+journalColumns+` FROM journals WHERE id = $1`, id))
}

// GetBySlug retrieves a journal by slug
func (r *journalRepo) GetBySlug(ctx context.Context, slug string) (*models.Journal, error) {
	return scanJournal(r.db.QueryRowContext(ctx, `SELECT `+journalColumns+` FROM journals WHERE slug = $1`, slug))
}

// GetAllSlugs retrieves all journal slugs (for duplicate detection during import)
func (r *journalRepo) GetAllSlugs(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT slug FROM journals")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var slugs []string
	for rows.Next() {
		var slug string
		if err := rows.Scan(&slug); err != nil {
			return nil, err
		}
		slugs = append(slugs, slug)
	}
	return slugs, rows.Err()
}

// BatchInsert inserts multiple journals using PostgreSQL COPY
func (r *journalRepo) BatchInsert(ctx context.Context, journals []*models.Journal) (int, error) {
	if len(journals) == 0 {
		return 0, nil
	}

	now := time.Now()
	return copyRows(ctx, r.db, pq.CopyIn("journals",
		"slug", "name_en", "name_uz", "name_ru", "description_en", "description_uz", "description_ru",
		"is_paid", "price_per_page", "created_at",
	), len(journals), func(i int) []any {
		j := journals[i]
		created := j.CreatedAt
		if created.IsZero() {
			created = now
		}
		return []any{
			j.Slug, j.NameEN, j.NameUZ, j.NameRU, j.DescriptionEN, j.DescriptionUZ, j.DescriptionRU,
			j.IsPaid, j.PricePerPage.StringFixed(2), created,
		}
	})
}
