package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/journal-submission-api/internal/models"
)

// submissionRepo is the concrete implementation of SubmissionRepository
type submissionRepo struct {
	db querier
}

const submissionSelect = `
	SELECT s.id, s.title, s.abstract, s.keywords, s.author_id,
		COALESCE(NULLIF(TRIM(u.first_name || ' ' || u.last_name), ''), u.username),
		s.journal_id, j.name_en, j.slug, s.manuscript_file, s.page_count, s.language,
		s.rejection_reason, s.status, s.submitted_at, s.created_at, s.updated_at
	FROM submissions s
	JOIN users u ON u.id = s.author_id
	JOIN journals j ON j.id = s.journal_id
`

func scanSubmission(row interface{ Scan(...any) error }) (*models.Submission, error) {
	var sub models.Submission
	var submittedAt sql.NullTime

	err := row.Scan(
		&sub.ID, &sub.Title, &sub.Abstract, &sub.Keywords, &sub.AuthorID, &sub.AuthorName,
		&sub.JournalID, &sub.JournalName, &sub.JournalSlug, &sub.ManuscriptFile, &sub.PageCount,
		&sub.Language, &sub.RejectionReason, &sub.Status, &submittedAt, &sub.CreatedAt, &sub.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if submittedAt.Valid {
		sub.SubmittedAt = &submittedAt.Time
	}
	return &sub, nil
}

// Create inserts a new submission and fills in the generated ID
func (r *submissionRepo) Create(ctx context.Context, sub *models.Submission) error {
	now := time.Now()
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = now
	}
	sub.UpdatedAt = now
	if sub.Language == "" {
		sub.Language = models.DefaultLanguage
	}

	query := `
		INSERT INTO submissions (title, abstract, keywords, author_id, journal_id, manuscript_file,
			page_count, language, rejection_reason, status, submitted_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id
	`
	return r.db.QueryRowContext(ctx, query,
		sub.Title, sub.Abstract, sub.Keywords, sub.AuthorID, sub.JournalID, sub.ManuscriptFile,
		sub.PageCount, sub.Language, sub.RejectionReason, sub.Status, sub.SubmittedAt,
		sub.CreatedAt, sub.UpdatedAt,
	).Scan(&sub.ID)
}

// GetByID retrieves a submission by ID with author and journal names
func (r *submissionRepo) GetByID(ctx context.Context, id int64) (*models.Submission, error) {
	return scanSubmission(r.db.QueryRowContext(ctx, submissionSelect+" WHERE s.id = $1", id))
}

// LockByID retrieves a submission and locks its row until the transaction ends
func (r *submissionRepo) LockByID(ctx context.Context, id int64) (*models.Submission, error) {
	return scanSubmission(r.db.QueryRowContext(ctx, submissionSelect+" WHERE s.id = $1 FOR UPDATE OF s", id))
}

// buildWhere turns a query into a WHERE clause and its arguments
func buildWhere(q SubmissionQuery) (string, []any) {
	var conds []string
	var args []any
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if q.PublishedOnly {
		add("s.status = $%d", models.StatusPublished)
	}
	if q.OwnerID > 0 {
		add("s.author_id = $%d", q.OwnerID)
	}

	f := q.Filter
	if f.Status != "" {
		add("s.status = $%d", f.Status)
	}
	if f.JournalID > 0 {
		add("s.journal_id = $%d", f.JournalID)
	}
	if f.AuthorID > 0 {
		add("s.author_id = $%d", f.AuthorID)
	}
	if f.Language != "" {
		add("s.language = $%d", f.Language)
	}
	if f.AuthorName != "" {
		add("(u.first_name || ' ' || u.last_name || ' ' || u.username) ILIKE $%d", "%"+f.AuthorName+"%")
	}
	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		n := len(args)
		conds = append(conds, fmt.Sprintf(
			"(s.title ILIKE $%[1]d OR s.abstract ILIKE $%[1]d OR s.keywords ILIKE $%[1]d OR u.first_name ILIKE $%[1]d OR u.last_name ILIKE $%[1]d)", n))
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// List returns submissions matching q, newest first
func (r *submissionRepo) List(ctx context.Context, q SubmissionQuery) ([]*models.Submission, error) {
	var subs []*models.Submission
	err := r.stream(ctx, q, " ORDER BY s.created_at DESC, s.id DESC", func(sub *models.Submission) error {
		subs = append(subs, sub)
		return nil
	})
	return subs, err
}

// StreamAll streams submissions matching q for export, oldest first
func (r *submissionRepo) StreamAll(ctx context.Context, q SubmissionQuery, callback func(*models.Submission) error) error {
	return r.stream(ctx, q, " ORDER BY s.created_at, s.id", callback)
}

func (r *submissionRepo) stream(ctx context.Context, q SubmissionQuery, order string, callback func(*models.Submission) error) error {
	where, args := buildWhere(q)
	rows, err := r.db.QueryContext(ctx, submissionSelect+where+order, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return err
		}
		if err := callback(sub); err != nil {
			return err
		}
	}
	return rows.Err()
}

// Update writes the mutable fields of a submission
func (r *submissionRepo) Update(ctx context.Context, sub *models.Submission) error {
	sub.UpdatedAt = time.Now()
	query := `
		UPDATE submissions SET
			title = $1, abstract = $2, keywords = $3, manuscript_file = $4, page_count = $5,
			language = $6, rejection_reason = $7, status = $8, submitted_at = $9, updated_at = $10
		WHERE id = $11
	`
	_, err := r.db.ExecContext(ctx, query,
		sub.Title, sub.Abstract, sub.Keywords, sub.ManuscriptFile, sub.PageCount,
		sub.Language, sub.RejectionReason, sub.Status, sub.SubmittedAt, sub.UpdatedAt, sub.ID,
	)
	return err
}

// Delete removes a submission, reporting whether a row existed
func (r *submissionRepo) Delete(ctx context.Context, id int64) (bool, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM submissions WHERE id = $1", id)
	if err != nil {
		return false, err
	}
	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

// Count returns the total number of submissions
func (r *submissionRepo) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM submissions").Scan(&count)
	return count, err
}

// CountByStatus returns the number of submissions in each status
func (r *submissionRepo) CountByStatus(ctx context.Context) (map[models.Status]int, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT status, COUNT(*) FROM submissions GROUP BY status")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[models.Status]int)
	for rows.Next() {
		var status models.Status
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}
