package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/journal-submission-api/internal/models"
)

// historyRepo is the concrete implementation of HistoryRepository
type historyRepo struct {
	db querier
}

// Add records a committed status change
func (r *historyRepo) Add(ctx context.Context, change *models.StatusChange) error {
	if change.CreatedAt.IsZero() {
		change.CreatedAt = time.Now()
	}
	query := `
		INSERT INTO submission_status_history (submission_id, from_status, to_status, changed_by, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	return r.db.QueryRowContext(ctx, query,
		change.SubmissionID, string(change.FromStatus), change.ToStatus,
		nullInt64(change.ChangedBy), change.Reason, change.CreatedAt,
	).Scan(&change.ID)
}

// ListBySubmission returns the history of one submission, oldest first
func (r *historyRepo) ListBySubmission(ctx context.Context, submissionID int64) ([]*models.StatusChange, error) {
	query := `
		SELECT id, submission_id, from_status, to_status, changed_by, reason, created_at
		FROM submission_status_history WHERE submission_id = $1
		ORDER BY created_at, id
	`
	rows, err := r.db.QueryContext(ctx, query, submissionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var changes []*models.StatusChange
	for rows.Next() {
		var c models.StatusChange
		var from string
		var changedBy sql.NullInt64
		if err := rows.Scan(&c.ID, &c.SubmissionID, &from, &c.ToStatus, &changedBy, &c.Reason, &c.CreatedAt); err != nil {
			return nil, err
		}
		// Creation rows have no previous status.
		c.FromStatus = models.Status(from)
		c.ChangedBy = changedBy.Int64
		changes = append(changes, &c)
	}
	return changes, rows.Err()
}
