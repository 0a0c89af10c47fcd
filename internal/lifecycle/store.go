package lifecycle

import (
	"context"
	"io"

	"github.com/journal-submission-api/internal/models"
)

// Upload is a manuscript file sent along with a new submission.
type Upload struct {
	Filename string
	Body     io.Reader
}

// Store is the authoritative submission backend. Implementations return
// *Error values classified by Kind.
type Store interface {
	Create(ctx context.Context, draft models.SubmissionDraft, file *Upload) (*models.Submission, error)
	Patch(ctx context.Context, id int64, patch models.SubmissionPatch) (*models.Submission, error)
	Get(ctx context.Context, id int64) (*models.Submission, error)
	List(ctx context.Context, filter models.SubmissionFilter) ([]*models.Submission, error)
	Delete(ctx context.Context, id int64) error
}
