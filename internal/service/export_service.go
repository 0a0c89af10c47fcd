package service

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/journal-submission-api/internal/lifecycle"
	"github.com/journal-submission-api/internal/models"
	"github.com/journal-submission-api/internal/repository"
	"github.com/rs/zerolog"
)

// exportService is the concrete implementation of ExportService
type exportService struct {
	repos *repository.Repositories
	log   zerolog.Logger
}

func newExportService(repos *repository.Repositories, log zerolog.Logger) *exportService {
	return &exportService{
		repos: repos,
		log:   log.With().Str("service", "export").Logger(),
	}
}

// StreamSubmissions streams matching submissions in the requested format (staff only)
func (s *exportService) StreamSubmissions(ctx context.Context, actor lifecycle.Actor, w http.ResponseWriter, format string, filter models.SubmissionFilter) error {
	if !actor.IsStaff() {
		return lifecycle.Unauthorized("Only editors and administrators can export submissions.")
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return lifecycle.Validation("unknown status %q", string(filter.Status))
	}
	q := repository.SubmissionQuery{Filter: filter}

	s.log.Info().Str("format", format).Int64("actor", actor.UserID).Msg("Starting submissions export")

	switch format {
	case "ndjson", "":
		return s.streamNDJSON(ctx, w, q)
	case "json":
		return s.streamJSON(ctx, w, q)
	case "csv":
		return s.streamCSV(ctx, w, q)
	default:
		return lifecycle.Validation("unsupported format: %s", format)
	}
}

func (s *exportService) streamNDJSON(ctx context.Context, w http.ResponseWriter, q repository.SubmissionQuery) error {
	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Content-Disposition", "attachment; filename=submissions.ndjson")

	flusher, _ := w.(http.Flusher)
	count := 0

	err := s.repos.Submission.StreamAll(ctx, q, func(sub *models.Submission) error {
		data, err := json.Marshal(sub)
		if err != nil {
			return err
		}
		w.Write(data)
		w.Write([]byte("\n"))
		count++

		// Flush every 100 records for streaming
		if count%100 == 0 && flusher != nil {
			flusher.Flush()
		}
		return nil
	})

	s.log.Info().Int("count", count).Msg("Submissions export completed")
	return err
}

func (s *exportService) streamJSON(ctx context.Context, w http.ResponseWriter, q repository.SubmissionQuery) error {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", "attachment; filename=submissions.json")

	w.Write([]byte("["))
	first := true

	err := s.repos.Submission.StreamAll(ctx, q, func(sub *models.Submission) error {
		if !first {
			w.Write([]byte(","))
		}
		first = false

		data, err := json.Marshal(sub)
		if err != nil {
			return err
		}
		w.Write(data)
		return nil
	})

	w.Write([]byte("]"))
	return err
}

var csvHeader = []string{
	"id", "title", "author", "author_name", "journal", "journal_slug", "language",
	"page_count", "status", "rejection_reason", "submitted_at", "created_at", "updated_at",
}

func (s *exportService) streamCSV(ctx context.Context, w http.ResponseWriter, q repository.SubmissionQuery) error {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename=submissions.csv")

	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write(csvHeader); err != nil {
		return err
	}

	return s.repos.Submission.StreamAll(ctx, q, func(sub *models.Submission) error {
		submitted := ""
		if sub.SubmittedAt != nil {
			submitted = sub.SubmittedAt.UTC().Format(time.RFC3339)
		}
		return writer.Write([]string{
			strconv.FormatInt(sub.ID, 10),
			sub.Title,
			strconv.FormatInt(sub.AuthorID, 10),
			sub.AuthorName,
			strconv.FormatInt(sub.JournalID, 10),
			sub.JournalSlug,
			sub.Language,
			strconv.Itoa(sub.PageCount),
			string(sub.Status),
			sub.RejectionReason,
			submitted,
			sub.CreatedAt.UTC().Format(time.RFC3339),
			sub.UpdatedAt.UTC().Format(time.RFC3339),
		})
	})
}

// GetCount returns count for a resource
func (s *exportService) GetCount(ctx context.Context, resource string) (int, error) {
	switch resource {
	case "submissions":
		return s.repos.Submission.Count(ctx)
	case "users_with_balance":
		return s.repos.User.CountWithBalance(ctx)
	default:
		return 0, fmt.Errorf("unknown resource: %s", resource)
	}
}
