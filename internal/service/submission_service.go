package service

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/journal-submission-api/internal/analysis"
	"github.com/journal-submission-api/internal/certificate"
	"github.com/journal-submission-api/internal/lifecycle"
	"github.com/journal-submission-api/internal/metrics"
	"github.com/journal-submission-api/internal/models"
	"github.com/journal-submission-api/internal/notify"
	"github.com/journal-submission-api/internal/repository"
	"github.com/journal-submission-api/internal/validation"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const msgSubmissionNotFound = "Submission not found."

// submissionService is the concrete implementation of SubmissionService
type submissionService struct {
	repos     *repository.Repositories
	files     *fileStore
	certs     *certificate.Generator
	validator *validation.Validator
	publisher notify.Publisher
	metrics   *metrics.Metrics
	now       func() time.Time
	log       zerolog.Logger
}

func newSubmissionService(repos *repository.Repositories, files *fileStore, certs *certificate.Generator, deps Deps, log zerolog.Logger) *submissionService {
	return &submissionService{
		repos:     repos,
		files:     files,
		certs:     certs,
		validator: validation.NewValidator(),
		publisher: deps.Publisher,
		metrics:   deps.Metrics,
		now:       deps.Clock,
		log:       log.With().Str("service", "submission").Logger(),
	}
}

// charge records what paying for a submission cost.
type charge struct {
	fee     decimal.Decimal
	covered bool
}

// Create stores a new submission. With a manuscript attached it enters
// SUBMITTED and the publication fee is settled in the same transaction;
// otherwise it stays a DRAFT.
func (s *submissionService) Create(ctx context.Context, actor lifecycle.Actor, draft models.SubmissionDraft, file *lifecycle.Upload) (*models.Submission, error) {
	if actor.Anonymous() {
		return nil, lifecycle.Unauthorized("Authentication credentials were not provided.")
	}
	if errs := s.validator.ValidateDraft(&draft); len(errs) > 0 {
		return nil, validationFailed(errs)
	}

	sub := &models.Submission{
		Title:     strings.TrimSpace(draft.Title),
		Abstract:  strings.TrimSpace(draft.Abstract),
		Keywords:  strings.TrimSpace(draft.Keywords),
		AuthorID:  actor.UserID,
		JournalID: draft.JournalID,
		PageCount: draft.PageCount,
		Language:  draft.Language,
		Status:    models.StatusDraft,
	}

	if file != nil {
		if strings.TrimSpace(file.Filename) == "" {
			return nil, lifecycle.Validation("manuscript file name is empty")
		}
		name, err := s.files.Save(file.Filename, file.Body)
		if err != nil {
			return nil, lifecycle.Validation("%s", err.Error())
		}
		sub.ManuscriptFile = name
		if !draft.SaveAsDraft {
			sub.Status = models.StatusSubmitted
		}
	}

	var paid charge
	var out *models.Submission
	err := s.repos.WithinTx(ctx, func(tx *repository.Repositories) error {
		journal, err := tx.Journal.GetByID(ctx, sub.JournalID)
		if err != nil {
			return fmt.Errorf("get journal: %w", err)
		}
		if journal == nil {
			return lifecycle.Validation("Journal %d does not exist.", sub.JournalID)
		}

		if sub.Status == models.StatusSubmitted {
			if paid, err = s.charge(ctx, tx, actor, journal, sub); err != nil {
				return err
			}
			now := s.now()
			sub.SubmittedAt = &now
		}

		if err := tx.Submission.Create(ctx, sub); err != nil {
			return fmt.Errorf("create submission: %w", err)
		}
		if err := tx.History.Add(ctx, &models.StatusChange{
			SubmissionID: sub.ID,
			ToStatus:     sub.Status,
			ChangedBy:    actor.UserID,
		}); err != nil {
			return fmt.Errorf("record history: %w", err)
		}

		out, err = tx.Submission.GetByID(ctx, sub.ID)
		return err
	})
	if err != nil {
		s.files.Remove(sub.ManuscriptFile)
		if lifecycle.KindOf(err) == lifecycle.KindInsufficientBalance {
			s.metrics.InsufficientBalance()
		}
		return nil, err
	}
	if out == nil {
		out = sub
	}

	s.settled(paid)
	s.metrics.Created(out.Status)
	s.publisher.Publish(notify.Event{
		Type:         notify.EventCreated,
		SubmissionID: out.ID,
		AuthorID:     out.AuthorID,
		To:           out.Status,
		At:           s.now(),
	})

	s.log.Info().
		Int64("submission_id", out.ID).
		Int64("author_id", actor.UserID).
		Str("status", string(out.Status)).
		Str("fee", paid.fee.StringFixed(2)).
		Bool("covered_by_subscription", paid.covered).
		Msg("Submission created")

	return out, nil
}

// charge settles the publication fee for sub inside tx. The author row is
// locked so concurrent submissions cannot overdraw the balance.
func (s *submissionService) charge(ctx context.Context, tx *repository.Repositories, actor lifecycle.Actor, journal *models.Journal, sub *models.Submission) (charge, error) {
	user, err := tx.User.LockByID(ctx, actor.UserID)
	if err != nil {
		return charge{}, fmt.Errorf("lock user: %w", err)
	}
	if user == nil {
		return charge{}, lifecycle.Unauthorized("User account no longer exists.")
	}

	subscription, err := tx.Billing.GetSubscription(ctx, user.ID)
	if err != nil {
		return charge{}, fmt.Errorf("get subscription: %w", err)
	}

	quote := lifecycle.EstimateFee(journal, sub.PageCount, subscription, s.now())
	if quote.CoveredBySubscription {
		if err := tx.Billing.IncrementUsage(ctx, subscription.ID); err != nil {
			return charge{}, fmt.Errorf("increment usage: %w", err)
		}
		return charge{covered: true}, nil
	}
	if quote.Free() {
		return charge{}, nil
	}

	if user.Balance.LessThan(quote.Fee) {
		return charge{}, lifecycle.InsufficientBalance(quote.Fee, user.Balance)
	}
	if _, err := tx.User.AdjustBalance(ctx, user.ID, quote.Fee.Neg()); err != nil {
		return charge{}, fmt.Errorf("deduct fee: %w", err)
	}
	if err := tx.Billing.AddTransaction(ctx, &models.WalletTransaction{
		UserID:      user.ID,
		Amount:      quote.Fee.Neg(),
		Type:        models.TransactionPublishFee,
		Description: fmt.Sprintf("Publication fee: %s (%d pages)", sub.Title, sub.PageCount),
		CreatedAt:   s.now(),
	}); err != nil {
		return charge{}, fmt.Errorf("record fee: %w", err)
	}
	return charge{fee: quote.Fee}, nil
}

func (s *submissionService) settled(c charge) {
	if c.covered {
		s.metrics.CoveredBySubscription()
	}
	if c.fee.IsPositive() {
		s.metrics.FeeCharged(c.fee.InexactFloat64())
	}
}

// Get returns a submission visible to actor
func (s *submissionService) Get(ctx context.Context, actor lifecycle.Actor, id int64) (*models.Submission, error) {
	sub, err := s.repos.Submission.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !lifecycle.CanView(actor, sub) {
		return nil, lifecycle.NotFound(msgSubmissionNotFound)
	}
	return sub, nil
}

// List returns the submissions actor may see, narrowed by filter.
// Published work is public; staff see everything; authors see their own.
func (s *submissionService) List(ctx context.Context, actor lifecycle.Actor, filter models.SubmissionFilter) ([]*models.Submission, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, lifecycle.Validation("unknown status %q", string(filter.Status))
	}

	q := repository.SubmissionQuery{Filter: filter}
	switch {
	case filter.Status == models.StatusPublished:
		q.PublishedOnly = true
	case actor.IsStaff():
	case !actor.Anonymous():
		q.OwnerID = actor.UserID
	default:
		q.PublishedOnly = true
	}

	subs, err := s.repos.Submission.List(ctx, q)
	if err != nil {
		return nil, err
	}
	if subs == nil {
		subs = []*models.Submission{}
	}
	return subs, nil
}

// Patch applies a partial update. Metadata edits and a status change may
// be combined; both are checked against the lifecycle guards before
// anything is written.
func (s *submissionService) Patch(ctx context.Context, actor lifecycle.Actor, id int64, patch models.SubmissionPatch) (*models.Submission, error) {
	if actor.Anonymous() {
		return nil, lifecycle.Unauthorized("Authentication credentials were not provided.")
	}
	if errs := s.validator.ValidatePatch(&patch); len(errs) > 0 {
		return nil, validationFailed(errs)
	}
	if patch.RejectionReason != nil && (patch.Status == nil || *patch.Status != models.StatusRejected) {
		return nil, lifecycle.Validation("rejection_reason can only be set when rejecting")
	}

	var (
		from, to models.Status
		paid     charge
		out      *models.Submission
	)
	err := s.repos.WithinTx(ctx, func(tx *repository.Repositories) error {
		sub, err := tx.Submission.LockByID(ctx, id)
		if err != nil {
			return fmt.Errorf("lock submission: %w", err)
		}
		if !lifecycle.CanView(actor, sub) {
			return lifecycle.NotFound(msgSubmissionNotFound)
		}
		from = sub.Status

		if patch.HasMetadata() {
			if err := lifecycle.CanEditMetadata(actor, sub); err != nil {
				return err
			}
		}

		next := sub.Clone()
		models.SubmissionPatch{Title: trimmed(patch.Title), Abstract: trimmed(patch.Abstract), Keywords: trimmed(patch.Keywords)}.Apply(next)

		if patch.Status != nil {
			req := lifecycle.Request{To: *patch.Status, Confirmed: true}
			if patch.RejectionReason != nil {
				req.RejectionReason = *patch.RejectionReason
			}
			if err := lifecycle.ValidateRequest(actor, sub, req); err != nil {
				return err
			}

			next.Status = req.To
			switch req.To {
			case models.StatusSubmitted:
				journal, err := tx.Journal.GetByID(ctx, sub.JournalID)
				if err != nil {
					return fmt.Errorf("get journal: %w", err)
				}
				if paid, err = s.charge(ctx, tx, actor, journal, next); err != nil {
					return err
				}
				now := s.now()
				next.SubmittedAt = &now
			case models.StatusRejected:
				next.RejectionReason = strings.TrimSpace(req.RejectionReason)
			}
		}

		if err := tx.Submission.Update(ctx, next); err != nil {
			return fmt.Errorf("update submission: %w", err)
		}
		to = next.Status
		if to != from {
			if err := tx.History.Add(ctx, &models.StatusChange{
				SubmissionID: id,
				FromStatus:   from,
				ToStatus:     to,
				ChangedBy:    actor.UserID,
				Reason:       next.RejectionReason,
			}); err != nil {
				return fmt.Errorf("record history: %w", err)
			}
		}

		out, err = tx.Submission.GetByID(ctx, id)
		return err
	})
	if err != nil {
		if lifecycle.KindOf(err) == lifecycle.KindInsufficientBalance {
			s.metrics.InsufficientBalance()
		}
		s.log.Warn().Err(err).Int64("submission_id", id).Int64("actor", actor.UserID).Msg("Submission update refused")
		return nil, err
	}

	s.settled(paid)
	if to != from {
		s.metrics.Transition(from, to)
		s.publisher.Publish(notify.Event{
			Type:         notify.EventTransition,
			SubmissionID: id,
			AuthorID:     out.AuthorID,
			From:         from,
			To:           to,
			At:           s.now(),
		})
		s.log.Info().
			Int64("submission_id", id).
			Str("from", string(from)).
			Str("to", string(to)).
			Int64("actor", actor.UserID).
			Msg("Submission status changed")
	} else {
		s.publisher.Publish(notify.Event{Type: notify.EventUpdated, SubmissionID: id, AuthorID: out.AuthorID, At: s.now()})
	}
	return out, nil
}

func trimmed(p *string) *string {
	if p == nil {
		return nil
	}
	v := strings.TrimSpace(*p)
	return &v
}

// Withdraw moves the submission to WITHDRAWN on behalf of its author
func (s *submissionService) Withdraw(ctx context.Context, actor lifecycle.Actor, id int64) (*models.Submission, error) {
	to := models.StatusWithdrawn
	return s.Patch(ctx, actor, id, models.SubmissionPatch{Status: &to})
}

// Delete removes a submission permanently (admins only)
func (s *submissionService) Delete(ctx context.Context, actor lifecycle.Actor, id int64) error {
	if err := lifecycle.CanDelete(actor); err != nil {
		return err
	}
	sub, err := s.repos.Submission.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if sub == nil {
		return lifecycle.NotFound(msgSubmissionNotFound)
	}
	deleted, err := s.repos.Submission.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return lifecycle.NotFound(msgSubmissionNotFound)
	}

	s.files.Remove(sub.ManuscriptFile)
	s.publisher.Publish(notify.Event{Type: notify.EventDeleted, SubmissionID: id, AuthorID: sub.AuthorID, From: sub.Status, At: s.now()})
	s.log.Info().Int64("submission_id", id).Int64("actor", actor.UserID).Msg("Submission deleted")
	return nil
}

// History lists the status changes of a visible submission
func (s *submissionService) History(ctx context.Context, actor lifecycle.Actor, id int64) ([]*models.StatusChange, error) {
	if _, err := s.Get(ctx, actor, id); err != nil {
		return nil, err
	}
	changes, err := s.repos.History.ListBySubmission(ctx, id)
	if err != nil {
		return nil, err
	}
	if changes == nil {
		changes = []*models.StatusChange{}
	}
	return changes, nil
}

// Certificate renders the publication certificate of a published submission
func (s *submissionService) Certificate(ctx context.Context, actor lifecycle.Actor, id int64, lang string, w io.Writer) error {
	sub, err := s.Get(ctx, actor, id)
	if err != nil {
		return err
	}
	if !lifecycle.CertificateAvailable(sub) {
		return lifecycle.Validation("Certificate is available only for published articles.")
	}
	journal, err := s.repos.Journal.GetByID(ctx, sub.JournalID)
	if err != nil {
		return err
	}

	data := certificate.Data{
		SubmissionID: sub.ID,
		AuthorName:   sub.AuthorName,
		Title:        sub.Title,
		Journal:      journal,
		PublishedAt:  sub.UpdatedAt,
	}
	if lang == "" {
		lang = sub.Language
	}
	return s.certs.Render(w, data, lang)
}

// Estimate quotes the fee actor would pay to submit pageCount pages to a journal
func (s *submissionService) Estimate(ctx context.Context, actor lifecycle.Actor, journalID int64, pageCount int) (lifecycle.Quote, error) {
	journal, err := s.repos.Journal.GetByID(ctx, journalID)
	if err != nil {
		return lifecycle.Quote{}, err
	}
	if journal == nil {
		return lifecycle.Quote{}, lifecycle.NotFound("Journal not found.")
	}

	var subscription *models.Subscription
	if !actor.Anonymous() {
		if subscription, err = s.repos.Billing.GetSubscription(ctx, actor.UserID); err != nil {
			return lifecycle.Quote{}, err
		}
	}
	return lifecycle.EstimateFee(journal, pageCount, subscription, s.now()), nil
}

// Analyze runs the text heuristics over the title and abstract. Admins only.
func (s *submissionService) Analyze(ctx context.Context, actor lifecycle.Actor, id int64) (*SubmissionAnalysis, error) {
	if !actor.IsAdmin() {
		return nil, lifecycle.Unauthorized("Only admins can analyze submissions.")
	}
	sub, err := s.repos.Submission.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	review := analysis.Summarize(sub.Title + "\n\n" + sub.Abstract)
	s.log.Debug().
		Int64("submission_id", id).
		Int("words", review.WordCount).
		Str("recommendation", string(review.Recommendation)).
		Msg("Submission analyzed")
	return &SubmissionAnalysis{SubmissionID: sub.ID, Title: sub.Title, Review: review}, nil
}
