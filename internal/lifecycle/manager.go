package lifecycle

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/journal-submission-api/internal/models"
	"github.com/rs/zerolog"
)

// DefaultTimeout bounds every store call made by a Manager.
const DefaultTimeout = 30 * time.Second

// Manager drives submissions through their lifecycle against a Store. It
// keeps a cached copy of every submission it has seen, applies mutations
// optimistically and rolls them back when the store refuses them.
//
// At most one mutation per submission is in flight at any time.
type Manager struct {
	store   Store
	session Session
	log     zerolog.Logger
	timeout time.Duration
	now     func() time.Time

	mu       sync.Mutex
	cache    map[int64]*models.Submission
	inflight map[int64]struct{}
}

// Option configures a Manager.
type Option func(*Manager)

// WithTimeout sets the per call store timeout. Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(m *Manager) { m.timeout = d }
}

// WithLogger sets the logger used for dispatch and rollback events.
func WithLogger(log zerolog.Logger) Option {
	return func(m *Manager) { m.log = log.With().Str("component", "lifecycle").Logger() }
}

// WithClock overrides time.Now, used for subscription checks in estimates.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager creates a Manager acting on behalf of session.
func NewManager(store Store, session Session, opts ...Option) *Manager {
	m := &Manager{
		store:    store,
		session:  session,
		log:      zerolog.Nop(),
		timeout:  DefaultTimeout,
		now:      time.Now,
		cache:    make(map[int64]*models.Submission),
		inflight: make(map[int64]struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Session returns the session the manager acts for.
func (m *Manager) Session() Session {
	return m.session
}

func (m *Manager) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if m.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, m.timeout)
}

// Load fetches a submission from the store and refreshes the cache.
func (m *Manager) Load(ctx context.Context, id int64) (*models.Submission, error) {
	callCtx, cancel := m.callContext(ctx)
	defer cancel()

	sub, err := m.store.Get(callCtx, id)
	if err != nil {
		if KindOf(err) == KindNotFound {
			m.forget(id)
		}
		return nil, err
	}
	if sub == nil {
		m.forget(id)
		return nil, NotFound("submission %d not found", id)
	}
	if err := checkStatus(sub); err != nil {
		return nil, err
	}
	m.remember(sub)
	return sub.Clone(), nil
}

// List queries the store and caches every returned submission.
func (m *Manager) List(ctx context.Context, filter models.SubmissionFilter) ([]*models.Submission, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, Validation("unknown status %q", string(filter.Status))
	}

	callCtx, cancel := m.callContext(ctx)
	defer cancel()

	subs, err := m.store.List(callCtx, filter)
	if err != nil {
		return nil, err
	}
	out := make([]*models.Submission, 0, len(subs))
	for _, sub := range subs {
		if sub == nil {
			continue
		}
		if err := checkStatus(sub); err != nil {
			return nil, err
		}
		m.remember(sub)
		out = append(out, sub.Clone())
	}
	return out, nil
}

// Cached returns the cached copy of a submission, if any.
func (m *Manager) Cached(id int64) (*models.Submission, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sub, ok := m.cache[id]
	return sub.Clone(), ok
}

// Processing reports whether a mutation for id is in flight.
func (m *Manager) Processing(id int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, busy := m.inflight[id]
	return busy
}

// Estimate quotes the fee for submitting pageCount pages to journal given
// the author's subscription, which may be nil.
func (m *Manager) Estimate(journal *models.Journal, pageCount int, sub *models.Subscription) Quote {
	return EstimateFee(journal, pageCount, sub, m.now())
}

// Submit creates a new submission. Nothing is cached until the store
// accepts it, so a refused create leaves local state unchanged.
func (m *Manager) Submit(ctx context.Context, draft models.SubmissionDraft, file *Upload) (*models.Submission, error) {
	if m.session.Actor.Anonymous() {
		return nil, Unauthorized("authentication required")
	}
	if err := validateDraft(draft); err != nil {
		return nil, err
	}
	if file != nil && strings.TrimSpace(file.Filename) == "" {
		return nil, Validation("manuscript file name is required")
	}

	callCtx, cancel := m.callContext(ctx)
	defer cancel()

	sub, err := m.store.Create(callCtx, draft, file)
	if err != nil {
		m.log.Warn().Err(err).Int64("journal_id", draft.JournalID).Msg("Submission refused by store")
		return nil, err
	}
	if err := checkStatus(sub); err != nil {
		return nil, err
	}
	m.remember(sub)
	m.log.Info().Int64("submission_id", sub.ID).Str("status", string(sub.Status)).Msg("Submission created")
	return sub.Clone(), nil
}

// Transition requests a status change for submission id.
func (m *Manager) Transition(ctx context.Context, id int64, req Request) (*models.Submission, error) {
	return m.mutate(ctx, id, "transition", func(current *models.Submission) (models.SubmissionPatch, error) {
		if err := ValidateRequest(m.session.Actor, current, req); err != nil {
			return models.SubmissionPatch{}, err
		}
		to := req.To
		patch := models.SubmissionPatch{Status: &to}
		if to == models.StatusRejected {
			reason := strings.TrimSpace(req.RejectionReason)
			patch.RejectionReason = &reason
		}
		return patch, nil
	})
}

// SubmitDraft moves a DRAFT to SUBMITTED. The store charges the fee.
func (m *Manager) SubmitDraft(ctx context.Context, id int64) (*models.Submission, error) {
	return m.Transition(ctx, id, Request{To: models.StatusSubmitted})
}

// StartReview moves a SUBMITTED record to UNDER_REVIEW.
func (m *Manager) StartReview(ctx context.Context, id int64) (*models.Submission, error) {
	return m.Transition(ctx, id, Request{To: models.StatusUnderReview})
}

// Accept moves a submission to ACCEPTED.
func (m *Manager) Accept(ctx context.Context, id int64) (*models.Submission, error) {
	return m.Transition(ctx, id, Request{To: models.StatusAccepted})
}

// Reject moves a submission to REJECTED with the given reason.
func (m *Manager) Reject(ctx context.Context, id int64, reason string) (*models.Submission, error) {
	return m.Transition(ctx, id, Request{To: models.StatusRejected, RejectionReason: reason})
}

// Publish moves an ACCEPTED submission to PUBLISHED.
func (m *Manager) Publish(ctx context.Context, id int64) (*models.Submission, error) {
	return m.Transition(ctx, id, Request{To: models.StatusPublished})
}

// Withdraw retracts a submission. confirmed must be true.
func (m *Manager) Withdraw(ctx context.Context, id int64, confirmed bool) (*models.Submission, error) {
	return m.Transition(ctx, id, Request{To: models.StatusWithdrawn, Confirmed: confirmed})
}

// UpdateMetadata edits title, abstract and keywords.
func (m *Manager) UpdateMetadata(ctx context.Context, id int64, patch models.SubmissionPatch) (*models.Submission, error) {
	if patch.Status != nil || patch.RejectionReason != nil {
		return nil, Validation("use a status transition to change status")
	}
	if !patch.HasMetadata() {
		return nil, Validation("nothing to update")
	}
	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		return nil, Validation("title cannot be blank")
	}
	if patch.Abstract != nil && strings.TrimSpace(*patch.Abstract) == "" {
		return nil, Validation("abstract cannot be blank")
	}
	return m.mutate(ctx, id, "edit", func(current *models.Submission) (models.SubmissionPatch, error) {
		if err := CanEditMetadata(m.session.Actor, current); err != nil {
			return models.SubmissionPatch{}, err
		}
		return patch, nil
	})
}

// Delete permanently removes a submission. Admin only.
func (m *Manager) Delete(ctx context.Context, id int64) error {
	if err := CanDelete(m.session.Actor); err != nil {
		return err
	}
	if !m.acquire(id) {
		return ErrTransitionInFlight
	}
	defer m.release(id)

	callCtx, cancel := m.callContext(ctx)
	defer cancel()

	if err := m.store.Delete(callCtx, id); err != nil {
		if KindOf(err) == KindNotFound {
			m.evict(id)
		}
		m.log.Warn().Err(err).Int64("submission_id", id).Msg("Delete refused by store")
		return err
	}
	m.evict(id)
	m.log.Info().Int64("submission_id", id).Msg("Submission deleted")
	return nil
}

// mutate runs a single optimistic patch: snapshot, plan, stage, dispatch,
// then commit or roll back.
func (m *Manager) mutate(ctx context.Context, id int64, action string, plan func(*models.Submission) (models.SubmissionPatch, error)) (*models.Submission, error) {
	tx, err := m.begin(ctx, id)
	if err != nil {
		return nil, err
	}
	defer m.release(id)

	patch, err := plan(tx.snapshot.Clone())
	if err != nil {
		return nil, err
	}
	tx.stage(patch)

	callCtx, cancel := m.callContext(ctx)
	defer cancel()

	logger := m.log.With().Int64("submission_id", id).Str("action", action).Logger()
	if patch.Status != nil {
		logger = logger.With().Str("from", string(tx.snapshot.Status)).Str("to", string(*patch.Status)).Logger()
	}

	updated, err := m.store.Patch(callCtx, id, patch)
	if err == nil && updated == nil {
		err = NotFound("submission %d not found", id)
	}
	if err == nil {
		err = checkStatus(updated)
	}
	if err != nil {
		tx.rollback(KindOf(err) == KindNotFound)
		logger.Warn().Err(err).Msg("Store refused change, local copy restored")
		return nil, err
	}

	tx.commit(updated)
	logger.Info().Msg("Change committed")
	return updated.Clone(), nil
}

type txn struct {
	m        *Manager
	id       int64
	snapshot *models.Submission
}

// begin marks id in flight and snapshots the last known good copy,
// fetching it when it is not cached.
func (m *Manager) begin(ctx context.Context, id int64) (*txn, error) {
	if !m.acquire(id) {
		return nil, ErrTransitionInFlight
	}

	m.mu.Lock()
	cached := m.cache[id].Clone()
	m.mu.Unlock()

	if cached == nil {
		callCtx, cancel := m.callContext(ctx)
		sub, err := m.store.Get(callCtx, id)
		cancel()
		if err == nil && sub == nil {
			err = NotFound("submission %d not found", id)
		}
		if err == nil {
			err = checkStatus(sub)
		}
		if err != nil {
			m.release(id)
			return nil, err
		}
		cached = sub.Clone()
		m.mu.Lock()
		m.cache[id] = sub.Clone()
		m.mu.Unlock()
	}
	return &txn{m: m, id: id, snapshot: cached}, nil
}

func (t *txn) stage(patch models.SubmissionPatch) {
	staged := t.snapshot.Clone()
	patch.Apply(staged)
	t.m.mu.Lock()
	t.m.cache[t.id] = staged
	t.m.mu.Unlock()
}

func (t *txn) commit(sub *models.Submission) {
	t.m.mu.Lock()
	t.m.cache[t.id] = sub.Clone()
	t.m.mu.Unlock()
}

func (t *txn) rollback(gone bool) {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	if gone {
		delete(t.m.cache, t.id)
		return
	}
	t.m.cache[t.id] = t.snapshot.Clone()
}

func (m *Manager) acquire(id int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, busy := m.inflight[id]; busy {
		return false
	}
	m.inflight[id] = struct{}{}
	return true
}

func (m *Manager) release(id int64) {
	m.mu.Lock()
	delete(m.inflight, id)
	m.mu.Unlock()
}

// remember caches sub unless a mutation for it is in flight; the
// transaction owns the cached copy until it finishes.
func (m *Manager) remember(sub *models.Submission) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, busy := m.inflight[sub.ID]; busy {
		return
	}
	m.cache[sub.ID] = sub.Clone()
}

// evict drops the cached copy regardless of in-flight state. Callers
// must hold the in-flight flag for id.
func (m *Manager) evict(id int64) {
	m.mu.Lock()
	delete(m.cache, id)
	m.mu.Unlock()
}

func (m *Manager) forget(id int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, busy := m.inflight[id]; busy {
		return
	}
	delete(m.cache, id)
}

func checkStatus(sub *models.Submission) error {
	if sub == nil {
		return NotFound("submission not found")
	}
	if !sub.Status.Valid() {
		return Validation("store returned unknown status %q", string(sub.Status))
	}
	return nil
}

func validateDraft(d models.SubmissionDraft) error {
	if strings.TrimSpace(d.Title) == "" {
		return Validation("title is required")
	}
	if strings.TrimSpace(d.Abstract) == "" {
		return Validation("abstract is required")
	}
	if d.JournalID <= 0 {
		return Validation("journal is required")
	}
	if d.PageCount < 0 {
		return Validation("page count cannot be negative")
	}
	if d.Language != "" {
		for _, lang := range models.Languages {
			if d.Language == lang {
				return nil
			}
		}
		return Validation("unsupported language %q", d.Language)
	}
	return nil
}
