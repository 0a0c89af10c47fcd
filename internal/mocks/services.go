package mocks

import (
	"context"
	"io"
	"net/http"
	"sync"

	"github.com/journal-submission-api/internal/analysis"
	"github.com/journal-submission-api/internal/lifecycle"
	"github.com/journal-submission-api/internal/models"
	"github.com/journal-submission-api/internal/service"
)

// Verify interface compliance
var (
	_ service.AuthService       = (*MockAuthService)(nil)
	_ service.SubmissionService = (*MockSubmissionService)(nil)
	_ service.CatalogService    = (*MockCatalogService)(nil)
	_ service.BillingService    = (*MockBillingService)(nil)
	_ service.ExportService     = (*MockExportService)(nil)
	_ service.SweeperService    = (*MockSweeperService)(nil)
)

// MockAuthService is a mock implementation of AuthService
type MockAuthService struct {
	RegisterFunc func(ctx context.Context, req *models.RegisterRequest) (*models.User, error)
	LoginFunc    func(ctx context.Context, req *models.LoginRequest) (*models.TokenResponse, error)
	MeFunc       func(ctx context.Context, actor lifecycle.Actor) (*models.User, error)
}

func (m *MockAuthService) Register(ctx context.Context, req *models.RegisterRequest) (*models.User, error) {
	if m.RegisterFunc != nil {
		return m.RegisterFunc(ctx, req)
	}
	return &models.User{ID: 1, Username: req.Username, Email: req.Email, Role: models.RoleAuthor}, nil
}

func (m *MockAuthService) Login(ctx context.Context, req *models.LoginRequest) (*models.TokenResponse, error) {
	if m.LoginFunc != nil {
		return m.LoginFunc(ctx, req)
	}
	return nil, lifecycle.Unauthorized("No active account found with the given credentials")
}

func (m *MockAuthService) Me(ctx context.Context, actor lifecycle.Actor) (*models.User, error) {
	if m.MeFunc != nil {
		return m.MeFunc(ctx, actor)
	}
	return &models.User{ID: actor.UserID, Role: actor.Role}, nil
}

// MockSubmissionService is a mock implementation of SubmissionService.
// Unset funcs fall back to an in-memory map keyed by ID.
type MockSubmissionService struct {
	CreateFunc      func(ctx context.Context, actor lifecycle.Actor, draft models.SubmissionDraft, file *lifecycle.Upload) (*models.Submission, error)
	PatchFunc       func(ctx context.Context, actor lifecycle.Actor, id int64, patch models.SubmissionPatch) (*models.Submission, error)
	DeleteFunc      func(ctx context.Context, actor lifecycle.Actor, id int64) error
	CertificateFunc func(ctx context.Context, actor lifecycle.Actor, id int64, lang string, w io.Writer) error
	EstimateFunc    func(ctx context.Context, actor lifecycle.Actor, journalID int64, pageCount int) (lifecycle.Quote, error)

	mu          sync.Mutex
	Submissions map[int64]*models.Submission
	Uploads     []string
	Patches     []models.SubmissionPatch
}

func NewMockSubmissionService() *MockSubmissionService {
	return &MockSubmissionService{Submissions: make(map[int64]*models.Submission)}
}

func (m *MockSubmissionService) Create(ctx context.Context, actor lifecycle.Actor, draft models.SubmissionDraft, file *lifecycle.Upload) (*models.Submission, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, actor, draft, file)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	sub := &models.Submission{
		ID:        int64(len(m.Submissions) + 1),
		Title:     draft.Title,
		Abstract:  draft.Abstract,
		Keywords:  draft.Keywords,
		AuthorID:  actor.UserID,
		JournalID: draft.JournalID,
		PageCount: draft.PageCount,
		Language:  draft.Language,
		Status:    models.StatusDraft,
	}
	if file != nil {
		m.Uploads = append(m.Uploads, file.Filename)
		sub.ManuscriptFile = file.Filename
		if !draft.SaveAsDraft {
			sub.Status = models.StatusSubmitted
		}
	}
	m.Submissions[sub.ID] = sub
	return sub.Clone(), nil
}

func (m *MockSubmissionService) Get(ctx context.Context, actor lifecycle.Actor, id int64) (*models.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sub, ok := m.Submissions[id]
	if !ok {
		return nil, lifecycle.NotFound("Submission not found.")
	}
	return sub.Clone(), nil
}

func (m *MockSubmissionService) List(ctx context.Context, actor lifecycle.Actor, filter models.SubmissionFilter) ([]*models.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.Submission, 0, len(m.Submissions))
	for _, sub := range m.Submissions {
		if filter.Status != "" && sub.Status != filter.Status {
			continue
		}
		out = append(out, sub.Clone())
	}
	return out, nil
}

func (m *MockSubmissionService) Patch(ctx context.Context, actor lifecycle.Actor, id int64, patch models.SubmissionPatch) (*models.Submission, error) {
	m.mu.Lock()
	m.Patches = append(m.Patches, patch)
	m.mu.Unlock()
	if m.PatchFunc != nil {
		return m.PatchFunc(ctx, actor, id, patch)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	sub, ok := m.Submissions[id]
	if !ok {
		return nil, lifecycle.NotFound("Submission not found.")
	}
	patch.Apply(sub)
	return sub.Clone(), nil
}

func (m *MockSubmissionService) Withdraw(ctx context.Context, actor lifecycle.Actor, id int64) (*models.Submission, error) {
	status := models.StatusWithdrawn
	return m.Patch(ctx, actor, id, models.SubmissionPatch{Status: &status})
}

func (m *MockSubmissionService) Delete(ctx context.Context, actor lifecycle.Actor, id int64) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, actor, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Submissions[id]; !ok {
		return lifecycle.NotFound("Submission not found.")
	}
	delete(m.Submissions, id)
	return nil
}

func (m *MockSubmissionService) History(ctx context.Context, actor lifecycle.Actor, id int64) ([]*models.StatusChange, error) {
	sub, err := m.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	return []*models.StatusChange{{ID: 1, SubmissionID: id, ToStatus: sub.Status}}, nil
}

func (m *MockSubmissionService) Certificate(ctx context.Context, actor lifecycle.Actor, id int64, lang string, w io.Writer) error {
	if m.CertificateFunc != nil {
		return m.CertificateFunc(ctx, actor, id, lang, w)
	}
	_, err := io.WriteString(w, "%PDF-1.3 "+lang)
	return err
}

func (m *MockSubmissionService) Estimate(ctx context.Context, actor lifecycle.Actor, journalID int64, pageCount int) (lifecycle.Quote, error) {
	if m.EstimateFunc != nil {
		return m.EstimateFunc(ctx, actor, journalID, pageCount)
	}
	return lifecycle.Quote{}, nil
}

func (m *MockSubmissionService) Analyze(ctx context.Context, actor lifecycle.Actor, id int64) (*service.SubmissionAnalysis, error) {
	if !actor.IsAdmin() {
		return nil, lifecycle.Unauthorized("Only admins can analyze submissions.")
	}
	sub, err := m.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	return &service.SubmissionAnalysis{SubmissionID: sub.ID, Title: sub.Title, Review: analysis.Summarize(sub.Title + "\n\n" + sub.Abstract)}, nil
}

// MockCatalogService is a mock implementation of CatalogService
type MockCatalogService struct {
	JournalList []*models.Journal
	ImportFunc  func(ctx context.Context, resource string, r io.Reader) (*models.CatalogImportResult, error)
}

func (m *MockCatalogService) Journals(ctx context.Context) ([]*models.Journal, error) {
	return m.JournalList, nil
}

func (m *MockCatalogService) Journal(ctx context.Context, slug string) (*models.Journal, error) {
	for _, j := range m.JournalList {
		if j.Slug == slug {
			return j, nil
		}
	}
	return nil, lifecycle.NotFound("Journal not found.")
}

func (m *MockCatalogService) Import(ctx context.Context, resource string, r io.Reader) (*models.CatalogImportResult, error) {
	if m.ImportFunc != nil {
		return m.ImportFunc(ctx, resource, r)
	}
	return &models.CatalogImportResult{Resource: resource}, nil
}

// MockBillingService is a mock implementation of BillingService
type MockBillingService struct {
	PlanList         []*models.Plan
	Subscription     *models.Subscription
	SubscribeFunc    func(ctx context.Context, actor lifecycle.Actor, planID int64) (*models.Subscription, error)
	AdjustFunc       func(ctx context.Context, actor lifecycle.Actor, req *models.AdjustBalanceRequest) (*models.User, error)
	TransactionList  []*models.WalletTransaction
	Summary          *models.FinanceSummary
	TransactionLimit int
}

func (m *MockBillingService) Plans(ctx context.Context) ([]*models.Plan, error) {
	return m.PlanList, nil
}

func (m *MockBillingService) MySubscription(ctx context.Context, actor lifecycle.Actor) (*models.Subscription, error) {
	if actor.Anonymous() {
		return nil, lifecycle.Unauthorized("Authentication credentials were not provided.")
	}
	if m.Subscription == nil {
		return nil, lifecycle.NotFound("No active subscription")
	}
	return m.Subscription, nil
}

func (m *MockBillingService) Subscribe(ctx context.Context, actor lifecycle.Actor, planID int64) (*models.Subscription, error) {
	if m.SubscribeFunc != nil {
		return m.SubscribeFunc(ctx, actor, planID)
	}
	return &models.Subscription{ID: 1, UserID: actor.UserID, IsActive: true}, nil
}

func (m *MockBillingService) AdjustBalance(ctx context.Context, actor lifecycle.Actor, req *models.AdjustBalanceRequest) (*models.User, error) {
	if m.AdjustFunc != nil {
		return m.AdjustFunc(ctx, actor, req)
	}
	if !actor.IsAdmin() {
		return nil, lifecycle.Unauthorized("Only admins can adjust balances.")
	}
	return &models.User{ID: req.UserID}, nil
}

func (m *MockBillingService) Transactions(ctx context.Context, actor lifecycle.Actor, limit int) ([]*models.WalletTransaction, error) {
	m.TransactionLimit = limit
	return m.TransactionList, nil
}

func (m *MockBillingService) FinanceSummary(ctx context.Context, actor lifecycle.Actor) (*models.FinanceSummary, error) {
	if !actor.IsAdmin() {
		return nil, lifecycle.Unauthorized("Only admins can view the finance summary.")
	}
	if m.Summary == nil {
		return &models.FinanceSummary{SubmissionCounts: map[models.Status]int{}}, nil
	}
	return m.Summary, nil
}

// MockExportService is a mock implementation of ExportService
type MockExportService struct {
	StreamFunc func(ctx context.Context, actor lifecycle.Actor, w http.ResponseWriter, format string, filter models.SubmissionFilter) error
	Counts     map[string]int
}

func NewMockExportService() *MockExportService {
	return &MockExportService{Counts: make(map[string]int)}
}

func (m *MockExportService) StreamSubmissions(ctx context.Context, actor lifecycle.Actor, w http.ResponseWriter, format string, filter models.SubmissionFilter) error {
	if m.StreamFunc != nil {
		return m.StreamFunc(ctx, actor, w, format, filter)
	}
	w.Header().Set("Content-Type", "application/x-ndjson")
	w.WriteHeader(http.StatusOK)
	return nil
}

func (m *MockExportService) GetCount(ctx context.Context, resource string) (int, error) {
	return m.Counts[resource], nil
}

// MockSweeperService is a mock implementation of SweeperService
type MockSweeperService struct {
	mu      sync.Mutex
	Started bool
	Stopped bool
	Sweeps  int
}

func (m *MockSweeperService) StartProcessor(ctx context.Context) {
	m.mu.Lock()
	m.Started = true
	m.mu.Unlock()
	<-ctx.Done()
}

func (m *MockSweeperService) StopProcessor() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Stopped = true
}

func (m *MockSweeperService) Sweep(ctx context.Context) (*service.SweepResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sweeps++
	return &service.SweepResult{}, nil
}
