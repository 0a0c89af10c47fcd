package mocks

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/journal-submission-api/internal/models"
	"github.com/journal-submission-api/internal/repository"
	"github.com/shopspring/decimal"
)

// Verify interface compliance
var (
	_ repository.UserRepository       = (*MockUserRepository)(nil)
	_ repository.JournalRepository    = (*MockJournalRepository)(nil)
	_ repository.SubmissionRepository = (*MockSubmissionRepository)(nil)
	_ repository.HistoryRepository    = (*MockHistoryRepository)(nil)
	_ repository.BillingRepository    = (*MockBillingRepository)(nil)
)

// MockUserRepository is a mock implementation of UserRepository
type MockUserRepository struct {
	mu          sync.Mutex
	Users       map[int64]*models.User
	InsertError error
	nextID      int64
}

func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{Users: make(map[int64]*models.User), nextID: 1}
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.InsertError != nil {
		return m.InsertError
	}
	if user.ID == 0 {
		user.ID = m.nextID
	}
	if user.ID >= m.nextID {
		m.nextID = user.ID + 1
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}
	cp := *user
	m.Users[user.ID] = &cp
	return nil
}

func (m *MockUserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.Users[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (m *MockUserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.Users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *MockUserRepository) UsernameExists(ctx context.Context, username string) (bool, error) {
	u, err := m.GetByUsername(ctx, username)
	return u != nil, err
}

func (m *MockUserRepository) LockByID(ctx context.Context, id int64) (*models.User, error) {
	return m.GetByID(ctx, id)
}

func (m *MockUserRepository) AdjustBalance(ctx context.Context, id int64, delta decimal.Decimal) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.Users[id]
	if !ok {
		return decimal.Zero, nil
	}
	u.Balance = u.Balance.Add(delta)
	return u.Balance, nil
}

func (m *MockUserRepository) CountWithBalance(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, u := range m.Users {
		if u.Balance.IsPositive() {
			n++
		}
	}
	return n, nil
}

// Balance returns the stored balance of a user
func (m *MockUserRepository) Balance(id int64) decimal.Decimal {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.Users[id]; ok {
		return u.Balance
	}
	return decimal.Zero
}

// MockJournalRepository is a mock implementation of JournalRepository
type MockJournalRepository struct {
	mu               sync.Mutex
	Journals         map[int64]*models.Journal
	InsertError      error
	BatchInsertCalls int
	nextID           int64
}

func NewMockJournalRepository() *MockJournalRepository {
	return &MockJournalRepository{Journals: make(map[int64]*models.Journal), nextID: 1}
}

// Add stores a journal, assigning an ID when missing
func (m *MockJournalRepository) Add(j *models.Journal) *models.Journal {
	m.mu.Lock()
	defer m.mu.Unlock()
	if j.ID == 0 {
		j.ID = m.nextID
	}
	if j.ID >= m.nextID {
		m.nextID = j.ID + 1
	}
	m.Journals[j.ID] = j
	return j
}

func (m *MockJournalRepository) List(ctx context.Context) ([]*models.Journal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.Journal, 0, len(m.Journals))
	for _, j := range m.Journals {
		out = append(out, j)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].NameEN < out[b].NameEN })
	return out, nil
}

func (m *MockJournalRepository) GetByID(ctx context.Context, id int64) (*models.Journal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Journals[id], nil
}

func (m *MockJournalRepository) GetBySlug(ctx context.Context, slug string) (*models.Journal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, j := range m.Journals {
		if j.Slug == slug {
			return j, nil
		}
	}
	return nil, nil
}

func (m *MockJournalRepository) GetAllSlugs(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	slugs := make([]string, 0, len(m.Journals))
	for _, j := range m.Journals {
		slugs = append(slugs, j.Slug)
	}
	return slugs, nil
}

func (m *MockJournalRepository) BatchInsert(ctx context.Context, journals []*models.Journal) (int, error) {
	m.BatchInsertCalls++
	if m.InsertError != nil {
		return 0, m.InsertError
	}
	for _, j := range journals {
		m.Add(j)
	}
	return len(journals), nil
}

// MockSubmissionRepository is a mock implementation of SubmissionRepository.
// When Users or Journals are set, reads fill the joined display fields.
type MockSubmissionRepository struct {
	mu          sync.Mutex
	Submissions map[int64]*models.Submission
	Users       *MockUserRepository
	Journals    *MockJournalRepository
	UpdateError error
	nextID      int64
}

func NewMockSubmissionRepository() *MockSubmissionRepository {
	return &MockSubmissionRepository{Submissions: make(map[int64]*models.Submission), nextID: 1}
}

func (m *MockSubmissionRepository) Create(ctx context.Context, sub *models.Submission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if sub.ID == 0 {
		sub.ID = m.nextID
	}
	if sub.ID >= m.nextID {
		m.nextID = sub.ID + 1
	}
	now := time.Now()
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = now
	}
	sub.UpdatedAt = now
	if sub.Language == "" {
		sub.Language = models.DefaultLanguage
	}
	m.Submissions[sub.ID] = sub.Clone()
	return nil
}

func (m *MockSubmissionRepository) joined(sub *models.Submission) *models.Submission {
	cp := sub.Clone()
	if m.Users != nil {
		if u, _ := m.Users.GetByID(context.Background(), cp.AuthorID); u != nil {
			cp.AuthorName = u.FullName()
		}
	}
	if m.Journals != nil {
		if j, _ := m.Journals.GetByID(context.Background(), cp.JournalID); j != nil {
			cp.JournalName = j.NameEN
			cp.JournalSlug = j.Slug
		}
	}
	return cp
}

func (m *MockSubmissionRepository) GetByID(ctx context.Context, id int64) (*models.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sub, ok := m.Submissions[id]
	if !ok {
		return nil, nil
	}
	return m.joined(sub), nil
}

func (m *MockSubmissionRepository) LockByID(ctx context.Context, id int64) (*models.Submission, error) {
	return m.GetByID(ctx, id)
}

func matches(sub *models.Submission, q repository.SubmissionQuery) bool {
	f := q.Filter
	switch {
	case q.PublishedOnly && sub.Status != models.StatusPublished,
		q.OwnerID != 0 && sub.AuthorID != q.OwnerID,
		f.Status != "" && sub.Status != f.Status,
		f.JournalID != 0 && sub.JournalID != f.JournalID,
		f.AuthorID != 0 && sub.AuthorID != f.AuthorID,
		f.Language != "" && sub.Language != f.Language:
		return false
	}
	if f.AuthorName != "" && !strings.Contains(strings.ToLower(sub.AuthorName), strings.ToLower(f.AuthorName)) {
		return false
	}
	if f.Search != "" {
		needle := strings.ToLower(f.Search)
		hay := strings.ToLower(sub.Title + " " + sub.Abstract + " " + sub.Keywords + " " + sub.AuthorName)
		if !strings.Contains(hay, needle) {
			return false
		}
	}
	return true
}

func (m *MockSubmissionRepository) sorted(q repository.SubmissionQuery, newestFirst bool) []*models.Submission {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Submission
	for _, sub := range m.Submissions {
		if j := m.joined(sub); matches(j, q) {
			out = append(out, j)
		}
	}
	sort.Slice(out, func(a, b int) bool {
		if newestFirst {
			return out[a].ID > out[b].ID
		}
		return out[a].ID < out[b].ID
	})
	return out
}

func (m *MockSubmissionRepository) List(ctx context.Context, q repository.SubmissionQuery) ([]*models.Submission, error) {
	return m.sorted(q, true), nil
}

func (m *MockSubmissionRepository) Update(ctx context.Context, sub *models.Submission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.UpdateError != nil {
		return m.UpdateError
	}
	if _, ok := m.Submissions[sub.ID]; !ok {
		return nil
	}
	sub.UpdatedAt = time.Now()
	m.Submissions[sub.ID] = sub.Clone()
	return nil
}

func (m *MockSubmissionRepository) Delete(ctx context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Submissions[id]; !ok {
		return false, nil
	}
	delete(m.Submissions, id)
	return true, nil
}

func (m *MockSubmissionRepository) Count(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Submissions), nil
}

func (m *MockSubmissionRepository) CountByStatus(ctx context.Context) (map[models.Status]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := make(map[models.Status]int)
	for _, sub := range m.Submissions {
		counts[sub.Status]++
	}
	return counts, nil
}

func (m *MockSubmissionRepository) StreamAll(ctx context.Context, q repository.SubmissionQuery, callback func(*models.Submission) error) error {
	for _, sub := range m.sorted(q, false) {
		if err := callback(sub); err != nil {
			return err
		}
	}
	return nil
}

// MockHistoryRepository is a mock implementation of HistoryRepository
type MockHistoryRepository struct {
	mu      sync.Mutex
	Changes []*models.StatusChange
}

func NewMockHistoryRepository() *MockHistoryRepository {
	return &MockHistoryRepository{}
}

func (m *MockHistoryRepository) Add(ctx context.Context, change *models.StatusChange) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	change.ID = int64(len(m.Changes) + 1)
	if change.CreatedAt.IsZero() {
		change.CreatedAt = time.Now()
	}
	m.Changes = append(m.Changes, change)
	return nil
}

func (m *MockHistoryRepository) ListBySubmission(ctx context.Context, submissionID int64) ([]*models.StatusChange, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.StatusChange
	for _, c := range m.Changes {
		if c.SubmissionID == submissionID {
			out = append(out, c)
		}
	}
	return out, nil
}

// MockBillingRepository is a mock implementation of BillingRepository
type MockBillingRepository struct {
	mu            sync.Mutex
	Plans         map[int64]*models.Plan
	Subscriptions map[int64]*models.Subscription // by user ID
	Transactions  []*models.WalletTransaction
	ExpireCalls   int
	ResetCalls    int
	ExpireResult  int64
	ResetResult   int64
	SweepError    error
	nextPlanID    int64
}

func NewMockBillingRepository() *MockBillingRepository {
	return &MockBillingRepository{
		Plans:         make(map[int64]*models.Plan),
		Subscriptions: make(map[int64]*models.Subscription),
		nextPlanID:    1,
	}
}

// AddPlan stores a plan, assigning an ID when missing
func (m *MockBillingRepository) AddPlan(p *models.Plan) *models.Plan {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID == 0 {
		p.ID = m.nextPlanID
	}
	if p.ID >= m.nextPlanID {
		m.nextPlanID = p.ID + 1
	}
	m.Plans[p.ID] = p
	return p
}

func (m *MockBillingRepository) ListPlans(ctx context.Context, activeOnly bool) ([]*models.Plan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Plan
	for _, p := range m.Plans {
		if !activeOnly || p.IsActive {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Price.LessThan(out[b].Price) })
	return out, nil
}

func (m *MockBillingRepository) GetPlan(ctx context.Context, id int64) (*models.Plan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Plans[id], nil
}

func (m *MockBillingRepository) GetAllPlanSlugs(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	slugs := make([]string, 0, len(m.Plans))
	for _, p := range m.Plans {
		slugs = append(slugs, p.Slug)
	}
	return slugs, nil
}

func (m *MockBillingRepository) BatchInsertPlans(ctx context.Context, plans []*models.Plan) (int, error) {
	for _, p := range plans {
		m.AddPlan(p)
	}
	return len(plans), nil
}

func (m *MockBillingRepository) GetSubscription(ctx context.Context, userID int64) (*models.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sub, ok := m.Subscriptions[userID]
	if !ok {
		return nil, nil
	}
	cp := *sub
	return &cp, nil
}

func (m *MockBillingRepository) UpsertSubscription(ctx context.Context, sub *models.Subscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.Subscriptions[sub.UserID]; ok {
		sub.ID = existing.ID
	} else {
		sub.ID = int64(len(m.Subscriptions) + 1)
	}
	sub.ArticlesUsedThisMonth = 0
	cp := *sub
	m.Subscriptions[sub.UserID] = &cp
	return nil
}

func (m *MockBillingRepository) IncrementUsage(ctx context.Context, subscriptionID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, sub := range m.Subscriptions {
		if sub.ID == subscriptionID {
			sub.ArticlesUsedThisMonth++
		}
	}
	return nil
}

func (m *MockBillingRepository) ExpireSubscriptions(ctx context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ExpireCalls++
	if m.SweepError != nil {
		return 0, m.SweepError
	}
	n := m.ExpireResult
	for _, sub := range m.Subscriptions {
		if sub.IsActive && !sub.EndDate.After(now) {
			sub.IsActive = false
			n++
		}
	}
	return n, nil
}

func (m *MockBillingRepository) ResetMonthlyUsage(ctx context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ResetCalls++
	if m.SweepError != nil {
		return 0, m.SweepError
	}
	return m.ResetResult, nil
}

// SweepCalls reports how often the housekeeping queries ran
func (m *MockBillingRepository) SweepCalls() (expire, reset int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ExpireCalls, m.ResetCalls
}

func (m *MockBillingRepository) AddTransaction(ctx context.Context, txn *models.WalletTransaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	txn.ID = int64(len(m.Transactions) + 1)
	if txn.CreatedAt.IsZero() {
		txn.CreatedAt = time.Now()
	}
	m.Transactions = append(m.Transactions, txn)
	return nil
}

func (m *MockBillingRepository) ListTransactions(ctx context.Context, userID int64, limit int) ([]*models.WalletTransaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.WalletTransaction
	for i := len(m.Transactions) - 1; i >= 0; i-- {
		if t := m.Transactions[i]; t.UserID == userID {
			out = append(out, t)
			if limit > 0 && len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (m *MockBillingRepository) Revenue(ctx context.Context, since time.Time) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := decimal.Zero
	for _, t := range m.Transactions {
		if t.Type == models.TransactionTopUp && t.Amount.IsPositive() && !t.CreatedAt.Before(since) {
			total = total.Add(t.Amount)
		}
	}
	return total, nil
}

func (m *MockBillingRepository) PublishFees(ctx context.Context) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := decimal.Zero
	for _, t := range m.Transactions {
		if t.Type == models.TransactionPublishFee {
			total = total.Sub(t.Amount)
		}
	}
	return total, nil
}

// Repos bundles one mock per repository
type Repos struct {
	User       *MockUserRepository
	Journal    *MockJournalRepository
	Submission *MockSubmissionRepository
	History    *MockHistoryRepository
	Billing    *MockBillingRepository
}

// NewMockRepos creates linked mocks; submission reads join users and journals.
func NewMockRepos() *Repos {
	r := &Repos{
		User:       NewMockUserRepository(),
		Journal:    NewMockJournalRepository(),
		Submission: NewMockSubmissionRepository(),
		History:    NewMockHistoryRepository(),
		Billing:    NewMockBillingRepository(),
	}
	r.Submission.Users = r.User
	r.Submission.Journals = r.Journal
	return r
}

// Repositories exposes the mocks through the repository container
func (r *Repos) Repositories() *repository.Repositories {
	return &repository.Repositories{
		User:       r.User,
		Journal:    r.Journal,
		Submission: r.Submission,
		History:    r.History,
		Billing:    r.Billing,
	}
}
