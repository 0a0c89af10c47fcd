package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/journal-submission-api/internal/database"
	"github.com/journal-submission-api/internal/models"
	"github.com/shopspring/decimal"
)

// querier is satisfied by both *database.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
}

// UserRepository defines the interface for user data operations
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	// LockByID reads the user row FOR UPDATE; only meaningful inside WithinTx.
	LockByID(ctx context.Context, id int64) (*models.User, error)
	AdjustBalance(ctx context.Context, id int64, delta decimal.Decimal) (decimal.Decimal, error)
	CountWithBalance(ctx context.Context) (int, error)
}

// JournalRepository defines the interface for journal data operations
type JournalRepository interface {
	List(ctx context.Context) ([]*models.Journal, error)
	GetByID(ctx context.Context, id int64) (*models.Journal, error)
	GetBySlug(ctx context.Context, slug string) (*models.Journal, error)
	GetAllSlugs(ctx context.Context) ([]string, error)
	BatchInsert(ctx context.Context, journals []*models.Journal) (int, error)
}

// SubmissionQuery scopes a submission listing
type SubmissionQuery struct {
	Filter models.SubmissionFilter
	// OwnerID restricts results to one author when non-zero.
	OwnerID int64
	// PublishedOnly restricts results to PUBLISHED records.
	PublishedOnly bool
}

// SubmissionRepository defines the interface for submission data operations
type SubmissionRepository interface {
	Create(ctx context.Context, sub *models.Submission) error
	GetByID(ctx context.Context, id int64) (*models.Submission, error)
	LockByID(ctx context.Context, id int64) (*models.Submission, error)
	List(ctx context.Context, q SubmissionQuery) ([]*models.Submission, error)
	Update(ctx context.Context, sub *models.Submission) error
	Delete(ctx context.Context, id int64) (bool, error)
	Count(ctx context.Context) (int, error)
	CountByStatus(ctx context.Context) (map[models.Status]int, error)
	StreamAll(ctx context.Context, q SubmissionQuery, callback func(*models.Submission) error) error
}

// HistoryRepository defines the interface for status history operations
type HistoryRepository interface {
	Add(ctx context.Context, change *models.StatusChange) error
	ListBySubmission(ctx context.Context, submissionID int64) ([]*models.StatusChange, error)
}

// BillingRepository defines the interface for plans, subscriptions and the wallet ledger
type BillingRepository interface {
	ListPlans(ctx context.Context, activeOnly bool) ([]*models.Plan, error)
	GetPlan(ctx context.Context, id int64) (*models.Plan, error)
	GetAllPlanSlugs(ctx context.Context) ([]string, error)
	BatchInsertPlans(ctx context.Context, plans []*models.Plan) (int, error)
	GetSubscription(ctx context.Context, userID int64) (*models.Subscription, error)
	UpsertSubscription(ctx context.Context, sub *models.Subscription) error
	IncrementUsage(ctx context.Context, subscriptionID int64) error
	ExpireSubscriptions(ctx context.Context, now time.Time) (int64, error)
	ResetMonthlyUsage(ctx context.Context, now time.Time) (int64, error)
	AddTransaction(ctx context.Context, txn *models.WalletTransaction) error
	ListTransactions(ctx context.Context, userID int64, limit int) ([]*models.WalletTransaction, error)
	Revenue(ctx context.Context, since time.Time) (decimal.Decimal, error)
	PublishFees(ctx context.Context) (decimal.Decimal, error)
}

// Repositories holds all repository interfaces
type Repositories struct {
	User       UserRepository
	Journal    JournalRepository
	Submission SubmissionRepository
	History    HistoryRepository
	Billing    BillingRepository

	db *database.DB
}

// New creates all repositories with the given database connection
func New(db *database.DB) *Repositories {
	r := bind(db)
	r.db = db
	return r
}

func bind(q querier) *Repositories {
	return &Repositories{
		User:       &userRepo{db: q},
		Journal:    &journalRepo{db: q},
		Submission: &submissionRepo{db: q},
		History:    &historyRepo{db: q},
		Billing:    &billingRepo{db: q},
	}
}

// WithinTx runs fn with repositories bound to a single transaction. When the
// repositories are not backed by a database (tests), fn runs directly.
func (r *Repositories) WithinTx(ctx context.Context, fn func(tx *Repositories) error) error {
	if r.db == nil {
		return fn(r)
	}
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		return fn(bind(tx))
	})
}

// txBeginner is implemented by *database.DB but not by *sql.Tx.
type txBeginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

// copyRows prepares stmt on a transaction, opening one when q is not
// already transactional, and feeds each row through exec.
func copyRows(ctx context.Context, q querier, copyStmt string, n int, row func(i int) []any) (int, error) {
	target := q
	var tx *sql.Tx
	if b, ok := q.(txBeginner); ok {
		var err error
		tx, err = b.BeginTx(ctx, nil)
		if err != nil {
			return 0, err
		}
		defer tx.Rollback()
		target = tx
	}

	stmt, err := target.PrepareContext(ctx, copyStmt)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	inserted := 0
	for i := 0; i < n; i++ {
		if _, err := stmt.ExecContext(ctx, row(i)...); err != nil {
			continue
		}
		inserted++
	}

	// Flush the COPY buffer
	if _, err := stmt.ExecContext(ctx); err != nil {
		return 0, err
	}

	if tx != nil {
		if err := tx.Commit(); err != nil {
			return 0, err
		}
	}
	return inserted, nil
}

func nullInt64(v int64) sql.NullInt64 {
	if v == 0 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: v, Valid: true}
}
