package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/journal-submission-api/internal/models"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// billingRepo is the concrete implementation of BillingRepository
type billingRepo struct {
	db querier
}

const planColumns = `id, name, slug, price, article_limit, description, is_active`

func scanPlan(row interface{ Scan(...any) error }) (*models.Plan, error) {
	var p models.Plan
	err := row.Scan(&p.ID, &p.Name, &p.Slug, &p.Price, &p.ArticleLimit, &p.Description, &p.IsActive)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListPlans returns plans ordered by price
func (r *billingRepo) ListPlans(ctx context.Context, activeOnly bool) ([]*models.Plan, error) {
	query := `SELECT ` + planColumns + ` FROM subscription_plans`
	if activeOnly {
		query += " WHERE is_active"
	}
	query += " ORDER BY price, id"

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var plans []*models.Plan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		plans = append(plans, p)
	}
	return plans, rows.Err()
}

// GetPlan retrieves a plan by ID
func (r *billingRepo) GetPlan(ctx context.Context, id int64) (*models.Plan, error) {
	return scanPlan(r.db.QueryRowContext(ctx, `SELECT `+planColumns+` FROM subscription_plans WHERE id = $1`, id))
}

// GetAllPlanSlugs retrieves all plan slugs (for duplicate detection during import)
func (r *billingRepo) GetAllPlanSlugs(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT slug FROM subscription_plans")
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

// BatchInsertPlans inserts multiple plans using PostgreSQL COPY
func (r *billingRepo) BatchInsertPlans(ctx context.Context, plans []*models.Plan) (int, error) {
	if len(plans) == 0 {
		return 0, nil
	}
	return copyRows(ctx, r.db, pq.CopyIn("subscription_plans",
		"name", "slug", "price", "article_limit", "description", "is_active",
	), len(plans), func(i int) []any {
		p := plans[i]
		return []any{p.Name, p.Slug, p.Price.StringFixed(2), p.ArticleLimit, p.Description, p.IsActive}
	})
}

// GetSubscription returns the user's subscription with its plan, if any
func (r *billingRepo) GetSubscription(ctx context.Context, userID int64) (*models.Subscription, error) {
	query := `
		SELECT s.id, s.user_id, s.start_date, s.end_date, s.is_active, s.articles_used_this_month,
			p.id, p.name, p.slug, p.price, p.article_limit, p.description, p.is_active
		FROM subscriptions s
		JOIN subscription_plans p ON p.id = s.plan_id
		WHERE s.user_id = $1
	`
	var sub models.Subscription
	var plan models.Plan
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&sub.ID, &sub.UserID, &sub.StartDate, &sub.EndDate, &sub.IsActive, &sub.ArticlesUsedThisMonth,
		&plan.ID, &plan.Name, &plan.Slug, &plan.Price, &plan.ArticleLimit, &plan.Description, &plan.IsActive,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	sub.Plan = &plan
	return &sub, nil
}

// UpsertSubscription creates or replaces the user's subscription
func (r *billingRepo) UpsertSubscription(ctx context.Context, sub *models.Subscription) error {
	query := `
		INSERT INTO subscriptions (user_id, plan_id, start_date, end_date, is_active, articles_used_this_month, usage_period_start)
		VALUES ($1, $2, $3, $4, $5, 0, date_trunc('month', $3::timestamptz)::date)
		ON CONFLICT (user_id) DO UPDATE SET
			plan_id = EXCLUDED.plan_id,
			start_date = EXCLUDED.start_date,
			end_date = EXCLUDED.end_date,
			is_active = EXCLUDED.is_active,
			articles_used_this_month = 0,
			usage_period_start = EXCLUDED.usage_period_start
		RETURNING id
	`
	sub.ArticlesUsedThisMonth = 0
	return r.db.QueryRowContext(ctx, query,
		sub.UserID, sub.Plan.ID, sub.StartDate, sub.EndDate, sub.IsActive,
	).Scan(&sub.ID)
}

// IncrementUsage counts one more covered article against the subscription
func (r *billingRepo) IncrementUsage(ctx context.Context, subscriptionID int64) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE subscriptions SET articles_used_this_month = articles_used_this_month + 1 WHERE id = $1",
		subscriptionID)
	return err
}

// ExpireSubscriptions deactivates subscriptions whose end date has passed
func (r *billingRepo) ExpireSubscriptions(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		"UPDATE subscriptions SET is_active = FALSE WHERE is_active AND end_date <= $1", now)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// ResetMonthlyUsage zeroes usage counters that belong to an earlier month
func (r *billingRepo) ResetMonthlyUsage(ctx context.Context, now time.Time) (int64, error) {
	query := `
		UPDATE subscriptions
		SET articles_used_this_month = 0, usage_period_start = date_trunc('month', $1::timestamptz)::date
		WHERE usage_period_start < date_trunc('month', $1::timestamptz)::date
	`
	result, err := r.db.ExecContext(ctx, query, now)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// AddTransaction appends an entry to the wallet ledger
func (r *billingRepo) AddTransaction(ctx context.Context, txn *models.WalletTransaction) error {
	if txn.CreatedAt.IsZero() {
		txn.CreatedAt = time.Now()
	}
	query := `
		INSERT INTO wallet_transactions (user_id, amount, transaction_type, description, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	return r.db.QueryRowContext(ctx, query,
		txn.UserID, txn.Amount, txn.Type, txn.Description, txn.CreatedAt,
	).Scan(&txn.ID)
}

// ListTransactions returns the user's most recent wallet entries
func (r *billingRepo) ListTransactions(ctx context.Context, userID int64, limit int) ([]*models.WalletTransaction, error) {
	query := `
		SELECT id, user_id, amount, transaction_type, description, created_at
		FROM wallet_transactions WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
	`
	var rows *sql.Rows
	var err error
	if limit > 0 {
		rows, err = r.db.QueryContext(ctx, query+" LIMIT $2", userID, limit)
	} else {
		rows, err = r.db.QueryContext(ctx, query, userID)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txns []*models.WalletTransaction
	for rows.Next() {
		var t models.WalletTransaction
		if err := rows.Scan(&t.ID, &t.UserID, &t.Amount, &t.Type, &t.Description, &t.CreatedAt); err != nil {
			return nil, err
		}
		txns = append(txns, &t)
	}
	return txns, rows.Err()
}

// Revenue sums positive top-ups made at or after since
func (r *billingRepo) Revenue(ctx context.Context, since time.Time) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(amount), 0) FROM wallet_transactions
		WHERE transaction_type = $1 AND amount > 0 AND created_at >= $2
	`, models.TransactionTopUp, since).Scan(&total)
	return total, err
}

// PublishFees sums all publication fees charged
func (r *billingRepo) PublishFees(ctx context.Context) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.db.QueryRowContext(ctx, `
		SELECT COALESCE(-SUM(amount), 0) FROM wallet_transactions WHERE transaction_type = $1
	`, models.TransactionPublishFee).Scan(&total)
	return total, err
}
