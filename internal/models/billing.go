package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Plan is a subscription plan. ArticleLimit of zero means unlimited.
type Plan struct {
	ID           int64           `json:"id" db:"id"`
	Name         string          `json:"name" db:"name"`
	Slug         string          `json:"slug" db:"slug"`
	Price        decimal.Decimal `json:"price" db:"price"`
	ArticleLimit int             `json:"article_limit" db:"article_limit"`
	Description  string          `json:"description" db:"description"`
	IsActive     bool            `json:"is_active" db:"is_active"`
}

// IsFree reports whether the plan costs nothing.
func (p *Plan) IsFree() bool {
	return !p.Price.IsPositive()
}

// PlanNDJSON represents a plan record from a catalog import file
type PlanNDJSON struct {
	Name         string `json:"name" validate:"required,max=100"`
	Slug         string `json:"slug" validate:"required,slug"`
	Price        string `json:"price" validate:"required,money"`
	ArticleLimit int    `json:"article_limit" validate:"gte=0"`
	Description  string `json:"description"`
	IsActive     *bool  `json:"is_active,omitempty"`
}

// Subscription ties a user to a plan for a period
type Subscription struct {
	ID                    int64     `json:"id" db:"id"`
	UserID                int64     `json:"user" db:"user_id"`
	Plan                  *Plan     `json:"plan,omitempty" db:"-"`
	StartDate             time.Time `json:"start_date" db:"start_date"`
	EndDate               time.Time `json:"end_date" db:"end_date"`
	IsActive              bool      `json:"is_active" db:"is_active"`
	ArticlesUsedThisMonth int       `json:"articles_used_this_month" db:"articles_used_this_month"`
}

// ActiveAt reports whether the subscription is active and unexpired at now.
func (s *Subscription) ActiveAt(now time.Time) bool {
	return s != nil && s.IsActive && s.EndDate.After(now)
}

// TransactionType classifies wallet movements
type TransactionType string

const (
	TransactionPublishFee   TransactionType = "PUBLISH_FEE"
	TransactionTopUp        TransactionType = "TOP_UP"
	TransactionSubscription TransactionType = "SUBSCRIPTION"
	TransactionAdjustment   TransactionType = "ADJUSTMENT"
)

// WalletTransaction is a signed balance movement
type WalletTransaction struct {
	ID          int64           `json:"id" db:"id"`
	UserID      int64           `json:"user" db:"user_id"`
	Amount      decimal.Decimal `json:"amount" db:"amount"`
	Type        TransactionType `json:"transaction_type" db:"transaction_type"`
	Description string          `json:"description" db:"description"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
}

// SubscribeRequest is the body of POST /api/billing/subscribe/
type SubscribeRequest struct {
	PlanID int64 `json:"plan_id" validate:"required,gt=0"`
}

// AdjustBalanceRequest is the body of POST /api/billing/adjust-balance/
type AdjustBalanceRequest struct {
	UserID int64  `json:"user_id" validate:"required,gt=0"`
	Amount string `json:"amount" validate:"required,amount"`
	Note   string `json:"note" validate:"max=255"`
}

// FinanceSummary aggregates top-up revenue and fee income
type FinanceSummary struct {
	TotalRevenue     decimal.Decimal `json:"total_revenue"`
	MonthlyRevenue   decimal.Decimal `json:"monthly_revenue"`
	YearlyRevenue    decimal.Decimal `json:"yearly_revenue"`
	PublishFees      decimal.Decimal `json:"publish_fees"`
	UsersWithBalance int             `json:"users_with_balance"`
	SubmissionCounts map[Status]int  `json:"submission_counts"`
}
