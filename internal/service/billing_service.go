package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/journal-submission-api/internal/config"
	"github.com/journal-submission-api/internal/lifecycle"
	"github.com/journal-submission-api/internal/models"
	"github.com/journal-submission-api/internal/repository"
	"github.com/journal-submission-api/internal/validation"
	"github.com/rs/zerolog"
)

const defaultTransactionLimit = 50

// billingService is the concrete implementation of BillingService
type billingService struct {
	repos            *repository.Repositories
	validator        *validation.Validator
	subscriptionDays int
	now              func() time.Time
	log              zerolog.Logger
}

func newBillingService(repos *repository.Repositories, cfg *config.Config, deps Deps, log zerolog.Logger) *billingService {
	days := cfg.Billing.SubscriptionDays
	if days <= 0 {
		days = 30
	}
	return &billingService{
		repos:            repos,
		validator:        validation.NewValidator(),
		subscriptionDays: days,
		now:              deps.Clock,
		log:              log.With().Str("service", "billing").Logger(),
	}
}

// Plans lists the active subscription plans
func (s *billingService) Plans(ctx context.Context) ([]*models.Plan, error) {
	plans, err := s.repos.Billing.ListPlans(ctx, true)
	if err != nil {
		return nil, err
	}
	if plans == nil {
		plans = []*models.Plan{}
	}
	return plans, nil
}

// MySubscription returns the actor's active subscription
func (s *billingService) MySubscription(ctx context.Context, actor lifecycle.Actor) (*models.Subscription, error) {
	if actor.Anonymous() {
		return nil, lifecycle.Unauthorized("Authentication credentials were not provided.")
	}
	sub, err := s.repos.Billing.GetSubscription(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	if !sub.ActiveAt(s.now()) {
		return nil, lifecycle.NotFound("No active subscription")
	}
	return sub, nil
}

// Subscribe starts or replaces the actor's subscription. Payment is
// approved immediately; there is no gateway behind it.
func (s *billingService) Subscribe(ctx context.Context, actor lifecycle.Actor, planID int64) (*models.Subscription, error) {
	if actor.Anonymous() {
		return nil, lifecycle.Unauthorized("Authentication credentials were not provided.")
	}
	plan, err := s.repos.Billing.GetPlan(ctx, planID)
	if err != nil {
		return nil, err
	}
	if plan == nil || !plan.IsActive {
		return nil, lifecycle.NotFound("Plan not found")
	}

	now := s.now()
	sub := &models.Subscription{
		UserID:    actor.UserID,
		Plan:      plan,
		StartDate: now,
		EndDate:   now.AddDate(0, 0, s.subscriptionDays),
		IsActive:  true,
	}

	err = s.repos.WithinTx(ctx, func(tx *repository.Repositories) error {
		if err := tx.Billing.UpsertSubscription(ctx, sub); err != nil {
			return fmt.Errorf("upsert subscription: %w", err)
		}
		return tx.Billing.AddTransaction(ctx, &models.WalletTransaction{
			UserID:      actor.UserID,
			Amount:      plan.Price,
			Type:        models.TransactionSubscription,
			Description: fmt.Sprintf("Subscription to %s", plan.Name),
			CreatedAt:   now,
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Int64("user_id", actor.UserID).Str("plan", plan.Slug).Time("end_date", sub.EndDate).Msg("Subscribed")
	return sub, nil
}

// AdjustBalance credits or debits a user's balance (admins only). Positive
// amounts are recorded as top-ups.
func (s *billingService) AdjustBalance(ctx context.Context, actor lifecycle.Actor, req *models.AdjustBalanceRequest) (*models.User, error) {
	if !actor.IsAdmin() {
		return nil, lifecycle.Unauthorized("Only administrators can adjust balances.")
	}
	if errs := s.validator.Struct(req); len(errs) > 0 {
		return nil, validationFailed(errs)
	}
	amount, err := validation.ParseMoney(req.Amount)
	if err != nil {
		return nil, lifecycle.Validation("%s", err.Error())
	}

	var user *models.User
	err = s.repos.WithinTx(ctx, func(tx *repository.Repositories) error {
		u, err := tx.User.LockByID(ctx, req.UserID)
		if err != nil {
			return err
		}
		if u == nil {
			return lifecycle.NotFound("User not found.")
		}
		if u.Balance.Add(amount).IsNegative() {
			return lifecycle.Validation("Balance cannot become negative.")
		}

		if u.Balance, err = tx.User.AdjustBalance(ctx, u.ID, amount); err != nil {
			return fmt.Errorf("adjust balance: %w", err)
		}

		kind := models.TransactionAdjustment
		if amount.IsPositive() {
			kind = models.TransactionTopUp
		}
		description := strings.TrimSpace(req.Note)
		if description == "" {
			description = fmt.Sprintf("Balance adjusted by admin %d", actor.UserID)
		}
		if err := tx.Billing.AddTransaction(ctx, &models.WalletTransaction{
			UserID:      u.ID,
			Amount:      amount,
			Type:        kind,
			Description: description,
			CreatedAt:   s.now(),
		}); err != nil {
			return fmt.Errorf("record transaction: %w", err)
		}
		user = u
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Int64("user_id", user.ID).
		Str("amount", amount.StringFixed(2)).
		Str("balance", user.Balance.StringFixed(2)).
		Int64("admin", actor.UserID).
		Msg("Balance adjusted")
	return user, nil
}

// Transactions lists the actor's latest wallet movements
func (s *billingService) Transactions(ctx context.Context, actor lifecycle.Actor, limit int) ([]*models.WalletTransaction, error) {
	if actor.Anonymous() {
		return nil, lifecycle.Unauthorized("Authentication credentials were not provided.")
	}
	if limit <= 0 || limit > 500 {
		limit = defaultTransactionLimit
	}
	txns, err := s.repos.Billing.ListTransactions(ctx, actor.UserID, limit)
	if err != nil {
		return nil, err
	}
	if txns == nil {
		txns = []*models.WalletTransaction{}
	}
	return txns, nil
}

// FinanceSummary aggregates revenue for the finance dashboard (admins only)
func (s *billingService) FinanceSummary(ctx context.Context, actor lifecycle.Actor) (*models.FinanceSummary, error) {
	if !actor.IsAdmin() {
		return nil, lifecycle.Unauthorized("Only administrators can view finance data.")
	}

	now := s.now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	yearStart := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location())

	var (
		summary models.FinanceSummary
		err     error
	)
	if summary.TotalRevenue, err = s.repos.Billing.Revenue(ctx, time.Time{}); err != nil {
		return nil, err
	}
	if summary.MonthlyRevenue, err = s.repos.Billing.Revenue(ctx, monthStart); err != nil {
		return nil, err
	}
	if summary.YearlyRevenue, err = s.repos.Billing.Revenue(ctx, yearStart); err != nil {
		return nil, err
	}
	if summary.PublishFees, err = s.repos.Billing.PublishFees(ctx); err != nil {
		return nil, err
	}
	if summary.UsersWithBalance, err = s.repos.User.CountWithBalance(ctx); err != nil {
		return nil, err
	}
	if summary.SubmissionCounts, err = s.repos.Submission.CountByStatus(ctx); err != nil {
		return nil, err
	}
	return &summary, nil
}
