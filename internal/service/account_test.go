package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/journal-submission-api/internal/lifecycle"
	"github.com/journal-submission-api/internal/models"
	"github.com/shopspring/decimal"
)

// --- Auth ---

func TestRegisterAndLogin(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()

	user, err := h.services.Auth.Register(ctx, &models.RegisterRequest{
		Username:  " grace ",
		Email:     "grace@example.com",
		Password:  "correct horse",
		FirstName: "Grace",
		LastName:  "Hopper",
	})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if user.Username != "grace" || user.Role != models.RoleAuthor || !user.Balance.IsZero() {
		t.Errorf("Expected zero-balance author 'grace', got %+v", user)
	}
	if user.PasswordHash == "" || user.PasswordHash == "correct horse" {
		t.Error("Expected password to be hashed")
	}

	_, err = h.services.Auth.Register(ctx, &models.RegisterRequest{Username: "grace", Email: "g2@example.com", Password: "another pass"})
	expectKind(t, err, lifecycle.KindValidation)
	if err.Error() != "A user with that username already exists." {
		t.Errorf("Unexpected message: %s", err.Error())
	}

	_, err = h.services.Auth.Register(ctx, &models.RegisterRequest{Username: "x", Email: "bad", Password: "short"})
	expectKind(t, err, lifecycle.KindValidation)

	token, err := h.services.Auth.Login(ctx, &models.LoginRequest{Username: "grace", Password: "correct horse"})
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if token.Access == "" || token.User.ID != user.ID {
		t.Errorf("Expected token for user %d, got %+v", user.ID, token)
	}
	if !token.ExpiresAt.After(time.Now()) {
		t.Errorf("Expected future expiry, got %v", token.ExpiresAt)
	}

	_, err = h.services.Auth.Login(ctx, &models.LoginRequest{Username: "grace", Password: "wrong"})
	expectKind(t, err, lifecycle.KindUnauthorized)
	_, err = h.services.Auth.Login(ctx, &models.LoginRequest{Username: "nobody", Password: "wrong"})
	expectKind(t, err, lifecycle.KindUnauthorized)

	me, err := h.services.Auth.Me(ctx, lifecycle.ActorFromUser(user))
	if err != nil || me.Username != "grace" {
		t.Errorf("Expected Me to return grace, got %v (%v)", me, err)
	}
	_, err = h.services.Auth.Me(ctx, h.nobody)
	expectKind(t, err, lifecycle.KindUnauthorized)
}

// --- Billing ---

func TestSubscribe(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()
	plan := h.repos.Billing.AddPlan(&models.Plan{Name: "Pro", Slug: "pro", Price: decimal.RequireFromString("29.99"), IsActive: true})
	retired := h.repos.Billing.AddPlan(&models.Plan{Name: "Old", Slug: "old", Price: decimal.NewFromInt(5)})

	_, err := h.services.Billing.MySubscription(ctx, h.author)
	expectKind(t, err, lifecycle.KindNotFound)

	_, err = h.services.Billing.Subscribe(ctx, h.author, retired.ID)
	expectKind(t, err, lifecycle.KindNotFound)
	_, err = h.services.Billing.Subscribe(ctx, h.nobody, plan.ID)
	expectKind(t, err, lifecycle.KindUnauthorized)

	sub, err := h.services.Billing.Subscribe(ctx, h.author, plan.ID)
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	if want := testNow.AddDate(0, 0, 30); !sub.EndDate.Equal(want) {
		t.Errorf("Expected end date %v, got %v", want, sub.EndDate)
	}

	active, err := h.services.Billing.MySubscription(ctx, h.author)
	if err != nil {
		t.Fatal(err)
	}
	if active.Plan == nil || active.Plan.Slug != "pro" {
		t.Errorf("Expected pro plan, got %+v", active.Plan)
	}
	if got := h.repos.User.Balance(1); !got.Equal(decimal.NewFromInt(100)) {
		t.Errorf("Expected balance untouched, got %s", got)
	}

	txns, _ := h.services.Billing.Transactions(ctx, h.author, 0)
	if len(txns) != 1 || txns[0].Type != models.TransactionSubscription {
		t.Errorf("Expected one SUBSCRIPTION transaction, got %+v", txns)
	}
}

func TestAdjustBalance(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()

	_, err := h.services.Billing.AdjustBalance(ctx, h.editor, &models.AdjustBalanceRequest{UserID: 2, Amount: "10"})
	expectKind(t, err, lifecycle.KindUnauthorized)

	user, err := h.services.Billing.AdjustBalance(ctx, h.admin, &models.AdjustBalanceRequest{UserID: 2, Amount: "25.50", Note: "Bank transfer"})
	if err != nil {
		t.Fatalf("AdjustBalance failed: %v", err)
	}
	if user.Balance.StringFixed(2) != "25.50" {
		t.Errorf("Expected balance 25.50, got %s", user.Balance)
	}

	_, err = h.services.Billing.AdjustBalance(ctx, h.admin, &models.AdjustBalanceRequest{UserID: 2, Amount: "-30"})
	expectKind(t, err, lifecycle.KindValidation)

	user, err = h.services.Billing.AdjustBalance(ctx, h.admin, &models.AdjustBalanceRequest{UserID: 2, Amount: "-5.50"})
	if err != nil {
		t.Fatal(err)
	}
	if !user.Balance.Equal(decimal.NewFromInt(20)) {
		t.Errorf("Expected balance 20, got %s", user.Balance)
	}

	_, err = h.services.Billing.AdjustBalance(ctx, h.admin, &models.AdjustBalanceRequest{UserID: 2, Amount: "1.234"})
	expectKind(t, err, lifecycle.KindValidation)
	_, err = h.services.Billing.AdjustBalance(ctx, h.admin, &models.AdjustBalanceRequest{UserID: 42, Amount: "1"})
	expectKind(t, err, lifecycle.KindNotFound)

	txns, _ := h.services.Billing.Transactions(ctx, h.broke, 10)
	if len(txns) != 2 {
		t.Fatalf("Expected 2 transactions, got %d", len(txns))
	}
	if txns[0].Type != models.TransactionAdjustment || txns[1].Type != models.TransactionTopUp {
		t.Errorf("Expected newest first ADJUSTMENT then TOP_UP, got %s, %s", txns[0].Type, txns[1].Type)
	}
	if txns[1].Description != "Bank transfer" {
		t.Errorf("Expected note as description, got '%s'", txns[1].Description)
	}
}

func TestFinanceSummary(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()

	// A top-up from last month counts toward the year but not the month.
	h.repos.Billing.AddTransaction(ctx, &models.WalletTransaction{
		UserID: 1, Amount: decimal.NewFromInt(40), Type: models.TransactionTopUp,
		CreatedAt: time.Date(2025, time.February, 10, 0, 0, 0, 0, time.UTC),
	})
	if _, err := h.services.Billing.AdjustBalance(ctx, h.admin, &models.AdjustBalanceRequest{UserID: 2, Amount: "60"}); err != nil {
		t.Fatal(err)
	}
	h.submit(t, h.author, h.paidJournal, 3)

	_, err := h.services.Billing.FinanceSummary(ctx, h.editor)
	expectKind(t, err, lifecycle.KindUnauthorized)

	summary, err := h.services.Billing.FinanceSummary(ctx, h.admin)
	if err != nil {
		t.Fatal(err)
	}
	checks := []struct {
		name string
		got  decimal.Decimal
		want int64
	}{
		{"total revenue", summary.TotalRevenue, 100},
		{"monthly revenue", summary.MonthlyRevenue, 60},
		{"yearly revenue", summary.YearlyRevenue, 100},
		{"publish fees", summary.PublishFees, 30},
	}
	for _, c := range checks {
		if !c.got.Equal(decimal.NewFromInt(c.want)) {
			t.Errorf("Expected %s %d, got %s", c.name, c.want, c.got)
		}
	}
	if summary.UsersWithBalance != 2 {
		t.Errorf("Expected 2 users with balance, got %d", summary.UsersWithBalance)
	}
	if summary.SubmissionCounts[models.StatusSubmitted] != 1 {
		t.Errorf("Expected 1 SUBMITTED, got %v", summary.SubmissionCounts)
	}
}

// --- Sweeper ---

func TestSweep(t *testing.T) {
	h := newTestHarness(t)
	h.repos.Billing.Subscriptions[1] = &models.Subscription{ID: 1, UserID: 1, IsActive: true, EndDate: testNow.Add(-time.Minute)}
	h.repos.Billing.Subscriptions[2] = &models.Subscription{ID: 2, UserID: 2, IsActive: true, EndDate: testNow.Add(time.Hour)}
	h.repos.Billing.ResetResult = 4

	result, err := h.services.Sweeper.Sweep(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if result.Expired != 1 || result.Reset != 4 {
		t.Errorf("Expected 1 expired and 4 reset, got %+v", result)
	}
	if h.repos.Billing.Subscriptions[1].IsActive || !h.repos.Billing.Subscriptions[2].IsActive {
		t.Error("Expected only the lapsed subscription to be deactivated")
	}
}

func TestSweeperProcessor(t *testing.T) {
	h := newTestHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		h.services.Sweeper.StartProcessor(ctx)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for {
		if expire, _ := h.repos.Billing.SweepCalls(); expire >= 2 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("Expected the sweeper to run on its ticker")
		}
		time.Sleep(5 * time.Millisecond)
	}

	h.services.Sweeper.StopProcessor()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("StartProcessor did not return after StopProcessor")
	}
}
