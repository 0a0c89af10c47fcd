package lifecycle

import (
	"testing"
	"time"

	"github.com/journal-submission-api/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

var feeNow = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

func paidJournal(price string) *models.Journal {
	return &models.Journal{ID: 3, Slug: "agro", NameEN: "Agro", IsPaid: true, PricePerPage: decimal.RequireFromString(price)}
}

func activeSub(price string, limit, used int) *models.Subscription {
	return &models.Subscription{
		Plan:                  &models.Plan{Name: "Pro", Price: decimal.RequireFromString(price), ArticleLimit: limit},
		StartDate:             feeNow.AddDate(0, -1, 0),
		EndDate:               feeNow.AddDate(0, 1, 0),
		IsActive:              true,
		ArticlesUsedThisMonth: used,
	}
}

func TestEstimateFee(t *testing.T) {
	tests := []struct {
		name    string
		journal *models.Journal
		pages   int
		sub     *models.Subscription
		fee     string
		covered bool
	}{
		{"paid journal without subscription", paidJournal("10"), 5, nil, "50", false},
		{"paid journal with active plan", paidJournal("10"), 5, activeSub("19.99", 0, 40), "0", true},
		{"free journal", &models.Journal{IsPaid: false, PricePerPage: decimal.NewFromInt(10)}, 5, nil, "0", false},
		{"zero pages", paidJournal("10"), 0, nil, "0", false},
		{"free plan does not cover", paidJournal("2.50"), 4, activeSub("0", 0, 0), "10", false},
		{"exhausted limit", paidJournal("10"), 2, activeSub("9", 3, 3), "20", false},
		{"limit not yet reached", paidJournal("10"), 2, activeSub("9", 3, 2), "0", true},
		{"nil journal", nil, 5, nil, "0", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := EstimateFee(tt.journal, tt.pages, tt.sub, feeNow)
			assert.True(t, decimal.RequireFromString(tt.fee).Equal(q.Fee), "fee %s, want %s", q.Fee, tt.fee)
			assert.Equal(t, tt.covered, q.CoveredBySubscription)
		})
	}
}

func TestCoveredBySubscription_Expiry(t *testing.T) {
	sub := activeSub("9", 0, 0)
	assert.True(t, CoveredBySubscription(sub, feeNow))

	sub.EndDate = feeNow.Add(-time.Minute)
	assert.False(t, CoveredBySubscription(sub, feeNow))

	sub = activeSub("9", 0, 0)
	sub.IsActive = false
	assert.False(t, CoveredBySubscription(sub, feeNow))

	assert.False(t, CoveredBySubscription(nil, feeNow))
}

func TestQuoteFree(t *testing.T) {
	assert.True(t, Quote{Fee: decimal.Zero}.Free())
	assert.False(t, Quote{Fee: decimal.NewFromInt(1)}.Free())
}
