package lifecycle

import (
	"time"

	"github.com/journal-submission-api/internal/models"
	"github.com/shopspring/decimal"
)

// Quote is a fee estimate for submitting to a journal.
type Quote struct {
	Fee                   decimal.Decimal
	CoveredBySubscription bool
}

// Free reports whether nothing will be charged.
func (q Quote) Free() bool {
	return !q.Fee.IsPositive()
}

// CoveredBySubscription reports whether sub pays for one more article at now.
// Free plans never cover fees, and a plan with an article limit stops
// covering once the monthly usage reaches it.
func CoveredBySubscription(sub *models.Subscription, now time.Time) bool {
	if !sub.ActiveAt(now) || sub.Plan == nil || sub.Plan.IsFree() {
		return false
	}
	if sub.Plan.ArticleLimit > 0 && sub.ArticlesUsedThisMonth >= sub.Plan.ArticleLimit {
		return false
	}
	return true
}

// EstimateFee computes the publication fee charged when a submission of
// pageCount pages to journal enters SUBMITTED.
func EstimateFee(journal *models.Journal, pageCount int, sub *models.Subscription, now time.Time) Quote {
	if journal == nil || !journal.IsPaid || pageCount <= 0 {
		return Quote{Fee: decimal.Zero}
	}
	if CoveredBySubscription(sub, now) {
		return Quote{Fee: decimal.Zero, CoveredBySubscription: true}
	}
	return Quote{Fee: journal.PricePerPage.Mul(decimal.NewFromInt(int64(pageCount)))}
}
