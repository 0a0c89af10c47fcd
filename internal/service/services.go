package service

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/journal-submission-api/internal/analysis"
	"github.com/journal-submission-api/internal/certificate"
	"github.com/journal-submission-api/internal/config"
	"github.com/journal-submission-api/internal/lifecycle"
	"github.com/journal-submission-api/internal/metrics"
	"github.com/journal-submission-api/internal/models"
	"github.com/journal-submission-api/internal/notify"
	"github.com/journal-submission-api/internal/repository"
	"github.com/journal-submission-api/internal/validation"
	"github.com/rs/zerolog"
)

// TokenIssuer signs access tokens for authenticated users.
type TokenIssuer interface {
	Sign(u *models.User) (string, time.Time, error)
}

// AuthService defines the interface for account operations
type AuthService interface {
	Register(ctx context.Context, req *models.RegisterRequest) (*models.User, error)
	Login(ctx context.Context, req *models.LoginRequest) (*models.TokenResponse, error)
	Me(ctx context.Context, actor lifecycle.Actor) (*models.User, error)
}

// SubmissionService defines the interface for the submission store
type SubmissionService interface {
	Create(ctx context.Context, actor lifecycle.Actor, draft models.SubmissionDraft, file *lifecycle.Upload) (*models.Submission, error)
	Get(ctx context.Context, actor lifecycle.Actor, id int64) (*models.Submission, error)
	List(ctx context.Context, actor lifecycle.Actor, filter models.SubmissionFilter) ([]*models.Submission, error)
	Patch(ctx context.Context, actor lifecycle.Actor, id int64, patch models.SubmissionPatch) (*models.Submission, error)
	Withdraw(ctx context.Context, actor lifecycle.Actor, id int64) (*models.Submission, error)
	Delete(ctx context.Context, actor lifecycle.Actor, id int64) error
	History(ctx context.Context, actor lifecycle.Actor, id int64) ([]*models.StatusChange, error)
	Certificate(ctx context.Context, actor lifecycle.Actor, id int64, lang string, w io.Writer) error
	Estimate(ctx context.Context, actor lifecycle.Actor, journalID int64, pageCount int) (lifecycle.Quote, error)
	Analyze(ctx context.Context, actor lifecycle.Actor, id int64) (*SubmissionAnalysis, error)
}

// SubmissionAnalysis is the editorial text review of one submission.
type SubmissionAnalysis struct {
	SubmissionID int64  `json:"submission_id"`
	Title        string `json:"title"`
	*analysis.Review
}

// CatalogService defines the interface for journals and catalog loading
type CatalogService interface {
	Journals(ctx context.Context) ([]*models.Journal, error)
	Journal(ctx context.Context, slug string) (*models.Journal, error)
	Import(ctx context.Context, resource string, r io.Reader) (*models.CatalogImportResult, error)
}

// BillingService defines the interface for plans, subscriptions and the wallet
type BillingService interface {
	Plans(ctx context.Context) ([]*models.Plan, error)
	MySubscription(ctx context.Context, actor lifecycle.Actor) (*models.Subscription, error)
	Subscribe(ctx context.Context, actor lifecycle.Actor, planID int64) (*models.Subscription, error)
	AdjustBalance(ctx context.Context, actor lifecycle.Actor, req *models.AdjustBalanceRequest) (*models.User, error)
	Transactions(ctx context.Context, actor lifecycle.Actor, limit int) ([]*models.WalletTransaction, error)
	FinanceSummary(ctx context.Context, actor lifecycle.Actor) (*models.FinanceSummary, error)
}

// ExportService defines the interface for export operations
type ExportService interface {
	StreamSubmissions(ctx context.Context, actor lifecycle.Actor, w http.ResponseWriter, format string, filter models.SubmissionFilter) error
	GetCount(ctx context.Context, resource string) (int, error)
}

// SweeperService defines the interface for subscription housekeeping
type SweeperService interface {
	StartProcessor(ctx context.Context)
	StopProcessor()
	Sweep(ctx context.Context) (*SweepResult, error)
}

// Services holds all service interfaces
type Services struct {
	Auth       AuthService
	Submission SubmissionService
	Catalog    CatalogService
	Billing    BillingService
	Export     ExportService
	Sweeper    SweeperService
}

// Deps carries collaborators that live outside the repository layer.
// Zero values are replaced with no-op implementations.
type Deps struct {
	Tokens    TokenIssuer
	Publisher notify.Publisher
	Metrics   *metrics.Metrics
	Clock     func() time.Time
}

// NewServices creates all services
func NewServices(repos *repository.Repositories, cfg *config.Config, log zerolog.Logger, deps Deps) *Services {
	if deps.Publisher == nil {
		deps.Publisher = notify.Discard{}
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}

	certs := certificate.NewGenerator(cfg.Certificate.VerifyBaseURL, cfg.Certificate.FontPath)
	files := newFileStore(cfg.Upload.UploadDir)

	return &Services{
		Auth:       newAuthService(repos, deps.Tokens, log),
		Submission: newSubmissionService(repos, files, certs, deps, log),
		Catalog:    newCatalogService(repos, cfg, log),
		Billing:    newBillingService(repos, cfg, deps, log),
		Export:     newExportService(repos, log),
		Sweeper:    newSweeper(repos.Billing, cfg.Billing.SweepInterval, deps, log),
	}
}

func validationFailed(errs []validation.ValidationError) error {
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		msgs = append(msgs, e.Message)
	}
	return lifecycle.Validation("%s", strings.Join(msgs, "; "))
}
