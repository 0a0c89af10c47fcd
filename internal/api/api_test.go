package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/journal-submission-api/internal/api"
	"github.com/journal-submission-api/internal/auth"
	"github.com/journal-submission-api/internal/config"
	"github.com/journal-submission-api/internal/lifecycle"
	"github.com/journal-submission-api/internal/metrics"
	"github.com/journal-submission-api/internal/mocks"
	"github.com/journal-submission-api/internal/models"
	"github.com/journal-submission-api/internal/service"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

type testEnv struct {
	router     *gin.Engine
	tokens     *auth.TokenService
	auth       *mocks.MockAuthService
	submission *mocks.MockSubmissionService
	catalog    *mocks.MockCatalogService
	billing    *mocks.MockBillingService
	export     *mocks.MockExportService
}

func setupTestRouter() *testEnv {
	gin.SetMode(gin.TestMode)

	env := &testEnv{
		tokens:     auth.NewTokenService("test-secret-0123456789", "journal-test", time.Hour),
		auth:       &mocks.MockAuthService{},
		submission: mocks.NewMockSubmissionService(),
		catalog:    &mocks.MockCatalogService{},
		billing:    &mocks.MockBillingService{},
		export:     mocks.NewMockExportService(),
	}

	services := &service.Services{
		Auth:       env.auth,
		Submission: env.submission,
		Catalog:    env.catalog,
		Billing:    env.billing,
		Export:     env.export,
		Sweeper:    &mocks.MockSweeperService{},
	}

	cfg := &config.Config{
		Server: config.ServerConfig{Port: "8080", AllowedOrigin: "https://journal.test"},
		Upload: config.UploadConfig{MaxUploadSize: 1024 * 1024, UploadDir: "/tmp/test-uploads"},
	}

	log := zerolog.Nop()
	env.router = api.NewRouter(services, cfg, log, api.Deps{Tokens: env.tokens, Metrics: metrics.New()})
	return env
}

func (e *testEnv) token(t *testing.T, id int64, role models.Role) string {
	t.Helper()
	token, _, err := e.tokens.Sign(&models.User{ID: id, Username: "user", Role: role})
	if err != nil {
		t.Fatal(err)
	}
	return token
}

func (e *testEnv) do(method, path, token string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) doJSON(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	data, _ := json.Marshal(body)
	return e.do(method, path, token, bytes.NewReader(data), "application/json")
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var response map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("invalid JSON response %q: %v", w.Body.String(), err)
	}
	return response
}

func TestHealthEndpoint(t *testing.T) {
	env := setupTestRouter()

	w := env.do("GET", "/health", "", nil, "")
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	response := decode(t, w)
	if response["status"] != "healthy" {
		t.Errorf("Expected status 'healthy', got %v", response["status"])
	}
	if response["service"] != "journal-submission-api" {
		t.Errorf("Expected service name, got %v", response["service"])
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("Expected a generated X-Request-ID header")
	}
}

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) PingContext(ctx context.Context) error { return f(ctx) }

func TestHealthEndpoint_Database(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{Server: config.ServerConfig{AllowedOrigin: "*"}}
	services := &service.Services{Sweeper: &mocks.MockSweeperService{}}
	tokens := auth.NewTokenService("test-secret-0123456789", "journal-test", time.Hour)

	up := api.NewRouter(services, cfg, zerolog.Nop(), api.Deps{Tokens: tokens, DB: pingerFunc(func(context.Context) error { return nil })})
	w := httptest.NewRecorder()
	up.ServeHTTP(w, httptest.NewRequest("GET", "/health", nil))
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
	if got := decode(t, w)["database"]; got != "ok" {
		t.Errorf("Expected database 'ok', got %v", got)
	}

	down := api.NewRouter(services, cfg, zerolog.Nop(), api.Deps{Tokens: tokens, DB: pingerFunc(func(context.Context) error { return context.DeadlineExceeded })})
	w = httptest.NewRecorder()
	down.ServeHTTP(w, httptest.NewRequest("GET", "/health", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected status 503, got %d", w.Code)
	}
	if got := decode(t, w)["status"]; got != "unhealthy" {
		t.Errorf("Expected status 'unhealthy', got %v", got)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	env := setupTestRouter()
	env.do("GET", "/health", "", nil, "")

	w := env.do("GET", "/metrics", "", nil, "")
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `journal_http_requests_total{code="200",method="GET",route="/health"} 1`) {
		t.Errorf("Expected request counter for /health, got:\n%s", w.Body.String())
	}
}

func TestCORSHeaders(t *testing.T) {
	env := setupTestRouter()

	w := env.do("OPTIONS", "/api/submissions/", "", nil, "")
	if w.Code != http.StatusNoContent {
		t.Errorf("Expected status 204, got %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://journal.test" {
		t.Errorf("Expected configured origin, got '%s'", got)
	}
	if !strings.Contains(w.Header().Get("Access-Control-Allow-Methods"), "PATCH") {
		t.Error("Expected PATCH in allowed methods")
	}
}

func TestAuthentication(t *testing.T) {
	env := setupTestRouter()

	w := env.do("GET", "/api/auth/me/", "", nil, "")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401 without token, got %d", w.Code)
	}

	w = env.do("GET", "/api/submissions/", "not-a-token", nil, "")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401 for a bad token, got %d", w.Code)
	}
	if msg := decode(t, w)["message"]; msg != "Given token not valid." {
		t.Errorf("Unexpected message: %v", msg)
	}

	w = env.do("GET", "/api/auth/me/", env.token(t, 5, models.RoleEditor), nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var user models.User
	json.Unmarshal(w.Body.Bytes(), &user)
	if user.ID != 5 || user.Role != models.RoleEditor {
		t.Errorf("Expected editor 5, got %+v", user)
	}
}

func TestLogin(t *testing.T) {
	env := setupTestRouter()
	env.auth.LoginFunc = func(ctx context.Context, req *models.LoginRequest) (*models.TokenResponse, error) {
		if req.Password != "secret123" {
			return nil, lifecycle.Unauthorized("No active account found with the given credentials")
		}
		return &models.TokenResponse{Access: "abc", User: models.User{ID: 1, Username: req.Username}}, nil
	}

	w := env.doJSON("POST", "/api/auth/token/", "", models.LoginRequest{Username: "ada", Password: "nope"})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", w.Code)
	}

	w = env.doJSON("POST", "/api/auth/token/", "", models.LoginRequest{Username: "ada", Password: "secret123"})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if decode(t, w)["access"] != "abc" {
		t.Errorf("Expected access token in response, got %s", w.Body.String())
	}

	w = env.doJSON("POST", "/api/auth/register/", "", models.RegisterRequest{Username: "grace", Email: "g@example.com", Password: "secret123"})
	if w.Code != http.StatusCreated {
		t.Errorf("Expected status 201, got %d", w.Code)
	}
}

func TestCreateSubmission_Multipart(t *testing.T) {
	env := setupTestRouter()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	writer.WriteField("title", "Soil salinity")
	writer.WriteField("abstract", "Results.")
	writer.WriteField("journal", "3")
	writer.WriteField("page_count", "5")
	part, _ := writer.CreateFormFile("manuscript_file", "paper.pdf")
	part.Write([]byte("%PDF-1.4"))
	writer.Close()

	w := env.do("POST", "/api/submissions/", "", bytes.NewReader(body.Bytes()), writer.FormDataContentType())
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401 without token, got %d", w.Code)
	}

	w = env.do("POST", "/api/submissions/", env.token(t, 1, models.RoleAuthor), bytes.NewReader(body.Bytes()), writer.FormDataContentType())
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", w.Code, w.Body.String())
	}

	var sub models.Submission
	json.Unmarshal(w.Body.Bytes(), &sub)
	if sub.Status != models.StatusSubmitted || sub.JournalID != 3 || sub.PageCount != 5 || sub.AuthorID != 1 {
		t.Errorf("Unexpected submission: %+v", sub)
	}
	if len(env.submission.Uploads) != 1 || env.submission.Uploads[0] != "paper.pdf" {
		t.Errorf("Expected paper.pdf upload, got %v", env.submission.Uploads)
	}
}

func TestCreateSubmission_JSONDraft(t *testing.T) {
	env := setupTestRouter()

	w := env.doJSON("POST", "/api/submissions/", env.token(t, 1, models.RoleAuthor), models.SubmissionDraft{Title: "Draft", Abstract: "x", JournalID: 1})
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d", w.Code)
	}
	if decode(t, w)["status"] != string(models.StatusDraft) {
		t.Errorf("Expected DRAFT, got %s", w.Body.String())
	}
}

func TestCreateSubmission_InsufficientBalance(t *testing.T) {
	env := setupTestRouter()
	env.submission.CreateFunc = func(ctx context.Context, actor lifecycle.Actor, draft models.SubmissionDraft, file *lifecycle.Upload) (*models.Submission, error) {
		return nil, lifecycle.InsufficientBalance(decimal.NewFromInt(50), decimal.RequireFromString("12.5"))
	}

	w := env.doJSON("POST", "/api/submissions/", env.token(t, 1, models.RoleAuthor), models.SubmissionDraft{Title: "t", Abstract: "a", JournalID: 1})
	if w.Code != http.StatusPaymentRequired {
		t.Fatalf("Expected status 402, got %d", w.Code)
	}

	response := decode(t, w)
	if response["error"] != "INSUFFICIENT_BALANCE" {
		t.Errorf("Expected INSUFFICIENT_BALANCE, got %v", response["error"])
	}
	if response["message"] != "Insufficient balance. This publication costs $50.00, but your balance is $12.50." {
		t.Errorf("Unexpected message: %v", response["message"])
	}
	if response["cost"] != "50.00" || response["balance"] != "12.50" {
		t.Errorf("Expected cost and balance, got %v / %v", response["cost"], response["balance"])
	}
}

func TestPatchSubmission_ErrorMapping(t *testing.T) {
	env := setupTestRouter()
	env.submission.Submissions[1] = &models.Submission{ID: 1, AuthorID: 1, Status: models.StatusSubmitted}

	tests := []struct {
		name     string
		err      error
		role     models.Role
		wantCode int
		wantErr  string
	}{
		{"forbidden role", lifecycle.Unauthorized("your role cannot move submissions to PUBLISHED"), models.RoleEditor, http.StatusForbidden, "FORBIDDEN"},
		{"invalid transition", lifecycle.InvalidTransition("cannot change status from REJECTED to SUBMITTED"), models.RoleAdmin, http.StatusConflict, "INVALID_TRANSITION"},
		{"validation", lifecycle.Validation("a rejection reason is required"), models.RoleEditor, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"not found", lifecycle.NotFound("Submission not found."), models.RoleAuthor, http.StatusNotFound, "NOT_FOUND"},
		{"internal", context.Canceled, models.RoleAuthor, http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env.submission.PatchFunc = func(ctx context.Context, actor lifecycle.Actor, id int64, patch models.SubmissionPatch) (*models.Submission, error) {
				return nil, tt.err
			}
			w := env.doJSON("PATCH", "/api/submissions/1/", env.token(t, 2, tt.role), map[string]string{"status": "PUBLISHED"})
			if w.Code != tt.wantCode {
				t.Errorf("Expected status %d, got %d", tt.wantCode, w.Code)
			}
			response := decode(t, w)
			if response["error"] != tt.wantErr {
				t.Errorf("Expected error %s, got %v", tt.wantErr, response["error"])
			}
			if le, ok := tt.err.(*lifecycle.Error); ok && response["message"] != le.Message {
				t.Errorf("Expected verbatim message %q, got %v", le.Message, response["message"])
			}
		})
	}
}

func TestPatchSubmission_RejectsUnknownStatus(t *testing.T) {
	env := setupTestRouter()
	env.submission.Submissions[1] = &models.Submission{ID: 1, AuthorID: 1, Status: models.StatusSubmitted}

	w := env.doJSON("PATCH", "/api/submissions/1/", env.token(t, 3, models.RoleEditor), map[string]string{"status": "ARCHIVED"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
	if len(env.submission.Patches) != 0 {
		t.Errorf("Expected no dispatch, got %d patches", len(env.submission.Patches))
	}

	w = env.doJSON("PATCH", "/api/submissions/1/", env.token(t, 3, models.RoleEditor), map[string]string{"status": "UNDER_REVIEW"})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if decode(t, w)["status"] != "UNDER_REVIEW" {
		t.Errorf("Expected UNDER_REVIEW, got %s", w.Body.String())
	}
}

func TestWithdrawAndDelete(t *testing.T) {
	env := setupTestRouter()
	env.submission.Submissions[1] = &models.Submission{ID: 1, AuthorID: 1, Status: models.StatusSubmitted}

	w := env.do("POST", "/api/submissions/1/withdraw/", env.token(t, 1, models.RoleAuthor), nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if decode(t, w)["status"] != "WITHDRAWN" {
		t.Errorf("Expected WITHDRAWN, got %s", w.Body.String())
	}

	w = env.do("DELETE", "/api/submissions/1/", env.token(t, 4, models.RoleAdmin), nil, "")
	if w.Code != http.StatusNoContent {
		t.Errorf("Expected status 204, got %d", w.Code)
	}
	w = env.do("GET", "/api/submissions/1/", env.token(t, 4, models.RoleAdmin), nil, "")
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
	w = env.do("GET", "/api/submissions/abc/", "", nil, "")
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 for a bad id, got %d", w.Code)
	}
}

func TestListSubmissions_Filters(t *testing.T) {
	env := setupTestRouter()
	env.submission.Submissions[1] = &models.Submission{ID: 1, Status: models.StatusPublished}
	env.submission.Submissions[2] = &models.Submission{ID: 2, Status: models.StatusDraft}

	w := env.do("GET", "/api/submissions/?status=published", "", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var subs []models.Submission
	json.Unmarshal(w.Body.Bytes(), &subs)
	if len(subs) != 1 || subs[0].ID != 1 {
		t.Errorf("Expected only the published submission, got %+v", subs)
	}

	for _, query := range []string{"status=ARCHIVED", "journal=x", "author=-1"} {
		w = env.do("GET", "/api/submissions/?"+query, "", nil, "")
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: expected status 400, got %d", query, w.Code)
		}
	}
}

func TestCertificate(t *testing.T) {
	env := setupTestRouter()

	w := env.do("GET", "/api/submissions/7/certificate/?lang=uz", "", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Errorf("Expected application/pdf, got %s", ct)
	}
	if w.Body.String() != "%PDF-1.3 uz" {
		t.Errorf("Expected uz certificate, got %q", w.Body.String())
	}

	req := httptest.NewRequest("GET", "/api/submissions/7/certificate/", nil)
	req.Header.Set("Accept-Language", "ru-RU,ru;q=0.9,en;q=0.5")
	w = httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	if w.Body.String() != "%PDF-1.3 ru" {
		t.Errorf("Expected language from Accept-Language, got %q", w.Body.String())
	}

	env.submission.CertificateFunc = func(ctx context.Context, actor lifecycle.Actor, id int64, lang string, w io.Writer) error {
		return lifecycle.Validation("Certificate is available only for published articles.")
	}
	w = env.do("GET", "/api/submissions/7/certificate/", "", nil, "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}

func TestAnalysis(t *testing.T) {
	env := setupTestRouter()
	env.submission.Submissions[5] = &models.Submission{ID: 5, Title: "Soil salinity", Abstract: "Soil salinity mapping in arid regions.", Status: models.StatusSubmitted}

	if w := env.do("POST", "/api/submissions/5/analysis/", "", nil, ""); w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401 without a token, got %d", w.Code)
	}
	if w := env.do("POST", "/api/submissions/5/analysis/", env.token(t, 3, models.RoleEditor), nil, ""); w.Code != http.StatusForbidden {
		t.Errorf("Expected status 403 for an editor, got %d", w.Code)
	}
	if w := env.do("POST", "/api/submissions/6/analysis/", env.token(t, 4, models.RoleAdmin), nil, ""); w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 for a missing submission, got %d", w.Code)
	}

	w := env.do("POST", "/api/submissions/5/analysis/", env.token(t, 4, models.RoleAdmin), nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	response := decode(t, w)
	if response["submission_id"] != float64(5) || response["title"] != "Soil salinity" {
		t.Errorf("Unexpected subject: %v", response)
	}
	if response["word_count"] != float64(8) {
		t.Errorf("Expected 8 words, got %v", response["word_count"])
	}
	keywords, _ := response["keywords"].([]interface{})
	if len(keywords) == 0 || keywords[0] != "soil" {
		t.Errorf("Unexpected keywords: %v", response["keywords"])
	}
	if response["recommendation"] != "ACCEPT" {
		t.Errorf("Expected ACCEPT, got %v", response["recommendation"])
	}
}

func TestEstimate(t *testing.T) {
	env := setupTestRouter()
	env.submission.EstimateFunc = func(ctx context.Context, actor lifecycle.Actor, journalID int64, pageCount int) (lifecycle.Quote, error) {
		return lifecycle.Quote{Fee: decimal.NewFromInt(int64(pageCount) * 10)}, nil
	}

	w := env.do("GET", "/api/billing/estimate/?journal=1&page_count=5", "", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if fee := decode(t, w)["fee"]; fee != "50.00" {
		t.Errorf("Expected fee 50.00, got %v", fee)
	}

	w = env.do("GET", "/api/billing/estimate/?journal=0", "", nil, "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}

func TestJournalsAndPlans(t *testing.T) {
	env := setupTestRouter()
	env.catalog.JournalList = []*models.Journal{{ID: 1, Slug: "agriculture", NameEN: "Agriculture"}}
	env.billing.PlanList = []*models.Plan{{ID: 1, Slug: "pro", Price: decimal.NewFromInt(30), IsActive: true}}

	w := env.do("GET", "/api/journals/agriculture/", "", nil, "")
	if w.Code != http.StatusOK || decode(t, w)["slug"] != "agriculture" {
		t.Errorf("Expected agriculture journal, got %d %s", w.Code, w.Body.String())
	}
	w = env.do("GET", "/api/journals/missing/", "", nil, "")
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}

	w = env.do("GET", "/api/plans/", "", nil, "")
	var plans []models.Plan
	json.Unmarshal(w.Body.Bytes(), &plans)
	if len(plans) != 1 || plans[0].Slug != "pro" {
		t.Errorf("Expected pro plan, got %+v", plans)
	}
}

func TestCatalogImport(t *testing.T) {
	env := setupTestRouter()
	var gotResource string
	env.catalog.ImportFunc = func(ctx context.Context, resource string, r io.Reader) (*models.CatalogImportResult, error) {
		gotResource = resource
		data, _ := io.ReadAll(r)
		return &models.CatalogImportResult{Resource: resource, Total: strings.Count(string(data), "\n")}, nil
	}
	body := "{\"slug\":\"a\"}\n{\"slug\":\"b\"}\n"

	w := env.do("POST", "/api/catalog/import?resource=journals", env.token(t, 3, models.RoleEditor), strings.NewReader(body), "application/x-ndjson")
	if w.Code != http.StatusForbidden {
		t.Errorf("Expected status 403 for an editor, got %d", w.Code)
	}

	w = env.do("POST", "/api/catalog/import?resource=comments", env.token(t, 4, models.RoleAdmin), strings.NewReader(body), "application/x-ndjson")
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for an unknown resource, got %d", w.Code)
	}

	w = env.do("POST", "/api/catalog/import?resource=journals", env.token(t, 4, models.RoleAdmin), strings.NewReader(body), "application/x-ndjson")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if gotResource != "journals" || decode(t, w)["total_records"].(float64) != 2 {
		t.Errorf("Expected 2 journal records, got %s", w.Body.String())
	}
}

func TestBillingEndpoints(t *testing.T) {
	env := setupTestRouter()
	author := env.token(t, 1, models.RoleAuthor)

	w := env.do("GET", "/api/billing/my-subscription/", author, nil, "")
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 without a subscription, got %d", w.Code)
	}

	w = env.doJSON("POST", "/api/billing/subscribe/", author, map[string]int{"plan_id": 2})
	if w.Code != http.StatusCreated {
		t.Errorf("Expected status 201, got %d", w.Code)
	}
	w = env.doJSON("POST", "/api/billing/subscribe/", author, map[string]int{})
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 without plan_id, got %d", w.Code)
	}

	w = env.do("GET", "/api/billing/transactions/?limit=5", author, nil, "")
	if w.Code != http.StatusOK || env.billing.TransactionLimit != 5 {
		t.Errorf("Expected limit 5 to reach the service, got %d (code %d)", env.billing.TransactionLimit, w.Code)
	}

	w = env.doJSON("POST", "/api/billing/adjust-balance/", author, models.AdjustBalanceRequest{UserID: 1, Amount: "10"})
	if w.Code != http.StatusForbidden {
		t.Errorf("Expected status 403 for an author, got %d", w.Code)
	}

	w = env.do("GET", "/api/finance/summary/", env.token(t, 4, models.RoleAdmin), nil, "")
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200 for an admin, got %d", w.Code)
	}
}

func TestStreamExport(t *testing.T) {
	env := setupTestRouter()
	var gotFormat string
	var gotFilter models.SubmissionFilter
	env.export.StreamFunc = func(ctx context.Context, actor lifecycle.Actor, w http.ResponseWriter, format string, filter models.SubmissionFilter) error {
		if !actor.IsStaff() {
			return lifecycle.Unauthorized("Only editors and administrators can export submissions.")
		}
		gotFormat, gotFilter = format, filter
		w.Header().Set("Content-Type", "text/csv")
		w.Write([]byte("id,title\n"))
		return nil
	}

	w := env.do("GET", "/api/exports/submissions?format=csv", env.token(t, 1, models.RoleAuthor), nil, "")
	if w.Code != http.StatusForbidden {
		t.Errorf("Expected status 403 for an author, got %d", w.Code)
	}

	w = env.do("GET", "/api/exports/submissions?format=csv&status=accepted&journal=2", env.token(t, 3, models.RoleEditor), nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if gotFormat != "csv" || gotFilter.Status != models.StatusAccepted || gotFilter.JournalID != 2 {
		t.Errorf("Expected csv export of accepted journal 2, got %s %+v", gotFormat, gotFilter)
	}

	w = env.do("GET", "/api/exports/submissions?format=xml", env.token(t, 3, models.RoleEditor), nil, "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}
