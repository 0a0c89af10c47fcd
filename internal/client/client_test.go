package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/journal-submission-api/internal/lifecycle"
	"github.com/journal-submission-api/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := New(Config{BaseURL: srv.URL, Token: "tok", Timeout: time.Second, Retries: 2})
	require.NoError(t, err)
	return c
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func TestNewValidatesBaseURL(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)

	_, err = New(Config{BaseURL: "ftp://example.com"})
	assert.Error(t, err)

	c, err := New(Config{BaseURL: "https://journal.example.com/"})
	require.NoError(t, err)
	assert.Equal(t, "wss://journal.example.com/ws", c.WebsocketURL())
}

func TestGetSendsTokenAndDecodes(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/submissions/7/", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, models.Submission{ID: 7, Title: "Soil", Status: models.StatusSubmitted})
	})

	sub, err := c.Get(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, int64(7), sub.ID)
	assert.Equal(t, models.StatusSubmitted, sub.Status)
}

func TestListEncodesFilter(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "PUBLISHED", r.URL.Query().Get("status"))
		assert.Equal(t, "3", r.URL.Query().Get("journal"))
		writeJSON(w, http.StatusOK, []models.Submission{
			{ID: 1, Status: models.StatusPublished},
			{ID: 2, Status: models.StatusPublished},
		})
	})

	subs, err := c.List(context.Background(), models.SubmissionFilter{Status: models.StatusPublished, JournalID: 3})
	require.NoError(t, err)
	assert.Len(t, subs, 2)
}

func TestUnknownStatusFromServerIsRejected(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Path == "/api/submissions/" {
			w.Write([]byte(`[{"id":1,"status":"PUBLISHED"},{"id":2,"status":"ARCHIVED"}]`))
			return
		}
		w.Write([]byte(`{"id":7,"title":"Soil","status":"ARCHIVED"}`))
	})

	sub, err := c.Get(context.Background(), 7)
	require.Error(t, err)
	assert.Nil(t, sub)
	assert.ErrorIs(t, err, lifecycle.ErrValidation)
	assert.Contains(t, err.Error(), `unknown status "ARCHIVED"`)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "a malformed body is not retried")

	subs, err := c.List(context.Background(), models.SubmissionFilter{})
	require.Error(t, err)
	assert.Nil(t, subs)
	assert.Equal(t, lifecycle.KindValidation, lifecycle.KindOf(err))
}

func TestCreateMultipart(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.True(t, strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data"))
		require.NoError(t, r.ParseMultipartForm(1<<20))

		assert.Equal(t, "Soil salinity", r.FormValue("title"))
		assert.Equal(t, "4", r.FormValue("journal"))
		file, header, err := r.FormFile("manuscript_file")
		require.NoError(t, err)
		defer file.Close()
		data, _ := io.ReadAll(file)
		assert.Equal(t, "paper.pdf", header.Filename)
		assert.Equal(t, "%PDF", string(data))

		writeJSON(w, http.StatusCreated, models.Submission{ID: 9, Status: models.StatusSubmitted})
	})

	sub, err := c.Create(context.Background(),
		models.SubmissionDraft{Title: "Soil salinity", Abstract: "a", JournalID: 4, PageCount: 2},
		&lifecycle.Upload{Filename: "paper.pdf", Body: strings.NewReader("%PDF")})
	require.NoError(t, err)
	assert.Equal(t, int64(9), sub.ID)
}

func TestCreateDraftAsJSON(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var draft models.SubmissionDraft
		require.NoError(t, json.NewDecoder(r.Body).Decode(&draft))
		assert.Equal(t, "Draft", draft.Title)
		writeJSON(w, http.StatusCreated, models.Submission{ID: 1, Status: models.StatusDraft})
	})

	sub, err := c.Create(context.Background(), models.SubmissionDraft{Title: "Draft", Abstract: "a", JournalID: 1}, nil)
	require.NoError(t, err)
	assert.Equal(t, models.StatusDraft, sub.Status)
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		kind    lifecycle.Kind
		message string
	}{
		{"unauthorized", 401, `{"error":"UNAUTHORIZED","message":"Authentication credentials were not provided."}`, lifecycle.KindUnauthorized, "Authentication credentials were not provided."},
		{"forbidden", 403, `{"error":"FORBIDDEN","message":"Only administrators can publish."}`, lifecycle.KindUnauthorized, "Only administrators can publish."},
		{"conflict", 409, `{"error":"INVALID_TRANSITION","message":"cannot change status from REJECTED to SUBMITTED"}`, lifecycle.KindInvalidTransition, "cannot change status from REJECTED to SUBMITTED"},
		{"validation", 400, `{"error":"VALIDATION_ERROR","message":"a rejection reason is required"}`, lifecycle.KindValidation, "a rejection reason is required"},
		{"not found", 404, `{"detail":"Not found."}`, lifecycle.KindNotFound, "Not found."},
		{"plain text", 400, `bad things`, lifecycle.KindValidation, "bad things"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			})

			_, err := c.Patch(context.Background(), 1, models.SubmissionPatch{})
			require.Error(t, err)
			assert.Equal(t, tt.kind, lifecycle.KindOf(err))
			assert.Equal(t, tt.message, err.Error())
		})
	}
}

func TestInsufficientBalanceCarriesAmounts(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusPaymentRequired, map[string]string{
			"error":   "INSUFFICIENT_BALANCE",
			"message": "Insufficient balance. This publication costs $50.00, but your balance is $12.50.",
			"cost":    "50.00",
			"balance": "12.50",
		})
	})

	_, err := c.Create(context.Background(), models.SubmissionDraft{Title: "t"}, nil)
	require.Error(t, err)

	var le *lifecycle.Error
	require.ErrorAs(t, err, &le)
	assert.Equal(t, lifecycle.KindInsufficientBalance, le.Kind)
	require.NotNil(t, le.Cost)
	require.NotNil(t, le.Balance)
	assert.Equal(t, "50.00", le.Cost.StringFixed(2))
	assert.Equal(t, "12.50", le.Balance.StringFixed(2))
	assert.ErrorIs(t, err, lifecycle.ErrInsufficientBalance)
}

func TestGetRetriesServerErrors(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		writeJSON(w, http.StatusOK, []models.Journal{{ID: 1, Slug: "agriculture"}})
	})

	journals, err := c.Journals(context.Background())
	require.NoError(t, err)
	assert.Len(t, journals, 1)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestGetDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "NOT_FOUND", "message": "Journal not found."})
	})

	_, err := c.Journal(context.Background(), "missing")
	assert.ErrorIs(t, err, lifecycle.ErrNotFound)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestMutationsAreNotRetried(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	})

	err := c.Delete(context.Background(), 3)
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusInternalServerError, se.StatusCode)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestMySubscriptionNone(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "NOT_FOUND", "message": "No active subscription"})
	})

	sub, err := c.MySubscription(context.Background())
	require.NoError(t, err)
	assert.Nil(t, sub)
}

func TestEstimate(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/billing/estimate/", r.URL.Path)
		assert.Equal(t, "12", r.URL.Query().Get("page_count"))
		writeJSON(w, http.StatusOK, map[string]any{"fee": "120.00", "covered_by_subscription": false})
	})

	quote, err := c.Estimate(context.Background(), 1, 12)
	require.NoError(t, err)
	assert.Equal(t, "120.00", quote.Fee.StringFixed(2))
	assert.False(t, quote.CoveredBySubscription)
}

func TestCertificateStreamsPDF(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "ru", r.URL.Query().Get("lang"))
		w.Header().Set("Content-Type", "application/pdf")
		io.WriteString(w, "%PDF-1.3")
	})

	rc, err := c.Certificate(context.Background(), 5, "ru")
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.3", string(data))
}

func TestStoreDrivesManager(t *testing.T) {
	var patched models.SubmissionPatch
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			writeJSON(w, http.StatusOK, models.Submission{ID: 4, AuthorID: 2, Status: models.StatusSubmitted})
		case http.MethodPatch:
			require.NoError(t, json.NewDecoder(r.Body).Decode(&patched))
			writeJSON(w, http.StatusOK, models.Submission{ID: 4, AuthorID: 2, Status: *patched.Status})
		}
	})

	mgr := lifecycle.NewManager(c, lifecycle.Session{Actor: lifecycle.Actor{UserID: 9, Role: models.RoleEditor}})
	_, err := mgr.Load(context.Background(), 4)
	require.NoError(t, err)

	sub, err := mgr.StartReview(context.Background(), 4)
	require.NoError(t, err)
	assert.Equal(t, models.StatusUnderReview, sub.Status)
	require.NotNil(t, patched.Status)
	assert.Equal(t, models.StatusUnderReview, *patched.Status)
}
