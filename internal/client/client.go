// Package client talks to the submission REST API. It implements
// lifecycle.Store so the lifecycle Manager can drive a remote server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/journal-submission-api/internal/lifecycle"
	"github.com/journal-submission-api/internal/models"
	"github.com/shopspring/decimal"
)

const (
	defaultTimeout = 30 * time.Second
	defaultRetries = 3
	userAgent      = "journalctl"
)

var _ lifecycle.Store = (*Client)(nil)

// Config describes a Client.
type Config struct {
	BaseURL string
	Token   string
	// Timeout bounds each HTTP round trip.
	Timeout time.Duration
	// Retries is the number of extra attempts for GET requests.
	Retries    int
	HTTPClient *http.Client
}

// Client is a REST client for the submission API.
type Client struct {
	baseURL *url.URL
	token   string
	timeout time.Duration
	retries int
	http    *http.Client
}

// New creates a Client from cfg.
func New(cfg Config) (*Client, error) {
	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" {
		return nil, errors.New("client: base url is required")
	}
	baseURL, err := url.Parse(strings.TrimRight(base, "/"))
	if err != nil {
		return nil, fmt.Errorf("client: parse base url: %w", err)
	}
	if baseURL.Scheme != "http" && baseURL.Scheme != "https" {
		return nil, fmt.Errorf("client: unsupported scheme %q", baseURL.Scheme)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	retries := cfg.Retries
	if retries < 0 {
		retries = 0
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}
	return &Client{
		baseURL: baseURL,
		token:   strings.TrimSpace(cfg.Token),
		timeout: timeout,
		retries: retries,
		http:    hc,
	}, nil
}

// SetToken replaces the bearer token used for later requests.
func (c *Client) SetToken(token string) {
	c.token = strings.TrimSpace(token)
}

// BaseURL returns the API root.
func (c *Client) BaseURL() *url.URL {
	u := *c.baseURL
	return &u
}

// Create posts a new submission. With a file the request is multipart.
func (c *Client) Create(ctx context.Context, draft models.SubmissionDraft, file *lifecycle.Upload) (*models.Submission, error) {
	if file == nil {
		var sub models.Submission
		if err := c.doJSON(ctx, http.MethodPost, "/api/submissions/", nil, draft, &sub); err != nil {
			return nil, err
		}
		return &sub, nil
	}

	body, contentType, err := multipartDraft(draft, file)
	if err != nil {
		return nil, err
	}
	var sub models.Submission
	if err := c.do(ctx, http.MethodPost, "/api/submissions/", nil, body, contentType, &sub); err != nil {
		return nil, err
	}
	return &sub, nil
}

// Patch applies a partial update.
func (c *Client) Patch(ctx context.Context, id int64, patch models.SubmissionPatch) (*models.Submission, error) {
	var sub models.Submission
	if err := c.doJSON(ctx, http.MethodPatch, submissionPath(id), nil, patch, &sub); err != nil {
		return nil, err
	}
	return &sub, nil
}

// Get fetches one submission.
func (c *Client) Get(ctx context.Context, id int64) (*models.Submission, error) {
	var sub models.Submission
	if err := c.get(ctx, submissionPath(id), nil, &sub); err != nil {
		return nil, err
	}
	return &sub, nil
}

// List fetches the submissions visible to the token holder.
func (c *Client) List(ctx context.Context, filter models.SubmissionFilter) ([]*models.Submission, error) {
	var subs []*models.Submission
	if err := c.get(ctx, "/api/submissions/", filter.Query(), &subs); err != nil {
		return nil, err
	}
	return subs, nil
}

// Delete removes a submission.
func (c *Client) Delete(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, submissionPath(id), nil, nil, "", nil)
}

// Withdraw calls the dedicated withdraw action.
func (c *Client) Withdraw(ctx context.Context, id int64) (*models.Submission, error) {
	var sub models.Submission
	if err := c.do(ctx, http.MethodPost, submissionPath(id)+"withdraw/", nil, nil, "", &sub); err != nil {
		return nil, err
	}
	return &sub, nil
}

// History lists the status changes of a submission.
func (c *Client) History(ctx context.Context, id int64) ([]*models.StatusChange, error) {
	var changes []*models.StatusChange
	if err := c.get(ctx, submissionPath(id)+"history/", nil, &changes); err != nil {
		return nil, err
	}
	return changes, nil
}

// Login exchanges credentials for a token. The client keeps using its
// current token; call SetToken to switch.
func (c *Client) Login(ctx context.Context, username, password string) (*models.TokenResponse, error) {
	var resp models.TokenResponse
	req := models.LoginRequest{Username: username, Password: password}
	if err := c.doJSON(ctx, http.MethodPost, "/api/auth/token/", nil, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Me returns the token holder.
func (c *Client) Me(ctx context.Context) (*models.User, error) {
	var u models.User
	if err := c.get(ctx, "/api/auth/me/", nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Journals lists all journals.
func (c *Client) Journals(ctx context.Context) ([]*models.Journal, error) {
	var journals []*models.Journal
	if err := c.get(ctx, "/api/journals/", nil, &journals); err != nil {
		return nil, err
	}
	return journals, nil
}

// Journal fetches a journal by slug.
func (c *Client) Journal(ctx context.Context, slug string) (*models.Journal, error) {
	var j models.Journal
	if err := c.get(ctx, "/api/journals/"+url.PathEscape(slug)+"/", nil, &j); err != nil {
		return nil, err
	}
	return &j, nil
}

// MySubscription returns the active subscription, or nil when there is none.
func (c *Client) MySubscription(ctx context.Context) (*models.Subscription, error) {
	var sub models.Subscription
	err := c.get(ctx, "/api/billing/my-subscription/", nil, &sub)
	if errors.Is(err, lifecycle.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// Estimate asks the server for the fee of a submission.
func (c *Client) Estimate(ctx context.Context, journalID int64, pageCount int) (lifecycle.Quote, error) {
	q := url.Values{}
	q.Set("journal", strconv.FormatInt(journalID, 10))
	q.Set("page_count", strconv.Itoa(pageCount))

	var payload struct {
		Fee     decimal.Decimal `json:"fee"`
		Covered bool            `json:"covered_by_subscription"`
	}
	if err := c.get(ctx, "/api/billing/estimate/", q, &payload); err != nil {
		return lifecycle.Quote{}, err
	}
	return lifecycle.Quote{Fee: payload.Fee, CoveredBySubscription: payload.Covered}, nil
}

// Certificate downloads the publication certificate PDF. The caller closes
// the returned reader.
func (c *Client) Certificate(ctx context.Context, id int64, lang string) (io.ReadCloser, error) {
	q := url.Values{}
	if lang != "" {
		q.Set("lang", lang)
	}
	req, err := c.newRequest(ctx, http.MethodGet, submissionPath(id)+"certificate/", q, nil, "")
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/pdf")

	// No per-request timeout: the body is streamed after return.
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("client: certificate request failed: %w", err)
	}
	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		return nil, decodeError(resp)
	}
	return resp.Body, nil
}

// WebsocketURL returns the notification endpoint for the API root.
func (c *Client) WebsocketURL() string {
	u := c.BaseURL()
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws"
	return u.String()
}

func submissionPath(id int64) string {
	return "/api/submissions/" + strconv.FormatInt(id, 10) + "/"
}

// get runs a GET with exponential backoff on transport failures and 5xx.
func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	op := func() error {
		err := c.do(ctx, http.MethodGet, path, query, nil, "", out)
		if err == nil || retryable(err) {
			return err
		}
		return backoff.Permanent(err)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxInterval = 2 * time.Second
	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(c.retries)), ctx)

	return backoff.Retry(op, policy)
}

func (c *Client) doJSON(ctx context.Context, method, path string, query url.Values, in, out any) error {
	data, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("client: encode request: %w", err)
	}
	return c.do(ctx, method, path, query, bytes.NewReader(data), "application/json", out)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body io.Reader, contentType string, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := c.newRequest(ctx, method, path, query, body, contentType)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return &transportError{err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		e := lifecycle.Validation("invalid response from %s %s: %v", method, path, err)
		e.Err = err
		return e
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body io.Reader, contentType string) (*http.Request, error) {
	endpoint := c.baseURL.JoinPath(path)
	// JoinPath drops the trailing slash the API routes use.
	if strings.HasSuffix(path, "/") && !strings.HasSuffix(endpoint.Path, "/") {
		endpoint.Path += "/"
	}
	if len(query) > 0 {
		endpoint.RawQuery = query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), body)
	if err != nil {
		return nil, fmt.Errorf("client: build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

func multipartDraft(draft models.SubmissionDraft, file *lifecycle.Upload) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fields := map[string]string{
		"title":      draft.Title,
		"abstract":   draft.Abstract,
		"keywords":   draft.Keywords,
		"journal":    strconv.FormatInt(draft.JournalID, 10),
		"page_count": strconv.Itoa(draft.PageCount),
		"language":   draft.Language,
	}
	if draft.SaveAsDraft {
		fields["save_as_draft"] = "true"
	}
	for name, value := range fields {
		if value == "" {
			continue
		}
		if err := w.WriteField(name, value); err != nil {
			return nil, "", fmt.Errorf("client: write %s: %w", name, err)
		}
	}

	part, err := w.CreateFormFile("manuscript_file", file.Filename)
	if err != nil {
		return nil, "", fmt.Errorf("client: create file part: %w", err)
	}
	if _, err := io.Copy(part, file.Body); err != nil {
		return nil, "", fmt.Errorf("client: copy manuscript: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("client: close multipart: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}
