package api

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/journal-submission-api/internal/auth"
	"github.com/journal-submission-api/internal/certificate"
	"github.com/journal-submission-api/internal/config"
	"github.com/journal-submission-api/internal/lifecycle"
	"github.com/journal-submission-api/internal/models"
	"github.com/journal-submission-api/internal/service"
	"github.com/rs/zerolog"
)

const manuscriptField = "manuscript_file"

// SubmissionHandler handles submission endpoints
type SubmissionHandler struct {
	services *service.Services
	cfg      *config.Config
	log      zerolog.Logger
}

// NewSubmissionHandler creates a new SubmissionHandler
func NewSubmissionHandler(services *service.Services, cfg *config.Config, log zerolog.Logger) *SubmissionHandler {
	return &SubmissionHandler{
		services: services,
		cfg:      cfg,
		log:      log.With().Str("handler", "submission").Logger(),
	}
}

// filterFromQuery reads the list filters; status is matched case-insensitively
func filterFromQuery(c *gin.Context) (models.SubmissionFilter, error) {
	var f models.SubmissionFilter
	if raw := strings.TrimSpace(c.Query("status")); raw != "" {
		status, ok := models.ParseStatus(raw)
		if !ok {
			return f, fmt.Errorf("unknown status %q", raw)
		}
		f.Status = status
	}
	for name, dst := range map[string]*int64{"journal": &f.JournalID, "author": &f.AuthorID} {
		raw := c.Query(name)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || v <= 0 {
			return f, fmt.Errorf("%s must be a positive integer", name)
		}
		*dst = v
	}
	f.AuthorName = strings.TrimSpace(c.Query("author_name"))
	f.Language = strings.TrimSpace(c.Query("language"))
	f.Search = strings.TrimSpace(c.Query("search"))
	return f, nil
}

// List handles GET /api/submissions/
func (h *SubmissionHandler) List(c *gin.Context) {
	filter, err := filterFromQuery(c)
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	subs, err := h.services.Submission.List(c.Request.Context(), auth.ActorFrom(c), filter)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, subs)
}

// Create handles POST /api/submissions/
// Accepts multipart with an optional manuscript_file, or a JSON draft
func (h *SubmissionHandler) Create(c *gin.Context) {
	var (
		draft  models.SubmissionDraft
		upload *lifecycle.Upload
	)

	if strings.HasPrefix(c.ContentType(), "multipart/") {
		if h.cfg.Upload.MaxUploadSize > 0 {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.cfg.Upload.MaxUploadSize)
		}
		if err := c.ShouldBind(&draft); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				badRequest(c, fmt.Sprintf("file too large, max size is %d MB", h.cfg.Upload.MaxUploadSize/(1024*1024)))
				return
			}
			badRequest(c, "invalid form data")
			return
		}

		file, header, err := c.Request.FormFile(manuscriptField)
		switch {
		case errors.Is(err, http.ErrMissingFile):
		case err != nil:
			badRequest(c, "invalid manuscript upload")
			return
		default:
			defer file.Close()
			upload = &lifecycle.Upload{Filename: header.Filename, Body: file}
		}
	} else if err := c.ShouldBindJSON(&draft); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	sub, err := h.services.Submission.Create(c.Request.Context(), auth.ActorFrom(c), draft, upload)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, sub)
}

// Get handles GET /api/submissions/:id/
func (h *SubmissionHandler) Get(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	sub, err := h.services.Submission.Get(c.Request.Context(), auth.ActorFrom(c), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, sub)
}

// Patch handles PATCH /api/submissions/:id/
func (h *SubmissionHandler) Patch(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var patch models.SubmissionPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}

	sub, err := h.services.Submission.Patch(c.Request.Context(), auth.ActorFrom(c), id, patch)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, sub)
}

// Withdraw handles POST /api/submissions/:id/withdraw/
func (h *SubmissionHandler) Withdraw(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	sub, err := h.services.Submission.Withdraw(c.Request.Context(), auth.ActorFrom(c), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, sub)
}

// Delete handles DELETE /api/submissions/:id/
func (h *SubmissionHandler) Delete(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.services.Submission.Delete(c.Request.Context(), auth.ActorFrom(c), id); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// History handles GET /api/submissions/:id/history/
func (h *SubmissionHandler) History(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	changes, err := h.services.Submission.History(c.Request.Context(), auth.ActorFrom(c), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, changes)
}

// Certificate handles GET /api/submissions/:id/certificate/?lang=
// Without ?lang the Accept-Language header picks the language, and
// without either the submission's own language is used.
func (h *SubmissionHandler) Certificate(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	lang := strings.ToLower(strings.TrimSpace(c.Query("lang")))
	switch {
	case lang != "":
		lang = certificate.MatchLanguage(lang)
	case c.GetHeader("Accept-Language") != "":
		lang = certificate.MatchLanguage(c.GetHeader("Accept-Language"))
	}

	// Rendered to memory so a failure can still be reported as JSON.
	var buf bytes.Buffer
	if err := h.services.Submission.Certificate(c.Request.Context(), auth.ActorFrom(c), id, lang, &buf); err != nil {
		respondError(c, h.log, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="certificate_%d.pdf"`, id))
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}

// Analysis handles POST /api/submissions/:id/analysis/
func (h *SubmissionHandler) Analysis(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	result, err := h.services.Submission.Analyze(c.Request.Context(), auth.ActorFrom(c), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Estimate handles GET /api/billing/estimate/?journal=&page_count=
func (h *SubmissionHandler) Estimate(c *gin.Context) {
	journalID, err := strconv.ParseInt(c.Query("journal"), 10, 64)
	if err != nil || journalID <= 0 {
		badRequest(c, "journal must be a positive integer")
		return
	}
	pages, err := strconv.Atoi(c.DefaultQuery("page_count", "0"))
	if err != nil || pages < 0 {
		badRequest(c, "page_count must be a non-negative integer")
		return
	}

	quote, err := h.services.Submission.Estimate(c.Request.Context(), auth.ActorFrom(c), journalID, pages)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"journal":                 journalID,
		"page_count":              pages,
		"fee":                     quote.Fee.StringFixed(2),
		"covered_by_subscription": quote.CoveredBySubscription,
	})
}
