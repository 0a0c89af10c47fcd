package api

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/journal-submission-api/internal/auth"
	"github.com/journal-submission-api/internal/lifecycle"
	"github.com/journal-submission-api/internal/models"
	"github.com/journal-submission-api/internal/service"
	"github.com/rs/zerolog"
)

// CatalogHandler handles journal, plan and catalog import endpoints
type CatalogHandler struct {
	services *service.Services
	log      zerolog.Logger
}

// NewCatalogHandler creates a new CatalogHandler
func NewCatalogHandler(services *service.Services, log zerolog.Logger) *CatalogHandler {
	return &CatalogHandler{
		services: services,
		log:      log.With().Str("handler", "catalog").Logger(),
	}
}

// Journals handles GET /api/journals/
func (h *CatalogHandler) Journals(c *gin.Context) {
	journals, err := h.services.Catalog.Journals(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, journals)
}

// Journal handles GET /api/journals/:slug/
func (h *CatalogHandler) Journal(c *gin.Context) {
	journal, err := h.services.Catalog.Journal(c.Request.Context(), c.Param("slug"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, journal)
}

// Plans handles GET /api/plans/
func (h *CatalogHandler) Plans(c *gin.Context) {
	plans, err := h.services.Billing.Plans(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, plans)
}

// Import handles POST /api/catalog/import?resource=journals|plans
// The NDJSON body is either a multipart "file" field or the raw request body.
func (h *CatalogHandler) Import(c *gin.Context) {
	if !auth.ActorFrom(c).IsAdmin() {
		respondError(c, h.log, lifecycle.Unauthorized("Only administrators can import catalog data."))
		return
	}

	resource := c.Query("resource")
	if resource == "" {
		resource = c.PostForm("resource")
	}
	if !models.ValidCatalogResources[resource] {
		badRequest(c, "resource must be one of: journals, plans")
		return
	}

	var body io.Reader = c.Request.Body
	if file, _, err := c.Request.FormFile("file"); err == nil {
		defer file.Close()
		body = file
	}

	result, err := h.services.Catalog.Import(c.Request.Context(), resource, body)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	h.log.Info().
		Str("resource", resource).
		Int("inserted", result.Inserted).
		Int("failed", result.Failed).
		Msg("Catalog import finished")
	c.JSON(http.StatusOK, result)
}
