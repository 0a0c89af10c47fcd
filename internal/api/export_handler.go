package api

import (
	"github.com/gin-gonic/gin"
	"github.com/journal-submission-api/internal/auth"
	"github.com/journal-submission-api/internal/service"
	"github.com/rs/zerolog"
)

// ExportHandler handles export endpoints
type ExportHandler struct {
	services *service.Services
	log      zerolog.Logger
}

// NewExportHandler creates a new ExportHandler
func NewExportHandler(services *service.Services, log zerolog.Logger) *ExportHandler {
	return &ExportHandler{
		services: services,
		log:      log.With().Str("handler", "export").Logger(),
	}
}

// StreamSubmissions handles GET /api/exports/submissions?format=...
// Accepts the same filters as the submission list and streams the result
func (h *ExportHandler) StreamSubmissions(c *gin.Context) {
	format := c.DefaultQuery("format", "ndjson")
	if format != "ndjson" && format != "json" && format != "csv" {
		badRequest(c, "format must be one of: ndjson, json, csv")
		return
	}
	filter, err := filterFromQuery(c)
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	err = h.services.Export.StreamSubmissions(c.Request.Context(), auth.ActorFrom(c), c.Writer, format, filter)
	if err == nil {
		return
	}
	if !c.Writer.Written() {
		respondError(c, h.log, err)
		return
	}
	// Can't return error JSON after streaming has started
	h.log.Error().Err(err).Str("format", format).Msg("Export failed")
}
