package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/journal-submission-api/internal/auth"
	"github.com/journal-submission-api/internal/lifecycle"
	"github.com/rs/zerolog"
)

// Error codes carried in the "error" field of every failure body.
const (
	codeUnauthorized        = "UNAUTHORIZED"
	codeForbidden           = "FORBIDDEN"
	codeInvalidTransition   = "INVALID_TRANSITION"
	codeInsufficientBalance = "INSUFFICIENT_BALANCE"
	codeValidation          = "VALIDATION_ERROR"
	codeNotFound            = "NOT_FOUND"
	codeTimeout             = "TIMEOUT"
	codeInternal            = "INTERNAL_ERROR"
)

// respondError writes err as a JSON failure. Lifecycle errors keep their
// message; anything else is logged and hidden behind a 500.
func respondError(c *gin.Context, log zerolog.Logger, err error) {
	var le *lifecycle.Error
	if !errors.As(err, &le) {
		if errors.Is(err, context.DeadlineExceeded) {
			c.JSON(http.StatusGatewayTimeout, gin.H{"error": codeTimeout, "message": "The request timed out."})
			return
		}
		log.Error().Err(err).Str("path", c.Request.URL.Path).Str("request_id", c.GetString("request_id")).Msg("Request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": codeInternal, "message": "Internal server error"})
		return
	}

	switch le.Kind {
	case lifecycle.KindUnauthorized:
		if auth.ActorFrom(c).Anonymous() {
			c.JSON(http.StatusUnauthorized, gin.H{"error": codeUnauthorized, "message": le.Message})
			return
		}
		c.JSON(http.StatusForbidden, gin.H{"error": codeForbidden, "message": le.Message})
	case lifecycle.KindInvalidTransition:
		c.JSON(http.StatusConflict, gin.H{"error": codeInvalidTransition, "message": le.Message})
	case lifecycle.KindInsufficientBalance:
		body := gin.H{"error": codeInsufficientBalance, "message": le.Message}
		if le.Cost != nil {
			body["cost"] = le.Cost.StringFixed(2)
		}
		if le.Balance != nil {
			body["balance"] = le.Balance.StringFixed(2)
		}
		c.JSON(http.StatusPaymentRequired, body)
	case lifecycle.KindValidation:
		c.JSON(http.StatusBadRequest, gin.H{"error": codeValidation, "message": le.Message})
	case lifecycle.KindNotFound:
		c.JSON(http.StatusNotFound, gin.H{"error": codeNotFound, "message": le.Message})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": codeInternal, "message": le.Message})
	}
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": codeValidation, "message": message})
}

// idParam parses a positive integer path parameter
func idParam(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": codeNotFound, "message": "Not found."})
		return 0, false
	}
	return id, true
}
