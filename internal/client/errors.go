package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/journal-submission-api/internal/lifecycle"
	"github.com/shopspring/decimal"
)

// StatusError is a failure response that carries no lifecycle meaning,
// such as a 5xx or a gateway timeout.
type StatusError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d", e.StatusCode)
	}
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

type transportError struct {
	err error
}

func (e *transportError) Error() string { return "client: request failed: " + e.err.Error() }

func (e *transportError) Unwrap() error { return e.err }

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Detail  string `json:"detail"`
	Cost    string `json:"cost"`
	Balance string `json:"balance"`
}

// decodeError maps a failure response to a lifecycle error, keeping the
// server message as is.
func decodeError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))

	var body errorBody
	if err := json.Unmarshal(raw, &body); err != nil {
		body.Message = strings.TrimSpace(string(raw))
	}
	message := body.Message
	if message == "" {
		message = body.Detail
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return &lifecycle.Error{Kind: lifecycle.KindUnauthorized, Message: orDefault(message, "You are not allowed to do this.")}
	case http.StatusConflict:
		return &lifecycle.Error{Kind: lifecycle.KindInvalidTransition, Message: orDefault(message, "This status change is not allowed.")}
	case http.StatusPaymentRequired:
		e := &lifecycle.Error{Kind: lifecycle.KindInsufficientBalance, Message: orDefault(message, "Insufficient balance.")}
		if cost, err := decimal.NewFromString(body.Cost); err == nil {
			e.Cost = &cost
		}
		if balance, err := decimal.NewFromString(body.Balance); err == nil {
			e.Balance = &balance
		}
		return e
	case http.StatusBadRequest, http.StatusRequestEntityTooLarge:
		return &lifecycle.Error{Kind: lifecycle.KindValidation, Message: orDefault(message, "The request was rejected.")}
	case http.StatusNotFound:
		return &lifecycle.Error{Kind: lifecycle.KindNotFound, Message: orDefault(message, "Not found.")}
	}
	return &StatusError{StatusCode: resp.StatusCode, Code: body.Error, Message: message}
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

// retryable reports whether a GET may be attempted again.
func retryable(err error) bool {
	var te *transportError
	if errors.As(err, &te) {
		return true
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode >= 500 || se.StatusCode == http.StatusTooManyRequests
	}
	return false
}
