// Package handlers exposes the billing engine, ledger, assistant and job queue over HTTP.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"

	"github.com/dvloznov/rosacash/internal/api/middleware"
	"github.com/dvloznov/rosacash/internal/assistant"
	"github.com/dvloznov/rosacash/internal/billing"
	"github.com/dvloznov/rosacash/internal/jobs"
	"github.com/dvloznov/rosacash/internal/ledger"
	"github.com/dvloznov/rosacash/internal/logger"
)

// Clock returns the current time. Handlers never call time.Now directly.
type Clock func() time.Time

// errBadRequest marks malformed query parameters and bodies.
var errBadRequest = errors.New("bad request")

// Ledger is the part of ledger.Service the handlers use.
type Ledger interface {
	Snapshot(ctx context.Context, userID string) (billing.Snapshot, error)
	Categories() *ledger.CategoryNormalizer

	AddTransaction(ctx context.Context, userID string, in ledger.NewTransaction) (ledger.AddResult, error)
	ToggleBillPaid(ctx context.Context, userID, cardID string, period billing.Period, paid bool) (int64, error)
	TogglePaid(ctx context.Context, userID, transactionID string) (bool, error)
	DeleteTransaction(ctx context.Context, userID, transactionID string, mode ledger.DeleteMode) (int64, error)
	DeleteByPeriod(ctx context.Context, userID string, period billing.Period) (int64, error)

	AddCard(ctx context.Context, userID string, card billing.CreditCard) (billing.CreditCard, error)
	UpdateCard(ctx context.Context, userID string, card billing.CreditCard) error
	DeleteCard(ctx context.Context, userID, cardID string) error
	AddRule(ctx context.Context, userID string, rule billing.RecurringRule) (billing.RecurringRule, error)
	UpdateRule(ctx context.Context, userID string, rule billing.RecurringRule) error
	DeleteRule(ctx context.Context, userID, ruleID string) error
}

// Health handles GET /health
func Health(now Clock) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   now().Format(time.RFC3339),
		})
	}
}

// statusFor maps an error to its HTTP status.
func statusFor(err error) int {
	var verr *billing.ValidationError
	switch {
	case errors.As(err, &verr),
		errors.Is(err, errBadRequest),
		errors.Is(err, assistant.ErrInvalidRequest),
		errors.Is(err, jobs.ErrInvalidJob),
		errors.Is(err, ledger.ErrMissingUser):
		return http.StatusBadRequest
	case errors.Is(err, ledger.ErrNotFound),
		errors.Is(err, billing.ErrCardNotFound),
		errors.Is(err, jobs.ErrJobNotFound):
		return http.StatusNotFound
	case errors.Is(err, jobs.ErrQueueClosed):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// writeErr writes err with its mapped status. Server errors are logged and hidden from the client.
func writeErr(w http.ResponseWriter, r *http.Request, err error, msg string) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		if msg == "" {
			msg = "Internal server error"
		}
		log := logger.FromContext(r.Context())
		log.Error().Err(err).Msg(msg)
		middleware.WriteError(w, status, msg)
		return
	}
	middleware.WriteError(w, status, err.Error())
}

func badParam(name, raw, msg string) error {
	return billing.NewValidationError(name, raw, msg, errBadRequest)
}

// decodeBody reads a JSON request body into v.
func decodeBody(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return badParam("body", "", "invalid JSON: "+err.Error())
	}
	return nil
}

// queryInt returns the integer parameter name, or def when it is absent.
func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, badParam(name, raw, "must be an integer")
	}
	return n, nil
}

// queryDate returns the YYYY-MM-DD parameter name, or def when it is absent.
func queryDate(r *http.Request, name string, def civil.Date) (civil.Date, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	return billing.ParseDate(name, raw)
}

// queryPeriod reads the 1-indexed month and year parameters. Missing values default to the month of today.
func queryPeriod(r *http.Request, today civil.Date) (billing.Period, error) {
	month, err := queryInt(r, "month", int(today.Month))
	if err != nil {
		return billing.Period{}, err
	}
	year, err := queryInt(r, "year", today.Year)
	if err != nil {
		return billing.Period{}, err
	}
	return billing.NewPeriod(month, year)
}

// requireParam returns the non-blank query parameter name.
func requireParam(r *http.Request, name string) (string, error) {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	if v == "" {
		return "", badParam(name, v, "is required")
	}
	return v, nil
}

func userIDFrom(r *http.Request) string {
	return strings.TrimSpace(r.URL.Query().Get("user_id"))
}
