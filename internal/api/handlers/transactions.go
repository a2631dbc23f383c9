package handlers

import (
	"net/http"

	"cloud.google.com/go/civil"

	"github.com/dvloznov/rosacash/internal/api/middleware"
	"github.com/dvloznov/rosacash/internal/billing"
	"github.com/dvloznov/rosacash/internal/ledger"
	"github.com/dvloznov/rosacash/internal/logger"
)

// TransactionsHandler handles transaction-related endpoints.
type TransactionsHandler struct {
	ledger Ledger
	now    Clock
}

// NewTransactionsHandler creates a new transactions handler.
func NewTransactionsHandler(l Ledger, now Clock) *TransactionsHandler {
	return &TransactionsHandler{ledger: l, now: now}
}

// Register adds the transaction routes to mux.
func (h *TransactionsHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/transactions", h.ListTransactions)
	mux.HandleFunc("POST /api/transactions", h.CreateTransaction)
	mux.HandleFunc("DELETE /api/transactions", h.DeleteByPeriod)
	mux.HandleFunc("DELETE /api/transactions/{id}", h.DeleteTransaction)
	mux.HandleFunc("POST /api/transactions/{id}/toggle-paid", h.TogglePaid)
}

// ListTransactions handles GET /api/transactions. month and year, when given, restrict the list to that month.
func (h *TransactionsHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filtered := q.Get("month") != "" || q.Get("year") != ""

	var period billing.Period
	if filtered {
		var err error
		if period, err = queryPeriod(r, civil.DateOf(h.now())); err != nil {
			writeErr(w, r, err, "")
			return
		}
	}

	snap, err := h.ledger.Snapshot(r.Context(), userIDFrom(r))
	if err != nil {
		writeErr(w, r, err, "Failed to query transactions")
		return
	}

	// Return array directly for frontend compatibility
	out := make([]billing.Transaction, 0, len(snap.Transactions))
	for _, t := range snap.Transactions {
		if filtered && !period.Contains(t.Date) {
			continue
		}
		out = append(out, t)
	}
	middleware.WriteJSON(w, http.StatusOK, out)
}

// CreateTransactionRequest is the body of POST /api/transactions.
type CreateTransactionRequest struct {
	UserID string `json:"user_id"`
	ledger.NewTransaction
}

// CreateTransaction handles POST /api/transactions
func (h *TransactionsHandler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req CreateTransactionRequest
	if err := decodeBody(r, &req); err != nil {
		writeErr(w, r, err, "")
		return
	}

	res, err := h.ledger.AddTransaction(r.Context(), req.UserID, req.NewTransaction)
	if err != nil {
		writeErr(w, r, err, "Failed to add transaction")
		return
	}

	log := logger.FromContext(r.Context())
	log.Info().
		Str("user_id", req.UserID).
		Int("transactions", len(res.TransactionIDs)).
		Str("rule_id", res.RuleID).
		Msg("Transaction added")

	middleware.WriteJSON(w, http.StatusCreated, res)
}

// DeleteTransaction handles DELETE /api/transactions/{id}?mode=single|all
func (h *TransactionsHandler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	mode, err := ledger.ParseDeleteMode(r.URL.Query().Get("mode"))
	if err != nil {
		writeErr(w, r, err, "")
		return
	}

	n, err := h.ledger.DeleteTransaction(r.Context(), userIDFrom(r), id, mode)
	if err != nil {
		writeErr(w, r, err, "Failed to delete transaction")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{"id": id, "mode": mode, "deleted": n})
}

// TogglePaid handles POST /api/transactions/{id}/toggle-paid
func (h *TransactionsHandler) TogglePaid(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	paid, err := h.ledger.TogglePaid(r.Context(), userIDFrom(r), id)
	if err != nil {
		writeErr(w, r, err, "Failed to toggle transaction")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{"id": id, "is_paid": paid})
}

// DeleteByPeriod handles DELETE /api/transactions?month&year. Both parameters are required.
func (h *TransactionsHandler) DeleteByPeriod(w http.ResponseWriter, r *http.Request) {
	for _, name := range []string{"month", "year"} {
		if _, err := requireParam(r, name); err != nil {
			writeErr(w, r, err, "")
			return
		}
	}
	period, err := queryPeriod(r, civil.DateOf(h.now()))
	if err != nil {
		writeErr(w, r, err, "")
		return
	}

	n, err := h.ledger.DeleteByPeriod(r.Context(), userIDFrom(r), period)
	if err != nil {
		writeErr(w, r, err, "Failed to delete transactions")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{"period": period.String(), "deleted": n})
}
