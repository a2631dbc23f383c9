package handlers

import (
	"net/http"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/rosacash/internal/api/middleware"
	"github.com/dvloznov/rosacash/internal/billing"
)

const (
	defaultUpcoming = 6
	defaultOutlook  = 12
)

// BillsHandler serves the read-only billing computations and bill payment.
type BillsHandler struct {
	ledger Ledger
	now    Clock
}

// NewBillsHandler creates a new bills handler.
func NewBillsHandler(l Ledger, now Clock) *BillsHandler {
	return &BillsHandler{ledger: l, now: now}
}

// Register adds the billing routes to mux.
func (h *BillsHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/bills", h.GetBill)
	mux.HandleFunc("GET /api/bills/status", h.GetBillStatus)
	mux.HandleFunc("GET /api/bills/upcoming", h.ListUpcoming)
	mux.HandleFunc("POST /api/bills/paid", h.SetBillPaid)
	mux.HandleFunc("GET /api/balance", h.GetBalance)
	mux.HandleFunc("GET /api/projection", h.GetProjection)
	mux.HandleFunc("GET /api/outlook", h.GetOutlook)
	mux.HandleFunc("GET /api/daily", h.GetDaily)
	mux.HandleFunc("GET /api/payables", h.GetPayables)
	mux.HandleFunc("GET /api/summary", h.GetSummary)
}

func (h *BillsHandler) today() civil.Date {
	return civil.DateOf(h.now())
}

// cardPeriod resolves the card and period of a bill request.
func (h *BillsHandler) cardPeriod(r *http.Request, snap billing.Snapshot) (billing.CreditCard, billing.Period, error) {
	cardID, err := requireParam(r, "card_id")
	if err != nil {
		return billing.CreditCard{}, billing.Period{}, err
	}
	period, err := queryPeriod(r, h.today())
	if err != nil {
		return billing.CreditCard{}, billing.Period{}, err
	}
	card, ok := snap.Card(cardID)
	if !ok {
		return billing.CreditCard{}, billing.Period{}, billing.ErrCardNotFound
	}
	return card, period, nil
}

// GetBill handles GET /api/bills
func (h *BillsHandler) GetBill(w http.ResponseWriter, r *http.Request) {
	snap, err := h.ledger.Snapshot(r.Context(), userIDFrom(r))
	if err != nil {
		writeErr(w, r, err, "Failed to load ledger")
		return
	}
	card, period, err := h.cardPeriod(r, snap)
	if err != nil {
		writeErr(w, r, err, "Failed to resolve bill")
		return
	}

	bill, err := billing.AggregateBill(snap.Transactions, card.ID, period, card.ClosingDay)
	if err != nil {
		writeErr(w, r, err, "Failed to aggregate bill")
		return
	}
	if bill.Transactions == nil {
		bill.Transactions = []billing.Transaction{}
	}
	middleware.WriteJSON(w, http.StatusOK, bill)
}

// GetBillStatus handles GET /api/bills/status
func (h *BillsHandler) GetBillStatus(w http.ResponseWriter, r *http.Request) {
	snap, err := h.ledger.Snapshot(r.Context(), userIDFrom(r))
	if err != nil {
		writeErr(w, r, err, "Failed to load ledger")
		return
	}
	card, period, err := h.cardPeriod(r, snap)
	if err != nil {
		writeErr(w, r, err, "Failed to resolve bill")
		return
	}

	status, err := billing.IsBillFullyPaid(snap.Transactions, card.ID, period, card.ClosingDay)
	if err != nil {
		writeErr(w, r, err, "Failed to check bill status")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, status)
}

type billResponse struct {
	ID string `json:"id"`
	billing.Bill
}

// ListUpcoming handles GET /api/bills/upcoming
func (h *BillsHandler) ListUpcoming(w http.ResponseWriter, r *http.Request) {
	count, err := queryInt(r, "count", defaultUpcoming)
	if err != nil {
		writeErr(w, r, err, "")
		return
	}
	snap, err := h.ledger.Snapshot(r.Context(), userIDFrom(r))
	if err != nil {
		writeErr(w, r, err, "Failed to load ledger")
		return
	}

	bills, err := billing.UpcomingBills(snap, h.today(), count)
	if err != nil {
		writeErr(w, r, err, "Failed to list upcoming bills")
		return
	}

	out := make([]billResponse, 0, len(bills))
	for _, b := range bills {
		out = append(out, billResponse{ID: b.ID(), Bill: b})
	}
	middleware.WriteJSON(w, http.StatusOK, out)
}

// SetBillPaidRequest is the body of POST /api/bills/paid. Month is 1-indexed.
type SetBillPaidRequest struct {
	UserID string `json:"user_id"`
	CardID string `json:"card_id"`
	Month  int    `json:"month"`
	Year   int    `json:"year"`
	Paid   bool   `json:"paid"`
}

// SetBillPaid handles POST /api/bills/paid
func (h *BillsHandler) SetBillPaid(w http.ResponseWriter, r *http.Request) {
	var req SetBillPaidRequest
	if err := decodeBody(r, &req); err != nil {
		writeErr(w, r, err, "")
		return
	}
	if strings.TrimSpace(req.CardID) == "" {
		writeErr(w, r, badParam("card_id", req.CardID, "is required"), "")
		return
	}
	period, err := billing.NewPeriod(req.Month, req.Year)
	if err != nil {
		writeErr(w, r, err, "")
		return
	}

	n, err := h.ledger.ToggleBillPaid(r.Context(), req.UserID, req.CardID, period, req.Paid)
	if err != nil {
		writeErr(w, r, err, "Failed to update bill")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"card_id": req.CardID,
		"period":  period.String(),
		"paid":    req.Paid,
		"updated": n,
	})
}

// GetBalance handles GET /api/balance
func (h *BillsHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	asOf, err := queryDate(r, "as_of", h.today())
	if err != nil {
		writeErr(w, r, err, "")
		return
	}
	mode, err := billing.ParseMode(r.URL.Query().Get("mode"))
	if err != nil {
		writeErr(w, r, err, "")
		return
	}
	snap, err := h.ledger.Snapshot(r.Context(), userIDFrom(r))
	if err != nil {
		writeErr(w, r, err, "Failed to load ledger")
		return
	}

	bal, err := billing.ComputeBalanceAsOf(snap, asOf, mode)
	if err != nil {
		writeErr(w, r, err, "Failed to compute balance")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, bal)
}

// GetProjection handles GET /api/projection. Without a balance parameter the projection
// starts from the cash balance through from.
func (h *BillsHandler) GetProjection(w http.ResponseWriter, r *http.Request) {
	from, err := queryDate(r, "from", h.today())
	if err != nil {
		writeErr(w, r, err, "")
		return
	}
	rawTo, err := requireParam(r, "to")
	if err != nil {
		writeErr(w, r, err, "")
		return
	}
	to, err := billing.ParseDate("to", rawTo)
	if err != nil {
		writeErr(w, r, err, "")
		return
	}
	snap, err := h.ledger.Snapshot(r.Context(), userIDFrom(r))
	if err != nil {
		writeErr(w, r, err, "Failed to load ledger")
		return
	}

	var current decimal.Decimal
	if raw := r.URL.Query().Get("balance"); raw != "" {
		current, err = decimal.NewFromString(raw)
		if err != nil {
			writeErr(w, r, badParam("balance", raw, "must be a decimal number"), "")
			return
		}
	} else {
		current, err = billing.CashBalanceThrough(snap, from)
		if err != nil {
			writeErr(w, r, err, "Failed to compute balance")
			return
		}
	}

	proj, err := billing.ProjectBalance(current, snap.Rules, snap.Transactions, from, to)
	if err != nil {
		writeErr(w, r, err, "Failed to project balance")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, proj)
}

// GetOutlook handles GET /api/outlook
func (h *BillsHandler) GetOutlook(w http.ResponseWriter, r *http.Request) {
	months, err := queryInt(r, "months", defaultOutlook)
	if err != nil {
		writeErr(w, r, err, "")
		return
	}
	snap, err := h.ledger.Snapshot(r.Context(), userIDFrom(r))
	if err != nil {
		writeErr(w, r, err, "Failed to load ledger")
		return
	}

	points, err := billing.MonthlyOutlook(snap, h.today(), months)
	if err != nil {
		writeErr(w, r, err, "Failed to compute outlook")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, points)
}

// GetDaily handles GET /api/daily
func (h *BillsHandler) GetDaily(w http.ResponseWriter, r *http.Request) {
	today := h.today()
	period, err := queryPeriod(r, today)
	if err != nil {
		writeErr(w, r, err, "")
		return
	}
	snap, err := h.ledger.Snapshot(r.Context(), userIDFrom(r))
	if err != nil {
		writeErr(w, r, err, "Failed to load ledger")
		return
	}

	daily, err := billing.ProjectMonthDaily(snap, period, today)
	if err != nil {
		writeErr(w, r, err, "Failed to project month")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, daily)
}

// GetPayables handles GET /api/payables
func (h *BillsHandler) GetPayables(w http.ResponseWriter, r *http.Request) {
	period, err := queryPeriod(r, h.today())
	if err != nil {
		writeErr(w, r, err, "")
		return
	}
	snap, err := h.ledger.Snapshot(r.Context(), userIDFrom(r))
	if err != nil {
		writeErr(w, r, err, "Failed to load ledger")
		return
	}

	payables, err := billing.PayablesForMonth(snap, period)
	if err != nil {
		writeErr(w, r, err, "Failed to compute payables")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, payables)
}

// GetSummary handles GET /api/summary. With month and year it returns the summary of that month,
// otherwise the dashboard totals through today.
func (h *BillsHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	monthly := q.Get("month") != "" || q.Get("year") != ""

	var period billing.Period
	if monthly {
		var err error
		if period, err = queryPeriod(r, h.today()); err != nil {
			writeErr(w, r, err, "")
			return
		}
	}
	snap, err := h.ledger.Snapshot(r.Context(), userIDFrom(r))
	if err != nil {
		writeErr(w, r, err, "Failed to load ledger")
		return
	}

	if monthly {
		sum, err := billing.SummarizeMonth(snap, period)
		if err != nil {
			writeErr(w, r, err, "Failed to summarize month")
			return
		}
		middleware.WriteJSON(w, http.StatusOK, sum)
		return
	}

	sum, err := billing.SummaryThrough(snap, h.today())
	if err != nil {
		writeErr(w, r, err, "Failed to summarize")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, sum)
}
