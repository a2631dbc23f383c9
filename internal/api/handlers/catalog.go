package handlers

import (
	"net/http"

	"github.com/dvloznov/rosacash/internal/api/middleware"
	"github.com/dvloznov/rosacash/internal/billing"
)

// CatalogHandler manages credit cards, recurring rules and categories.
type CatalogHandler struct {
	ledger Ledger
}

// NewCatalogHandler creates a new catalog handler.
func NewCatalogHandler(l Ledger) *CatalogHandler {
	return &CatalogHandler{ledger: l}
}

// Register adds the card, recurring rule and category routes to mux.
func (h *CatalogHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/cards", h.ListCards)
	mux.HandleFunc("POST /api/cards", h.CreateCard)
	mux.HandleFunc("PUT /api/cards/{id}", h.UpdateCard)
	mux.HandleFunc("DELETE /api/cards/{id}", h.DeleteCard)

	mux.HandleFunc("GET /api/recurring", h.ListRules)
	mux.HandleFunc("POST /api/recurring", h.CreateRule)
	mux.HandleFunc("PUT /api/recurring/{id}", h.UpdateRule)
	mux.HandleFunc("DELETE /api/recurring/{id}", h.DeleteRule)

	mux.HandleFunc("GET /api/categories", h.ListCategories)
}

// CardRequest is the body of the card write endpoints.
type CardRequest struct {
	UserID string `json:"user_id"`
	billing.CreditCard
}

// RuleRequest is the body of the recurring rule write endpoints.
type RuleRequest struct {
	UserID string `json:"user_id"`
	billing.RecurringRule
}

// ListCards handles GET /api/cards
func (h *CatalogHandler) ListCards(w http.ResponseWriter, r *http.Request) {
	snap, err := h.ledger.Snapshot(r.Context(), userIDFrom(r))
	if err != nil {
		writeErr(w, r, err, "Failed to list cards")
		return
	}
	cards := snap.Cards
	if cards == nil {
		cards = []billing.CreditCard{}
	}
	middleware.WriteJSON(w, http.StatusOK, cards)
}

// CreateCard handles POST /api/cards
func (h *CatalogHandler) CreateCard(w http.ResponseWriter, r *http.Request) {
	var req CardRequest
	if err := decodeBody(r, &req); err != nil {
		writeErr(w, r, err, "")
		return
	}

	card, err := h.ledger.AddCard(r.Context(), req.UserID, req.CreditCard)
	if err != nil {
		writeErr(w, r, err, "Failed to add card")
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, card)
}

// UpdateCard handles PUT /api/cards/{id}
func (h *CatalogHandler) UpdateCard(w http.ResponseWriter, r *http.Request) {
	var req CardRequest
	if err := decodeBody(r, &req); err != nil {
		writeErr(w, r, err, "")
		return
	}
	req.CreditCard.ID = r.PathValue("id")

	if err := h.ledger.UpdateCard(r.Context(), req.UserID, req.CreditCard); err != nil {
		writeErr(w, r, err, "Failed to update card")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, req.CreditCard)
}

// DeleteCard handles DELETE /api/cards/{id}
func (h *CatalogHandler) DeleteCard(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.ledger.DeleteCard(r.Context(), userIDFrom(r), id); err != nil {
		writeErr(w, r, err, "Failed to delete card")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"deleted": id})
}

// ListRules handles GET /api/recurring
func (h *CatalogHandler) ListRules(w http.ResponseWriter, r *http.Request) {
	snap, err := h.ledger.Snapshot(r.Context(), userIDFrom(r))
	if err != nil {
		writeErr(w, r, err, "Failed to list recurring rules")
		return
	}
	rules := snap.Rules
	if rules == nil {
		rules = []billing.RecurringRule{}
	}
	middleware.WriteJSON(w, http.StatusOK, rules)
}

// CreateRule handles POST /api/recurring
func (h *CatalogHandler) CreateRule(w http.ResponseWriter, r *http.Request) {
	var req RuleRequest
	if err := decodeBody(r, &req); err != nil {
		writeErr(w, r, err, "")
		return
	}

	rule, err := h.ledger.AddRule(r.Context(), req.UserID, req.RecurringRule)
	if err != nil {
		writeErr(w, r, err, "Failed to add recurring rule")
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, rule)
}

// UpdateRule handles PUT /api/recurring/{id}
func (h *CatalogHandler) UpdateRule(w http.ResponseWriter, r *http.Request) {
	var req RuleRequest
	if err := decodeBody(r, &req); err != nil {
		writeErr(w, r, err, "")
		return
	}
	req.RecurringRule.ID = r.PathValue("id")

	if err := h.ledger.UpdateRule(r.Context(), req.UserID, req.RecurringRule); err != nil {
		writeErr(w, r, err, "Failed to update recurring rule")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, req.RecurringRule)
}

// DeleteRule handles DELETE /api/recurring/{id}
func (h *CatalogHandler) DeleteRule(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.ledger.DeleteRule(r.Context(), userIDFrom(r), id); err != nil {
		writeErr(w, r, err, "Failed to delete recurring rule")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"deleted": id})
}

// ListCategories handles GET /api/categories
func (h *CatalogHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories := h.ledger.Categories().Names()

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"categories": categories,
		"count":      len(categories),
	})
}
