package handlers

import (
	"context"
	"net/http"

	"github.com/dvloznov/rosacash/internal/api/middleware"
	"github.com/dvloznov/rosacash/internal/assistant"
)

// Assistant is the chat and categorization surface of assistant.Assistant.
type Assistant interface {
	Chat(ctx context.Context, req assistant.ChatRequest) (assistant.ChatResponse, error)
	SuggestCategory(ctx context.Context, userID, description string) (assistant.CategorySuggestion, error)
}

// AssistantHandler serves the language model endpoints.
type AssistantHandler struct {
	assistant Assistant
}

// NewAssistantHandler creates a new assistant handler.
func NewAssistantHandler(a Assistant) *AssistantHandler {
	return &AssistantHandler{assistant: a}
}

// Register adds the assistant routes to mux.
func (h *AssistantHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/chat", h.Chat)
	mux.HandleFunc("POST /api/categories/suggest", h.SuggestCategory)
}

// Chat handles POST /api/chat
func (h *AssistantHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req assistant.ChatRequest
	if err := decodeBody(r, &req); err != nil {
		writeErr(w, r, err, "")
		return
	}

	resp, err := h.assistant.Chat(r.Context(), req)
	if err != nil {
		writeErr(w, r, err, "Failed to answer message")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, resp)
}

// SuggestCategoryRequest is the body of POST /api/categories/suggest.
type SuggestCategoryRequest struct {
	UserID      string `json:"user_id"`
	Description string `json:"description"`
}

// SuggestCategory handles POST /api/categories/suggest
func (h *AssistantHandler) SuggestCategory(w http.ResponseWriter, r *http.Request) {
	var req SuggestCategoryRequest
	if err := decodeBody(r, &req); err != nil {
		writeErr(w, r, err, "")
		return
	}

	out, err := h.assistant.SuggestCategory(r.Context(), req.UserID, req.Description)
	if err != nil {
		writeErr(w, r, err, "Failed to suggest category")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, out)
}
