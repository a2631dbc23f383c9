// Package assistant answers natural-language finance questions with a language model
// choosing among fixed billing tools.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"cloud.google.com/go/civil"

	"github.com/dvloznov/rosacash/internal/billing"
	"github.com/dvloznov/rosacash/internal/logger"
)

// ErrInvalidRequest is returned for a chat request without a message or user.
var ErrInvalidRequest = errors.New("invalid request")

// SnapshotLoader loads one user's ledger.
type SnapshotLoader interface {
	Snapshot(ctx context.Context, userID string) (billing.Snapshot, error)
}

// Assistant runs the chat and categorization flows.
type Assistant struct {
	model  Model
	ledger SnapshotLoader
	now    func() time.Time
}

// New creates an Assistant. A nil now uses time.Now.
func New(model Model, ledger SnapshotLoader, now func() time.Time) *Assistant {
	if now == nil {
		now = time.Now
	}
	return &Assistant{model: model, ledger: ledger, now: now}
}

// ChatRequest is one user question.
type ChatRequest struct {
	UserID  string `json:"user_id"`
	Message string `json:"message"`
}

// ChatResponse is the assistant's answer, with the tool output it was phrased from.
type ChatResponse struct {
	Text   string      `json:"text"`
	Tool   string      `json:"tool,omitempty"`
	Result interface{} `json:"result,omitempty"`
}

// Chat answers req. The model first picks a tool as JSON, the tool runs against the user's
// snapshot, and the model then phrases the tool result.
func (a *Assistant) Chat(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	const op = "Chat"
	if strings.TrimSpace(req.Message) == "" || strings.TrimSpace(req.UserID) == "" {
		return ChatResponse{}, fmt.Errorf("%s: %w: message and user_id are required", op, ErrInvalidRequest)
	}

	log := logger.FromContext(ctx).With().Str("user_id", req.UserID).Logger()

	snap, err := a.ledger.Snapshot(ctx, req.UserID)
	if err != nil {
		return ChatResponse{}, fmt.Errorf("%s: load snapshot: %w", op, err)
	}
	if snap.Empty() {
		return ChatResponse{Text: NoDataReply}, nil
	}

	today := civil.DateOf(a.now())
	data := buildContext(snap, today)

	planRaw, err := a.model.Generate(ctx, planSystemPrompt(today), data+"\nPERGUNTA DO USUÁRIO:\n"+req.Message)
	if err != nil {
		return ChatResponse{}, fmt.Errorf("%s: plan: %w", op, err)
	}

	var call ToolCall
	if err := decodeModelJSON(planRaw, &call); err != nil {
		log.Warn().Err(err).Msg("Model returned an unusable tool plan, answering without tools")
		call.Tool = ToolNone
	}

	resp := ChatResponse{}
	var prompt string
	if call.Tool == "" || call.Tool == ToolNone {
		prompt = "DADOS FINANCEIROS DO USUÁRIO:\n" + data + "\nPERGUNTA DO USUÁRIO:\n" + req.Message
	} else {
		result, err := NewTools(snap, today).Run(call)
		if err != nil {
			log.Warn().Err(err).Str("tool", call.Tool).Msg("Tool call failed")
			result = map[string]string{"error": err.Error()}
		}
		resp.Tool = call.Tool
		resp.Result = result
		prompt = fmt.Sprintf("PERGUNTA DO USUÁRIO:\n%s\n\nRESULTADO DA FERRAMENTA %s:\n%s\n\n"+
			"Responda à pergunta usando apenas esse resultado.", req.Message, call.Tool, toolJSON(result))
	}

	text, err := a.model.Generate(ctx, answerSystemPrompt(today), prompt)
	if err != nil {
		return ChatResponse{}, fmt.Errorf("%s: answer: %w", op, err)
	}
	if strings.TrimSpace(text) == "" {
		text = FallbackReply
	}
	resp.Text = text

	log.Info().Str("tool", resp.Tool).Msg("Answered chat message")
	return resp, nil
}

// CategorySuggestion is a suggested category for a new transaction.
type CategorySuggestion struct {
	Category    string `json:"category"`
	Subcategory string `json:"subcategory"`
}

// maxHistory bounds the past transactions quoted to the model.
const maxHistory = 20

// SuggestCategory asks the model for a category for description, grounded on the user's past
// transactions sharing a keyword with it and on the categories they already use.
func (a *Assistant) SuggestCategory(ctx context.Context, userID, description string) (CategorySuggestion, error) {
	const op = "SuggestCategory"
	if strings.TrimSpace(description) == "" || strings.TrimSpace(userID) == "" {
		return CategorySuggestion{}, fmt.Errorf("%s: %w: description and user_id are required", op, ErrInvalidRequest)
	}

	snap, err := a.ledger.Snapshot(ctx, userID)
	if err != nil {
		return CategorySuggestion{}, fmt.Errorf("%s: load snapshot: %w", op, err)
	}

	history := similarTransactions(snap.Transactions, description, maxHistory)
	prompt := categorizePrompt(description, usedCategories(snap), history)

	raw, err := a.model.Generate(ctx, "", prompt)
	if err != nil {
		return CategorySuggestion{}, fmt.Errorf("%s: %w", op, err)
	}

	var out CategorySuggestion
	if err := decodeModelJSON(raw, &out); err != nil {
		return CategorySuggestion{}, fmt.Errorf("%s: %w", op, err)
	}
	out.Category = strings.TrimSpace(out.Category)
	out.Subcategory = strings.TrimSpace(out.Subcategory)
	if out.Category == "" {
		return CategorySuggestion{}, fmt.Errorf("%s: %w", op, ErrEmptyResponse)
	}
	return out, nil
}

// similarTransactions returns past transactions whose description shares a keyword of
// at least three letters with description.
func similarTransactions(txs []billing.Transaction, description string, limit int) []billing.Transaction {
	keywords := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(description)) {
		if utf8.RuneCountInString(w) >= 3 {
			keywords[w] = true
		}
	}
	if len(keywords) == 0 {
		return nil
	}

	var out []billing.Transaction
	for i := len(txs) - 1; i >= 0 && len(out) < limit; i-- {
		for _, w := range strings.Fields(strings.ToLower(txs[i].Description)) {
			if keywords[w] {
				out = append(out, txs[i])
				break
			}
		}
	}
	return out
}

func usedCategories(snap billing.Snapshot) []string {
	seen := make(map[string]bool)
	for _, t := range snap.Transactions {
		if t.Category != "" {
			seen[t.Category] = true
		}
	}
	for _, r := range snap.Rules {
		if r.Category != "" {
			seen[r.Category] = true
		}
	}

	out := make([]string, 0, len(seen))
	for c := range seen {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}
