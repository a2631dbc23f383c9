package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/rosacash/internal/assistant"
	"github.com/dvloznov/rosacash/internal/billing"
	"github.com/dvloznov/rosacash/internal/jobs"
	"github.com/dvloznov/rosacash/internal/jobs/inmemory"
	"github.com/dvloznov/rosacash/internal/ledger"
)

// mockLedger implements Ledger for testing.
type mockLedger struct {
	SnapshotFunc          func(ctx context.Context, userID string) (billing.Snapshot, error)
	AddTransactionFunc    func(ctx context.Context, userID string, in ledger.NewTransaction) (ledger.AddResult, error)
	ToggleBillPaidFunc    func(ctx context.Context, userID, cardID string, period billing.Period, paid bool) (int64, error)
	TogglePaidFunc        func(ctx context.Context, userID, transactionID string) (bool, error)
	DeleteTransactionFunc func(ctx context.Context, userID, transactionID string, mode ledger.DeleteMode) (int64, error)
	DeleteByPeriodFunc    func(ctx context.Context, userID string, period billing.Period) (int64, error)
	DeleteCardFunc        func(ctx context.Context, userID, cardID string) error
}

func (m *mockLedger) Snapshot(ctx context.Context, userID string) (billing.Snapshot, error) {
	if m.SnapshotFunc != nil {
		return m.SnapshotFunc(ctx, userID)
	}
	return billing.Snapshot{}, nil
}

func (m *mockLedger) Categories() *ledger.CategoryNormalizer {
	return ledger.NewCategoryNormalizer("Moradia", "Alimentação")
}

func (m *mockLedger) AddTransaction(ctx context.Context, userID string, in ledger.NewTransaction) (ledger.AddResult, error) {
	if m.AddTransactionFunc != nil {
		return m.AddTransactionFunc(ctx, userID, in)
	}
	return ledger.AddResult{}, nil
}

func (m *mockLedger) ToggleBillPaid(ctx context.Context, userID, cardID string, period billing.Period, paid bool) (int64, error) {
	if m.ToggleBillPaidFunc != nil {
		return m.ToggleBillPaidFunc(ctx, userID, cardID, period, paid)
	}
	return 0, nil
}

func (m *mockLedger) TogglePaid(ctx context.Context, userID, transactionID string) (bool, error) {
	if m.TogglePaidFunc != nil {
		return m.TogglePaidFunc(ctx, userID, transactionID)
	}
	return false, nil
}

func (m *mockLedger) DeleteTransaction(ctx context.Context, userID, transactionID string, mode ledger.DeleteMode) (int64, error) {
	if m.DeleteTransactionFunc != nil {
		return m.DeleteTransactionFunc(ctx, userID, transactionID, mode)
	}
	return 0, nil
}

func (m *mockLedger) DeleteByPeriod(ctx context.Context, userID string, period billing.Period) (int64, error) {
	if m.DeleteByPeriodFunc != nil {
		return m.DeleteByPeriodFunc(ctx, userID, period)
	}
	return 0, nil
}

func (m *mockLedger) AddCard(ctx context.Context, userID string, card billing.CreditCard) (billing.CreditCard, error) {
	return card, nil
}

func (m *mockLedger) UpdateCard(ctx context.Context, userID string, card billing.CreditCard) error {
	return nil
}

func (m *mockLedger) DeleteCard(ctx context.Context, userID, cardID string) error {
	if m.DeleteCardFunc != nil {
		return m.DeleteCardFunc(ctx, userID, cardID)
	}
	return nil
}

func (m *mockLedger) AddRule(ctx context.Context, userID string, rule billing.RecurringRule) (billing.RecurringRule, error) {
	return rule, nil
}

func (m *mockLedger) UpdateRule(ctx context.Context, userID string, rule billing.RecurringRule) error {
	return nil
}

func (m *mockLedger) DeleteRule(ctx context.Context, userID, ruleID string) error {
	return nil
}

// mockAssistant implements Assistant for testing.
type mockAssistant struct {
	ChatFunc func(ctx context.Context, req assistant.ChatRequest) (assistant.ChatResponse, error)
}

func (m *mockAssistant) Chat(ctx context.Context, req assistant.ChatRequest) (assistant.ChatResponse, error) {
	if m.ChatFunc != nil {
		return m.ChatFunc(ctx, req)
	}
	return assistant.ChatResponse{}, nil
}

func (m *mockAssistant) SuggestCategory(ctx context.Context, userID, description string) (assistant.CategorySuggestion, error) {
	return assistant.CategorySuggestion{Category: "Moradia"}, nil
}

// mockPublisher validates jobs the way a real queue does and records them.
type mockPublisher struct {
	published []*jobs.Job
}

func (m *mockPublisher) Publish(ctx context.Context, job *jobs.Job) error {
	if err := job.Validate(); err != nil {
		return err
	}
	job.JobID = fmt.Sprintf("job-%d", len(m.published)+1)
	job.Status = jobs.JobStatusPending
	m.published = append(m.published, job)
	return nil
}

func (m *mockPublisher) Close() error { return nil }

func testSnapshot() billing.Snapshot {
	return billing.Snapshot{
		Transactions: []billing.Transaction{
			{ID: "t1", Date: civil.Date{Year: 2024, Month: time.January, Day: 3}, Description: "Mercado",
				Type: billing.TypeCreditCard, Value: decimal.RequireFromString("100"), Category: "Alimentação",
				CardID: "c1", IsPaid: true},
			{ID: "t2", Date: civil.Date{Year: 2024, Month: time.January, Day: 5}, Description: "Salário",
				Type: billing.TypeIncome, Value: decimal.RequireFromString("1000"), Category: "Salário"},
		},
		Cards: []billing.CreditCard{
			{ID: "c1", Name: "Rosa", ClosingDay: 5, DueDay: 15, Limit: decimal.RequireFromString("1000")},
		},
	}
}

func fixedClock() time.Time {
	return time.Date(2024, time.January, 15, 12, 0, 0, 0, time.UTC)
}

type testServer struct {
	ledger    *mockLedger
	assistant *mockAssistant
	publisher *mockPublisher
	store     *inmemory.Store
	mux       *http.ServeMux
}

func newTestServer() *testServer {
	s := &testServer{
		ledger: &mockLedger{SnapshotFunc: func(ctx context.Context, userID string) (billing.Snapshot, error) {
			if userID == "" {
				return billing.Snapshot{}, fmt.Errorf("Snapshot: %w", ledger.ErrMissingUser)
			}
			return testSnapshot(), nil
		}},
		assistant: &mockAssistant{},
		publisher: &mockPublisher{},
		store:     inmemory.NewStore(),
	}
	s.mux = NewRouter(Deps{
		Ledger:    s.ledger,
		Assistant: s.assistant,
		Publisher: s.publisher,
		Jobs:      s.store,
		Now:       fixedClock,
	})
	return s
}

func (s *testServer) do(method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, req)
	return rec
}

func decodeMap(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("invalid JSON response %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestStatusCodes(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		target     string
		body       string
		wantStatus int
	}{
		{"health", http.MethodGet, "/health", "", http.StatusOK},
		{"bill", http.MethodGet, "/api/bills?user_id=u1&card_id=c1&month=1&year=2024", "", http.StatusOK},
		{"bill without card", http.MethodGet, "/api/bills?user_id=u1", "", http.StatusBadRequest},
		{"bill unknown card", http.MethodGet, "/api/bills?user_id=u1&card_id=zz", "", http.StatusNotFound},
		{"bill bad month", http.MethodGet, "/api/bills?user_id=u1&card_id=c1&month=13&year=2024", "", http.StatusBadRequest},
		{"bill month not a number", http.MethodGet, "/api/bills?user_id=u1&card_id=c1&month=jan", "", http.StatusBadRequest},
		{"missing user", http.MethodGet, "/api/balance", "", http.StatusBadRequest},
		{"balance", http.MethodGet, "/api/balance?user_id=u1&as_of=2024-02-01&mode=invoice", "", http.StatusOK},
		{"balance bad mode", http.MethodGet, "/api/balance?user_id=u1&mode=accrual", "", http.StatusBadRequest},
		{"balance bad date", http.MethodGet, "/api/balance?user_id=u1&as_of=2024-02-30", "", http.StatusBadRequest},
		{"projection", http.MethodGet, "/api/projection?user_id=u1&from=2024-01-15&to=2024-03-15", "", http.StatusOK},
		{"projection without to", http.MethodGet, "/api/projection?user_id=u1", "", http.StatusBadRequest},
		{"projection bad balance", http.MethodGet, "/api/projection?user_id=u1&to=2024-03-01&balance=abc", "", http.StatusBadRequest},
		{"outlook", http.MethodGet, "/api/outlook?user_id=u1&months=3", "", http.StatusOK},
		{"daily", http.MethodGet, "/api/daily?user_id=u1&month=2&year=2024", "", http.StatusOK},
		{"payables", http.MethodGet, "/api/payables?user_id=u1", "", http.StatusOK},
		{"summary", http.MethodGet, "/api/summary?user_id=u1", "", http.StatusOK},
		{"monthly summary", http.MethodGet, "/api/summary?user_id=u1&month=1&year=2024", "", http.StatusOK},
		{"upcoming", http.MethodGet, "/api/bills/upcoming?user_id=u1&count=2", "", http.StatusOK},
		{"upcoming negative count", http.MethodGet, "/api/bills/upcoming?user_id=u1&count=-1", "", http.StatusBadRequest},
		{"upcoming count too large", http.MethodGet, "/api/bills/upcoming?user_id=u1&count=100000", "", http.StatusBadRequest},
		{"outlook negative months", http.MethodGet, "/api/outlook?user_id=u1&months=-1", "", http.StatusBadRequest},
		{"daily year out of range", http.MethodGet, "/api/daily?user_id=u1&month=1&year=100000", "", http.StatusBadRequest},
		{"transactions", http.MethodGet, "/api/transactions?user_id=u1", "", http.StatusOK},
		{"delete period without year", http.MethodDelete, "/api/transactions?user_id=u1&month=1", "", http.StatusBadRequest},
		{"delete bad mode", http.MethodDelete, "/api/transactions/t1?user_id=u1&mode=some", "", http.StatusBadRequest},
		{"bad JSON", http.MethodPost, "/api/transactions", "{", http.StatusBadRequest},
		{"bill paid without card", http.MethodPost, "/api/bills/paid", `{"user_id":"u1","month":1,"year":2024}`, http.StatusBadRequest},
		{"cards", http.MethodGet, "/api/cards?user_id=u1", "", http.StatusOK},
		{"categories", http.MethodGet, "/api/categories", "", http.StatusOK},
		{"suggest", http.MethodPost, "/api/categories/suggest", `{"user_id":"u1","description":"aluguel"}`, http.StatusOK},
		{"unknown job", http.MethodGet, "/api/jobs/nope", "", http.StatusNotFound},
		{"wrong method", http.MethodPut, "/api/balance", "", http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := newTestServer().do(tt.method, tt.target, tt.body)
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
		})
	}
}

func TestGetBillStatus_NotFoundIsNotAnError(t *testing.T) {
	tests := []struct {
		name      string
		month     int
		wantFound bool
		wantPaid  bool
	}{
		{"paid bill", 1, true, true},
		{"no purchases", 3, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := newTestServer().do(http.MethodGet,
				fmt.Sprintf("/api/bills/status?user_id=u1&card_id=c1&month=%d&year=2024", tt.month), "")
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200", rec.Code)
			}
			got := decodeMap(t, rec)
			if got["found"] != tt.wantFound || got["paid"] != tt.wantPaid {
				t.Errorf("got found=%v paid=%v, want found=%v paid=%v", got["found"], got["paid"], tt.wantFound, tt.wantPaid)
			}
		})
	}
}

func TestListUpcoming_IncludesBillID(t *testing.T) {
	rec := newTestServer().do(http.MethodGet, "/api/bills/upcoming?user_id=u1&count=2", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var bills []map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &bills); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(bills) != 2 {
		t.Fatalf("got %d bills, want 2", len(bills))
	}
	if bills[0]["id"] != "c1-2024-01" || bills[0]["total"] != "100" {
		t.Errorf("first bill = %v", bills[0])
	}
}

func TestCreateTransaction(t *testing.T) {
	s := newTestServer()
	var gotUser string
	var got ledger.NewTransaction
	s.ledger.AddTransactionFunc = func(ctx context.Context, userID string, in ledger.NewTransaction) (ledger.AddResult, error) {
		gotUser, got = userID, in
		return ledger.AddResult{TransactionIDs: []string{"x-1", "x-2"}}, nil
	}

	body := `{"user_id":"u1","date":"2024-01-10","description":"TV","type":"credit_card",` +
		`"value":"300.00","category":"Casa","card_id":"c1","installments":2}`
	rec := s.do(http.MethodPost, "/api/transactions", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201 (body %s)", rec.Code, rec.Body.String())
	}

	if gotUser != "u1" {
		t.Errorf("user = %q, want u1", gotUser)
	}
	if got.Date != (civil.Date{Year: 2024, Month: time.January, Day: 10}) {
		t.Errorf("date = %v", got.Date)
	}
	if !got.Value.Equal(decimal.RequireFromString("300")) || got.Installments != 2 || got.CardID != "c1" {
		t.Errorf("transaction = %+v", got)
	}
}

func TestCreateTransaction_ValidationError(t *testing.T) {
	s := newTestServer()
	s.ledger.AddTransactionFunc = func(ctx context.Context, userID string, in ledger.NewTransaction) (ledger.AddResult, error) {
		return ledger.AddResult{}, &ledger.OpError{
			Op:  "AddTransaction",
			Err: billing.NewValidationError("value", "-1", "must not be negative", billing.ErrNegativeValue),
		}
	}

	rec := s.do(http.MethodPost, "/api/transactions", `{"user_id":"u1","value":"-1"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestDeleteTransaction(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantMode   ledger.DeleteMode
	}{
		{"deleted", nil, http.StatusOK, ledger.DeleteAll},
		{"not found", &ledger.OpError{Op: "DeleteTransaction", Err: ledger.ErrNotFound}, http.StatusNotFound, ledger.DeleteAll},
		{"storage failure", errors.New("bigquery unavailable"), http.StatusInternalServerError, ledger.DeleteAll},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer()
			var gotID string
			var gotMode ledger.DeleteMode
			s.ledger.DeleteTransactionFunc = func(ctx context.Context, userID, id string, mode ledger.DeleteMode) (int64, error) {
				gotID, gotMode = id, mode
				return 3, tt.err
			}

			rec := s.do(http.MethodDelete, "/api/transactions/abc-1?user_id=u1&mode=all", "")
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if gotID != "abc-1" || gotMode != tt.wantMode {
				t.Errorf("got id=%q mode=%q", gotID, gotMode)
			}
			if tt.wantStatus == http.StatusInternalServerError && strings.Contains(rec.Body.String(), "bigquery") {
				t.Errorf("internal error leaked to client: %s", rec.Body.String())
			}
		})
	}
}

func TestSetBillPaid(t *testing.T) {
	s := newTestServer()
	var gotPeriod billing.Period
	var gotPaid bool
	s.ledger.ToggleBillPaidFunc = func(ctx context.Context, userID, cardID string, period billing.Period, paid bool) (int64, error) {
		gotPeriod, gotPaid = period, paid
		return 4, nil
	}

	rec := s.do(http.MethodPost, "/api/bills/paid", `{"user_id":"u1","card_id":"c1","month":12,"year":2023,"paid":true}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if gotPeriod != (billing.Period{Month: 12, Year: 2023}) || !gotPaid {
		t.Errorf("got period=%v paid=%v", gotPeriod, gotPaid)
	}
	if got := decodeMap(t, rec); got["updated"] != float64(4) {
		t.Errorf("updated = %v, want 4", got["updated"])
	}
}

func TestDeleteByPeriod(t *testing.T) {
	s := newTestServer()
	var got billing.Period
	s.ledger.DeleteByPeriodFunc = func(ctx context.Context, userID string, period billing.Period) (int64, error) {
		got = period
		return 7, nil
	}

	rec := s.do(http.MethodDelete, "/api/transactions?user_id=u1&month=2&year=2024", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got != (billing.Period{Month: 2, Year: 2024}) {
		t.Errorf("period = %v", got)
	}
}

func TestChat(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"answered", nil, http.StatusOK},
		{"invalid request", fmt.Errorf("Chat: %w", assistant.ErrInvalidRequest), http.StatusBadRequest},
		{"model failure", errors.New("model down"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer()
			s.assistant.ChatFunc = func(ctx context.Context, req assistant.ChatRequest) (assistant.ChatResponse, error) {
				return assistant.ChatResponse{Text: "Sua fatura é R$ 100,00"}, tt.err
			}

			rec := s.do(http.MethodPost, "/api/chat", `{"user_id":"u1","message":"quanto é a fatura?"}`)
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestJobsEndpoints(t *testing.T) {
	s := newTestServer()

	rec := s.do(http.MethodPost, "/api/jobs/report", `{"user_id":"u1","date":"2024-01-31"}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202 (body %s)", rec.Code, rec.Body.String())
	}
	got := decodeMap(t, rec)
	if got["job_id"] != "job-1" || got["type"] != string(jobs.JobTypeExportReport) {
		t.Errorf("response = %v", got)
	}

	rec = s.do(http.MethodPost, "/api/jobs/sync-bills", `{"months":3}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("sync without user: status = %d, want 400", rec.Code)
	}

	job := jobs.NewSyncBillsJob(jobs.SyncBillsJob{UserID: "u1"})
	job.JobID = "known"
	job.Status = jobs.JobStatusCompleted
	if err := s.store.SaveJob(context.Background(), job); err != nil {
		t.Fatalf("SaveJob: %v", err)
	}

	rec = s.do(http.MethodGet, "/api/jobs/known", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := decodeMap(t, rec); got["status"] != string(jobs.JobStatusCompleted) {
		t.Errorf("status field = %v", got["status"])
	}
}
