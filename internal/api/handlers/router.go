package handlers

import (
	"net/http"
	"time"

	"github.com/dvloznov/rosacash/internal/jobs"
)

// Deps are the services behind the HTTP API.
type Deps struct {
	Ledger    Ledger
	Assistant Assistant
	Publisher jobs.Publisher
	Jobs      jobs.JobStore
	Now       Clock
}

// NewRouter registers every endpoint on a new ServeMux.
func NewRouter(d Deps) *http.ServeMux {
	now := d.Now
	if now == nil {
		now = time.Now
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", Health(now))

	NewBillsHandler(d.Ledger, now).Register(mux)
	NewTransactionsHandler(d.Ledger, now).Register(mux)
	NewCatalogHandler(d.Ledger).Register(mux)
	NewAssistantHandler(d.Assistant).Register(mux)
	NewJobsHandler(d.Publisher, d.Jobs).Register(mux)

	return mux
}
