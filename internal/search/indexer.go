// Package search mirrors upcoming card bills into Elasticsearch.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esutil"

	"github.com/dvloznov/rosacash/internal/logger"
	"github.com/dvloznov/rosacash/internal/report"
)

const (
	DefaultIndex = "rosacash-bills"
	defaultURL   = "http://localhost:9200"

	flushBytes = 2048
	maxRetries = 5
)

// BillDocument is one upcoming bill as indexed.
type BillDocument struct {
	ID       string `json:"id"`
	UserID   string `json:"user_id"`
	RunID    string `json:"run_id"`
	AsOf     string `json:"as_of"`
	CardID   string `json:"card_id"`
	CardName string `json:"card_name"`
	Period   string `json:"period"`
	DueDate  string `json:"due_date"`
	Total    string `json:"total"`
	Count    int    `json:"count"`
	Paid     bool   `json:"paid"`
}

// BillIndexer is a report sink that bulk-indexes the upcoming bills of each report.
type BillIndexer struct {
	client *elasticsearch.Client
	index  string
}

// NewBillIndexer creates an indexer talking to urls. Requests answered with 429, 502, 503
// or 504 are retried with exponential backoff.
func NewBillIndexer(urls []string, index string) (*BillIndexer, error) {
	if len(urls) == 0 {
		urls = []string{defaultURL}
	}
	if index == "" {
		index = DefaultIndex
	}

	var mu sync.Mutex
	retryBackoff := backoff.NewExponentialBackOff()

	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses:     urls,
		RetryOnStatus: []int{502, 503, 504, 429},
		RetryBackoff: func(i int) time.Duration {
			mu.Lock()
			defer mu.Unlock()
			if i == 1 {
				retryBackoff.Reset()
			}
			return retryBackoff.NextBackOff()
		},
		MaxRetries: maxRetries,
	})
	if err != nil {
		return nil, fmt.Errorf("create elasticsearch client: %w", err)
	}

	return &BillIndexer{client: es, index: index}, nil
}

func (b *BillIndexer) Name() string { return "elasticsearch" }

// Documents returns the documents indexed for r, one per upcoming bill.
func Documents(r *report.Report) []BillDocument {
	docs := make([]BillDocument, 0, len(r.Upcoming))
	for _, bill := range r.Upcoming {
		docs = append(docs, BillDocument{
			ID:       r.UserID + "-" + bill.ID,
			UserID:   r.UserID,
			RunID:    r.RunID,
			AsOf:     r.AsOf,
			CardID:   bill.CardID,
			CardName: bill.CardName,
			Period:   bill.Period,
			DueDate:  bill.DueDate,
			Total:    bill.Total,
			Count:    bill.Count,
			Paid:     bill.Paid,
		})
	}
	return docs
}

// Export indexes the upcoming bills of r. Documents are keyed by user and bill so a later
// report overwrites the earlier state of the same bill.
func (b *BillIndexer) Export(ctx context.Context, r *report.Report) (string, error) {
	log := logger.FromContext(ctx).With().Str("index", b.index).Logger()

	docs := Documents(r)
	if len(docs) == 0 {
		return "", nil
	}

	res, err := b.client.Indices.Create(b.index, b.client.Indices.Create.WithContext(ctx))
	if err != nil {
		log.Debug().Err(err).Msg("Attempted to create index")
	} else {
		res.Body.Close()
	}

	bi, err := esutil.NewBulkIndexer(esutil.BulkIndexerConfig{
		Index:         b.index,
		FlushBytes:    flushBytes,
		Client:        b.client,
		NumWorkers:    4,
		FlushInterval: 10 * time.Second,
	})
	if err != nil {
		return "", fmt.Errorf("create bulk indexer: %w", err)
	}

	for _, doc := range docs {
		data, err := json.Marshal(doc)
		if err != nil {
			return "", fmt.Errorf("marshal bill %s: %w", doc.ID, err)
		}

		err = bi.Add(ctx, esutil.BulkIndexerItem{
			Action:     "index",
			DocumentID: doc.ID,
			Body:       bytes.NewReader(data),
			OnFailure: func(ctx context.Context, item esutil.BulkIndexerItem, res esutil.BulkIndexerResponseItem, err error) {
				if err != nil {
					log.Warn().Err(err).Str("doc_id", item.DocumentID).Msg("Failed to index bill")
				} else {
					log.Warn().Str("doc_id", item.DocumentID).Str("type", res.Error.Type).Str("reason", res.Error.Reason).Msg("Failed to index bill")
				}
			},
		})
		if err != nil {
			return "", fmt.Errorf("add bill %s: %w", doc.ID, err)
		}
	}

	if err := bi.Close(ctx); err != nil {
		return "", fmt.Errorf("flush bulk indexer: %w", err)
	}

	stats := bi.Stats()
	if stats.NumFailed > 0 {
		return "", fmt.Errorf("failed indexing %d of %d bills", stats.NumFailed, len(docs))
	}

	log.Info().Uint64("indexed", stats.NumFlushed).Msg("Indexed upcoming bills")
	return "", nil
}
