package notionsync

import (
	"context"
	"fmt"

	"cloud.google.com/go/civil"
	"github.com/jomei/notionapi"

	"github.com/dvloznov/rosacash/internal/billing"
	"github.com/dvloznov/rosacash/internal/logger"
)

// pageSize is the Notion maximum for database queries.
const pageSize = 100

// SyncResult counts what a sync did, or would do in a dry run.
type SyncResult struct {
	Created  int `json:"created"`
	Updated  int `json:"updated"`
	Archived int `json:"archived"`
	Failed   int `json:"failed"`
}

// SyncBills mirrors the next months bills of every card into a Notion database keyed by Bill ID.
// Existing pages are updated, missing ones created, and pages of bills no longer present archived.
// Bills without purchases are not mirrored. A dry run only logs.
func SyncBills(ctx context.Context, snap billing.Snapshot, notion NotionService, dbID string, now civil.Date, months int, dryRun bool) (SyncResult, error) {
	log := logger.FromContext(ctx)
	var res SyncResult

	if months < 1 {
		return res, billing.NewValidationError("months", months, "must be at least 1", billing.ErrInvalidRange)
	}

	log.Info().
		Str("now", now.String()).
		Int("months", months).
		Bool("dry_run", dryRun).
		Msg("Starting bill sync to Notion")

	upcoming, err := billing.UpcomingBills(snap, now, months)
	if err != nil {
		return res, fmt.Errorf("failed to compute upcoming bills: %w", err)
	}

	bills := make(map[string]billing.Bill)
	var order []string
	for _, b := range upcoming {
		if b.Count == 0 {
			continue
		}
		bills[b.ID()] = b
		order = append(order, b.ID())
	}

	pages, err := queryAllNotionPages(ctx, notion, dbID)
	if err != nil {
		return res, fmt.Errorf("failed to query Notion pages: %w", err)
	}
	log.Info().Int("bill_count", len(order)).Int("notion_page_count", len(pages)).Msg("Loaded bills and Notion pages")

	existing := make(map[string]string)
	for _, page := range pages {
		billID := extractBillID(page)
		if billID != "" && existing[billID] == "" {
			if _, ok := bills[billID]; ok {
				existing[billID] = string(page.ID)
				continue
			}
		}

		if dryRun {
			log.Info().Str("bill_id", billID).Str("page_id", string(page.ID)).Msg("[DRY RUN] Would archive stale Notion page")
			res.Archived++
			continue
		}
		if err := notion.ArchivePage(ctx, string(page.ID)); err != nil {
			log.Warn().Err(err).Str("bill_id", billID).Str("page_id", string(page.ID)).Msg("Failed to archive stale Notion page")
			res.Failed++
			continue
		}
		res.Archived++
	}

	for _, id := range order {
		props := BillToNotionProperties(bills[id])
		pageID, ok := existing[id]

		if dryRun {
			if ok {
				log.Info().Str("bill_id", id).Str("page_id", pageID).Msg("[DRY RUN] Would update Notion page")
				res.Updated++
			} else {
				log.Info().Str("bill_id", id).Msg("[DRY RUN] Would create Notion page")
				res.Created++
			}
			continue
		}

		if ok {
			if _, err := notion.UpdatePage(ctx, pageID, props); err != nil {
				log.Warn().Err(err).Str("bill_id", id).Str("page_id", pageID).Msg("Failed to update Notion page")
				res.Failed++
				continue
			}
			res.Updated++
			continue
		}

		page, err := notion.CreatePage(ctx, dbID, props)
		if err != nil {
			log.Warn().Err(err).Str("bill_id", id).Msg("Failed to create Notion page")
			res.Failed++
			continue
		}
		log.Debug().Str("bill_id", id).Str("page_id", string(page.ID)).Msg("Created Notion page")
		res.Created++
	}

	log.Info().
		Int("created", res.Created).
		Int("updated", res.Updated).
		Int("archived", res.Archived).
		Int("failed", res.Failed).
		Msg("Bill sync completed")

	return res, nil
}

// queryAllNotionPages queries all pages from a Notion database, following pagination.
func queryAllNotionPages(ctx context.Context, notion NotionService, databaseID string) ([]notionapi.Page, error) {
	var all []notionapi.Page
	var cursor notionapi.Cursor

	for {
		req := &notionapi.DatabaseQueryRequest{PageSize: pageSize}
		if cursor != "" {
			req.StartCursor = cursor
		}

		resp, err := notion.QueryDatabase(ctx, databaseID, req)
		if err != nil {
			return nil, fmt.Errorf("queryAllNotionPages: %w", err)
		}

		all = append(all, resp.Results...)
		if !resp.HasMore {
			break
		}
		cursor = resp.NextCursor
	}

	return all, nil
}
