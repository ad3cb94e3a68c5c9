package notionsync

import (
	"context"
	"fmt"

	"github.com/jomei/notionapi"

	"github.com/dvloznov/cheqd-ledger/internal/ledger"
	"github.com/dvloznov/cheqd-ledger/internal/logger"
)

// PageSize is the number of pages requested per database query.
const PageSize = 100

// Options control a sync run.
type Options struct {
	DryRun bool
	// Prune archives pages whose record key is not among the synced records.
	Prune bool
}

// Stats counts what a sync did, or would do in a dry run.
type Stats struct {
	Created int
	Updated int
	Deleted int
	Failed  int
}

// SyncLedger makes the Notion database match records. Pages are matched on
// the Record Key property; existing pages are updated in place. Failures on
// individual pages are logged and counted, not returned.
func SyncLedger(ctx context.Context, svc NotionService, databaseID string, records []*ledger.Record, opts Options) (*Stats, error) {
	log := logger.FromContext(ctx)
	log.Info().
		Int("records", len(records)).
		Bool("dry_run", opts.DryRun).
		Bool("prune", opts.Prune).
		Msg("Starting ledger sync to Notion")

	pages, err := queryAllNotionPages(ctx, svc, databaseID)
	if err != nil {
		return nil, fmt.Errorf("SyncLedger: %w", err)
	}
	log.Info().Int("notion_page_count", len(pages)).Msg("Retrieved existing Notion pages")

	pageByKey := make(map[string]string, len(pages))
	for _, page := range pages {
		if key := extractRecordKey(page); key != "" {
			pageByKey[key] = string(page.ID)
		}
	}

	stats := &Stats{}
	wanted := make(map[string]bool, len(records))
	for _, rec := range records {
		key := rec.Key()
		if wanted[key] {
			continue
		}
		wanted[key] = true
		entry := log.With().Str("record_key", key).Logger()

		pageID, exists := pageByKey[key]
		if opts.DryRun {
			if exists {
				entry.Info().Str("page_id", pageID).Msg("[DRY RUN] Would update Notion page")
				stats.Updated++
			} else {
				entry.Info().Msg("[DRY RUN] Would create Notion page")
				stats.Created++
			}
			continue
		}

		props := RecordToNotionProperties(rec)
		if exists {
			if _, err := svc.UpdatePage(ctx, pageID, props); err != nil {
				entry.Warn().Err(err).Str("page_id", pageID).Msg("Failed to update Notion page")
				stats.Failed++
				continue
			}
			stats.Updated++
			continue
		}
		page, err := svc.CreatePage(ctx, databaseID, props)
		if err != nil {
			entry.Warn().Err(err).Msg("Failed to create Notion page")
			stats.Failed++
			continue
		}
		entry.Debug().Str("page_id", string(page.ID)).Msg("Created Notion page")
		stats.Created++
	}

	if opts.Prune {
		for _, page := range pages {
			key := extractRecordKey(page)
			if key != "" && wanted[key] {
				continue
			}
			if opts.DryRun {
				log.Info().Str("record_key", key).Str("page_id", string(page.ID)).Msg("[DRY RUN] Would delete stale Notion page")
				stats.Deleted++
				continue
			}
			if err := svc.DeletePage(ctx, string(page.ID)); err != nil {
				log.Warn().Err(err).Str("record_key", key).Str("page_id", string(page.ID)).Msg("Failed to delete stale Notion page")
				stats.Failed++
				continue
			}
			stats.Deleted++
		}
	}

	log.Info().
		Int("created", stats.Created).
		Int("updated", stats.Updated).
		Int("deleted", stats.Deleted).
		Int("failed", stats.Failed).
		Msg("Ledger sync completed")
	return stats, nil
}

func queryAllNotionPages(ctx context.Context, svc NotionService, databaseID string) ([]notionapi.Page, error) {
	var all []notionapi.Page
	var cursor notionapi.Cursor
	for {
		req := &notionapi.DatabaseQueryRequest{PageSize: PageSize}
		if cursor != "" {
			req.StartCursor = cursor
		}
		resp, err := svc.QueryDatabase(ctx, databaseID, req)
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

// Publisher adapts SyncLedger to the conversion pipeline's publish step.
type Publisher struct {
	Service    NotionService
	DatabaseID string
	Options    Options
}

// PublishLedger syncs records and reports the pages created or updated.
func (p *Publisher) PublishLedger(ctx context.Context, runID string, records []*ledger.Record) (int, error) {
	stats, err := SyncLedger(ctx, p.Service, p.DatabaseID, records, p.Options)
	if err != nil {
		return 0, err
	}
	return stats.Created + stats.Updated, nil
}
