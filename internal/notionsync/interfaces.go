package notionsync

import (
	"context"

	"github.com/jomei/notionapi"
)

// NotionService defines the Notion operations the ledger sync needs.
// NotionClient implements it; tests use a mock.
type NotionService interface {
	CreatePage(ctx context.Context, databaseID string, properties notionapi.Properties) (*notionapi.Page, error)
	UpdatePage(ctx context.Context, pageID string, properties notionapi.Properties) (*notionapi.Page, error)
	QueryDatabase(ctx context.Context, databaseID string, filter *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error)

	// DeletePage archives the page.
	DeletePage(ctx context.Context, pageID string) error
}
