// Package notionsync mirrors ledger records into a Notion database, one page
// per record.
package notionsync

import (
	"context"
	"fmt"
	"os"

	"github.com/jomei/notionapi"
)

// NotionClient implements NotionService with the Notion SDK.
type NotionClient struct {
	client *notionapi.Client
}

func NewNotionClient(token string) *NotionClient {
	return &NotionClient{
		client: notionapi.NewClient(notionapi.Token(token)),
	}
}

// NewNotionClientFromEnv reads the integration token from the environment
// variable tokenEnv.
func NewNotionClientFromEnv(tokenEnv string) (*NotionClient, error) {
	token := os.Getenv(tokenEnv)
	if token == "" {
		return nil, fmt.Errorf("NewNotionClientFromEnv: %s is not set", tokenEnv)
	}
	return NewNotionClient(token), nil
}

func (n *NotionClient) CreatePage(ctx context.Context, databaseID string, properties notionapi.Properties) (*notionapi.Page, error) {
	page, err := n.client.Page.Create(ctx, &notionapi.PageCreateRequest{
		Parent: notionapi.Parent{
			Type:       notionapi.ParentTypeDatabaseID,
			DatabaseID: notionapi.DatabaseID(databaseID),
		},
		Properties: properties,
	})
	if err != nil {
		return nil, fmt.Errorf("CreatePage: %w", err)
	}
	return page, nil
}

func (n *NotionClient) UpdatePage(ctx context.Context, pageID string, properties notionapi.Properties) (*notionapi.Page, error) {
	page, err := n.client.Page.Update(ctx, notionapi.PageID(pageID), &notionapi.PageUpdateRequest{
		Properties: properties,
	})
	if err != nil {
		return nil, fmt.Errorf("UpdatePage %s: %w", pageID, err)
	}
	return page, nil
}

func (n *NotionClient) QueryDatabase(ctx context.Context, databaseID string, filter *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
	resp, err := n.client.Database.Query(ctx, notionapi.DatabaseID(databaseID), filter)
	if err != nil {
		return nil, fmt.Errorf("QueryDatabase: %w", err)
	}
	return resp, nil
}

func (n *NotionClient) DeletePage(ctx context.Context, pageID string) error {
	if _, err := n.client.Page.Update(ctx, notionapi.PageID(pageID), &notionapi.PageUpdateRequest{
		Archived: true,
	}); err != nil {
		return fmt.Errorf("DeletePage %s: %w", pageID, err)
	}
	return nil
}

var _ NotionService = (*NotionClient)(nil)
