package notion

import (
	"context"
	"fmt"

	"github.com/jomei/notionapi"

	"github.com/obsidian-notion-sync/wikisync/internal/transformer"
)

// PageResult contains information about a created or updated page.
type PageResult struct {
	PageID    string
	URL       string
	CreatedAt string
	UpdatedAt string
}

// CreatePageUnderPage creates a new page as a child of another page, storing
// page.Body as one or more chunked content blocks.
func (c *Client) CreatePageUnderPage(ctx context.Context, parentPageID string, page *transformer.NotionPage) (*PageResult, error) {
	if err := c.wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}

	// Notion requires the title property to be named "title" (not "Name"
	// or any other custom name) when the parent is a page rather than a
	// database.
	props := remapTitlePropertyForPage(page.Properties)

	created, err := c.api.Page.Create(ctx, &notionapi.PageCreateRequest{
		Parent: notionapi.Parent{
			Type:   notionapi.ParentTypePageID,
			PageID: notionapi.PageID(parentPageID),
		},
		Properties: props,
	})
	if err != nil {
		return nil, fmt.Errorf("create page: %w", err)
	}

	pageID := string(created.ID)

	if err := c.appendBlocks(ctx, pageID, chunkXHTML(page.Body)); err != nil {
		return &PageResult{PageID: pageID}, fmt.Errorf("append body: %w", err)
	}

	return &PageResult{
		PageID:    pageID,
		URL:       created.URL,
		CreatedAt: created.CreatedTime.String(),
		UpdatedAt: created.LastEditedTime.String(),
	}, nil
}

// UpdatePage updates an existing page's properties and replaces its content
// wholesale with page.Body, re-chunked.
func (c *Client) UpdatePage(ctx context.Context, pageID string, page *transformer.NotionPage) error {
	existingPage, err := c.GetPage(ctx, pageID)
	if err != nil {
		return fmt.Errorf("get existing page: %w", err)
	}

	// Ensure props is never nil: a nil Properties serializes to JSON null,
	// which Notion rejects.
	props := page.Properties
	if props == nil {
		props = notionapi.Properties{}
	}
	if existingPage.Parent.Type == notionapi.ParentTypePageID {
		props = remapTitlePropertyForPage(props)
	}

	if err := c.wait(ctx); err != nil {
		return fmt.Errorf("rate limit: %w", err)
	}

	if _, err := c.api.Page.Update(ctx, notionapi.PageID(pageID), &notionapi.PageUpdateRequest{
		Properties: props,
	}); err != nil {
		return fmt.Errorf("update properties: %w", err)
	}

	if err := c.deleteAllBlocks(ctx, pageID); err != nil {
		return fmt.Errorf("delete content blocks: %w", err)
	}

	if err := c.appendBlocks(ctx, pageID, chunkXHTML(page.Body)); err != nil {
		return fmt.Errorf("append body: %w", err)
	}

	return nil
}

// CreatePageAtRoot creates a new page directly under the workspace, storing
// page.Body as chunked content blocks. Used when a tracked file moves to
// the space root, where there is no parent page to create it under.
func (c *Client) CreatePageAtRoot(ctx context.Context, page *transformer.NotionPage) (*PageResult, error) {
	if err := c.wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}

	props := remapTitlePropertyForPage(page.Properties)

	created, err := c.api.Page.Create(ctx, &notionapi.PageCreateRequest{
		Parent: notionapi.Parent{
			Workspace: true,
		},
		Properties: props,
	})
	if err != nil {
		return nil, fmt.Errorf("create page: %w", err)
	}

	pageID := string(created.ID)

	if err := c.appendBlocks(ctx, pageID, chunkXHTML(page.Body)); err != nil {
		return &PageResult{PageID: pageID}, fmt.Errorf("append body: %w", err)
	}

	return &PageResult{
		PageID:    pageID,
		URL:       created.URL,
		CreatedAt: created.CreatedTime.String(),
		UpdatedAt: created.LastEditedTime.String(),
	}, nil
}

// GetPage retrieves a page's properties by ID.
func (c *Client) GetPage(ctx context.Context, pageID string) (*notionapi.Page, error) {
	if err := c.wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}

	page, err := c.api.Page.Get(ctx, notionapi.PageID(pageID))
	if err != nil {
		return nil, fmt.Errorf("get page: %w", err)
	}

	return page, nil
}

// FetchPage retrieves a page's properties and reassembled storage-format
// body for pull operations.
func (c *Client) FetchPage(ctx context.Context, pageID string) (*transformer.NotionPage, error) {
	page, err := c.GetPage(ctx, pageID)
	if err != nil {
		return nil, err
	}

	blocks, err := c.GetAllBlocks(ctx, pageID)
	if err != nil {
		return nil, err
	}

	return &transformer.NotionPage{
		Properties: page.Properties,
		Body:       ReassembleXHTML(blocks),
	}, nil
}

// ArchivePage archives (soft deletes) a page.
func (c *Client) ArchivePage(ctx context.Context, pageID string) error {
	if err := c.wait(ctx); err != nil {
		return fmt.Errorf("rate limit: %w", err)
	}

	// Properties must be an empty map, not nil: a nil Properties serializes
	// to JSON null, which the Notion API rejects.
	_, err := c.api.Page.Update(ctx, notionapi.PageID(pageID), &notionapi.PageUpdateRequest{
		Properties: notionapi.Properties{},
		Archived:   true,
	})
	if err != nil {
		return fmt.Errorf("archive page: %w", err)
	}

	return nil
}

// DeletePage removes a page from the tree by archiving it. The Notion API
// has no hard-delete endpoint; archived pages land in Notion's trash and
// can be purged manually from there.
func (c *Client) DeletePage(ctx context.Context, pageID string) error {
	return c.ArchivePage(ctx, pageID)
}

// appendBlocks appends blocks to a page in batches.
func (c *Client) appendBlocks(ctx context.Context, pageID string, blocks []notionapi.Block) error {
	for i := 0; i < len(blocks); i += c.batchSize {
		end := i + c.batchSize
		if end > len(blocks) {
			end = len(blocks)
		}
		batch := blocks[i:end]

		if err := c.wait(ctx); err != nil {
			return fmt.Errorf("rate limit: %w", err)
		}

		_, err := c.api.Block.AppendChildren(ctx, notionapi.BlockID(pageID), &notionapi.AppendBlockChildrenRequest{
			Children: batch,
		})
		if err != nil {
			return fmt.Errorf("append batch %d-%d: %w", i, end, err)
		}
	}

	return nil
}

// deleteAllBlocks deletes all of a page's content blocks.
func (c *Client) deleteAllBlocks(ctx context.Context, pageID string) error {
	blocks, err := c.GetAllBlocks(ctx, pageID)
	if err != nil {
		return err
	}

	for _, block := range blocks {
		blockID := extractBlockID(block)
		if blockID == "" {
			continue
		}

		if err := c.wait(ctx); err != nil {
			return fmt.Errorf("rate limit: %w", err)
		}

		if _, err := c.api.Block.Delete(ctx, notionapi.BlockID(blockID)); err != nil {
			return fmt.Errorf("delete block %s: %w", blockID, err)
		}
	}

	return nil
}

// remapTitlePropertyForPage remaps a title property to the key "title",
// which Notion requires when the parent is a page rather than a database.
// Other properties are dropped: page parents have no schema to validate
// them against, and Notion rejects unknown property keys.
func remapTitlePropertyForPage(props notionapi.Properties) notionapi.Properties {
	if props == nil {
		return notionapi.Properties{}
	}

	result := make(notionapi.Properties)
	for _, value := range props {
		switch v := value.(type) {
		case notionapi.TitleProperty:
			result["title"] = v
		case *notionapi.TitleProperty:
			result["title"] = *v
		}
	}

	return result
}
