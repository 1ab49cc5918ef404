package notion

import (
	"context"
	"fmt"
	"strings"

	"github.com/jomei/notionapi"
)

// chunkSize is the largest slice of a page's XHTML body stored in a single
// block's rich text. Notion rejects a single rich text object over roughly
// 2000 characters, so a page's body is split across as many blocks as it
// takes to hold it.
const chunkSize = 1900

// chunkLanguage marks a chunk block so ReassembleXHTML can tell it apart
// from any other block type a page might someday hold.
const chunkLanguage = "html"

// chunkXHTML splits body into a sequence of code blocks, each carrying up
// to chunkSize characters of the storage-format document. Splitting on rune
// boundaries keeps multi-byte characters intact.
func chunkXHTML(body string) []notionapi.Block {
	if body == "" {
		return nil
	}

	runes := []rune(body)
	var blocks []notionapi.Block
	for i := 0; i < len(runes); i += chunkSize {
		end := i + chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		chunk := string(runes[i:end])
		blocks = append(blocks, &notionapi.CodeBlock{
			BasicBlock: notionapi.BasicBlock{
				Object: notionapi.ObjectTypeBlock,
				Type:   notionapi.BlockTypeCode,
			},
			Code: notionapi.Code{
				RichText: []notionapi.RichText{
					{Type: notionapi.ObjectTypeText, Text: &notionapi.Text{Content: chunk}, PlainText: chunk},
				},
				Language: chunkLanguage,
			},
		})
	}
	return blocks
}

// ReassembleXHTML concatenates a page's chunk blocks back into the
// storage-format body they were split from. Non-chunk blocks are ignored,
// so content a human added directly in the wiki UI doesn't break the read
// path; it just isn't round-tripped back to markdown.
func ReassembleXHTML(blocks []notionapi.Block) string {
	var b strings.Builder
	for _, block := range blocks {
		code, ok := block.(*notionapi.CodeBlock)
		if !ok || code.Code.Language != chunkLanguage {
			continue
		}
		for _, rt := range code.Code.RichText {
			b.WriteString(rt.PlainText)
		}
	}
	return b.String()
}

// GetAllBlocks retrieves a page's content blocks, handling pagination. A
// page's content is a flat list of chunk blocks, so no recursive descent
// into nested children is needed.
func (c *Client) GetAllBlocks(ctx context.Context, pageID string) ([]notionapi.Block, error) {
	var allBlocks []notionapi.Block
	var cursor notionapi.Cursor

	for {
		if err := c.wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit: %w", err)
		}

		resp, err := c.api.Block.GetChildren(ctx, notionapi.BlockID(pageID), &notionapi.Pagination{
			StartCursor: cursor,
			PageSize:    100,
		})
		if err != nil {
			return nil, fmt.Errorf("get children: %w", err)
		}

		allBlocks = append(allBlocks, resp.Results...)

		if !resp.HasMore {
			break
		}
		cursor = notionapi.Cursor(resp.NextCursor)
	}

	return allBlocks, nil
}

// extractBlockID gets the ID from a block interface.
func extractBlockID(block notionapi.Block) string {
	switch b := block.(type) {
	case *notionapi.CodeBlock:
		return string(b.ID)
	case *notionapi.ChildPageBlock:
		return string(b.ID)
	default:
		return ""
	}
}

