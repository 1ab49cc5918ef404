package notion

import (
	"testing"

	"github.com/jomei/notionapi"
)

func TestPageResult(t *testing.T) {
	result := &PageResult{
		PageID:    "page-123",
		URL:       "https://notion.so/page-123",
		CreatedAt: "2024-01-01T00:00:00Z",
		UpdatedAt: "2024-01-02T00:00:00Z",
	}

	if result.PageID != "page-123" {
		t.Errorf("PageID = %q, expected %q", result.PageID, "page-123")
	}
	if result.URL != "https://notion.so/page-123" {
		t.Errorf("URL = %q, expected %q", result.URL, "https://notion.so/page-123")
	}
}

// TestBatchSizeCalculation verifies the batch size logic for appending blocks.
func TestBatchSizeCalculation(t *testing.T) {
	tests := []struct {
		name          string
		totalBlocks   int
		batchSize     int
		expectedBatch int
	}{
		{"fewer blocks than batch size", 50, 100, 1},
		{"exactly batch size", 100, 100, 1},
		{"more blocks than batch size", 150, 100, 2},
		{"multiple full batches", 300, 100, 3},
		{"custom batch size", 100, 25, 4},
		{"single block", 1, 100, 1},
		{"zero blocks", 0, 100, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			batches := 0
			for i := 0; i < tt.totalBlocks; i += tt.batchSize {
				batches++
			}
			if batches != tt.expectedBatch {
				t.Errorf("batch count = %d, expected %d", batches, tt.expectedBatch)
			}
		})
	}
}

// TestBatchBoundaries verifies block slicing for batches.
func TestBatchBoundaries(t *testing.T) {
	blocks := make([]notionapi.Block, 250)
	for i := range blocks {
		blocks[i] = &notionapi.CodeBlock{}
	}

	batchSize := 100
	var batches [][]notionapi.Block
	for i := 0; i < len(blocks); i += batchSize {
		end := i + batchSize
		if end > len(blocks) {
			end = len(blocks)
		}
		batches = append(batches, blocks[i:end])
	}

	if len(batches) != 3 {
		t.Fatalf("batch count = %d, expected 3", len(batches))
	}
	if len(batches[0]) != 100 || len(batches[1]) != 100 || len(batches[2]) != 50 {
		t.Errorf("batch sizes = %d, %d, %d; expected 100, 100, 50", len(batches[0]), len(batches[1]), len(batches[2]))
	}
}

// TestClientBatchSizeOption verifies batch size configuration.
func TestClientBatchSizeOption(t *testing.T) {
	tests := []struct {
		name     string
		size     int
		expected int
	}{
		{"small batch", 25, 25},
		{"default batch", 100, 100},
		{"large batch", 200, 200},
		{"single item batch", 1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := New("test-token", WithBatchSize(tt.size))
			if client.batchSize != tt.expected {
				t.Errorf("batchSize = %d, expected %d", client.batchSize, tt.expected)
			}
		})
	}
}

func TestRemapTitlePropertyForPage(t *testing.T) {
	props := notionapi.Properties{
		"Name": notionapi.TitleProperty{
			Title: []notionapi.RichText{{PlainText: "hello"}},
		},
		"Status": notionapi.SelectProperty{Select: notionapi.Option{Name: "Done"}},
	}

	remapped := remapTitlePropertyForPage(props)

	title, ok := remapped["title"].(notionapi.TitleProperty)
	if !ok || len(title.Title) == 0 || title.Title[0].PlainText != "hello" {
		t.Fatalf("expected remapped title property, got %+v", remapped)
	}
	if _, ok := remapped["Status"]; ok {
		t.Error("expected non-title properties to be dropped for a page parent")
	}
}

func TestRemapTitlePropertyForPage_Nil(t *testing.T) {
	remapped := remapTitlePropertyForPage(nil)
	if remapped == nil {
		t.Fatal("expected a non-nil empty Properties map")
	}
	if len(remapped) != 0 {
		t.Errorf("expected empty map, got %+v", remapped)
	}
}
