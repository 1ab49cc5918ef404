// Package notion provides a Notion API client wrapper with rate limiting
// and batch operations for the obsidian-notion sync tool.
package notion

import (
	"context"
	"time"

	"github.com/jomei/notionapi"
	"golang.org/x/time/rate"
)

const (
	// DefaultRateLimit is the default requests per second (Notion's limit is 3/sec).
	DefaultRateLimit = 3

	// DefaultBatchSize is the max blocks per append request.
	DefaultBatchSize = 100
)

// Client wraps the Notion API client with rate limiting and helper methods.
type Client struct {
	api       *notionapi.Client
	limiter   *rate.Limiter
	batchSize int
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithRateLimit sets a custom rate limit.
func WithRateLimit(requestsPerSecond float64) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), 1)
	}
}

// WithBatchSize sets a custom batch size for block operations.
func WithBatchSize(size int) ClientOption {
	return func(c *Client) {
		c.batchSize = size
	}
}

// New creates a new Notion API client with rate limiting.
func New(token string, opts ...ClientOption) *Client {
	c := &Client{
		api:       notionapi.NewClient(notionapi.Token(token)),
		limiter:   rate.NewLimiter(rate.Every(time.Second/DefaultRateLimit), 1),
		batchSize: DefaultBatchSize,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// wait blocks until the rate limiter allows a request.
func (c *Client) wait(ctx context.Context) error {
	return c.limiter.Wait(ctx)
}
