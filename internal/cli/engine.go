package cli

import (
	"github.com/obsidian-notion-sync/wikisync/internal/config"
	"github.com/obsidian-notion-sync/wikisync/internal/history"
	"github.com/obsidian-notion-sync/wikisync/internal/notion"
	"github.com/obsidian-notion-sync/wikisync/internal/orchestrator"
	"github.com/obsidian-notion-sync/wikisync/internal/remote"
)

// buildEngine wires one space binding's remote client and orchestrator
// together: the engine owns the path resolver and version cache, and the
// backend is built against that same resolver and cache so links and
// page mentions resolve consistently across both the push and pull
// directions (internal/remote/notion.go's WithPathLookup/WithPageCache
// exist specifically for this two-step construction).
func buildEngine(binding config.SpaceBinding, token string, hist *history.DB) (*orchestrator.Engine, error) {
	resolver := orchestrator.NewPathResolver()

	engine, err := orchestrator.NewEngine(binding, nil, resolver, hist)
	if err != nil {
		return nil, err
	}

	rl := config.DefaultRequestsPerSecond
	bs := config.DefaultBatchSize
	if cfg != nil {
		if cfg.RateLimit.RequestsPerSecond > 0 {
			rl = cfg.RateLimit.RequestsPerSecond
		}
		if cfg.RateLimit.BatchSize > 0 {
			bs = cfg.RateLimit.BatchSize
		}
	}

	api := notion.New(token,
		notion.WithRateLimit(rl),
		notion.WithBatchSize(bs),
	)

	workers := config.DefaultWorkers
	if cfg != nil && cfg.RateLimit.Workers > 0 {
		workers = cfg.RateLimit.Workers
	}

	backend := remote.NewNotionBackend(api, resolver,
		remote.WithPageCache(engine.Cache()),
		remote.WithPathLookup(resolver),
		remote.WithDiscoveryWorkers(workers),
	)

	engine.SetClient(backend)
	if cfg != nil {
		engine.SetPageLimit(cfg.PageLimit)
	}
	return engine, nil
}
