// Package feed provides a polling fallback for the agent change feed.
//
// Deployments without a push bridge on /ingest can point the poller at a
// JSON snapshot endpoint; it diffs each snapshot against the mirrored store
// and applies the result as ordinary added/modified/removed changes, so the
// rest of the pipeline cannot tell the two sources apart.
package feed

import (
	"context"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/swarmlens/backend/internal/domain/swarm"
	"github.com/swarmlens/backend/internal/infrastructure/logging"
	"github.com/swarmlens/backend/internal/shared/types"
)

// Poller periodically fetches an agent snapshot and reconciles the store
type Poller struct {
	client   *resty.Client
	url      string
	interval time.Duration
	store    *swarm.Store
	logger   *logging.Logger
}

// NewPoller creates a snapshot poller against the given URL
func NewPoller(url string, interval time.Duration, store *swarm.Store, logger *logging.Logger) *Poller {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	client := resty.New().
		SetTimeout(10 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(250 * time.Millisecond)

	return &Poller{
		client:   client,
		url:      url,
		interval: interval,
		store:    store,
		logger:   logger,
	}
}

// Run polls until the context is cancelled
func (p *Poller) Run(ctx context.Context) {
	p.logger.Info("feed poller starting",
		zap.String("url", p.url),
		zap.Duration("interval", p.interval),
	)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("feed poller stopped")
			return
		case <-ticker.C:
			p.poll(ctx)
		}
	}
}

func (p *Poller) poll(ctx context.Context) {
	var agents []types.Agent
	resp, err := p.client.R().
		SetContext(ctx).
		SetResult(&agents).
		Get(p.url)
	if err != nil {
		p.logger.Warn("feed poll failed", zap.Error(err))
		return
	}
	if resp.IsError() {
		p.logger.Warn("feed poll returned error status",
			zap.Int("status", resp.StatusCode()),
		)
		return
	}

	p.reconcile(agents)
}

// reconcile diffs a fetched snapshot against the store. Present-but-new
// becomes added, present-and-known becomes modified (the store elides
// no-op status changes itself), and known-but-absent becomes removed.
func (p *Poller) reconcile(fetched []types.Agent) {
	seen := make(map[string]struct{}, len(fetched))
	for _, agent := range fetched {
		if agent.ID == "" {
			continue
		}
		seen[agent.ID] = struct{}{}

		kind := types.ChangeModified
		if _, ok := p.store.Get(agent.ID); !ok {
			kind = types.ChangeAdded
		}
		p.store.Apply(types.Change{Kind: kind, Agent: agent})
	}

	for _, existing := range p.store.Snapshot() {
		if _, ok := seen[existing.ID]; !ok {
			p.store.Apply(types.Change{Kind: types.ChangeRemoved, Agent: existing})
		}
	}
}
