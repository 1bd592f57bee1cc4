/*
watcher.go - Background campaign lifecycle watcher

PURPOSE:
  Campaign status is derived from the calendar, so a campaign silently
  becomes active, ended or upcoming at midnight. The watcher periodically
  evaluates the catalog, logs each status transition and keeps the most
  recent ones for GET /api/campaigns/lifecycle.

DESIGN:
  - Runs a background goroutine with a configurable check interval
  - The first pass only records a baseline; it reports no transitions
  - Keeps at most MaxChanges transitions, newest first
  - Never writes campaigns: status stays derived

USAGE:
  watcher := NewLifecycleWatcher(handler.Campaigns, clock, logger)
  handler.Watcher = watcher
  watcher.Start()
  // ... later
  watcher.Stop()

SEE ALSO:
  - loyalty/lifecycle.go: EvaluateLifecycle
*/
package api

import (
	"context"
	"sync"
	"time"

	"github.com/warp/loyalty-engine/loyalty"
	"go.uber.org/zap"
)

// MaxChanges bounds the transition history kept in memory.
const MaxChanges = 100

// LifecycleWatcher reports campaign status transitions.
type LifecycleWatcher struct {
	Campaigns     loyalty.CampaignStore
	Clock         loyalty.Clock
	Logger        *zap.Logger
	CheckInterval time.Duration

	mu       sync.Mutex
	statuses map[loyalty.CampaignID]loyalty.Status
	changes  []LifecycleChangeDTO
	ticker   *time.Ticker
	stop     chan struct{}
	wg       sync.WaitGroup
}

func NewLifecycleWatcher(campaigns loyalty.CampaignStore, clock loyalty.Clock, log *zap.Logger) *LifecycleWatcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &LifecycleWatcher{
		Campaigns:     campaigns,
		Clock:         clock,
		Logger:        log.Named("lifecycle"),
		CheckInterval: 5 * time.Minute,
	}
}

// Start begins periodic checks. Calling Start twice is a no-op.
func (lw *LifecycleWatcher) Start() {
	lw.mu.Lock()
	defer lw.mu.Unlock()

	if lw.ticker != nil {
		return
	}
	lw.ticker = time.NewTicker(lw.CheckInterval)
	lw.stop = make(chan struct{})
	lw.wg.Add(1)
	go lw.run(lw.ticker, lw.stop)

	lw.Logger.Info("watcher started", zap.Duration("interval", lw.CheckInterval))
}

// Stop halts the watcher and waits for the running check to finish.
func (lw *LifecycleWatcher) Stop() {
	lw.mu.Lock()
	if lw.ticker == nil {
		lw.mu.Unlock()
		return
	}
	lw.ticker.Stop()
	close(lw.stop)
	lw.ticker = nil
	lw.mu.Unlock()

	lw.wg.Wait()
	lw.Logger.Info("watcher stopped")
}

func (lw *LifecycleWatcher) run(ticker *time.Ticker, stop <-chan struct{}) {
	defer lw.wg.Done()

	lw.Check(context.Background())
	for {
		select {
		case <-ticker.C:
			lw.Check(context.Background())
		case <-stop:
			return
		}
	}
}

// Check evaluates every campaign once and returns the transitions found.
func (lw *LifecycleWatcher) Check(ctx context.Context) []LifecycleChangeDTO {
	campaigns, err := lw.Campaigns.List(ctx)
	if err != nil {
		lw.Logger.Error("failed to list campaigns", zap.Error(err))
		return nil
	}

	now := lw.Clock.Now()
	today := loyalty.DayOf(now)

	lw.mu.Lock()
	defer lw.mu.Unlock()

	baseline := lw.statuses == nil
	next := make(map[loyalty.CampaignID]loyalty.Status, len(campaigns))
	var found []LifecycleChangeDTO
	for _, c := range campaigns {
		status := loyalty.EvaluateLifecycle(c, today)
		next[c.ID] = status

		prev, seen := lw.statuses[c.ID]
		if baseline || !seen || prev == status {
			continue
		}
		change := LifecycleChangeDTO{
			CampaignID:   string(c.ID),
			CampaignName: c.Name,
			From:         string(prev),
			To:           string(status),
			ObservedAt:   now,
		}
		found = append(found, change)
		lw.Logger.Info("campaign status changed",
			zap.String("campaign_id", change.CampaignID),
			zap.String("from", change.From),
			zap.String("to", change.To),
		)
	}
	lw.statuses = next

	for _, change := range found {
		lw.changes = append([]LifecycleChangeDTO{change}, lw.changes...)
	}
	if len(lw.changes) > MaxChanges {
		lw.changes = lw.changes[:MaxChanges]
	}
	return found
}

// Changes returns recorded transitions, newest first.
func (lw *LifecycleWatcher) Changes() []LifecycleChangeDTO {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	return append([]LifecycleChangeDTO{}, lw.changes...)
}

// Forget drops the baseline and history, e.g. after a data reset.
func (lw *LifecycleWatcher) Forget() {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	lw.statuses = nil
	lw.changes = nil
}
