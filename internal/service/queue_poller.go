package service

import (
	"context"
	"log/slog"
	"time"
)

// Publisher receives each fresh queue snapshot; satisfied by the ws hub.
type Publisher interface {
	Publish(snapshot interface{})
}

// QueuePoller refreshes the ranked queue on a fixed cadence and hands the
// snapshot to a publisher. It owns no ranking logic and keeps no queue state.
type QueuePoller struct {
	queueSvc *QueueService
	pub      Publisher
	interval time.Duration
}

func NewQueuePoller(queueSvc *QueueService, pub Publisher, interval time.Duration) *QueuePoller {
	return &QueuePoller{queueSvc: queueSvc, pub: pub, interval: interval}
}

// Run blocks until ctx is done. One snapshot is published immediately so
// clients connecting at startup are not blank until the first tick; snapshot
// failures are logged and retried on the next tick.
func (p *QueuePoller) Run(ctx context.Context) {
	p.refresh(ctx)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.refresh(ctx)
		}
	}
}

func (p *QueuePoller) refresh(ctx context.Context) {
	snap, err := p.queueSvc.Snapshot(ctx)
	if err != nil {
		slog.Warn("queue poller: snapshot failed", "error", err)
		return
	}
	p.pub.Publish(snap)
}
