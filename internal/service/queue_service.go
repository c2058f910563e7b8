package service

import (
	"context"

	"buildline/internal/queue"
	"buildline/pkg/tracker"
)

// QueueService recomputes the ranked queue from a fresh open-issue snapshot on
// every call. No state between calls; freshness is traded for simplicity.
type QueueService struct {
	tracker    tracker.Client
	throughput int
	progress   queue.ProgressFunc
}

func NewQueueService(tc tracker.Client, throughputPerHour int, progress queue.ProgressFunc) *QueueService {
	return &QueueService{tracker: tc, throughput: throughputPerHour, progress: progress}
}

type QueueSnapshot struct {
	Items  []queue.Entry `json:"items"`
	Totals queue.Totals  `json:"totals"`
}

func (s *QueueService) Snapshot(ctx context.Context) (*QueueSnapshot, error) {
	issues, err := s.tracker.ListIssues(ctx, "open")
	if err != nil {
		return nil, err
	}
	entries := queue.Rank(issues, s.throughput, s.progress)
	return &QueueSnapshot{Items: entries, Totals: queue.CountTotals(entries)}, nil
}
