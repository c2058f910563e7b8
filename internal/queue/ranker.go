package queue

import (
	"fmt"
	"sort"

	"buildline/internal/domain"
	"buildline/internal/pricing"
	"buildline/pkg/tracker"
)

// Entry is one ranked work item. Recomputed from the live issue snapshot on
// every query, never stored.
type Entry struct {
	Number   int     `json:"number"`
	Title    string  `json:"title"`
	Status   string  `json:"status"`
	Priority string  `json:"priority"`
	Position int     `json:"position"`
	ETA      string  `json:"eta,omitempty"`
	Progress *string `json:"progress,omitempty"`
	Percent  *int    `json:"percent,omitempty"`
}

// ProgressFunc reports build progress for an in-flight item, when the build
// collaborator knows it. Returning ok=false falls back to a default descriptor.
type ProgressFunc func(number int) (descriptor string, percent int, ok bool)

// StatusOf derives a queue status from an item's labels with fixed precedence:
// completed > building > ready > failed. Unlabeled items count as queued.
func StatusOf(labels []string) string {
	set := make(map[string]bool, len(labels))
	for _, l := range labels {
		set[l] = true
	}
	switch {
	case set[domain.LabelCompleted]:
		return domain.StatusCompleted
	case set[domain.LabelBuilding]:
		return domain.StatusBuilding
	case set[domain.LabelReady]:
		return domain.StatusQueued
	case set[domain.LabelFailed]:
		return domain.StatusFailed
	}
	return domain.StatusQueued
}

// TierOf derives the priority tier from an item's labels; standard when no
// tier label is present.
func TierOf(labels []string) string {
	for _, l := range labels {
		switch l {
		case domain.LabelPriorityExpress:
			return domain.TierExpress
		case domain.LabelPriorityPriority:
			return domain.TierPriority
		}
	}
	return domain.TierStandard
}

// Rank orders a snapshot of work items by (tier rank, item number) and assigns
// 1-based positions and ETAs. Pure: same snapshot, same output.
func Rank(items []tracker.Issue, throughputPerHour int, progress ProgressFunc) []Entry {
	entries := make([]Entry, 0, len(items))
	for _, it := range items {
		entries = append(entries, Entry{
			Number:   it.Number,
			Title:    it.Title,
			Status:   StatusOf(it.Labels),
			Priority: TierOf(it.Labels),
		})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		ri, rj := pricing.Rank(entries[i].Priority), pricing.Rank(entries[j].Priority)
		if ri != rj {
			return ri < rj
		}
		return entries[i].Number < entries[j].Number
	})
	for i := range entries {
		entries[i].Position = i + 1
		switch entries[i].Status {
		case domain.StatusQueued:
			entries[i].ETA = ETA(entries[i].Position, throughputPerHour)
		case domain.StatusBuilding:
			desc, pct := "in progress", 50
			if progress != nil {
				if d, p, ok := progress(entries[i].Number); ok {
					desc, pct = d, p
				}
			}
			entries[i].Progress = &desc
			entries[i].Percent = &pct
		}
	}
	return entries
}

// ETA estimates the wait for a queue position at a fixed drain rate.
// Non-decreasing in position.
func ETA(position, throughputPerHour int) string {
	if throughputPerHour <= 0 {
		throughputPerHour = 1
	}
	if position < throughputPerHour {
		return "< 1 hour"
	}
	hours := (position + throughputPerHour - 1) / throughputPerHour
	if hours < 24 {
		if hours == 1 {
			return "~1 hour"
		}
		return fmt.Sprintf("~%d hours", hours)
	}
	days := (hours + 23) / 24
	if days == 1 {
		return "~1 day"
	}
	return fmt.Sprintf("~%d days", days)
}

// Totals counts entries per status for the queue summary.
type Totals struct {
	Queued    int `json:"queued"`
	Building  int `json:"building"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
}

func CountTotals(entries []Entry) Totals {
	var t Totals
	for _, e := range entries {
		switch e.Status {
		case domain.StatusQueued:
			t.Queued++
		case domain.StatusBuilding:
			t.Building++
		case domain.StatusCompleted:
			t.Completed++
		case domain.StatusFailed:
			t.Failed++
		}
	}
	return t
}
