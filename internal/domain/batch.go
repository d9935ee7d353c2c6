package domain

import "time"

// Batch groups the dispatch units produced for one template + recipient-set
// invocation.
type Batch struct {
	ID             string
	Template       string
	RecipientCount int
	TotalUnits     int
	CreatedAt      time.Time
}

// BatchCounts is the fold over the current per-unit states. It is recomputed
// on every read and never stored, so it cannot drift from per-unit truth.
type BatchCounts struct {
	Pending   int
	Sending   int
	Sent      int
	Delivered int
	Failed    int
}

func (c BatchCounts) Total() int {
	return c.Pending + c.Sending + c.Sent + c.Delivered + c.Failed
}

// SentOrBetter counts units that reached at least SENT.
func (c BatchCounts) SentOrBetter() int {
	return c.Sent + c.Delivered
}

// Settled reports whether every unit is in a terminal state.
func (c BatchCounts) Settled() bool {
	return c.Pending == 0 && c.Sending == 0 && c.Total() > 0
}

// HistoryEntry is the persisted record of a batch and its last known
// aggregation.
type HistoryEntry struct {
	BatchID        string
	Template       string
	RecipientCount int
	TotalUnits     int
	SentCount      int
	DeliveredCount int
	FailedCount    int
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
