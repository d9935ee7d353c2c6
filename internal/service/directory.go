package service

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"smscast/internal/domain"
)

// RecipientDirectory resolves recipient group IDs into concrete recipients.
type RecipientDirectory interface {
	Resolve(ctx context.Context, groupIDs []string) ([]domain.Recipient, error)
}

// StaticDirectory is an in-memory directory keyed by group ID.
type StaticDirectory struct {
	mu     sync.RWMutex
	groups map[string][]domain.Recipient
}

func NewStaticDirectory() *StaticDirectory {
	return &StaticDirectory{groups: make(map[string][]domain.Recipient)}
}

func (d *StaticDirectory) SetGroup(groupID string, recipients []domain.Recipient) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.groups[groupID] = append([]domain.Recipient(nil), recipients...)
}

// Resolve returns the union of the requested groups in request order.
// Recipients appearing in more than one group are returned once.
func (d *StaticDirectory) Resolve(_ context.Context, groupIDs []string) ([]domain.Recipient, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	seen := make(map[string]struct{})
	resolved := make([]domain.Recipient, 0)
	for _, groupID := range groupIDs {
		groupID = strings.TrimSpace(groupID)
		group, ok := d.groups[groupID]
		if !ok {
			return nil, fmt.Errorf("%w: recipient group %q", domain.ErrNotFound, groupID)
		}
		for _, r := range group {
			key := r.ID
			if key == "" {
				key = r.Phone
			}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			resolved = append(resolved, r)
		}
	}

	return resolved, nil
}
