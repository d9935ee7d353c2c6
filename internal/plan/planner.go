package plan

import (
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"smscast/internal/domain"
)

// Planner turns a template and a recipient set into the ordered send plan.
type Planner struct {
	partLimit          int
	defaultCountryCode string
	logger             *zap.Logger
	newID              func() string
}

func NewPlanner(partLimit int, defaultCountryCode string, logger *zap.Logger) *Planner {
	if partLimit <= 0 {
		partLimit = DefaultPartLimit
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Planner{
		partLimit:          partLimit,
		defaultCountryCode: defaultCountryCode,
		logger:             logger,
		newID:              uuid.NewString,
	}
}

// Build renders, validates, and segments each recipient's message and returns
// the ordered dispatch units plus the number of recipients skipped for having
// no usable destination address or an empty rendered body. Skipped recipients
// never become units; they are not counted as failures.
//
// Units are grouped by destination address in first-seen order, so all parts
// for one recipient are adjacent and sent back to back.
func (p *Planner) Build(batchID, template string, recipients []domain.Recipient) ([]domain.DispatchUnit, int) {
	byDestination := make(map[string][]domain.DispatchUnit)
	var order []string
	skipped := 0

	for _, recipient := range recipients {
		destination, err := NormalizeAddress(recipient.Phone, p.defaultCountryCode)
		if err != nil {
			p.logger.Warn("skipping recipient without usable address",
				zap.String("batchId", batchID),
				zap.String("recipient", recipient.Name),
				zap.Error(err),
			)
			skipped++
			continue
		}

		body := Render(template, recipient)
		if strings.TrimSpace(body) == "" {
			p.logger.Warn("skipping recipient with empty rendered body",
				zap.String("batchId", batchID),
				zap.String("recipient", recipient.Name),
			)
			skipped++
			continue
		}

		parts := Split(body, p.partLimit)
		units := make([]domain.DispatchUnit, 0, len(parts))
		for i, part := range parts {
			units = append(units, domain.DispatchUnit{
				ID:            p.newID(),
				BatchID:       batchID,
				RecipientID:   recipient.ID,
				RecipientName: recipient.Name,
				Destination:   destination,
				Body:          part,
				PartIndex:     i,
				PartCount:     len(parts),
			})
		}

		if _, seen := byDestination[destination]; !seen {
			order = append(order, destination)
		}
		byDestination[destination] = append(byDestination[destination], units...)
	}

	var planned []domain.DispatchUnit
	for _, destination := range order {
		planned = append(planned, byDestination[destination]...)
	}

	return planned, skipped
}
