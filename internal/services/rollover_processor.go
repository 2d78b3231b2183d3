package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"spendable/internal/core"
)

// RolloverProcessor drives the periodic catch-up of elapsed repeating
// periods. The worker binary calls ProcessRollovers on a ticker; each call
// is idempotent, so overlapping runs or restarts cannot double-advance.
type RolloverProcessor struct {
	service *BudgetService
}

func NewRolloverProcessor(service *BudgetService) *RolloverProcessor {
	return &RolloverProcessor{service: service}
}

// ProcessRollovers advances and commits every elapsed period as of now.
// Returns the number of periods rolled over.
func (p *RolloverProcessor) ProcessRollovers(ctx context.Context, now time.Time) (int, error) {
	if p.service == nil {
		return 0, fmt.Errorf("processor not properly initialized")
	}

	today := core.DateOf(now)
	count, err := p.service.CatchUpPeriods(ctx, today)
	if err != nil {
		return count, fmt.Errorf("catch up periods: %w", err)
	}

	slog.InfoContext(ctx, "Rollover pass complete",
		"rolled_over", count,
		"processing_date", today.String())
	return count, nil
}
