package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/felipeimp22/persona-finances/internal/core"
	applog "github.com/felipeimp22/persona-finances/internal/log"
)

// InstanceGenerator materializes the bill instances for a month from the
// active fixed bill templates and the open one-time bills due in it.
type InstanceGenerator struct {
	fixed     FixedBillStore
	oneTime   OneTimeBillStore
	instances InstanceStore
	publisher ChangePublisher
	clock     Clock
}

func NewInstanceGenerator(
	fixed FixedBillStore,
	oneTime OneTimeBillStore,
	instances InstanceStore,
	publisher ChangePublisher,
	clock Clock,
) *InstanceGenerator {
	return &InstanceGenerator{
		fixed:     fixed,
		oneTime:   oneTime,
		instances: instances,
		publisher: publisher,
		clock:     clock,
	}
}

// GenerateResult reports what a generation run did.
type GenerateResult struct {
	Generated int
	Skipped   bool
}

// GenerateMonth creates the month's bill instances. Idempotency is per
// month, not per bill: if the month already has any instances the whole
// run is skipped, so templates added mid-month only appear from the next
// generated month onward.
func (g *InstanceGenerator) GenerateMonth(ctx context.Context, month core.MonthKey) (GenerateResult, error) {
	if month.IsZero() {
		return GenerateResult{}, core.ErrZeroDate
	}

	instances, err := g.buildInstances(ctx, month)
	if err != nil {
		return GenerateResult{}, err
	}

	created, skipped, err := g.instances.InsertInstancesIfAbsent(ctx, month, instances)
	if err != nil {
		return GenerateResult{}, fmt.Errorf("insert instances for %s: %w", month, err)
	}

	if skipped {
		slog.InfoContext(ctx, "Month already generated, skipping",
			"month", month.String())
		return GenerateResult{Skipped: true}, nil
	}

	fields := applog.NewFields().
		WithComponent(applog.ComponentGenerator).
		WithOperation(applog.OpGenerate).
		WithMonth(month.String())
	fields["count"] = created
	slog.InfoContext(ctx, "Generated month instances", fields.ToSlice()...)
	notifyChange(ctx, g.publisher, ScopeInstances)
	return GenerateResult{Generated: created}, nil
}

func (g *InstanceGenerator) buildInstances(ctx context.Context, month core.MonthKey) ([]core.BillInstance, error) {
	now := g.clock.Now()

	fixedBills, err := g.fixed.ListFixedBills(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("list fixed bills: %w", err)
	}

	oneTimeBills, err := g.oneTime.ListOneTimeBillsDueBetween(ctx, month.Start(), month.End(), true)
	if err != nil {
		return nil, fmt.Errorf("list one-time bills: %w", err)
	}

	instances := make([]core.BillInstance, 0, len(fixedBills)+len(oneTimeBills))
	for _, fb := range fixedBills {
		instances = append(instances, core.BillInstance{
			ID:         uuid.NewString(),
			Source:     core.FixedSource(fb.ID),
			Name:       fb.Name,
			Amount:     fb.Amount,
			Category:   fb.Category,
			DueDate:    month.DueDateFor(fb.DueDay),
			Month:      month,
			Status:     core.InstanceUnpaid,
			PaidAmount: decimal.Zero,
			CreatedBy:  fb.CreatedBy,
			CreatedAt:  now,
		})
	}
	for _, ob := range oneTimeBills {
		// Snapshot the outstanding balance, not the original total, so
		// a partially paid debt bills only what is left.
		instances = append(instances, core.BillInstance{
			ID:         uuid.NewString(),
			Source:     core.OneTimeSource(ob.ID),
			Name:       ob.Description,
			Amount:     ob.TotalAmount.Sub(ob.PaidAmount),
			Category:   ob.Category,
			DueDate:    ob.DueDate,
			Month:      month,
			Status:     core.InstanceUnpaid,
			PaidAmount: decimal.Zero,
			CreatedBy:  ob.CreatedBy,
			CreatedAt:  now,
		})
	}
	return instances, nil
}
