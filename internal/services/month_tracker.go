package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/felipeimp22/persona-finances/internal/core"
)

// MonthTracker is the page-facing facade over the month ledger engine. It
// composes generation and overdue sweeping into the single call a month
// view makes when it opens, and exposes the instance listings.
type MonthTracker struct {
	generator *InstanceGenerator
	sweeper   *OverdueSweeper
	instances InstanceStore
	publisher ChangePublisher
}

func NewMonthTracker(generator *InstanceGenerator, sweeper *OverdueSweeper, instances InstanceStore, publisher ChangePublisher) *MonthTracker {
	return &MonthTracker{
		generator: generator,
		sweeper:   sweeper,
		instances: instances,
		publisher: publisher,
	}
}

// InitializeMonth generates the month's instances if absent and then ages
// everything unpaid from earlier months. Safe to call on every page load.
func (t *MonthTracker) InitializeMonth(ctx context.Context, month core.MonthKey) error {
	if _, err := t.generator.GenerateMonth(ctx, month); err != nil {
		return fmt.Errorf("generate month: %w", err)
	}
	if _, err := t.sweeper.Sweep(ctx, month); err != nil {
		return fmt.Errorf("sweep overdue: %w", err)
	}
	return nil
}

// ListMonthInstances lists the month's bill instances in due-date order.
func (t *MonthTracker) ListMonthInstances(ctx context.Context, month core.MonthKey) ([]core.BillInstance, error) {
	return t.instances.ListInstancesForMonth(ctx, month)
}

// ListOverdueInstances lists overdue instances across all months, most
// overdue first.
func (t *MonthTracker) ListOverdueInstances(ctx context.Context) ([]core.BillInstance, error) {
	return t.instances.ListOverdueInstances(ctx)
}

func (t *MonthTracker) GetInstance(ctx context.Context, id string) (core.BillInstance, error) {
	return t.instances.GetInstance(ctx, id)
}

// DeleteInstance removes a single materialized instance. The parent bill,
// if any, is untouched; regeneration will not bring the instance back
// because the month keeps its other instances.
func (t *MonthTracker) DeleteInstance(ctx context.Context, id string) error {
	if err := t.instances.DeleteInstance(ctx, id); err != nil {
		return fmt.Errorf("delete instance: %w", err)
	}
	slog.InfoContext(ctx, "Bill instance deleted", "instance_id", id)
	notifyChange(ctx, t.publisher, ScopeInstances)
	return nil
}
