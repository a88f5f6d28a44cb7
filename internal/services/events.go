package services

import (
	"context"
	"log/slog"
)

// Change scopes published on the ledger_changed exchange. Consumers use the
// scope to decide which cached views to drop.
const (
	ScopeInstances = "instances"
	ScopeBills     = "bills"
	ScopeIncome    = "income"
	ScopeExpenses  = "expenses"
)

// notifyChange publishes a ledger change event. Publish failures are logged
// and swallowed so the write that triggered them still succeeds.
func notifyChange(ctx context.Context, pub ChangePublisher, scope string) {
	if pub == nil {
		return
	}
	if err := pub.PublishLedgerChanged(ctx, scope); err != nil {
		slog.ErrorContext(ctx, "Failed to publish ledger change",
			"scope", scope, "error", err)
	}
}
