package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/felipeimp22/persona-finances/internal/core"
)

const instanceCols = "id, fixed_bill_id, one_time_bill_id, name, amount, category, due_date, month, status, paid_amount, paid_date, paid_by, is_overdue, days_overdue, created_by, created_at"

// InsertInstancesIfAbsent performs the month-generation write: within one
// transaction it re-checks that no instance exists for the month and bulk
// inserts the prepared set. Returns skipped=true (and writes nothing) when
// the month was already generated, closing the check-then-act race the
// unique indexes backstop.
func (r *SQLiteRepository) InsertInstancesIfAbsent(ctx context.Context, month core.MonthKey, instances []core.BillInstance) (created int, skipped bool, err error) {
	err = r.inTx(ctx, func(tx *sql.Tx) error {
		var count int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM bill_instances WHERE month = ?`,
			month.Format(dateFormat)).Scan(&count); err != nil {
			return fmt.Errorf("count month instances: %w", err)
		}
		if count > 0 {
			skipped = true
			return nil
		}
		for _, inst := range instances {
			if err := insertInstanceTx(ctx, tx, inst); err != nil {
				return fmt.Errorf("insert instance %q: %w", inst.Name, err)
			}
			created++
		}
		return nil
	})
	if err != nil {
		return 0, false, err
	}
	return created, skipped, nil
}

func insertInstanceTx(ctx context.Context, tx *sql.Tx, inst core.BillInstance) error {
	var fixedID, oneTimeID sql.NullString
	if id, ok := inst.Source.FixedBillID(); ok {
		fixedID = sql.NullString{String: id, Valid: true}
	}
	if id, ok := inst.Source.OneTimeBillID(); ok {
		oneTimeID = sql.NullString{String: id, Valid: true}
	}

	var paidDate sql.NullString
	if inst.PaidDate != nil {
		paidDate = sql.NullString{String: inst.PaidDate.Format(dateFormat), Valid: true}
	}

	_, err := tx.ExecContext(ctx,
		`INSERT INTO bill_instances (`+instanceCols+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		inst.ID, fixedID, oneTimeID, inst.Name, inst.Amount.String(), inst.Category,
		inst.DueDate.Format(dateFormat), inst.Month.Format(dateFormat),
		string(inst.Status), inst.PaidAmount.String(), paidDate, string(inst.PaidBy),
		inst.IsOverdue, inst.DaysOverdue, string(inst.CreatedBy),
		inst.CreatedAt.Format(timeFormat))
	return err
}

func (r *SQLiteRepository) GetInstance(ctx context.Context, id string) (core.BillInstance, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+instanceCols+` FROM bill_instances WHERE id = ?`, id)
	inst, err := scanInstance(row)
	if err != nil {
		return core.BillInstance{}, notFoundOr(err, "get bill instance")
	}
	return inst, nil
}

// ListInstancesForMonth returns the month's instances ordered by status
// then due date, the order the month view renders them in.
func (r *SQLiteRepository) ListInstancesForMonth(ctx context.Context, month core.MonthKey) ([]core.BillInstance, error) {
	return r.queryInstances(ctx,
		`SELECT `+instanceCols+` FROM bill_instances WHERE month = ? ORDER BY status ASC, due_date ASC`,
		month.Format(dateFormat))
}

// ListInstancesBefore returns instances from months strictly before the
// given month whose status is in statuses.
func (r *SQLiteRepository) ListInstancesBefore(ctx context.Context, month core.MonthKey, statuses []core.InstanceStatus) ([]core.BillInstance, error) {
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(statuses)), ", ")
	args := []any{month.Format(dateFormat)}
	for _, s := range statuses {
		args = append(args, string(s))
	}
	return r.queryInstances(ctx,
		`SELECT `+instanceCols+` FROM bill_instances
		 WHERE month < ? AND status IN (`+placeholders+`)
		 ORDER BY due_date ASC`, args...)
}

// ListOverdueInstances returns every instance flagged overdue, most
// overdue first.
func (r *SQLiteRepository) ListOverdueInstances(ctx context.Context) ([]core.BillInstance, error) {
	return r.queryInstances(ctx,
		`SELECT `+instanceCols+` FROM bill_instances
		 WHERE status = ? OR is_overdue = 1
		 ORDER BY days_overdue DESC, due_date ASC`,
		string(core.InstanceOverdue))
}

// SaveInstancePayment writes an instance's recomputed payment state and,
// when the instance has a one-time parent, the parent's recomputed state
// in the same transaction. This is the dual-write of the reconciler.
func (r *SQLiteRepository) SaveInstancePayment(ctx context.Context, inst core.BillInstance, parent *core.OneTimeBill) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		var paidDate sql.NullString
		if inst.PaidDate != nil {
			paidDate = sql.NullString{String: inst.PaidDate.Format(dateFormat), Valid: true}
		}

		res, err := tx.ExecContext(ctx,
			`UPDATE bill_instances
			 SET status = ?, paid_amount = ?, paid_date = ?, paid_by = ?, is_overdue = ?
			 WHERE id = ?`,
			string(inst.Status), inst.PaidAmount.String(), paidDate,
			string(inst.PaidBy), inst.IsOverdue, inst.ID)
		if err != nil {
			return fmt.Errorf("update instance payment state: %w", err)
		}
		if err := requireRow(res); err != nil {
			return err
		}

		if parent != nil {
			return updateBillPaymentTx(ctx, tx, *parent)
		}
		return nil
	})
}

// MarkInstanceOverdue ages one instance into the overdue state.
func (r *SQLiteRepository) MarkInstanceOverdue(ctx context.Context, id string, daysOverdue int) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE bill_instances SET status = ?, is_overdue = 1, days_overdue = ? WHERE id = ?`,
		string(core.InstanceOverdue), daysOverdue, id)
	if err != nil {
		return fmt.Errorf("mark instance overdue: %w", err)
	}
	return requireRow(res)
}

func (r *SQLiteRepository) DeleteInstance(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM bill_instances WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete bill instance: %w", err)
	}
	return requireRow(res)
}

func (r *SQLiteRepository) queryInstances(ctx context.Context, query string, args ...any) ([]core.BillInstance, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list bill instances: %w", err)
	}
	defer rows.Close()

	var instances []core.BillInstance
	for rows.Next() {
		inst, err := scanInstance(rows)
		if err != nil {
			return nil, fmt.Errorf("scan bill instance: %w", err)
		}
		instances = append(instances, inst)
	}
	return instances, rows.Err()
}

func scanInstance(row rowScanner) (core.BillInstance, error) {
	var (
		inst               core.BillInstance
		fixedID, oneTimeID sql.NullString
		amount, paidAmount string
		dueDate, month     string
		status, paidBy     string
		paidDate           sql.NullString
		createdBy          string
		createdAt          string
	)
	if err := row.Scan(&inst.ID, &fixedID, &oneTimeID, &inst.Name, &amount,
		&inst.Category, &dueDate, &month, &status, &paidAmount, &paidDate,
		&paidBy, &inst.IsOverdue, &inst.DaysOverdue, &createdBy, &createdAt); err != nil {
		return core.BillInstance{}, err
	}

	switch {
	case fixedID.Valid:
		inst.Source = core.FixedSource(fixedID.String)
	case oneTimeID.Valid:
		inst.Source = core.OneTimeSource(oneTimeID.String)
	}

	var err error
	if inst.Amount, err = parseAmountCol(amount); err != nil {
		return core.BillInstance{}, err
	}
	if inst.PaidAmount, err = parseAmountCol(paidAmount); err != nil {
		return core.BillInstance{}, err
	}
	if inst.DueDate, err = parseDateCol(dueDate); err != nil {
		return core.BillInstance{}, err
	}
	monthDate, err := parseDateCol(month)
	if err != nil {
		return core.BillInstance{}, err
	}
	inst.Month = core.MonthKeyOf(monthDate)
	if paidDate.Valid {
		pd, err := parseDateCol(paidDate.String)
		if err != nil {
			return core.BillInstance{}, err
		}
		inst.PaidDate = &pd
	}
	if inst.CreatedAt, err = parseTimeCol(createdAt); err != nil {
		return core.BillInstance{}, err
	}
	inst.Status = core.InstanceStatus(status)
	inst.PaidBy = core.Person(paidBy)
	inst.CreatedBy = core.Person(createdBy)
	return inst, nil
}
