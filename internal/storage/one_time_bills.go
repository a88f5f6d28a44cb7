package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/felipeimp22/persona-finances/internal/core"
)

const oneTimeBillCols = "id, description, total_amount, paid_amount, due_date, status, created_by, notes, category, created_at, updated_at"

// CreateOneTimeBill inserts a one-time bill together with the bill
// instance for its due month, in one transaction.
func (r *SQLiteRepository) CreateOneTimeBill(ctx context.Context, b core.OneTimeBill, inst core.BillInstance) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO one_time_bills (`+oneTimeBillCols+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			b.ID, b.Description, b.TotalAmount.String(), b.PaidAmount.String(),
			b.DueDate.Format(dateFormat), string(b.Status), string(b.CreatedBy),
			b.Notes, b.Category, b.CreatedAt.Format(timeFormat), b.UpdatedAt.Format(timeFormat)); err != nil {
			return fmt.Errorf("insert one-time bill: %w", err)
		}
		if err := insertInstanceTx(ctx, tx, inst); err != nil {
			return fmt.Errorf("insert bill instance: %w", err)
		}
		return nil
	})
}

func (r *SQLiteRepository) GetOneTimeBill(ctx context.Context, id string) (core.OneTimeBill, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+oneTimeBillCols+` FROM one_time_bills WHERE id = ?`, id)
	b, err := scanOneTimeBill(row)
	if err != nil {
		return core.OneTimeBill{}, notFoundOr(err, "get one-time bill")
	}
	return b, nil
}

// ListOneTimeBills returns bills ordered by status then due date. An empty
// status returns all bills.
func (r *SQLiteRepository) ListOneTimeBills(ctx context.Context, status core.BillStatus) ([]core.OneTimeBill, error) {
	query := `SELECT ` + oneTimeBillCols + ` FROM one_time_bills`
	args := []any{}
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY status ASC, due_date ASC`

	return r.queryOneTimeBills(ctx, query, args...)
}

// ListOneTimeBillsDueBetween returns bills with due dates inside
// [from, to]. When excludePaid is set, fully paid bills are filtered out.
func (r *SQLiteRepository) ListOneTimeBillsDueBetween(ctx context.Context, from, to time.Time, excludePaid bool) ([]core.OneTimeBill, error) {
	query := `SELECT ` + oneTimeBillCols + ` FROM one_time_bills WHERE due_date >= ? AND due_date <= ?`
	args := []any{from.Format(dateFormat), to.Format(dateFormat)}
	if excludePaid {
		query += ` AND status <> ?`
		args = append(args, string(core.BillPaid))
	}
	query += ` ORDER BY due_date ASC`

	return r.queryOneTimeBills(ctx, query, args...)
}

func (r *SQLiteRepository) queryOneTimeBills(ctx context.Context, query string, args ...any) ([]core.OneTimeBill, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list one-time bills: %w", err)
	}
	defer rows.Close()

	var bills []core.OneTimeBill
	for rows.Next() {
		b, err := scanOneTimeBill(rows)
		if err != nil {
			return nil, fmt.Errorf("scan one-time bill: %w", err)
		}
		bills = append(bills, b)
	}
	return bills, rows.Err()
}

func (r *SQLiteRepository) UpdateOneTimeBill(ctx context.Context, b core.OneTimeBill) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE one_time_bills
		 SET description = ?, total_amount = ?, paid_amount = ?, due_date = ?,
		     status = ?, notes = ?, category = ?, updated_at = ?
		 WHERE id = ?`,
		b.Description, b.TotalAmount.String(), b.PaidAmount.String(),
		b.DueDate.Format(dateFormat), string(b.Status), b.Notes, b.Category,
		time.Now().UTC().Format(timeFormat), b.ID)
	if err != nil {
		return fmt.Errorf("update one-time bill: %w", err)
	}
	return requireRow(res)
}

// DeleteOneTimeBill removes the bill; its payments cascade via the FK.
// Instances that referenced it keep their snapshot and are left in place.
func (r *SQLiteRepository) DeleteOneTimeBill(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM one_time_bills WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete one-time bill: %w", err)
	}
	return requireRow(res)
}

// AddPayment records a payment and writes the parent bill's recomputed
// paid amount and status, atomically.
func (r *SQLiteRepository) AddPayment(ctx context.Context, p core.Payment, bill core.OneTimeBill) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO payments (id, bill_id, amount, date, paid_by, notes, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			p.ID, p.BillID, p.Amount.String(), p.Date.Format(dateFormat),
			string(p.PaidBy), p.Notes, p.CreatedAt.Format(timeFormat)); err != nil {
			return fmt.Errorf("insert payment: %w", err)
		}
		return updateBillPaymentTx(ctx, tx, bill)
	})
}

// DeletePayment removes a payment and writes the parent bill's recomputed
// paid amount and status, atomically.
func (r *SQLiteRepository) DeletePayment(ctx context.Context, paymentID string, bill core.OneTimeBill) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM payments WHERE id = ?`, paymentID)
		if err != nil {
			return fmt.Errorf("delete payment: %w", err)
		}
		if err := requireRow(res); err != nil {
			return err
		}
		return updateBillPaymentTx(ctx, tx, bill)
	})
}

func updateBillPaymentTx(ctx context.Context, tx *sql.Tx, bill core.OneTimeBill) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE one_time_bills SET paid_amount = ?, status = ?, updated_at = ? WHERE id = ?`,
		bill.PaidAmount.String(), string(bill.Status),
		time.Now().UTC().Format(timeFormat), bill.ID)
	if err != nil {
		return fmt.Errorf("update bill payment state: %w", err)
	}
	return requireRow(res)
}

func (r *SQLiteRepository) GetPayment(ctx context.Context, id string) (core.Payment, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, bill_id, amount, date, paid_by, notes, created_at FROM payments WHERE id = ?`, id)
	p, err := scanPayment(row)
	if err != nil {
		return core.Payment{}, notFoundOr(err, "get payment")
	}
	return p, nil
}

// ListPayments returns a bill's payments, most recent first.
func (r *SQLiteRepository) ListPayments(ctx context.Context, billID string) ([]core.Payment, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, bill_id, amount, date, paid_by, notes, created_at
		 FROM payments WHERE bill_id = ? ORDER BY date DESC`, billID)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()

	var payments []core.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

func scanOneTimeBill(row rowScanner) (core.OneTimeBill, error) {
	var (
		b                          core.OneTimeBill
		total, paid                string
		dueDate, status, createdBy string
		createdAt, updatedAt       string
	)
	if err := row.Scan(&b.ID, &b.Description, &total, &paid, &dueDate, &status,
		&createdBy, &b.Notes, &b.Category, &createdAt, &updatedAt); err != nil {
		return core.OneTimeBill{}, err
	}

	var err error
	if b.TotalAmount, err = parseAmountCol(total); err != nil {
		return core.OneTimeBill{}, err
	}
	if b.PaidAmount, err = parseAmountCol(paid); err != nil {
		return core.OneTimeBill{}, err
	}
	if b.DueDate, err = parseDateCol(dueDate); err != nil {
		return core.OneTimeBill{}, err
	}
	if b.CreatedAt, err = parseTimeCol(createdAt); err != nil {
		return core.OneTimeBill{}, err
	}
	if b.UpdatedAt, err = parseTimeCol(updatedAt); err != nil {
		return core.OneTimeBill{}, err
	}
	b.Status = core.BillStatus(status)
	b.CreatedBy = core.Person(createdBy)
	return b, nil
}

func scanPayment(row rowScanner) (core.Payment, error) {
	var (
		p                 core.Payment
		amount, date      string
		paidBy, createdAt string
	)
	if err := row.Scan(&p.ID, &p.BillID, &amount, &date, &paidBy, &p.Notes, &createdAt); err != nil {
		return core.Payment{}, err
	}

	var err error
	if p.Amount, err = parseAmountCol(amount); err != nil {
		return core.Payment{}, err
	}
	if p.Date, err = parseDateCol(date); err != nil {
		return core.Payment{}, err
	}
	if p.CreatedAt, err = parseTimeCol(createdAt); err != nil {
		return core.Payment{}, err
	}
	p.PaidBy = core.Person(paidBy)
	return p, nil
}
