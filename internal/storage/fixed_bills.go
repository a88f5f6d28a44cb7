package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/felipeimp22/persona-finances/internal/core"
)

const fixedBillCols = "id, name, amount, due_day, category, is_active, created_by, created_at, updated_at"

func (r *SQLiteRepository) CreateFixedBill(ctx context.Context, b core.FixedBill) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO fixed_bills (`+fixedBillCols+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.Name, b.Amount.String(), b.DueDay, b.Category, b.IsActive,
		string(b.CreatedBy), b.CreatedAt.Format(timeFormat), b.UpdatedAt.Format(timeFormat))
	if err != nil {
		return fmt.Errorf("create fixed bill: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetFixedBill(ctx context.Context, id string) (core.FixedBill, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+fixedBillCols+` FROM fixed_bills WHERE id = ?`, id)
	b, err := scanFixedBill(row)
	if err != nil {
		return core.FixedBill{}, notFoundOr(err, "get fixed bill")
	}
	return b, nil
}

// ListFixedBills returns all templates, active ones first, ordered by due
// day within each group.
func (r *SQLiteRepository) ListFixedBills(ctx context.Context, activeOnly bool) ([]core.FixedBill, error) {
	query := `SELECT ` + fixedBillCols + ` FROM fixed_bills`
	if activeOnly {
		query += ` WHERE is_active = 1`
	}
	query += ` ORDER BY is_active DESC, due_day ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list fixed bills: %w", err)
	}
	defer rows.Close()

	var bills []core.FixedBill
	for rows.Next() {
		b, err := scanFixedBill(rows)
		if err != nil {
			return nil, fmt.Errorf("scan fixed bill: %w", err)
		}
		bills = append(bills, b)
	}
	return bills, rows.Err()
}

func (r *SQLiteRepository) UpdateFixedBill(ctx context.Context, b core.FixedBill) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE fixed_bills
		 SET name = ?, amount = ?, due_day = ?, category = ?, is_active = ?, updated_at = ?
		 WHERE id = ?`,
		b.Name, b.Amount.String(), b.DueDay, b.Category, b.IsActive,
		time.Now().UTC().Format(timeFormat), b.ID)
	if err != nil {
		return fmt.Errorf("update fixed bill: %w", err)
	}
	return requireRow(res)
}

// DeleteFixedBill removes a template; historical instances keep their
// snapshot and simply become parentless.
func (r *SQLiteRepository) DeleteFixedBill(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM fixed_bills WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete fixed bill: %w", err)
	}
	return requireRow(res)
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFixedBill(row rowScanner) (core.FixedBill, error) {
	var (
		b                    core.FixedBill
		amount               string
		createdBy            string
		createdAt, updatedAt string
	)
	if err := row.Scan(&b.ID, &b.Name, &amount, &b.DueDay, &b.Category,
		&b.IsActive, &createdBy, &createdAt, &updatedAt); err != nil {
		return core.FixedBill{}, err
	}

	var err error
	if b.Amount, err = parseAmountCol(amount); err != nil {
		return core.FixedBill{}, err
	}
	if b.CreatedAt, err = parseTimeCol(createdAt); err != nil {
		return core.FixedBill{}, err
	}
	if b.UpdatedAt, err = parseTimeCol(updatedAt); err != nil {
		return core.FixedBill{}, err
	}
	b.CreatedBy = core.Person(createdBy)
	return b, nil
}
