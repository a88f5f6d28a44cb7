package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/felipeimp22/persona-finances/internal/core"
)

const incomeCols = "id, person, amount, type, month, notes, created_at, updated_at"
const expenseCols = "id, description, amount, date, category, paid_by, notes, created_at, updated_at"

func (r *SQLiteRepository) CreateIncome(ctx context.Context, i core.Income) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO income (`+incomeCols+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		i.ID, string(i.Person), i.Amount.String(), string(i.Type),
		i.Month.Format(dateFormat), i.Notes,
		i.CreatedAt.Format(timeFormat), i.UpdatedAt.Format(timeFormat))
	if err != nil {
		return fmt.Errorf("create income: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetIncome(ctx context.Context, id string) (core.Income, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+incomeCols+` FROM income WHERE id = ?`, id)
	i, err := scanIncome(row)
	if err != nil {
		return core.Income{}, notFoundOr(err, "get income")
	}
	return i, nil
}

// ListIncome returns income records, optionally filtered by person and/or
// month, newest month first.
func (r *SQLiteRepository) ListIncome(ctx context.Context, person core.Person, month *core.MonthKey) ([]core.Income, error) {
	query := `SELECT ` + incomeCols + ` FROM income`
	var (
		where []string
		args  []any
	)
	if person != "" {
		where = append(where, "person = ?")
		args = append(args, string(person))
	}
	if month != nil {
		where = append(where, "month = ?")
		args = append(args, month.Format(dateFormat))
	}
	for i, w := range where {
		if i == 0 {
			query += " WHERE " + w
		} else {
			query += " AND " + w
		}
	}
	query += ` ORDER BY month DESC, person ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list income: %w", err)
	}
	defer rows.Close()

	var records []core.Income
	for rows.Next() {
		i, err := scanIncome(rows)
		if err != nil {
			return nil, fmt.Errorf("scan income: %w", err)
		}
		records = append(records, i)
	}
	return records, rows.Err()
}

func (r *SQLiteRepository) UpdateIncome(ctx context.Context, i core.Income) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE income SET person = ?, amount = ?, type = ?, month = ?, notes = ?, updated_at = ? WHERE id = ?`,
		string(i.Person), i.Amount.String(), string(i.Type),
		i.Month.Format(dateFormat), i.Notes,
		time.Now().UTC().Format(timeFormat), i.ID)
	if err != nil {
		return fmt.Errorf("update income: %w", err)
	}
	return requireRow(res)
}

func (r *SQLiteRepository) DeleteIncome(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM income WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete income: %w", err)
	}
	return requireRow(res)
}

func (r *SQLiteRepository) CreateExpense(ctx context.Context, e core.Expense) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO expenses (`+expenseCols+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Description, e.Amount.String(), e.Date.Format(dateFormat),
		string(e.Category), string(e.PaidBy), e.Notes,
		e.CreatedAt.Format(timeFormat), e.UpdatedAt.Format(timeFormat))
	if err != nil {
		return fmt.Errorf("create expense: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetExpense(ctx context.Context, id string) (core.Expense, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+expenseCols+` FROM expenses WHERE id = ?`, id)
	e, err := scanExpense(row)
	if err != nil {
		return core.Expense{}, notFoundOr(err, "get expense")
	}
	return e, nil
}

// ListExpensesBetween returns expenses with dates inside [from, to],
// newest first.
func (r *SQLiteRepository) ListExpensesBetween(ctx context.Context, from, to time.Time) ([]core.Expense, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+expenseCols+` FROM expenses WHERE date >= ? AND date <= ? ORDER BY date DESC`,
		from.Format(dateFormat), to.Format(dateFormat))
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	var expenses []core.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		expenses = append(expenses, e)
	}
	return expenses, rows.Err()
}

func (r *SQLiteRepository) UpdateExpense(ctx context.Context, e core.Expense) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE expenses SET description = ?, amount = ?, date = ?, category = ?, paid_by = ?, notes = ?, updated_at = ? WHERE id = ?`,
		e.Description, e.Amount.String(), e.Date.Format(dateFormat),
		string(e.Category), string(e.PaidBy), e.Notes,
		time.Now().UTC().Format(timeFormat), e.ID)
	if err != nil {
		return fmt.Errorf("update expense: %w", err)
	}
	return requireRow(res)
}

func (r *SQLiteRepository) DeleteExpense(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM expenses WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	return requireRow(res)
}

// ListActiveBudgetWarnings returns the pre-seeded warning rules the
// summarizer evaluates.
func (r *SQLiteRepository) ListActiveBudgetWarnings(ctx context.Context) ([]core.BudgetWarning, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, type, threshold, is_active FROM budget_warnings WHERE is_active = 1`)
	if err != nil {
		return nil, fmt.Errorf("list budget warnings: %w", err)
	}
	defer rows.Close()

	var warnings []core.BudgetWarning
	for rows.Next() {
		var (
			wc  core.BudgetWarning
			typ string
		)
		if err := rows.Scan(&wc.ID, &typ, &wc.Threshold, &wc.IsActive); err != nil {
			return nil, fmt.Errorf("scan budget warning: %w", err)
		}
		wc.Type = core.WarningType(typ)
		warnings = append(warnings, wc)
	}
	return warnings, rows.Err()
}

func scanIncome(row rowScanner) (core.Income, error) {
	var (
		i                    core.Income
		person, amount       string
		typ, month           string
		createdAt, updatedAt string
	)
	if err := row.Scan(&i.ID, &person, &amount, &typ, &month, &i.Notes, &createdAt, &updatedAt); err != nil {
		return core.Income{}, err
	}

	var err error
	if i.Amount, err = parseAmountCol(amount); err != nil {
		return core.Income{}, err
	}
	monthDate, err := parseDateCol(month)
	if err != nil {
		return core.Income{}, err
	}
	i.Month = core.MonthKeyOf(monthDate)
	if i.CreatedAt, err = parseTimeCol(createdAt); err != nil {
		return core.Income{}, err
	}
	if i.UpdatedAt, err = parseTimeCol(updatedAt); err != nil {
		return core.Income{}, err
	}
	i.Person = core.Person(person)
	i.Type = core.IncomeType(typ)
	return i, nil
}

func scanExpense(row rowScanner) (core.Expense, error) {
	var (
		e                    core.Expense
		amount, date         string
		category, paidBy     string
		createdAt, updatedAt string
	)
	if err := row.Scan(&e.ID, &e.Description, &amount, &date, &category, &paidBy, &e.Notes, &createdAt, &updatedAt); err != nil {
		return core.Expense{}, err
	}

	var err error
	if e.Amount, err = parseAmountCol(amount); err != nil {
		return core.Expense{}, err
	}
	if e.Date, err = parseDateCol(date); err != nil {
		return core.Expense{}, err
	}
	if e.CreatedAt, err = parseTimeCol(createdAt); err != nil {
		return core.Expense{}, err
	}
	if e.UpdatedAt, err = parseTimeCol(updatedAt); err != nil {
		return core.Expense{}, err
	}
	e.Category = core.ExpenseCategory(category)
	e.PaidBy = core.Person(paidBy)
	return e, nil
}
