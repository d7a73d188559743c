package storage

import (
	"context"
	"database/sql"
	"fmt"

	"fintrack/internal/core"

	"github.com/shopspring/decimal"
)

const liabilityColumns = `id, user_id, title, total_amount, paid_amount, due_date, is_settled, created_at`

func scanLiability(s rowScanner) (core.Liability, error) {
	var (
		l       core.Liability
		due     sql.NullString
		created int64
	)
	if err := s.Scan(&l.ID, &l.UserID, &l.Title, &l.TotalAmount, &l.PaidAmount, &due, &l.IsSettled, &created); err != nil {
		return core.Liability{}, err
	}
	d, err := optionalDate(due)
	if err != nil {
		return core.Liability{}, err
	}
	l.DueDate = d
	l.CreatedAt = fromUnix(created)
	return l, nil
}

// CreateLiability stores l. The settled flag is derived from the amounts.
func (r *SQLiteRepository) CreateLiability(ctx context.Context, l core.Liability) (core.Liability, error) {
	l.RefreshSettled()
	created := r.nowUnix()
	res, err := r.q.ExecContext(ctx,
		`INSERT INTO liabilities (user_id, title, total_amount, paid_amount, due_date, is_settled, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		l.UserID, l.Title, amountArg(l.TotalAmount), amountArg(l.PaidAmount),
		optionalDateArg(l.DueDate), boolArg(l.IsSettled), created)
	if err != nil {
		return core.Liability{}, fmt.Errorf("insert liability: %w", err)
	}
	if l.ID, err = res.LastInsertId(); err != nil {
		return core.Liability{}, fmt.Errorf("liability id: %w", err)
	}
	l.CreatedAt = fromUnix(created)
	return l, nil
}

func (r *SQLiteRepository) GetLiability(ctx context.Context, userID, id int64) (core.Liability, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+liabilityColumns+` FROM liabilities WHERE id = ? AND user_id = ?`, id, userID)
	l, err := scanLiability(row)
	if err != nil {
		return core.Liability{}, fmt.Errorf("get liability %d: %w", id, notFound(err))
	}
	return l, nil
}

func (r *SQLiteRepository) ListLiabilities(ctx context.Context, userID int64) ([]core.Liability, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT `+liabilityColumns+` FROM liabilities WHERE user_id = ? ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list liabilities: %w", err)
	}
	defer rows.Close()

	out := []core.Liability{}
	for rows.Next() {
		l, err := scanLiability(rows)
		if err != nil {
			return nil, fmt.Errorf("scan liability: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// UpdateLiabilityDetails changes the descriptive fields only. Amounts move
// exclusively through UpdateLiabilityPayment.
func (r *SQLiteRepository) UpdateLiabilityDetails(ctx context.Context, l core.Liability) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE liabilities SET title = ?, due_date = ? WHERE id = ? AND user_id = ?`,
		l.Title, optionalDateArg(l.DueDate), l.ID, l.UserID)
	if err != nil {
		return fmt.Errorf("update liability %d: %w", l.ID, err)
	}
	return expectOne(res)
}

// UpdateLiabilityPayment writes the new paid amount and settled flag only if
// the stored paid amount still equals previousPaid. A mismatch means another
// payment landed first and yields core.ErrConcurrentUpdate.
func (r *SQLiteRepository) UpdateLiabilityPayment(ctx context.Context, l core.Liability, previousPaid decimal.Decimal) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE liabilities SET paid_amount = ?, is_settled = ?
		 WHERE id = ? AND user_id = ? AND paid_amount = ?`,
		amountArg(l.PaidAmount), boolArg(l.IsSettled), l.ID, l.UserID, amountArg(previousPaid))
	if err != nil {
		return fmt.Errorf("update liability %d payment: %w", l.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return core.ErrConcurrentUpdate
	}
	return nil
}

func (r *SQLiteRepository) DeleteLiability(ctx context.Context, userID, id int64) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM liabilities WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete liability %d: %w", id, err)
	}
	return expectOne(res)
}
