package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"fintrack/internal/core"
)

// Sync states of a ledger entry with respect to the spreadsheet mirror.
const (
	SyncPending = "pending"
	SyncSynced  = "synced"
	SyncError   = "error"
)

// PendingSyncEntry represents minimal data needed for sync queue messages
type PendingSyncEntry struct {
	Kind      core.TransactionType
	ID        int64
	Version   int64
	CreatedAt time.Time
}

const incomeColumns = `id, user_id, source, amount, date, description, created_at`

func scanIncome(s rowScanner) (core.Income, error) {
	var (
		in      core.Income
		created int64
	)
	if err := s.Scan(&in.ID, &in.UserID, &in.Source, &in.Amount, &in.Date, &in.Description, &created); err != nil {
		return core.Income{}, err
	}
	in.CreatedAt = fromUnix(created)
	return in, nil
}

// CreateIncome inserts in and returns it with its id and version set.
func (r *SQLiteRepository) CreateIncome(ctx context.Context, in core.Income) (core.Income, error) {
	created := r.nowUnix()
	res, err := r.q.ExecContext(ctx,
		`INSERT INTO incomes (user_id, source, amount, date, description, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		in.UserID, in.Source, amountArg(in.Amount), in.Date, in.Description, created)
	if err != nil {
		return core.Income{}, fmt.Errorf("insert income: %w", err)
	}
	if in.ID, err = res.LastInsertId(); err != nil {
		return core.Income{}, fmt.Errorf("income id: %w", err)
	}
	in.CreatedAt = fromUnix(created)

	slog.DebugContext(ctx, "Income saved to SQLite",
		"id", in.ID, "user_id", in.UserID, "source", in.Source, "amount", in.Amount.String())
	return in, nil
}

func (r *SQLiteRepository) GetIncome(ctx context.Context, userID, id int64) (core.Income, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+incomeColumns+` FROM incomes WHERE id = ? AND user_id = ?`, id, userID)
	in, err := scanIncome(row)
	if err != nil {
		return core.Income{}, fmt.Errorf("get income %d: %w", id, notFound(err))
	}
	return in, nil
}

// ListIncomes returns the user's incomes, newest date first.
func (r *SQLiteRepository) ListIncomes(ctx context.Context, userID int64) ([]core.Income, error) {
	return r.queryIncomes(ctx,
		`SELECT `+incomeColumns+` FROM incomes WHERE user_id = ? ORDER BY date DESC, id DESC`, userID)
}

// ListIncomesByID returns the user's incomes in insertion order.
func (r *SQLiteRepository) ListIncomesByID(ctx context.Context, userID int64) ([]core.Income, error) {
	return r.queryIncomes(ctx,
		`SELECT `+incomeColumns+` FROM incomes WHERE user_id = ? ORDER BY id`, userID)
}

func (r *SQLiteRepository) queryIncomes(ctx context.Context, query string, args ...any) ([]core.Income, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list incomes: %w", err)
	}
	defer rows.Close()

	out := []core.Income{}
	for rows.Next() {
		in, err := scanIncome(rows)
		if err != nil {
			return nil, fmt.Errorf("scan income: %w", err)
		}
		out = append(out, in)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) UpdateIncome(ctx context.Context, in core.Income) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE incomes SET source = ?, amount = ?, date = ?, description = ?, version = version + 1
		 WHERE id = ? AND user_id = ?`,
		in.Source, amountArg(in.Amount), in.Date, in.Description, in.ID, in.UserID)
	if err != nil {
		return fmt.Errorf("update income %d: %w", in.ID, err)
	}
	return expectOne(res)
}

func (r *SQLiteRepository) DeleteIncome(ctx context.Context, userID, id int64) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM incomes WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete income %d: %w", id, err)
	}
	return expectOne(res)
}

const expenseColumns = `id, user_id, category, amount, date, description, created_at`

func scanExpense(s rowScanner) (core.Expense, error) {
	var (
		e       core.Expense
		created int64
	)
	if err := s.Scan(&e.ID, &e.UserID, &e.Category, &e.Amount, &e.Date, &e.Description, &created); err != nil {
		return core.Expense{}, err
	}
	e.CreatedAt = fromUnix(created)
	return e, nil
}

// CreateExpense inserts e and returns it with its id set.
func (r *SQLiteRepository) CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	created := r.nowUnix()
	res, err := r.q.ExecContext(ctx,
		`INSERT INTO expenses (user_id, category, amount, date, description, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		e.UserID, string(e.Category), amountArg(e.Amount), e.Date, e.Description, created)
	if err != nil {
		return core.Expense{}, fmt.Errorf("insert expense: %w", err)
	}
	if e.ID, err = res.LastInsertId(); err != nil {
		return core.Expense{}, fmt.Errorf("expense id: %w", err)
	}
	e.CreatedAt = fromUnix(created)

	slog.DebugContext(ctx, "Expense saved to SQLite",
		"id", e.ID, "user_id", e.UserID, "category", e.Category, "amount", e.Amount.String())
	return e, nil
}

func (r *SQLiteRepository) GetExpense(ctx context.Context, userID, id int64) (core.Expense, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+expenseColumns+` FROM expenses WHERE id = ? AND user_id = ?`, id, userID)
	e, err := scanExpense(row)
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense %d: %w", id, notFound(err))
	}
	return e, nil
}

// ListExpenses returns the user's expenses, newest date first.
func (r *SQLiteRepository) ListExpenses(ctx context.Context, userID int64) ([]core.Expense, error) {
	return r.queryExpenses(ctx,
		`SELECT `+expenseColumns+` FROM expenses WHERE user_id = ? ORDER BY date DESC, id DESC`, userID)
}

// ListExpensesByID returns the user's expenses in insertion order.
func (r *SQLiteRepository) ListExpensesByID(ctx context.Context, userID int64) ([]core.Expense, error) {
	return r.queryExpenses(ctx,
		`SELECT `+expenseColumns+` FROM expenses WHERE user_id = ? ORDER BY id`, userID)
}

func (r *SQLiteRepository) queryExpenses(ctx context.Context, query string, args ...any) ([]core.Expense, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	out := []core.Expense{}
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) UpdateExpense(ctx context.Context, e core.Expense) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE expenses SET category = ?, amount = ?, date = ?, description = ?, version = version + 1
		 WHERE id = ? AND user_id = ?`,
		string(e.Category), amountArg(e.Amount), e.Date, e.Description, e.ID, e.UserID)
	if err != nil {
		return fmt.Errorf("update expense %d: %w", e.ID, err)
	}
	return expectOne(res)
}

func (r *SQLiteRepository) DeleteExpense(ctx context.Context, userID, id int64) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM expenses WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete expense %d: %w", id, err)
	}
	return expectOne(res)
}

// GetPendingSyncEntries returns ledger entries not yet mirrored, oldest first.
func (r *SQLiteRepository) GetPendingSyncEntries(ctx context.Context, limit int) ([]PendingSyncEntry, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT kind, id, version, created_at FROM (
			SELECT 'income' AS kind, id, version, created_at FROM incomes WHERE sync_status = 'pending'
			UNION ALL
			SELECT 'expense' AS kind, id, version, created_at FROM expenses WHERE sync_status = 'pending'
		) ORDER BY created_at, kind, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("get pending sync entries: %w", err)
	}
	defer rows.Close()

	var out []PendingSyncEntry
	for rows.Next() {
		var (
			p       PendingSyncEntry
			created int64
		)
		if err := rows.Scan(&p.Kind, &p.ID, &p.Version, &created); err != nil {
			return nil, fmt.Errorf("scan pending entry: %w", err)
		}
		p.CreatedAt = fromUnix(created)
		out = append(out, p)
	}
	return out, rows.Err()
}

// GetIncomeForSync loads an income without user scoping, for the sync worker.
func (r *SQLiteRepository) GetIncomeForSync(ctx context.Context, id int64) (core.Income, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+incomeColumns+` FROM incomes WHERE id = ?`, id)
	in, err := scanIncome(row)
	if err != nil {
		return core.Income{}, fmt.Errorf("get income %d for sync: %w", id, notFound(err))
	}
	return in, nil
}

// GetExpenseForSync loads an expense without user scoping, for the sync worker.
func (r *SQLiteRepository) GetExpenseForSync(ctx context.Context, id int64) (core.Expense, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+expenseColumns+` FROM expenses WHERE id = ?`, id)
	e, err := scanExpense(row)
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense %d for sync: %w", id, notFound(err))
	}
	return e, nil
}

// SyncStatus reports the mirror state of a ledger entry.
func (r *SQLiteRepository) SyncStatus(ctx context.Context, kind core.TransactionType, id int64) (string, error) {
	table, err := ledgerTable(kind)
	if err != nil {
		return "", err
	}
	var status string
	err = r.q.QueryRowContext(ctx, `SELECT sync_status FROM `+table+` WHERE id = ?`, id).Scan(&status)
	if err != nil {
		return "", fmt.Errorf("get sync status: %w", notFound(err))
	}
	return status, nil
}

// MarkSynced marks a ledger entry as successfully mirrored
func (r *SQLiteRepository) MarkSynced(ctx context.Context, kind core.TransactionType, id int64) error {
	if err := r.setSyncStatus(ctx, kind, id, SyncSynced); err != nil {
		return fmt.Errorf("mark %s synced: %w", kind, err)
	}
	slog.InfoContext(ctx, "Ledger entry marked as synced", "kind", kind, "id", id)
	return nil
}

// MarkSyncError marks a ledger entry as having sync errors
func (r *SQLiteRepository) MarkSyncError(ctx context.Context, kind core.TransactionType, id int64) error {
	if err := r.setSyncStatus(ctx, kind, id, SyncError); err != nil {
		return fmt.Errorf("mark %s sync error: %w", kind, err)
	}
	slog.WarnContext(ctx, "Ledger entry marked with sync error", "kind", kind, "id", id)
	return nil
}

func (r *SQLiteRepository) setSyncStatus(ctx context.Context, kind core.TransactionType, id int64, status string) error {
	table, err := ledgerTable(kind)
	if err != nil {
		return err
	}
	var syncedAt any
	if status == SyncSynced {
		syncedAt = r.nowUnix()
	}
	res, err := r.q.ExecContext(ctx,
		`UPDATE `+table+` SET sync_status = ?, synced_at = ? WHERE id = ?`, status, syncedAt, id)
	if err != nil {
		return err
	}
	return expectOne(res)
}

func ledgerTable(kind core.TransactionType) (string, error) {
	switch kind {
	case core.TransactionIncome:
		return "incomes", nil
	case core.TransactionExpense:
		return "expenses", nil
	default:
		return "", fmt.Errorf("unknown ledger kind %q", kind)
	}
}

// RetrySyncErrors puts every entry that failed to mirror back to pending.
func (r *SQLiteRepository) RetrySyncErrors(ctx context.Context) (int64, error) {
	var total int64
	for _, table := range []string{"incomes", "expenses"} {
		res, err := r.q.ExecContext(ctx,
			`UPDATE `+table+` SET sync_status = 'pending' WHERE sync_status = 'error'`)
		if err != nil {
			return total, fmt.Errorf("retry %s sync errors: %w", table, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return total, fmt.Errorf("rows affected: %w", err)
		}
		total += n
	}
	return total, nil
}
