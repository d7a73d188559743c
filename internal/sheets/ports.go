package sheets

import (
	"context"
	"fmt"

	"fintrack/internal/core"
)

// LedgerWriter appends ledger entries to the spreadsheet mirror.
// Rows are only ever appended; edits and deletes are not mirrored.
type LedgerWriter interface {
	AppendIncome(ctx context.Context, in core.Income) (rowRef string, err error)
	AppendExpense(ctx context.Context, e core.Expense) (rowRef string, err error)
}

// EntryRef identifies a ledger entry in the last column of its row.
func EntryRef(kind core.TransactionType, id int64) string {
	return fmt.Sprintf("%s:%d", kind, id)
}

// IncomeRow is the Income tab layout: date, source, amount, description, ref.
func IncomeRow(in core.Income) []any {
	return []any{in.Date.String(), in.Source, core.FormatAmount(in.Amount), in.Description,
		EntryRef(core.TransactionIncome, in.ID)}
}

// ExpenseRow is the Expenses tab layout: date, category, amount, description, ref.
func ExpenseRow(e core.Expense) []any {
	return []any{e.Date.String(), string(e.Category), core.FormatAmount(e.Amount), e.Description,
		EntryRef(core.TransactionExpense, e.ID)}
}
