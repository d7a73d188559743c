package memory

import (
	"context"
	"fmt"
	"sync"

	"fintrack/internal/core"
	"fintrack/internal/sheets"
)

// Store is an in-process mirror used when no spreadsheet is configured
// and in tests.
type Store struct {
	mu       sync.Mutex
	incomes  [][]any
	expenses [][]any
	fail     error
}

var _ sheets.LedgerWriter = (*Store)(nil)

func New() *Store {
	return &Store{}
}

// FailWith makes every following append return err. nil clears it.
func (s *Store) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail = err
}

func (s *Store) AppendIncome(_ context.Context, in core.Income) (string, error) {
	if err := in.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return "", s.fail
	}
	s.incomes = append(s.incomes, sheets.IncomeRow(in))
	return fmt.Sprintf("mem:income:%d", len(s.incomes)), nil
}

func (s *Store) AppendExpense(_ context.Context, e core.Expense) (string, error) {
	if err := e.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return "", s.fail
	}
	s.expenses = append(s.expenses, sheets.ExpenseRow(e))
	return fmt.Sprintf("mem:expense:%d", len(s.expenses)), nil
}

// IncomeRows returns a copy of the appended income rows.
func (s *Store) IncomeRows() [][]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]any(nil), s.incomes...)
}

// ExpenseRows returns a copy of the appended expense rows.
func (s *Store) ExpenseRows() [][]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]any(nil), s.expenses...)
}
