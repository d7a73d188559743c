package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/metrics"
	"fintrack/internal/storage"

	"github.com/shopspring/decimal"
)

// PaymentRecorded is the status reported for a successful liability pay-down.
const PaymentRecorded = "payment recorded"

// SyncPublisher announces ledger entries that need mirroring.
type SyncPublisher interface {
	PublishLedgerSync(ctx context.Context, kind core.TransactionType, id, version int64) error
}

// PayResult describes a committed liability pay-down.
type PayResult struct {
	Status      string          `json:"status"`
	NewBalance  decimal.Decimal `json:"new_balance"`
	LiabilityID int64           `json:"liability_id"`
	ExpenseID   int64           `json:"expense_id"`
	IsSettled   bool            `json:"is_settled"`
}

// LedgerService owns every write that touches the ledger: plain income and
// expense edits, liability changes, and the three postings that pair a
// primary record with a derived ledger entry in one transaction.
type LedgerService struct {
	store     *storage.SQLiteRepository
	publisher SyncPublisher
	dashboard *DashboardService
	metrics   *metrics.Metrics
	logger    *log.StructuredLogger
	now       func() time.Time
}

// NewLedgerService wires the service. publisher, dashboard and m may be nil.
func NewLedgerService(store *storage.SQLiteRepository, publisher SyncPublisher, dashboard *DashboardService, m *metrics.Metrics, logger *log.Logger) *LedgerService {
	if logger == nil {
		logger = log.New(log.Config{Handler: slog.Default().Handler()})
	}
	return &LedgerService{
		store:     store,
		publisher: publisher,
		dashboard: dashboard,
		metrics:   m,
		logger:    log.NewStructuredLogger(logger.WithComponent(log.ComponentLedger)),
		now:       time.Now,
	}
}

func (s *LedgerService) today() core.Date {
	return core.DateOf(s.now())
}

// PayLiability records a pay-down of amount against the user's liability and
// books the matching Liability expense. A missing amount counts as zero.
// The update and the expense commit together or not at all.
func (s *LedgerService) PayLiability(ctx context.Context, userID, liabilityID int64, rawAmount string, date *core.Date) (PayResult, error) {
	if rawAmount == "" {
		rawAmount = "0"
	}
	amount, err := core.ParseAmount(rawAmount)
	if err != nil {
		s.metrics.PostingFailed(log.OpPayLiability)
		return PayResult{}, err
	}

	day := s.today()
	if date != nil && !date.IsZero() {
		day = *date
	}

	var (
		liability core.Liability
		expense   core.Expense
	)
	err = s.store.WithTx(ctx, func(tx *storage.SQLiteRepository) error {
		l, err := tx.GetLiability(ctx, userID, liabilityID)
		if err != nil {
			return err
		}
		previous := l.PaidAmount
		if err := l.ApplyPayment(amount); err != nil {
			return err
		}
		if err := tx.UpdateLiabilityPayment(ctx, l, previous); err != nil {
			return err
		}
		e, err := tx.CreateExpense(ctx, l.PaymentExpense(amount, day))
		if err != nil {
			return err
		}
		liability, expense = l, e
		return nil
	})
	if err != nil {
		s.metrics.PostingFailed(log.OpPayLiability)
		return PayResult{}, fmt.Errorf("pay liability %d: %w", liabilityID, err)
	}

	s.afterLedgerWrite(ctx, userID, core.TransactionExpense, expense.ID)
	s.metrics.PostingSucceeded(log.OpPayLiability)
	s.logger.LogPosting(ctx, log.OpPayLiability, userID, liability.ID,
		string(core.TransactionExpense), expense.ID, core.FormatAmount(amount))

	return PayResult{
		Status:      PaymentRecorded,
		NewBalance:  liability.RemainingAmount(),
		LiabilityID: liability.ID,
		ExpenseID:   expense.ID,
		IsSettled:   liability.IsSettled,
	}, nil
}

// PostSalaryPayment stores p for one of the user's employees and books the
// matching Salary expense.
func (s *LedgerService) PostSalaryPayment(ctx context.Context, userID int64, p core.SalaryPayment) (paymentID, expenseID int64, err error) {
	if p.PaymentDate.IsZero() {
		p.PaymentDate = s.today()
	}
	if p.Title == "" {
		p.Title = core.DefaultSalaryTitle
	}
	if err := p.Validate(); err != nil {
		s.metrics.PostingFailed(log.OpPostSalary)
		return 0, 0, err
	}

	err = s.store.WithTx(ctx, func(tx *storage.SQLiteRepository) error {
		emp, err := tx.GetEmployee(ctx, userID, p.EmployeeID)
		if err != nil {
			return err
		}
		created, err := tx.CreateSalaryPayment(ctx, p)
		if err != nil {
			return err
		}
		e, err := tx.CreateExpense(ctx, emp.SalaryExpense(created))
		if err != nil {
			return err
		}
		paymentID, expenseID = created.ID, e.ID
		return nil
	})
	if err != nil {
		s.metrics.PostingFailed(log.OpPostSalary)
		return 0, 0, fmt.Errorf("post salary payment: %w", err)
	}

	s.afterLedgerWrite(ctx, userID, core.TransactionExpense, expenseID)
	s.metrics.PostingSucceeded(log.OpPostSalary)
	s.logger.LogPosting(ctx, log.OpPostSalary, userID, paymentID,
		string(core.TransactionExpense), expenseID, core.FormatAmount(p.Amount))
	return paymentID, expenseID, nil
}

// PostCustomerPayment stores p for one of the user's customers and books the
// matching income. The date defaults to today.
func (s *LedgerService) PostCustomerPayment(ctx context.Context, userID int64, p core.CustomerPayment) (paymentID, incomeID int64, err error) {
	if p.Date.IsZero() {
		p.Date = s.today()
	}
	if err := p.Validate(); err != nil {
		s.metrics.PostingFailed(log.OpPostCustomer)
		return 0, 0, err
	}

	err = s.store.WithTx(ctx, func(tx *storage.SQLiteRepository) error {
		c, err := tx.GetCustomer(ctx, userID, p.CustomerID)
		if err != nil {
			return err
		}
		created, err := tx.CreateCustomerPayment(ctx, p)
		if err != nil {
			return err
		}
		in, err := tx.CreateIncome(ctx, c.PaymentIncome(created))
		if err != nil {
			return err
		}
		paymentID, incomeID = created.ID, in.ID
		return nil
	})
	if err != nil {
		s.metrics.PostingFailed(log.OpPostCustomer)
		return 0, 0, fmt.Errorf("post customer payment: %w", err)
	}

	s.afterLedgerWrite(ctx, userID, core.TransactionIncome, incomeID)
	s.metrics.PostingSucceeded(log.OpPostCustomer)
	s.logger.LogPosting(ctx, log.OpPostCustomer, userID, paymentID,
		string(core.TransactionIncome), incomeID, core.FormatAmount(p.Amount))
	return paymentID, incomeID, nil
}

func (s *LedgerService) CreateIncome(ctx context.Context, in core.Income) (core.Income, error) {
	if err := in.Validate(); err != nil {
		return core.Income{}, err
	}
	created, err := s.store.CreateIncome(ctx, in)
	if err != nil {
		return core.Income{}, err
	}
	s.afterLedgerWrite(ctx, in.UserID, core.TransactionIncome, created.ID)
	return created, nil
}

// UpdateIncome edits the row. The sheet mirror is append-only, so no sync
// message is sent.
func (s *LedgerService) UpdateIncome(ctx context.Context, in core.Income) error {
	if err := in.Validate(); err != nil {
		return err
	}
	if err := s.store.UpdateIncome(ctx, in); err != nil {
		return err
	}
	s.invalidate(in.UserID)
	return nil
}

func (s *LedgerService) DeleteIncome(ctx context.Context, userID, id int64) error {
	if err := s.store.DeleteIncome(ctx, userID, id); err != nil {
		return err
	}
	s.invalidate(userID)
	return nil
}

func (s *LedgerService) CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	created, err := s.store.CreateExpense(ctx, e)
	if err != nil {
		return core.Expense{}, err
	}
	s.afterLedgerWrite(ctx, e.UserID, core.TransactionExpense, created.ID)
	return created, nil
}

func (s *LedgerService) UpdateExpense(ctx context.Context, e core.Expense) error {
	if err := e.Validate(); err != nil {
		return err
	}
	if err := s.store.UpdateExpense(ctx, e); err != nil {
		return err
	}
	s.invalidate(e.UserID)
	return nil
}

// DeleteExpense removes the entry only. A liability or salary payment it was
// derived from is left as is.
func (s *LedgerService) DeleteExpense(ctx context.Context, userID, id int64) error {
	if err := s.store.DeleteExpense(ctx, userID, id); err != nil {
		return err
	}
	s.invalidate(userID)
	return nil
}

func (s *LedgerService) CreateLiability(ctx context.Context, l core.Liability) (core.Liability, error) {
	if err := l.Validate(); err != nil {
		return core.Liability{}, err
	}
	created, err := s.store.CreateLiability(ctx, l)
	if err != nil {
		return core.Liability{}, err
	}
	s.invalidate(l.UserID)
	return created, nil
}

// UpdateLiabilityDetails changes title and due date. Amounts are ignored.
func (s *LedgerService) UpdateLiabilityDetails(ctx context.Context, l core.Liability) (core.Liability, error) {
	var updated core.Liability
	err := s.store.WithTx(ctx, func(tx *storage.SQLiteRepository) error {
		current, err := tx.GetLiability(ctx, l.UserID, l.ID)
		if err != nil {
			return err
		}
		current.Title = l.Title
		current.DueDate = l.DueDate
		if err := current.Validate(); err != nil {
			return err
		}
		if err := tx.UpdateLiabilityDetails(ctx, current); err != nil {
			return err
		}
		updated = current
		return nil
	})
	if err != nil {
		return core.Liability{}, err
	}
	s.invalidate(l.UserID)
	return updated, nil
}

func (s *LedgerService) DeleteLiability(ctx context.Context, userID, id int64) error {
	if err := s.store.DeleteLiability(ctx, userID, id); err != nil {
		return err
	}
	s.invalidate(userID)
	return nil
}

// afterLedgerWrite runs once a new ledger entry is committed. A failed
// publish is logged only: the entry stays pending and the worker's sweep
// picks it up later.
func (s *LedgerService) afterLedgerWrite(ctx context.Context, userID int64, kind core.TransactionType, id int64) {
	s.invalidate(userID)

	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishLedgerSync(ctx, kind, id, 1); err != nil {
		fields := log.NewFields().WithUserID(userID).WithLedgerEntry(string(kind), id, "")
		s.logger.LogError(ctx, "Failed to publish ledger sync message", err, log.ComponentAMQP, log.OpSync, fields)
	}
}

func (s *LedgerService) invalidate(userID int64) {
	if s.dashboard != nil {
		s.dashboard.Invalidate(userID)
	}
}

// IsConflict reports whether err means the caller raced another writer.
func IsConflict(err error) bool {
	return errors.Is(err, core.ErrConcurrentUpdate)
}
