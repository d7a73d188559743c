package core

import (
	"cmp"
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

const (
	// RecentTransactionsLimit caps the merged activity feed.
	RecentTransactionsLimit = 5
	// MonthlyBuckets is the length of the trend series.
	MonthlyBuckets = 6
	// bucketStepDays approximates a month when walking back from today.
	bucketStepDays = 30
)

type TransactionType string

const (
	TransactionIncome  TransactionType = "income"
	TransactionExpense TransactionType = "expense"
)

// RecentTransaction is one row of the merged income/expense feed.
type RecentTransaction struct {
	ID     int64           `json:"id"`
	Title  string          `json:"title"`
	Amount decimal.Decimal `json:"amount"`
	Date   Date            `json:"date"`
	Type   TransactionType `json:"type"`
}

// CategoryAmount represents an amount aggregated by expense category.
type CategoryAmount struct {
	Category Category        `json:"category"`
	Total    decimal.Decimal `json:"total"`
}

// MonthAmount is one bucket of the trend series.
type MonthAmount struct {
	Name    string          `json:"name"`
	Income  decimal.Decimal `json:"income"`
	Expense decimal.Decimal `json:"expense"`

	Year  int        `json:"-"`
	Month time.Month `json:"-"`
}

// Dashboard is the point-in-time aggregation served by the stats endpoint.
type Dashboard struct {
	TotalIncome        decimal.Decimal     `json:"total_income"`
	TotalExpense       decimal.Decimal     `json:"total_expense"`
	Balance            decimal.Decimal     `json:"balance"`
	TotalLiabilities   decimal.Decimal     `json:"total_liabilities"`
	RecentTransactions []RecentTransaction `json:"recent_transactions"`
	CategoryStats      []CategoryAmount    `json:"category_stats"`
	MonthlyStats       []MonthAmount       `json:"monthly_stats"`
}

// MonthBucketStarts returns the first day of each trend bucket, oldest first.
//
// Each start is the first of today's month stepped back i*30 days and pinned
// to day 1 again. Around short months this skips or repeats a month; callers
// rely on that exact sequence.
func MonthBucketStarts(today Date) []Date {
	first := NewDate(today.Year(), int(today.Month()), 1)
	starts := make([]Date, 0, MonthlyBuckets)
	for i := MonthlyBuckets - 1; i >= 0; i-- {
		d := first.AddDate(0, 0, -i*bucketStepDays)
		starts = append(starts, NewDate(d.Year(), int(d.Month()), 1))
	}
	return starts
}

// BuildDashboard aggregates one user's ledger. It never fails: empty input
// yields zero totals and empty lists.
func BuildDashboard(today Date, incomes []Income, expenses []Expense, liabilities []Liability) Dashboard {
	incomes = slices.Clone(incomes)
	expenses = slices.Clone(expenses)
	slices.SortStableFunc(incomes, func(a, b Income) int { return cmp.Compare(a.ID, b.ID) })
	slices.SortStableFunc(expenses, func(a, b Expense) int { return cmp.Compare(a.ID, b.ID) })

	dash := Dashboard{
		TotalIncome:      decimal.Zero,
		TotalExpense:     decimal.Zero,
		TotalLiabilities: decimal.Zero,
	}

	feed := make([]RecentTransaction, 0, len(incomes)+len(expenses))
	type monthKey struct {
		year  int
		month time.Month
	}
	incomeByMonth := map[monthKey]decimal.Decimal{}
	expenseByMonth := map[monthKey]decimal.Decimal{}
	byCategory := map[Category]decimal.Decimal{}

	for _, in := range incomes {
		dash.TotalIncome = dash.TotalIncome.Add(in.Amount)
		k := monthKey{in.Date.Year(), in.Date.Month()}
		incomeByMonth[k] = incomeByMonth[k].Add(in.Amount)
		feed = append(feed, RecentTransaction{
			ID: in.ID, Title: in.Source, Amount: in.Amount, Date: in.Date, Type: TransactionIncome,
		})
	}
	for _, ex := range expenses {
		dash.TotalExpense = dash.TotalExpense.Add(ex.Amount)
		k := monthKey{ex.Date.Year(), ex.Date.Month()}
		expenseByMonth[k] = expenseByMonth[k].Add(ex.Amount)
		byCategory[ex.Category] = byCategory[ex.Category].Add(ex.Amount)
		feed = append(feed, RecentTransaction{
			ID: ex.ID, Title: string(ex.Category), Amount: ex.Amount, Date: ex.Date, Type: TransactionExpense,
		})
	}
	for _, l := range liabilities {
		dash.TotalLiabilities = dash.TotalLiabilities.Add(l.RemainingAmount())
	}
	dash.Balance = dash.TotalIncome.Sub(dash.TotalExpense)

	// Same-date entries keep incomes ahead of expenses, each in id order.
	slices.SortStableFunc(feed, func(a, b RecentTransaction) int {
		return b.Date.Compare(a.Date.Time)
	})
	if len(feed) > RecentTransactionsLimit {
		feed = feed[:RecentTransactionsLimit]
	}
	dash.RecentTransactions = feed

	dash.CategoryStats = make([]CategoryAmount, 0, len(byCategory))
	for c, total := range byCategory {
		dash.CategoryStats = append(dash.CategoryStats, CategoryAmount{Category: c, Total: total})
	}
	slices.SortFunc(dash.CategoryStats, func(a, b CategoryAmount) int {
		if c := b.Total.Cmp(a.Total); c != 0 {
			return c
		}
		return cmp.Compare(a.Category, b.Category)
	})

	dash.MonthlyStats = make([]MonthAmount, 0, MonthlyBuckets)
	for _, start := range MonthBucketStarts(today) {
		k := monthKey{start.Year(), start.Month()}
		dash.MonthlyStats = append(dash.MonthlyStats, MonthAmount{
			Name:    start.Month().String()[:3],
			Income:  incomeByMonth[k],
			Expense: expenseByMonth[k],
			Year:    k.year,
			Month:   k.month,
		})
	}
	return dash
}
