package core

import (
	"encoding/json"
	"strings"
	"testing"
)

func monthNames(starts []Date) string {
	names := make([]string, len(starts))
	for i, s := range starts {
		names[i] = s.Month().String()[:3]
	}
	return strings.Join(names, ",")
}

func TestMonthBucketStarts(t *testing.T) {
	cases := []struct {
		today Date
		want  string
	}{
		{NewDate(2024, 7, 15), "Feb,Mar,Apr,May,Jun,Jul"},
		{NewDate(2024, 3, 31), "Oct,Nov,Dec,Jan,Jan,Mar"},
		{NewDate(2023, 3, 15), "Oct,Nov,Dec,Dec,Jan,Mar"},
		{NewDate(2025, 1, 10), "Aug,Sep,Oct,Nov,Dec,Jan"},
	}
	for _, tc := range cases {
		got := MonthBucketStarts(tc.today)
		if len(got) != MonthlyBuckets {
			t.Fatalf("%s: expected %d buckets, got %d", tc.today, MonthlyBuckets, len(got))
		}
		if names := monthNames(got); names != tc.want {
			t.Fatalf("%s: expected %s, got %s", tc.today, tc.want, names)
		}
		for _, s := range got {
			if s.Day() != 1 {
				t.Fatalf("%s: bucket %s not pinned to day 1", tc.today, s)
			}
		}
	}
	// Year rolls back with the step.
	if first := MonthBucketStarts(NewDate(2024, 3, 31))[0]; first.Year() != 2023 {
		t.Fatalf("expected 2023 for first bucket, got %d", first.Year())
	}
}

func TestBuildDashboardEmpty(t *testing.T) {
	d := BuildDashboard(NewDate(2024, 7, 15), nil, nil, nil)
	if !d.TotalIncome.IsZero() || !d.TotalExpense.IsZero() || !d.Balance.IsZero() || !d.TotalLiabilities.IsZero() {
		t.Fatalf("expected zero totals, got %+v", d)
	}
	if len(d.MonthlyStats) != MonthlyBuckets {
		t.Fatalf("expected %d monthly buckets, got %d", MonthlyBuckets, len(d.MonthlyStats))
	}
	b, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	s := string(b)
	if !strings.Contains(s, `"recent_transactions":[]`) || !strings.Contains(s, `"category_stats":[]`) {
		t.Fatalf("empty lists must serialize as [], got %s", s)
	}
	if !strings.Contains(s, `"total_income":"0"`) {
		t.Fatalf("expected zero income as string, got %s", s)
	}
}

func TestBuildDashboard(t *testing.T) {
	today := NewDate(2024, 7, 15)
	incomes := []Income{
		{ID: 2, Source: "Freelance", Amount: dec("500"), Date: NewDate(2024, 7, 1)},
		{ID: 1, Source: "Salary", Amount: dec("3000"), Date: NewDate(2024, 6, 28)},
	}
	expenses := []Expense{
		{ID: 1, Category: CategoryFood, Amount: dec("120.50"), Date: NewDate(2024, 7, 1)},
		{ID: 2, Category: CategoryHousing, Amount: dec("900"), Date: NewDate(2024, 7, 3)},
		{ID: 3, Category: CategoryFood, Amount: dec("30"), Date: NewDate(2024, 6, 2)},
		{ID: 4, Category: CategoryTransport, Amount: dec("900"), Date: NewDate(2024, 5, 10)},
		{ID: 5, Category: CategoryOther, Amount: dec("10"), Date: NewDate(2023, 7, 10)},
	}
	liabilities := []Liability{
		{TotalAmount: dec("1000"), PaidAmount: dec("500")},
		{TotalAmount: dec("0.3"), PaidAmount: dec("0.1")},
	}
	d := BuildDashboard(today, incomes, expenses, liabilities)

	if !d.TotalIncome.Equal(dec("3500")) || !d.TotalExpense.Equal(dec("1960.5")) {
		t.Fatalf("unexpected totals %s / %s", d.TotalIncome, d.TotalExpense)
	}
	if !d.Balance.Equal(dec("1539.5")) {
		t.Fatalf("unexpected balance %s", d.Balance)
	}
	if !d.TotalLiabilities.Equal(dec("500.2")) {
		t.Fatalf("unexpected liabilities %s", d.TotalLiabilities)
	}

	// Income id 2 and expense id 1 share 2024-07-01; income comes first.
	wantFeed := []struct {
		typ TransactionType
		id  int64
	}{
		{TransactionExpense, 2},
		{TransactionIncome, 2},
		{TransactionExpense, 1},
		{TransactionIncome, 1},
		{TransactionExpense, 3},
	}
	if len(d.RecentTransactions) != RecentTransactionsLimit {
		t.Fatalf("expected %d recent, got %d", RecentTransactionsLimit, len(d.RecentTransactions))
	}
	for i, w := range wantFeed {
		got := d.RecentTransactions[i]
		if got.Type != w.typ || got.ID != w.id {
			t.Fatalf("feed[%d]: expected %s#%d, got %s#%d", i, w.typ, w.id, got.Type, got.ID)
		}
	}
	if d.RecentTransactions[0].Title != "Housing" || d.RecentTransactions[1].Title != "Freelance" {
		t.Fatalf("unexpected titles %+v", d.RecentTransactions[:2])
	}

	// Housing and Transport tie at 900; name order breaks the tie.
	wantCats := []Category{CategoryHousing, CategoryTransport, CategoryFood, CategoryOther}
	if len(d.CategoryStats) != len(wantCats) {
		t.Fatalf("expected %d categories, got %+v", len(wantCats), d.CategoryStats)
	}
	for i, c := range wantCats {
		if d.CategoryStats[i].Category != c {
			t.Fatalf("category[%d]: expected %s, got %s", i, c, d.CategoryStats[i].Category)
		}
	}
	if !d.CategoryStats[2].Total.Equal(dec("150.5")) {
		t.Fatalf("food total: got %s", d.CategoryStats[2].Total)
	}

	jul := d.MonthlyStats[5]
	if jul.Name != "Jul" || !jul.Income.Equal(dec("500")) || !jul.Expense.Equal(dec("1020.5")) {
		t.Fatalf("unexpected July bucket %+v", jul)
	}
	jun := d.MonthlyStats[4]
	if jun.Name != "Jun" || !jun.Income.Equal(dec("3000")) || !jun.Expense.Equal(dec("30")) {
		t.Fatalf("unexpected June bucket %+v", jun)
	}
	// July 2023 is outside the window even though the month name matches.
	for _, m := range d.MonthlyStats {
		if m.Year == 2023 {
			t.Fatalf("unexpected 2023 bucket %+v", m)
		}
	}
}

func TestBuildDashboardSingleMonth(t *testing.T) {
	t.Run("income then later expense", func(t *testing.T) {
		d := BuildDashboard(NewDate(2024, 1, 31),
			[]Income{{ID: 1, Source: "Consulting", Amount: dec("100"), Date: NewDate(2024, 1, 15)}},
			[]Expense{{ID: 1, Category: CategoryFood, Amount: dec("40"), Date: NewDate(2024, 1, 20)}},
			nil)

		if !d.TotalIncome.Equal(dec("100")) || !d.TotalExpense.Equal(dec("40")) || !d.Balance.Equal(dec("60")) {
			t.Fatalf("unexpected totals %s / %s / %s", d.TotalIncome, d.TotalExpense, d.Balance)
		}
		if len(d.RecentTransactions) != 2 {
			t.Fatalf("expected 2 recent, got %+v", d.RecentTransactions)
		}
		if d.RecentTransactions[0].Type != TransactionExpense || d.RecentTransactions[1].Type != TransactionIncome {
			t.Fatalf("expected expense before income, got %+v", d.RecentTransactions)
		}
		jan := d.MonthlyStats[MonthlyBuckets-1]
		if jan.Name != "Jan" || !jan.Income.Equal(dec("100")) || !jan.Expense.Equal(dec("40")) {
			t.Fatalf("unexpected January bucket %+v", jan)
		}
	})
}

func TestBuildDashboardDuplicatedMonth(t *testing.T) {
	expenses := []Expense{{ID: 1, Category: CategoryFood, Amount: dec("40"), Date: NewDate(2024, 1, 20)}}
	d := BuildDashboard(NewDate(2024, 3, 31), nil, expenses, nil)
	if d.MonthlyStats[3].Name != "Jan" || d.MonthlyStats[4].Name != "Jan" {
		t.Fatalf("expected duplicated January, got %+v", d.MonthlyStats)
	}
	if !d.MonthlyStats[3].Expense.Equal(dec("40")) || !d.MonthlyStats[4].Expense.Equal(dec("40")) {
		t.Fatalf("both January buckets should carry the sum, got %+v", d.MonthlyStats)
	}
}
