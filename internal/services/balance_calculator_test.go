package services

import (
	"context"
	"errors"
	"testing"

	"xpense/internal/core"

	"github.com/shopspring/decimal"
)

func TestConversionFactorSymmetry(t *testing.T) {
	x := decimal.RequireFromString("123.456")
	tolerance := decimal.RequireFromString("0.000000001")

	for _, from := range core.Granularities() {
		for _, to := range core.Granularities() {
			forward, err := conversionFactor(from, to)
			if err != nil {
				t.Fatalf("factor %s->%s: %v", from, to, err)
			}
			back, err := conversionFactor(to, from)
			if err != nil {
				t.Fatalf("factor %s->%s: %v", to, from, err)
			}
			roundTrip := x.Mul(forward).Mul(back)
			if roundTrip.Sub(x).Abs().GreaterThan(tolerance) {
				t.Fatalf("%s->%s->%s drifted: %s -> %s", from, to, from, x, roundTrip)
			}
		}
	}
}

func TestConversionFactorUnknownPair(t *testing.T) {
	if _, err := conversionFactor(core.Granularity("daily"), core.Monthly); err == nil {
		t.Fatal("expected error for unknown granularity pair")
	}
}

func TestConversionFactorSameGranularity(t *testing.T) {
	for _, g := range core.Granularities() {
		factor, err := conversionFactor(g, g)
		if err != nil {
			t.Fatalf("factor %s->%s: %v", g, g, err)
		}
		if !factor.Equal(decimal.NewFromInt(1)) {
			t.Fatalf("factor %s->%s = %s, want 1", g, g, factor)
		}
	}
}

func TestTotalIncomeConvertsGranularities(t *testing.T) {
	repo := openTestRepo(t)
	calc := NewBalanceCalculator(NewTransactionFetcher(repo, reference))
	ctx := context.Background()

	// 100/week at 4.33 weeks per month plus 1200/year at a twelfth per month
	addTx(t, repo, core.Income, reference, "100", "salary", core.Weekly)
	addTx(t, repo, core.Income, reference, "1200", "dividends", core.Yearly)

	got, err := calc.TotalIncome(ctx, core.Monthly)
	if err != nil {
		t.Fatalf("total income: %v", err)
	}
	want := decimal.RequireFromString("533")
	if !got.Round(6).Equal(want.Round(6)) {
		t.Fatalf("total income = %s, want %s", got, want)
	}
}

func TestTotalExpensesNoConversion(t *testing.T) {
	repo := openTestRepo(t)
	calc := NewBalanceCalculator(NewTransactionFetcher(repo, reference))
	ctx := context.Background()

	// the weekly entry granularity must not rescale an in-window expense
	addTx(t, repo, core.Expense, reference, "250.00", "groceries", core.Weekly)
	addTx(t, repo, core.Expense, reference, "30.00", "coffee", core.Monthly)

	got, err := calc.TotalExpenses(ctx, core.Monthly)
	if err != nil {
		t.Fatalf("total expenses: %v", err)
	}
	if !got.Equal(decimal.RequireFromString("280")) {
		t.Fatalf("total expenses = %s, want 280", got)
	}
}

func TestTotalUnallocatedExpenses(t *testing.T) {
	repo := openTestRepo(t)
	calc := NewBalanceCalculator(NewTransactionFetcher(repo, reference))
	ctx := context.Background()

	// groceries: allocation 200, expenses 250 -> 50 unallocated
	addTx(t, repo, core.Allocation, reference, "200.00", "groceries", core.Monthly)
	addTx(t, repo, core.Expense, reference, "150.00", "groceries", core.Monthly)
	addTx(t, repo, core.Expense, reference, "100.00", "groceries", core.Monthly)
	// rent: allocation 800, no expenses -> 0
	addTx(t, repo, core.Allocation, reference, "800.00", "rent", core.Monthly)
	// coffee: no allocation, expenses 30 -> 30 unallocated
	addTx(t, repo, core.Expense, reference, "30.00", "coffee", core.Monthly)

	got, err := calc.TotalUnallocatedExpenses(ctx, core.Monthly)
	if err != nil {
		t.Fatalf("total unallocated: %v", err)
	}
	if !got.Equal(decimal.RequireFromString("80")) {
		t.Fatalf("total unallocated = %s, want 80", got)
	}
}

func TestTotalBalance(t *testing.T) {
	repo := openTestRepo(t)
	calc := NewBalanceCalculator(NewTransactionFetcher(repo, reference))
	ctx := context.Background()

	// income 2000; allocations 200+800+500 = 1500; unallocated 50+30 = 80
	addTx(t, repo, core.Income, reference, "2000.00", "salary", core.Monthly)
	addTx(t, repo, core.Allocation, reference, "200.00", "groceries", core.Monthly)
	addTx(t, repo, core.Allocation, reference, "800.00", "rent", core.Monthly)
	addTx(t, repo, core.Allocation, reference, "500.00", "savings", core.Monthly)
	addTx(t, repo, core.Expense, reference, "250.00", "groceries", core.Monthly)
	addTx(t, repo, core.Expense, reference, "30.00", "coffee", core.Monthly)

	got, err := calc.TotalBalance(ctx, core.Monthly)
	if err != nil {
		t.Fatalf("total balance: %v", err)
	}
	if !got.Equal(decimal.RequireFromString("420")) {
		t.Fatalf("total balance = %s, want 420", got)
	}
}

func TestSummarize(t *testing.T) {
	repo := openTestRepo(t)
	calc := NewBalanceCalculator(NewTransactionFetcher(repo, reference))
	ctx := context.Background()

	addTx(t, repo, core.Income, reference, "2000.00", "salary", core.Monthly)
	addTx(t, repo, core.Allocation, reference, "1500.00", "rent", core.Monthly)
	addTx(t, repo, core.Expense, reference, "80.00", "coffee", core.Monthly)

	summary, err := calc.Summarize(ctx, core.Monthly)
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if !summary.Income.Equal(decimal.RequireFromString("2000")) {
		t.Fatalf("income = %s", summary.Income)
	}
	if !summary.Allocations.Equal(decimal.RequireFromString("1500")) {
		t.Fatalf("allocations = %s", summary.Allocations)
	}
	if !summary.Expenses.Equal(decimal.RequireFromString("80")) {
		t.Fatalf("expenses = %s", summary.Expenses)
	}
	if !summary.Unallocated.Equal(decimal.RequireFromString("80")) {
		t.Fatalf("unallocated = %s", summary.Unallocated)
	}
	if !summary.Balance.Equal(decimal.RequireFromString("420")) {
		t.Fatalf("balance = %s", summary.Balance)
	}
}

func TestMalformedAmountSurfacesID(t *testing.T) {
	repo := openTestRepo(t)
	calc := NewBalanceCalculator(NewTransactionFetcher(repo, reference))
	ctx := context.Background()

	good := addTx(t, repo, core.Income, reference, "100", "salary", core.Monthly)

	// corrupt the stored amount behind validation's back
	bad := good
	bad.Amount = "not-a-number"
	if err := repo.Update(ctx, bad); err != nil {
		t.Fatalf("update: %v", err)
	}

	_, err := calc.TotalIncome(ctx, core.Monthly)
	var invalid *InvalidAmountError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidAmountError, got %v", err)
	}
	if invalid.ID != good.ID {
		t.Fatalf("error names id %q, want %q", invalid.ID, good.ID)
	}
}

func TestBalanceRounding(t *testing.T) {
	repo := openTestRepo(t)
	calc := NewBalanceCalculator(NewTransactionFetcher(repo, reference))
	ctx := context.Background()

	// 10/week a month: 10 * 4.33 = 43.3, nothing to round
	addTx(t, repo, core.Income, reference, "10", "salary", core.Weekly)
	// a yearly allocation of 100 is 100/12 = 8.3333... monthly
	addTx(t, repo, core.Allocation, reference, "100", "rent", core.Yearly)

	got, err := calc.TotalBalance(ctx, core.Monthly)
	if err != nil {
		t.Fatalf("total balance: %v", err)
	}
	want := decimal.RequireFromString("34.967") // 43.3 - 8.333... rounded to 3 places
	if !got.Equal(want) {
		t.Fatalf("total balance = %s, want %s", got, want)
	}
}
