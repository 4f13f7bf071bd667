package services

import (
	"context"
	"fmt"

	"xpense/internal/core"

	"github.com/shopspring/decimal"
)

// InvalidAmountError reports a stored amount that fails numeric parsing
// during aggregation. Totals never skip or zero out a malformed record.
type InvalidAmountError struct {
	ID     string
	Amount string
}

func (e *InvalidAmountError) Error() string {
	return fmt.Sprintf("transaction %s: amount %q is not numeric", e.ID, e.Amount)
}

// conversionFactors rescales an amount entered under one granularity to
// another. A week is counted as 4.33 per month and 52 per year.
var conversionFactors = map[[2]core.Granularity]decimal.Decimal{
	{core.Weekly, core.Monthly}: decimal.RequireFromString("4.33"),
	{core.Weekly, core.Yearly}:  decimal.NewFromInt(52),
	{core.Monthly, core.Weekly}: decimal.NewFromInt(1).Div(decimal.RequireFromString("4.33")),
	{core.Monthly, core.Yearly}: decimal.NewFromInt(12),
	{core.Yearly, core.Weekly}:  decimal.NewFromInt(1).Div(decimal.NewFromInt(52)),
	{core.Yearly, core.Monthly}: decimal.NewFromInt(1).Div(decimal.NewFromInt(12)),
}

// conversionFactor fails on a pair it does not know instead of assuming
// 1:1, so a new granularity cannot silently corrupt totals.
func conversionFactor(from, to core.Granularity) (decimal.Decimal, error) {
	if from == to {
		return decimal.NewFromInt(1), nil
	}
	factor, ok := conversionFactors[[2]core.Granularity{from, to}]
	if !ok {
		return decimal.Decimal{}, fmt.Errorf("no conversion factor from %s to %s", from, to)
	}
	return factor, nil
}

// BalanceCalculator folds fetched transactions into period-normalized
// totals and a single reconciled balance.
type BalanceCalculator struct {
	fetcher *TransactionFetcher
}

func NewBalanceCalculator(fetcher *TransactionFetcher) *BalanceCalculator {
	return &BalanceCalculator{fetcher: fetcher}
}

func parseAmount(tx core.Transaction) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(tx.Amount)
	if err != nil {
		return decimal.Decimal{}, &InvalidAmountError{ID: tx.ID, Amount: tx.Amount}
	}
	return d, nil
}

// sumConverted totals transactions with each amount rescaled from its own
// entry granularity to the target one.
func sumConverted(txs []core.Transaction, target core.Granularity) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, tx := range txs {
		amount, err := parseAmount(tx)
		if err != nil {
			return decimal.Decimal{}, err
		}
		factor, err := conversionFactor(tx.Aggregation, target)
		if err != nil {
			return decimal.Decimal{}, err
		}
		total = total.Add(amount.Mul(factor))
	}
	return total, nil
}

// TotalExpenses sums the expenses inside the granularity's window. The
// window already matches the target period, so no conversion applies.
func (c *BalanceCalculator) TotalExpenses(ctx context.Context, g core.Granularity) (decimal.Decimal, error) {
	expenses, err := c.fetcher.ExpenseTransactions(ctx, g)
	if err != nil {
		return decimal.Decimal{}, err
	}
	total := decimal.Zero
	for _, tx := range expenses {
		amount, err := parseAmount(tx)
		if err != nil {
			return decimal.Decimal{}, err
		}
		total = total.Add(amount)
	}
	return total, nil
}

// TotalIncome sums all income normalized to the target granularity.
func (c *BalanceCalculator) TotalIncome(ctx context.Context, g core.Granularity) (decimal.Decimal, error) {
	income, err := c.fetcher.IncomeTransactions(ctx)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return sumConverted(income, g)
}

// TotalAllocations sums all allocations normalized to the target
// granularity.
func (c *BalanceCalculator) TotalAllocations(ctx context.Context, g core.Granularity) (decimal.Decimal, error) {
	allocations, err := c.fetcher.AllocationTransactions(ctx)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return sumConverted(allocations, g)
}

// TotalUnallocatedExpenses reconciles expenses against allocations per
// category: whenever a category's spend exceeds its allocation (a missing
// allocation counts as zero), the difference is unallocated.
func (c *BalanceCalculator) TotalUnallocatedExpenses(ctx context.Context, g core.Granularity) (decimal.Decimal, error) {
	allocations, err := c.fetcher.AllocationTransactions(ctx)
	if err != nil {
		return decimal.Decimal{}, err
	}
	expenses, err := c.fetcher.ExpenseTransactions(ctx, g)
	if err != nil {
		return decimal.Decimal{}, err
	}

	allocationPerCategory := make(map[string]decimal.Decimal)
	for _, tx := range allocations {
		amount, err := parseAmount(tx)
		if err != nil {
			return decimal.Decimal{}, err
		}
		factor, err := conversionFactor(tx.Aggregation, g)
		if err != nil {
			return decimal.Decimal{}, err
		}
		allocationPerCategory[tx.Category] = allocationPerCategory[tx.Category].Add(amount.Mul(factor))
	}

	expensePerCategory := make(map[string]decimal.Decimal)
	for _, tx := range expenses {
		amount, err := parseAmount(tx)
		if err != nil {
			return decimal.Decimal{}, err
		}
		expensePerCategory[tx.Category] = expensePerCategory[tx.Category].Add(amount)
	}

	unallocated := decimal.Zero
	for category, expense := range expensePerCategory {
		allocation := allocationPerCategory[category]
		if allocation.LessThan(expense) {
			unallocated = unallocated.Add(expense.Sub(allocation))
		}
	}
	return unallocated, nil
}

// TotalBalance is income minus allocations minus unallocated expenses,
// normalized to the target granularity and rounded to 3 places with
// banker's rounding.
func (c *BalanceCalculator) TotalBalance(ctx context.Context, g core.Granularity) (decimal.Decimal, error) {
	income, err := c.TotalIncome(ctx, g)
	if err != nil {
		return decimal.Decimal{}, err
	}
	allocations, err := c.TotalAllocations(ctx, g)
	if err != nil {
		return decimal.Decimal{}, err
	}
	unallocated, err := c.TotalUnallocatedExpenses(ctx, g)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return income.Sub(allocations).Sub(unallocated).RoundBank(3), nil
}

// Summary is a compact balance overview for one reporting period.
type Summary struct {
	Granularity core.Granularity
	Income      decimal.Decimal
	Allocations decimal.Decimal
	Expenses    decimal.Decimal
	Unallocated decimal.Decimal
	Balance     decimal.Decimal
}

// Summarize computes all totals for one granularity in a single call.
func (c *BalanceCalculator) Summarize(ctx context.Context, g core.Granularity) (Summary, error) {
	s := Summary{Granularity: g}
	var err error

	if s.Income, err = c.TotalIncome(ctx, g); err != nil {
		return Summary{}, err
	}
	if s.Allocations, err = c.TotalAllocations(ctx, g); err != nil {
		return Summary{}, err
	}
	if s.Expenses, err = c.TotalExpenses(ctx, g); err != nil {
		return Summary{}, err
	}
	if s.Unallocated, err = c.TotalUnallocatedExpenses(ctx, g); err != nil {
		return Summary{}, err
	}
	s.Balance = s.Income.Sub(s.Allocations).Sub(s.Unallocated).RoundBank(3)
	return s, nil
}
