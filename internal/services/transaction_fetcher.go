package services

import (
	"context"
	"fmt"
	"time"

	"xpense/internal/core"
	"xpense/internal/storage"
)

// TransactionFetcher reads category-scoped transactions relative to a
// reference instant. Expenses are bounded to the reporting window of the
// requested granularity; income and allocations model recurring flows and
// are read without a date bound.
type TransactionFetcher struct {
	repo *storage.Repository[core.Transaction]
	now  time.Time
}

func NewTransactionFetcher(repo *storage.Repository[core.Transaction], now time.Time) *TransactionFetcher {
	return &TransactionFetcher{repo: repo, now: now}
}

// Window returns the half-open reporting window [start, end) containing
// now for the given granularity. Weeks are ISO weeks starting Monday.
func Window(now time.Time, g core.Granularity) (time.Time, time.Time) {
	switch g {
	case core.Weekly:
		midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		daysSinceMonday := (int(now.Weekday()) + 6) % 7
		start := midnight.AddDate(0, 0, -daysSinceMonday)
		return start, start.AddDate(0, 0, 7)
	case core.Yearly:
		start := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location())
		return start, start.AddDate(1, 0, 0)
	default:
		start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		return start, start.AddDate(0, 1, 0)
	}
}

// ExpenseTransactions returns the expenses booked within the reporting
// window of the given granularity.
func (f *TransactionFetcher) ExpenseTransactions(ctx context.Context, g core.Granularity) ([]core.Transaction, error) {
	start, end := Window(f.now, g)
	txs, err := f.repo.GetByConditions(ctx, []storage.Condition{
		{Field: "type", Op: "=", Value: string(core.Expense)},
		{Field: "date", Op: ">=", Value: start},
		{Field: "date", Op: "<", Value: end},
	}, storage.And)
	if err != nil {
		return nil, fmt.Errorf("fetch expenses: %w", err)
	}
	return txs, nil
}

// IncomeTransactions returns every income transaction regardless of date.
// TODO: model an end date for income so finished income streams stop
// counting toward the balance.
func (f *TransactionFetcher) IncomeTransactions(ctx context.Context) ([]core.Transaction, error) {
	txs, err := f.repo.GetByConditions(ctx, []storage.Condition{
		{Field: "type", Op: "=", Value: string(core.Income)},
	}, storage.And)
	if err != nil {
		return nil, fmt.Errorf("fetch income: %w", err)
	}
	return txs, nil
}

// AllocationTransactions returns every allocation regardless of date.
func (f *TransactionFetcher) AllocationTransactions(ctx context.Context) ([]core.Transaction, error) {
	txs, err := f.repo.GetByConditions(ctx, []storage.Condition{
		{Field: "type", Op: "=", Value: string(core.Allocation)},
	}, storage.And)
	if err != nil {
		return nil, fmt.Errorf("fetch allocations: %w", err)
	}
	return txs, nil
}

// ByType dispatches to the fetch matching the transaction type. The
// granularity only affects expenses.
func (f *TransactionFetcher) ByType(ctx context.Context, typ core.TransactionType, g core.Granularity) ([]core.Transaction, error) {
	switch typ {
	case core.Income:
		return f.IncomeTransactions(ctx)
	case core.Expense:
		return f.ExpenseTransactions(ctx, g)
	case core.Allocation:
		return f.AllocationTransactions(ctx)
	}
	return nil, fmt.Errorf("%w: %q", core.ErrInvalidType, typ)
}
