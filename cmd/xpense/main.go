package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"xpense/internal/config"
	"xpense/internal/core"
	applog "xpense/internal/log"
	"xpense/internal/services"
	"xpense/internal/storage"

	"github.com/joho/godotenv"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "xpense:", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return err
	}

	level, err := cfg.SlogLevel()
	if err != nil {
		return err
	}
	logger := applog.New(applog.Config{Level: level, Component: "xpense"})
	applog.SetDefault(logger)

	db, err := storage.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := context.Background()

	transactions, err := storage.NewTransactionRepository(db, logger.WithComponent("storage"))
	if err != nil {
		return err
	}
	if err := transactions.EnsureTable(ctx); err != nil {
		return err
	}

	fetcher := services.NewTransactionFetcher(transactions, time.Now())
	calculator := services.NewBalanceCalculator(fetcher)

	summary, err := calculator.Summarize(ctx, core.Monthly)
	if err != nil {
		return err
	}

	printLine := func(label string, amount string) {
		formatted, err := core.FormatAmount(amount)
		if err != nil {
			formatted = amount
		}
		fmt.Printf("%-22s %s\n", label, formatted)
	}

	fmt.Printf("Balance for the current %s period\n\n", summary.Granularity)
	printLine("Income:", summary.Income.String())
	printLine("Allocations:", summary.Allocations.String())
	printLine("Expenses:", summary.Expenses.String())
	printLine("Unallocated expenses:", summary.Unallocated.String())
	printLine("Balance:", summary.Balance.String())

	categories, err := storage.ListCategorySuggestions(ctx, db)
	if err != nil {
		return err
	}
	fmt.Printf("\nSuggested categories: %v\n", categories)

	return nil
}
