package core

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	Expense    TransactionType = "expense"
	Income     TransactionType = "income"
	Allocation TransactionType = "allocation"
)

const (
	RON    Currency = "ron"
	Euro   Currency = "euro"
	Dollar Currency = "dollar"
)

const (
	Weekly  Granularity = "weekly"
	Monthly Granularity = "monthly"
	Yearly  Granularity = "yearly"
)

type (
	// TransactionType tags a transaction as money going out, coming in,
	// or being reserved for a category.
	TransactionType string

	// Currency is the denomination a transaction was booked in.
	Currency string

	// Granularity is the reporting period an amount was entered under.
	// Amounts entered under one granularity are rescaled before they are
	// compared with amounts entered under another.
	Granularity string

	// Transaction is the single persisted entity. Amount keeps the exact
	// text the user entered; it is parsed only when totals are computed.
	Transaction struct {
		ID          string
		Type        TransactionType
		Date        time.Time
		Amount      string
		Currency    Currency
		Category    string
		Aggregation Granularity
	}
)

var (
	ErrInvalidType        = errors.New("invalid transaction type")
	ErrInvalidCurrency    = errors.New("invalid currency")
	ErrInvalidGranularity = errors.New("invalid granularity")
	ErrZeroDate           = errors.New("date cannot be zero")
)

// TransactionTypes lists the closed set in canonical order.
func TransactionTypes() []TransactionType {
	return []TransactionType{Expense, Income, Allocation}
}

// Currencies lists the closed set in canonical order.
func Currencies() []Currency {
	return []Currency{RON, Euro, Dollar}
}

// Granularities lists the closed set in canonical order.
func Granularities() []Granularity {
	return []Granularity{Weekly, Monthly, Yearly}
}

// ParseTransactionType resolves free-form input case-insensitively.
// Unknown input yields ok=false rather than an error; strict decoding of
// stored values lives in the schema layer.
func ParseTransactionType(s string) (TransactionType, bool) {
	for _, t := range TransactionTypes() {
		if strings.EqualFold(s, string(t)) {
			return t, true
		}
	}
	return "", false
}

// ParseCurrency resolves free-form input case-insensitively.
func ParseCurrency(s string) (Currency, bool) {
	for _, c := range Currencies() {
		if strings.EqualFold(s, string(c)) {
			return c, true
		}
	}
	return "", false
}

// ParseGranularity resolves free-form input case-insensitively.
func ParseGranularity(s string) (Granularity, bool) {
	for _, g := range Granularities() {
		if strings.EqualFold(s, string(g)) {
			return g, true
		}
	}
	return "", false
}

func (t TransactionType) Valid() bool {
	_, ok := ParseTransactionType(string(t))
	return ok
}

func (c Currency) Valid() bool {
	_, ok := ParseCurrency(string(c))
	return ok
}

func (g Granularity) Valid() bool {
	_, ok := ParseGranularity(string(g))
	return ok
}

// NewTransaction builds a transaction with a generated id and validates it.
func NewTransaction(typ TransactionType, date time.Time, amount string, currency Currency, category string, aggregation Granularity) (Transaction, error) {
	tx := Transaction{
		ID:          uuid.NewString(),
		Type:        typ,
		Date:        date,
		Amount:      amount,
		Currency:    currency,
		Category:    category,
		Aggregation: aggregation,
	}
	if err := tx.Validate(); err != nil {
		return Transaction{}, err
	}
	return tx, nil
}

func (tx Transaction) Validate() error {
	if !tx.Type.Valid() {
		return ErrInvalidType
	}
	if !tx.Currency.Valid() {
		return ErrInvalidCurrency
	}
	if !tx.Aggregation.Valid() {
		return ErrInvalidGranularity
	}
	if tx.Date.IsZero() {
		return ErrZeroDate
	}
	return ValidateAmount(tx.Amount)
}
