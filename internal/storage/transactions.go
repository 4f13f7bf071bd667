package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"xpense/internal/core"
	applog "xpense/internal/log"
	"xpense/internal/schema"

	sq "github.com/Masterminds/squirrel"
)

func enumStrings[E ~string](values []E) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = string(v)
	}
	return out
}

// TransactionDescriptor is the static field table for core.Transaction,
// shared by table creation and row serialization. Field order is column
// order; the table name is the plural of the entity name.
func TransactionDescriptor() schema.Descriptor {
	return schema.Descriptor{
		Table: "transactions",
		Fields: []schema.Field{
			{Name: "id", Kind: schema.KindText},
			{Name: "type", Kind: schema.KindEnum, Enum: enumStrings(core.TransactionTypes())},
			{Name: "date", Kind: schema.KindTime},
			{Name: "amount", Kind: schema.KindText},
			{Name: "currency", Kind: schema.KindEnum, Enum: enumStrings(core.Currencies())},
			{Name: "category", Kind: schema.KindText},
			{Name: "aggregation", Kind: schema.KindEnum, Enum: enumStrings(core.Granularities())},
		},
	}
}

func encodeTransaction(tx core.Transaction) ([]any, error) {
	return []any{
		tx.ID,
		string(tx.Type),
		tx.Date,
		tx.Amount,
		string(tx.Currency),
		tx.Category,
		string(tx.Aggregation),
	}, nil
}

func decodeTransaction(values []any) (core.Transaction, error) {
	var tx core.Transaction
	var ok bool

	if tx.ID, ok = values[0].(string); !ok {
		return tx, fmt.Errorf("id is not text")
	}
	typ, ok := values[1].(string)
	if !ok {
		return tx, fmt.Errorf("type is not text")
	}
	tx.Type = core.TransactionType(typ)
	if tx.Date, ok = values[2].(time.Time); !ok {
		return tx, fmt.Errorf("date is not a timestamp")
	}
	if tx.Amount, ok = values[3].(string); !ok {
		return tx, fmt.Errorf("amount is not text")
	}
	currency, ok := values[4].(string)
	if !ok {
		return tx, fmt.Errorf("currency is not text")
	}
	tx.Currency = core.Currency(currency)
	if tx.Category, ok = values[5].(string); !ok {
		return tx, fmt.Errorf("category is not text")
	}
	aggregation, ok := values[6].(string)
	if !ok {
		return tx, fmt.Errorf("aggregation is not text")
	}
	tx.Aggregation = core.Granularity(aggregation)

	return tx, nil
}

// NewTransactionRepository builds the repository for core.Transaction on
// an open store handle.
func NewTransactionRepository(db *sql.DB, logger *applog.Logger) (*Repository[core.Transaction], error) {
	return New(db, TransactionDescriptor(), encodeTransaction, decodeTransaction, logger)
}

// ListCategorySuggestions returns the seeded category vocabulary in its
// defined order. The vocabulary is suggested, never enforced: transactions
// may carry any category label.
func ListCategorySuggestions(ctx context.Context, db *sql.DB) ([]string, error) {
	query, args, err := sq.Select("name").
		From("category_suggestions").
		OrderBy("position").
		ToSql()
	if err != nil {
		return nil, &StoreError{Op: "build category select", Err: err}
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &StoreError{Op: "query category_suggestions", Err: err}
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, &StoreError{Op: "scan category_suggestions", Err: err}
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, &StoreError{Op: "scan category_suggestions", Err: err}
	}
	return names, nil
}
