package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	applog "xpense/internal/log"
	"xpense/internal/schema"

	sq "github.com/Masterminds/squirrel"
	sqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Open prepares the sqlite database at path: parent directory, connection,
// pragmas and migrations. The returned handle is meant to be owned by the
// repositories built on top of it and closed exactly once at shutdown.
func Open(path string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// Single-process store; WAL keeps commits durable and cheap.
	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL;",
		"PRAGMA synchronous = NORMAL;",
		"PRAGMA foreign_keys = ON;",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply pragma: %w", err)
		}
	}

	if err := RunMigrations(path); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return db, nil
}

// Logic combines the conditions of a filtered query.
type Logic string

const (
	And Logic = "AND"
	Or  Logic = "OR"
)

// Condition is one (field, operator, value) triple. Value is a logical
// value; it is coerced through the field's schema before comparison, so a
// time.Time condition compares against the sortable stored encoding.
type Condition struct {
	Field string
	Op    string
	Value any
}

// Repository persists one entity type in one table. Encode and Decode
// translate between the entity and its logical field values in descriptor
// order; the schema layer handles the store-native coercions.
type Repository[T any] struct {
	db     *sql.DB
	desc   schema.Descriptor
	encode func(T) ([]any, error)
	decode func([]any) (T, error)
	logger *applog.Logger
}

// New builds a repository for desc on db. The descriptor must validate;
// a bad descriptor is a programming error surfaced at construction.
func New[T any](db *sql.DB, desc schema.Descriptor, encode func(T) ([]any, error), decode func([]any) (T, error), logger *applog.Logger) (*Repository[T], error) {
	if err := desc.Validate(); err != nil {
		return nil, fmt.Errorf("invalid descriptor: %w", err)
	}
	return &Repository[T]{db: db, desc: desc, encode: encode, decode: decode, logger: logger}, nil
}

// Table returns the backing table name.
func (r *Repository[T]) Table() string {
	return r.desc.Table
}

// EnsureTable creates the backing table if it does not exist. Idempotent.
func (r *Repository[T]) EnsureTable(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, r.desc.DDL()); err != nil {
		return &StoreError{Op: "ensure table " + r.desc.Table, Err: err}
	}
	return nil
}

// Add inserts a new record. Every field is written in one statement, so a
// record is either fully stored or not at all.
func (r *Repository[T]) Add(ctx context.Context, rec T) error {
	values, err := r.encodeRow(rec)
	if err != nil {
		return err
	}

	query, args, err := sq.Insert(r.desc.Table).
		Columns(r.desc.ColumnNames()...).
		Values(values...).
		ToSql()
	if err != nil {
		return &StoreError{Op: "build insert", Err: err}
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		if isConstraintViolation(err) {
			return &DuplicateKeyError{Table: r.desc.Table, ID: fmt.Sprint(values[0])}
		}
		return &StoreError{Op: "insert into " + r.desc.Table, Err: err}
	}

	r.logger.InfoContext(ctx, "Record added", "table", r.desc.Table, "id", values[0])
	return nil
}

// GetByID returns the record with the given id, or nil when absent.
func (r *Repository[T]) GetByID(ctx context.Context, id string) (*T, error) {
	query, args, err := r.selectBuilder().Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, &StoreError{Op: "build select", Err: err}
	}

	row := r.db.QueryRowContext(ctx, query, args...)
	rec, err := r.scanRow(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, r.decodeError(id, err)
	}
	return &rec, nil
}

// GetAll returns every record in the table in the store's native scan
// order. An empty table yields an empty slice, never an error.
func (r *Repository[T]) GetAll(ctx context.Context) ([]T, error) {
	query, args, err := r.selectBuilder().ToSql()
	if err != nil {
		return nil, &StoreError{Op: "build select", Err: err}
	}
	return r.queryMany(ctx, query, args)
}

// Update replaces all non-id fields of the row matching the record's id.
// The id itself is never rewritten.
func (r *Repository[T]) Update(ctx context.Context, rec T) error {
	values, err := r.encodeRow(rec)
	if err != nil {
		return err
	}
	id := fmt.Sprint(values[0])

	update := sq.Update(r.desc.Table)
	for i, f := range r.desc.Fields[1:] {
		update = update.Set(f.Name, values[i+1])
	}
	query, args, err := update.Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return &StoreError{Op: "build update", Err: err}
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return &StoreError{Op: "update " + r.desc.Table, Err: err}
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return &StoreError{Op: "update " + r.desc.Table, Err: err}
	}
	if affected == 0 {
		return &NotFoundError{Table: r.desc.Table, ID: id}
	}

	r.logger.InfoContext(ctx, "Record updated", "table", r.desc.Table, "id", id)
	return nil
}

// Delete removes the row with the given id. Deleting an absent id is a
// no-op, so delete is idempotent.
func (r *Repository[T]) Delete(ctx context.Context, id string) error {
	query, args, err := sq.Delete(r.desc.Table).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return &StoreError{Op: "build delete", Err: err}
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return &StoreError{Op: "delete from " + r.desc.Table, Err: err}
	}

	r.logger.InfoContext(ctx, "Record deleted", "table", r.desc.Table, "id", id)
	return nil
}

// GetByConditions returns the records matching all (And) or any (Or) of
// the given conditions. Condition values pass through the same field
// coercion used for storage, so comparisons are well-typed. An empty
// condition list returns all rows.
func (r *Repository[T]) GetByConditions(ctx context.Context, conds []Condition, logic Logic) ([]T, error) {
	builder := r.selectBuilder()

	if len(conds) > 0 {
		parts := make([]sq.Sqlizer, 0, len(conds))
		for _, c := range conds {
			part, err := r.conditionSqlizer(c)
			if err != nil {
				return nil, err
			}
			parts = append(parts, part)
		}
		switch logic {
		case Or:
			builder = builder.Where(sq.Or(parts))
		case And:
			builder = builder.Where(sq.And(parts))
		default:
			return nil, fmt.Errorf("unknown condition logic %q", logic)
		}
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, &StoreError{Op: "build conditional select", Err: err}
	}

	r.logger.DebugContext(ctx, "Conditional query", "table", r.desc.Table, "conditions", len(conds), "logic", string(logic))
	return r.queryMany(ctx, query, args)
}

func (r *Repository[T]) conditionSqlizer(c Condition) (sq.Sqlizer, error) {
	field, ok := r.desc.Field(c.Field)
	if !ok {
		return nil, fmt.Errorf("unknown condition field %q on %s", c.Field, r.desc.Table)
	}
	value, err := schema.EncodeValue(field, c.Value)
	if err != nil {
		return nil, fmt.Errorf("condition value for %q: %w", c.Field, err)
	}

	switch c.Op {
	case "=":
		return sq.Eq{c.Field: value}, nil
	case "!=":
		return sq.NotEq{c.Field: value}, nil
	case "<":
		return sq.Lt{c.Field: value}, nil
	case "<=":
		return sq.LtOrEq{c.Field: value}, nil
	case ">":
		return sq.Gt{c.Field: value}, nil
	case ">=":
		return sq.GtOrEq{c.Field: value}, nil
	}
	return nil, fmt.Errorf("unknown condition operator %q", c.Op)
}

func (r *Repository[T]) selectBuilder() sq.SelectBuilder {
	return sq.Select(r.desc.ColumnNames()...).From(r.desc.Table)
}

func (r *Repository[T]) queryMany(ctx context.Context, query string, args []any) ([]T, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &StoreError{Op: "query " + r.desc.Table, Err: err}
	}
	defer rows.Close()

	records := make([]T, 0)
	for rows.Next() {
		rec, err := r.scanRow(rows.Scan)
		if err != nil {
			return nil, r.decodeError("", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, &StoreError{Op: "scan " + r.desc.Table, Err: err}
	}
	return records, nil
}

func (r *Repository[T]) encodeRow(rec T) ([]any, error) {
	logical, err := r.encode(rec)
	if err != nil {
		return nil, fmt.Errorf("encode %s record: %w", r.desc.Table, err)
	}
	if len(logical) != len(r.desc.Fields) {
		return nil, fmt.Errorf("encode %s record: got %d values for %d fields", r.desc.Table, len(logical), len(r.desc.Fields))
	}

	values := make([]any, len(logical))
	for i, f := range r.desc.Fields {
		v, err := schema.EncodeValue(f, logical[i])
		if err != nil {
			return nil, err
		}
		values[i] = v
	}
	return values, nil
}

type rowIDError struct {
	id  string
	err error
}

func (e *rowIDError) Error() string { return e.err.Error() }
func (e *rowIDError) Unwrap() error { return e.err }

// scanRow reads one row and decodes every column through the schema. The
// raw id travels with any decode error so the caller can name the record.
func (r *Repository[T]) scanRow(scan func(...any) error) (T, error) {
	var zero T

	raw := make([]any, len(r.desc.Fields))
	dests := make([]any, len(r.desc.Fields))
	for i := range raw {
		dests[i] = &raw[i]
	}
	if err := scan(dests...); err != nil {
		return zero, err
	}

	rowID := ""
	if s, ok := normalizeRaw(raw[0]).(string); ok {
		rowID = s
	}

	logical := make([]any, len(r.desc.Fields))
	for i, f := range r.desc.Fields {
		v, err := schema.DecodeValue(f, normalizeRaw(raw[i]))
		if err != nil {
			return zero, &rowIDError{id: rowID, err: err}
		}
		logical[i] = v
	}

	rec, err := r.decode(logical)
	if err != nil {
		return zero, &rowIDError{id: rowID, err: err}
	}
	return rec, nil
}

func (r *Repository[T]) decodeError(id string, err error) error {
	var withID *rowIDError
	if errors.As(err, &withID) {
		if withID.id != "" {
			id = withID.id
		}
		return &CorruptRecordError{Table: r.desc.Table, ID: id, Err: withID.err}
	}
	var violation *schema.ViolationError
	if errors.As(err, &violation) {
		return &CorruptRecordError{Table: r.desc.Table, ID: id, Err: err}
	}
	return &StoreError{Op: "read " + r.desc.Table, Err: err}
}

// normalizeRaw maps driver byte slices onto strings so the schema layer
// sees one representation for TEXT.
func normalizeRaw(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}

func isConstraintViolation(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code() {
	case sqlite3.SQLITE_CONSTRAINT,
		sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY,
		sqlite3.SQLITE_CONSTRAINT_UNIQUE:
		return true
	}
	return false
}
