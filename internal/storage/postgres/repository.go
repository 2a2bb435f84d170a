package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// PKMode selects how Create assigns primary keys.
type PKMode int

const (
	// PKGenerated leaves the key to a database sequence or default.
	PKGenerated PKMode = iota
	// PKMaxPlusOne computes COALESCE(MAX(pk),0)+1 inside the INSERT
	// statement itself, so the read and the write are a single atomic
	// statement rather than a read-then-insert race.
	PKMaxPlusOne
)

// Descriptor is the static metadata describing a persisted record type:
// table name, column list, key column, optional time-ordering column, and
// the scan/insert mapping. One descriptor is declared per entity type.
type Descriptor[T any] struct {
	Table         string
	Columns       []string
	PK            string
	TimeColumn    string
	PKMode        PKMode
	InsertColumns []string
	Scan          func(RowScanner) (T, error)
	InsertValues  func(T) []any
}

// Repository is a generic data-access object over a Descriptor. It holds no
// state beyond the injected handle; every operation runs one statement and
// is safe for concurrent use.
type Repository[T any] struct {
	db      DBTX
	desc    Descriptor[T]
	columns map[string]struct{}
}

// NewRepository validates the descriptor and builds a repository.
func NewRepository[T any](db DBTX, desc Descriptor[T]) (*Repository[T], error) {
	if db == nil {
		return nil, errors.New("storage: nil db")
	}
	if desc.Table == "" || desc.PK == "" || len(desc.Columns) == 0 {
		return nil, fmt.Errorf("storage: incomplete descriptor for %q", desc.Table)
	}
	if desc.Scan == nil {
		return nil, fmt.Errorf("storage: descriptor for %q has no scan func", desc.Table)
	}
	columns := make(map[string]struct{}, len(desc.Columns))
	for _, column := range desc.Columns {
		columns[column] = struct{}{}
	}
	return &Repository[T]{db: db, desc: desc, columns: columns}, nil
}

// Table returns the descriptor's table name.
func (r *Repository[T]) Table() string {
	return r.desc.Table
}

// Columns returns the recognized column set, shared with callers that build
// their own predicates.
func (r *Repository[T]) Columns() map[string]struct{} {
	return r.columns
}

// Show fetches exactly one row by primary key.
func (r *Repository[T]) Show(ctx context.Context, id any) (T, error) {
	var zero T
	query := fmt.Sprintf(`
SELECT %s
FROM %s
WHERE %s = $1
LIMIT 1`, strings.Join(r.desc.Columns, ", "), r.desc.Table, r.desc.PK)

	entity, err := r.desc.Scan(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return zero, fmt.Errorf("%s %v: %w", r.desc.Table, id, ErrNotFound)
		}
		return zero, wrapStorage("show "+r.desc.Table, err)
	}
	return entity, nil
}

// ListOptions tunes a List call.
type ListOptions struct {
	OrderByTimeDesc bool
	Limit           int
}

// List returns every row matching the criteria. No matching rows is not an
// error; the result is simply empty.
func (r *Repository[T]) List(ctx context.Context, criteria []Criterion, opts ListOptions) ([]T, error) {
	query, args, err := r.buildListQuery(criteria, opts)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapStorage("list "+r.desc.Table, err)
	}
	defer rows.Close()

	return r.collect(rows, "list")
}

func (r *Repository[T]) buildListQuery(criteria []Criterion, opts ListOptions) (string, []any, error) {
	predicate, args, err := BuildPredicate(criteria, r.columns)
	if err != nil {
		return "", nil, err
	}

	var query strings.Builder
	fmt.Fprintf(&query, "\nSELECT %s\nFROM %s\nWHERE %s", strings.Join(r.desc.Columns, ", "), r.desc.Table, predicate)
	if opts.OrderByTimeDesc && r.desc.TimeColumn != "" {
		fmt.Fprintf(&query, "\nORDER BY %s DESC", r.desc.TimeColumn)
	}
	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		fmt.Fprintf(&query, "\nLIMIT $%d", len(args))
	}
	return query.String(), args, nil
}

// Create inserts a record and returns the stored row. Key assignment
// follows the descriptor's PKMode.
func (r *Repository[T]) Create(ctx context.Context, entity T) (T, error) {
	var zero T
	if r.desc.InsertValues == nil || len(r.desc.InsertColumns) == 0 {
		return zero, fmt.Errorf("storage: descriptor for %q does not support create", r.desc.Table)
	}

	values := r.desc.InsertValues(entity)
	if len(values) != len(r.desc.InsertColumns) {
		return zero, fmt.Errorf("storage: %s insert arity mismatch", r.desc.Table)
	}

	placeholders := make([]string, len(values))
	for i := range values {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}

	var query string
	switch r.desc.PKMode {
	case PKMaxPlusOne:
		query = fmt.Sprintf(`
INSERT INTO %s (%s, %s)
SELECT COALESCE(MAX(%s), 0) + 1, %s FROM %s
RETURNING %s`,
			r.desc.Table, r.desc.PK, strings.Join(r.desc.InsertColumns, ", "),
			r.desc.PK, strings.Join(placeholders, ", "), r.desc.Table,
			strings.Join(r.desc.Columns, ", "))
	default:
		query = fmt.Sprintf(`
INSERT INTO %s (%s)
VALUES (%s)
RETURNING %s`,
			r.desc.Table, strings.Join(r.desc.InsertColumns, ", "),
			strings.Join(placeholders, ", "),
			strings.Join(r.desc.Columns, ", "))
	}

	created, err := r.desc.Scan(r.db.QueryRowContext(ctx, query, values...))
	if err != nil {
		return zero, wrapStorage("create "+r.desc.Table, err)
	}
	return created, nil
}

// Update applies only the given fields to the row with the given key and
// returns the updated row. Fields absent from the map are left untouched.
func (r *Repository[T]) Update(ctx context.Context, id any, fields map[string]any) (T, error) {
	var zero T
	if len(fields) == 0 {
		return r.Show(ctx, id)
	}

	names := make([]string, 0, len(fields))
	for name := range fields {
		if _, ok := r.columns[name]; !ok {
			return zero, fmt.Errorf("column %q: %w", name, ErrInvalidFilterField)
		}
		if name == r.desc.PK {
			return zero, fmt.Errorf("column %q is the primary key: %w", name, ErrInvalidFilterField)
		}
		names = append(names, name)
	}
	sort.Strings(names)

	assignments := make([]string, 0, len(names))
	args := make([]any, 0, len(names)+1)
	for _, name := range names {
		args = append(args, fields[name])
		assignments = append(assignments, fmt.Sprintf("%s = $%d", name, len(args)))
	}
	args = append(args, id)

	query := fmt.Sprintf(`
UPDATE %s
SET %s
WHERE %s = $%d
RETURNING %s`,
		r.desc.Table, strings.Join(assignments, ", "), r.desc.PK, len(args),
		strings.Join(r.desc.Columns, ", "))

	updated, err := r.desc.Scan(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return zero, fmt.Errorf("%s %v: %w", r.desc.Table, id, ErrNotFound)
		}
		return zero, wrapStorage("update "+r.desc.Table, err)
	}
	return updated, nil
}

// Delete removes the row with the given key and returns it.
func (r *Repository[T]) Delete(ctx context.Context, id any) (T, error) {
	var zero T
	query := fmt.Sprintf(`
DELETE FROM %s
WHERE %s = $1
RETURNING %s`, r.desc.Table, r.desc.PK, strings.Join(r.desc.Columns, ", "))

	deleted, err := r.desc.Scan(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return zero, fmt.Errorf("%s %v: %w", r.desc.Table, id, ErrNotFound)
		}
		return zero, wrapStorage("delete "+r.desc.Table, err)
	}
	return deleted, nil
}

// LatestPerGroup returns one row per distinct value of groupColumn: the most
// recent by the descriptor's time column, or the oldest when ascending.
func (r *Repository[T]) LatestPerGroup(ctx context.Context, groupColumn string, criteria []Criterion, ascending bool) ([]T, error) {
	query, args, err := r.buildLatestPerGroupQuery(groupColumn, criteria, ascending)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapStorage("latest "+r.desc.Table, err)
	}
	defer rows.Close()

	return r.collect(rows, "latest")
}

func (r *Repository[T]) buildLatestPerGroupQuery(groupColumn string, criteria []Criterion, ascending bool) (string, []any, error) {
	if r.desc.TimeColumn == "" {
		return "", nil, fmt.Errorf("storage: %s has no time column", r.desc.Table)
	}
	if _, ok := r.columns[groupColumn]; !ok {
		return "", nil, fmt.Errorf("column %q: %w", groupColumn, ErrInvalidFilterField)
	}

	predicate, args, err := BuildPredicate(criteria, r.columns)
	if err != nil {
		return "", nil, err
	}

	direction := "DESC"
	if ascending {
		direction = "ASC"
	}
	query := fmt.Sprintf(`
SELECT DISTINCT ON (%s) %s
FROM %s
WHERE %s
ORDER BY %s, %s %s`,
		groupColumn, strings.Join(r.desc.Columns, ", "), r.desc.Table,
		predicate, groupColumn, r.desc.TimeColumn, direction)
	return query, args, nil
}

func (r *Repository[T]) collect(rows *sql.Rows, op string) ([]T, error) {
	result := make([]T, 0)
	for rows.Next() {
		entity, err := r.desc.Scan(rows)
		if err != nil {
			return nil, wrapStorage(op+" "+r.desc.Table, err)
		}
		result = append(result, entity)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapStorage(op+" "+r.desc.Table, err)
	}
	return result, nil
}
