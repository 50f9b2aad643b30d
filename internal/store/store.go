package store

import (
	"context"
	"errors"
	"fmt"
	"math"

	"GatewayAdmin/internal/logger"
	"GatewayAdmin/internal/resource"
	"GatewayAdmin/internal/tablequery"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrNotFound      = errors.New("record not found")
	ErrMissingID     = errors.New("record id is required")
	ErrNothingToSave = errors.New("no writable fields in record")
	ErrInvalidValue  = errors.New("invalid value")
)

// Querier is the subset of *pgxpool.Pool the store needs.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Page is one page of records and the total number of matching rows.
type Page struct {
	Item        []map[string]any `json:"item"`
	TotalRecord int64            `json:"totalRecord"`
}

type Store struct {
	db     Querier
	counts *CountCache
	conv   tablequery.Converter
}

type Option func(*Store)

// WithConverter sets the layout and zone date values arrive in. It must match
// the converter the clients compile their filters with.
func WithConverter(conv tablequery.Converter) Option {
	return func(s *Store) { s.conv = conv }
}

func New(db Querier, counts *CountCache, opts ...Option) *Store {
	s := &Store{db: db, counts: counts}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns the page described by q.
func (s *Store) List(ctx context.Context, res *resource.Resource, q tablequery.QueryDescriptor) (Page, error) {
	preds, err := q.Predicates()
	if err != nil {
		return Page{}, err
	}

	sqlStr, args, err := BuildListQuery(res, q, preds, s.conv).ToSql()
	if err != nil {
		return Page{}, fmt.Errorf("list sql: %w", err)
	}
	logger.Debug("list_sql", map[string]any{"resource": res.Name, "sql": sqlStr, "args": args})

	rows, err := s.db.Query(ctx, sqlStr, args...)
	if err != nil {
		return Page{}, fmt.Errorf("list query: %w", err)
	}
	items, err := pgx.CollectRows(rows, pgx.RowToMap)
	if err != nil {
		return Page{}, fmt.Errorf("list scan: %w", err)
	}
	if items == nil {
		items = []map[string]any{}
	}

	total, err := s.count(ctx, res, preds)
	if err != nil {
		return Page{}, err
	}
	return Page{Item: items, TotalRecord: total}, nil
}

func (s *Store) count(ctx context.Context, res *resource.Resource, preds []tablequery.Predicate) (int64, error) {
	sqlStr, args, err := BuildCountQuery(res, preds, s.conv).ToSql()
	if err != nil {
		return 0, fmt.Errorf("count sql: %w", err)
	}
	key := s.counts.Key(res.Name, sqlStr, args)
	if n, ok := s.counts.Get(ctx, key); ok {
		return n, nil
	}
	var n int64
	if err := s.db.QueryRow(ctx, sqlStr, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count query: %w", err)
	}
	s.counts.Set(ctx, key, n)
	return n, nil
}

// Add inserts record. A missing string primary key is generated.
// actor is recorded as createdBy when the resource has that column.
func (s *Store) Add(ctx context.Context, res *resource.Resource, record map[string]any, actor string) (map[string]any, error) {
	pk, _ := res.Column(res.PrimaryKey)
	if id, ok := record[pk.Field]; !ok || id == nil || id == "" {
		if pk.Type == resource.ColumnNumber {
			return nil, ErrMissingID
		}
		record = withField(record, pk.Field, uuid.NewString())
	}

	ib := psql.Insert(res.Table)
	var cols []string
	var vals []any
	for _, c := range res.Columns {
		v, ok := record[c.Field]
		if !ok || (c.Readonly && c.Field != pk.Field) {
			continue
		}
		nv, err := s.normalize(c, v)
		if err != nil {
			return nil, err
		}
		cols = append(cols, c.Column)
		vals = append(vals, nv)
	}
	if c, ok := res.Column("createdBy"); ok && actor != "" {
		cols = append(cols, c.Column)
		vals = append(vals, actor)
	}
	ib = ib.Columns(cols...).Values(vals...).Suffix("RETURNING " + returning(res))

	sqlStr, args, err := ib.ToSql()
	if err != nil {
		return nil, fmt.Errorf("insert sql: %w", err)
	}
	out, err := s.queryOne(ctx, sqlStr, args)
	if err != nil {
		return nil, err
	}
	s.flush(ctx, res)
	return out, nil
}

// Update writes the writable fields present in record onto the row with the
// same primary key.
func (s *Store) Update(ctx context.Context, res *resource.Resource, record map[string]any, actor string) (map[string]any, error) {
	pk, _ := res.Column(res.PrimaryKey)
	id, ok := record[pk.Field]
	if !ok || id == nil || id == "" {
		return nil, ErrMissingID
	}

	ub := psql.Update(res.Table)
	n := 0
	for _, c := range res.Columns {
		v, ok := record[c.Field]
		if !ok || c.Readonly || c.Field == pk.Field {
			continue
		}
		nv, err := s.normalize(c, v)
		if err != nil {
			return nil, err
		}
		ub = ub.Set(c.Column, nv)
		n++
	}
	if n == 0 {
		return nil, ErrNothingToSave
	}
	if c, ok := res.Column("updatedDate"); ok {
		ub = ub.Set(c.Column, squirrel.Expr("NOW()"))
	}
	if c, ok := res.Column("updatedBy"); ok && actor != "" {
		ub = ub.Set(c.Column, actor)
	}
	pkVal, err := s.normalize(pk, id)
	if err != nil {
		return nil, err
	}
	ub = ub.Where(squirrel.Eq{pk.Column: pkVal}).Suffix("RETURNING " + returning(res))

	sqlStr, args, err := ub.ToSql()
	if err != nil {
		return nil, fmt.Errorf("update sql: %w", err)
	}
	out, err := s.queryOne(ctx, sqlStr, args)
	if err != nil {
		return nil, err
	}
	s.flush(ctx, res)
	return out, nil
}

// Delete removes the row with primary key id.
func (s *Store) Delete(ctx context.Context, res *resource.Resource, id string) error {
	pk, _ := res.Column(res.PrimaryKey)
	pkVal, err := s.normalize(pk, id)
	if err != nil {
		return err
	}
	sqlStr, args, err := psql.Delete(res.Table).Where(squirrel.Eq{pk.Column: pkVal}).ToSql()
	if err != nil {
		return fmt.Errorf("delete sql: %w", err)
	}
	tag, err := s.db.Exec(ctx, sqlStr, args...)
	if err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	s.flush(ctx, res)
	return nil
}

func (s *Store) queryOne(ctx context.Context, sqlStr string, args []any) (map[string]any, error) {
	rows, err := s.db.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("write: %w", err)
	}
	out, err := pgx.CollectExactlyOneRow(rows, pgx.RowToMap)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("write: %w", err)
	}
	return out, nil
}

func (s *Store) flush(ctx context.Context, res *resource.Resource) {
	for _, name := range countScopes(res) {
		if err := s.counts.Flush(ctx, name); err != nil {
			logger.Warn("count_cache_flush_failed", map[string]any{"resource": name, "error": err.Error()})
		}
	}
}

// countScopes lists the resources whose cached counts a write to res invalidates.
func countScopes(res *resource.Resource) []string {
	return append([]string{res.Name}, res.Cascades...)
}

// returning lists the table columns aliased to their field names.
func returning(res *resource.Resource) string {
	out := ""
	for i, c := range res.Columns {
		if i > 0 {
			out += ", "
		}
		out += fmt.Sprintf(`%s AS "%s"`, c.Column, c.Field)
	}
	return out
}

func withField(record map[string]any, field string, v any) map[string]any {
	out := make(map[string]any, len(record)+1)
	for k, val := range record {
		out[k] = val
	}
	out[field] = v
	return out
}

// normalize converts decoded JSON values into what pgx encodes for the column.
func (s *Store) normalize(c resource.Column, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch c.Type {
	case resource.ColumnNumber:
		n, ok := toNumber(v)
		if !ok {
			return nil, fmt.Errorf("%w: field %s: %v is not a number", ErrInvalidValue, c.Field, v)
		}
		if n == math.Trunc(n) {
			return int64(n), nil
		}
		return n, nil
	case resource.ColumnBoolean:
		switch b := tablequery.Convert(tablequery.TypeBoolean, v).(type) {
		case bool:
			return b, nil
		}
		return nil, fmt.Errorf("%w: field %s: %v is not a boolean", ErrInvalidValue, c.Field, v)
	case resource.ColumnDate:
		t, ok := s.conv.ParseDate(v)
		if !ok {
			return nil, fmt.Errorf("%w: field %s: %v is not a date", ErrInvalidValue, c.Field, v)
		}
		return t, nil
	case resource.ColumnStringArray:
		items, ok := v.([]any)
		if !ok {
			if ss, ok := v.([]string); ok {
				return ss, nil
			}
			return nil, fmt.Errorf("%w: field %s: expected a list", ErrInvalidValue, c.Field)
		}
		out := make([]string, 0, len(items))
		for _, it := range items {
			out = append(out, toText(it))
		}
		return out, nil
	}
	return toText(v), nil
}
