// Package session keeps the grid state of one resource view and turns every
// interaction into a record fetch.
package session

import (
	"context"
	"errors"
	"sync"

	"GatewayAdmin/internal/client"
	"GatewayAdmin/internal/logger"
	"GatewayAdmin/internal/resource"
	"GatewayAdmin/internal/store"
	"GatewayAdmin/internal/tablequery"
)

// Lister fetches one page of records. *client.RecordClient satisfies it.
type Lister interface {
	List(ctx context.Context, path string, q tablequery.QueryDescriptor) (store.Page, error)
}

type Option func(*Session)

// WithConverter sets the date layout and zone used when coercing filter values.
func WithConverter(conv tablequery.Converter) Option {
	return func(s *Session) { s.compiler.Converter = conv }
}

// Session is the state of a resource grid. It is safe for concurrent use;
// when fetches overlap only the newest one updates the items.
type Session struct {
	res      *resource.Resource
	lister   Lister
	compiler tablequery.Compiler
	defaults tablequery.Defaults
	latest   client.Latest

	mu       sync.Mutex
	state    tablequery.TableEvent
	items    []map[string]any
	total    int64
	loading  bool
	filtered bool
}

func New(res *resource.Resource, lister Lister, opts ...Option) *Session {
	s := &Session{
		res:      res,
		lister:   lister,
		compiler: res.Compiler(tablequery.Converter{}),
		defaults: res.Defaults(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Reset()
	return s
}

// CurrentState returns a copy of the grid state.
func (s *Session) CurrentState() tablequery.TableEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyEvent(s.state)
}

// Items returns the records of the last successful fetch.
func (s *Session) Items() []map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.items
}

func (s *Session) Total() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total
}

func (s *Session) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Filtered reports whether the last interaction was a filter change that has
// not been cleared since.
func (s *Session) Filtered() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filtered
}

func (s *Session) OnPage(ctx context.Context, ev tablequery.TableEvent) error {
	return s.fetch(s.apply(ctx, ev, false))
}

func (s *Session) OnSort(ctx context.Context, ev tablequery.TableEvent) error {
	return s.fetch(s.apply(ctx, ev, false))
}

func (s *Session) OnFilter(ctx context.Context, ev tablequery.TableEvent) error {
	return s.fetch(s.apply(ctx, ev, true))
}

// Refresh fetches again with the current state.
func (s *Session) Refresh(ctx context.Context) error {
	s.mu.Lock()
	f := s.begin(ctx, tablequery.BuildSnapshot(nil, eventTable(s.state), s.defaults))
	s.mu.Unlock()
	return s.fetch(f)
}

// ClearFilters nulls every filter value. It fetches only when at least one
// value was set and reports whether it did.
func (s *Session) ClearFilters(ctx context.Context) (bool, error) {
	s.mu.Lock()
	s.filtered = false
	cleared, changed := clearValues(s.state.Filters)
	s.state.Filters = cleared
	if !changed {
		s.mu.Unlock()
		return false, nil
	}
	f := s.begin(ctx, tablequery.BuildSnapshot(nil, eventTable(s.state), s.defaults))
	s.mu.Unlock()
	return true, s.fetch(f)
}

// Reset restores the state the session was created with.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = tablequery.TableEvent{
		Page:               s.defaults.Page,
		Rows:               s.defaults.Limit,
		Filters:            s.defaults.Filters.Clone(),
		GlobalFilterFields: append([]string(nil), s.defaults.GlobalFilterFields...),
	}
	s.items = []map[string]any{}
	s.total = 0
	s.loading = false
	s.filtered = false
}

// EditModel prepares a row for the edit form.
func (s *Session) EditModel(row map[string]any) map[string]any {
	return s.res.StripForEdit(row)
}

// Query compiles the current state without fetching.
func (s *Session) Query() tablequery.QueryDescriptor {
	return s.compiler.Compile(tablequery.BuildSnapshot(nil, s, s.defaults))
}

// apply merges ev into the state: the event wins where it carries a value.
// A zero page means the first page, not "keep the current one".
func (s *Session) apply(ctx context.Context, ev tablequery.TableEvent, filtered bool) pending {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := tablequery.BuildSnapshot(&ev, nil, tablequery.Defaults{
		Page:               s.defaults.Page,
		Limit:              s.state.Rows,
		Filters:            s.state.Filters,
		GlobalFilterFields: s.state.GlobalFilterFields,
	})
	s.state = tablequery.TableEvent{
		Page:               snap.PageIndex,
		Rows:               snap.PageSize,
		Filters:            snap.Filters.Clone(),
		SortField:          snap.SortField,
		SortOrder:          snap.SortOrder,
		MultiSortMeta:      snap.MultiSortMeta,
		GlobalFilterFields: append([]string(nil), snap.GlobalFilterFields...),
	}
	if filtered {
		s.filtered = true
	}
	return s.begin(ctx, snap)
}

// pending is a fetch registered together with the state it was built from.
type pending struct {
	call *client.Call
	q    tablequery.QueryDescriptor
}

// begin registers the fetch for snap. Callers hold s.mu, so the newest
// registered fetch always belongs to the current state.
func (s *Session) begin(ctx context.Context, snap tablequery.Snapshot) pending {
	s.loading = true
	return pending{call: s.latest.Start(ctx), q: s.compiler.Compile(snap)}
}

func (s *Session) fetch(p pending) error {
	page, err := s.lister.List(p.call.Context(), s.res.Path, p.q)

	s.mu.Lock()
	defer s.mu.Unlock()
	// a newer fetch can only start under s.mu, so this verdict holds until unlock
	if err = p.call.Finish(err); errors.Is(err, client.ErrSuperseded) {
		return err
	}
	s.loading = false
	if err != nil {
		logger.Warn("fetch_failed", map[string]any{"resource": s.res.Name, "error": err.Error()})
		s.items = []map[string]any{}
		s.total = 0
		return err
	}
	s.items = page.Item
	s.total = page.TotalRecord
	return nil
}

// eventTable exposes a state already read under s.mu to BuildSnapshot.
type eventTable tablequery.TableEvent

func (e eventTable) CurrentState() tablequery.TableEvent {
	return copyEvent(tablequery.TableEvent(e))
}

func copyEvent(ev tablequery.TableEvent) tablequery.TableEvent {
	out := ev
	out.Filters = ev.Filters.Clone()
	out.GlobalFilterFields = append([]string(nil), ev.GlobalFilterFields...)
	if ev.MultiSortMeta != nil {
		out.MultiSortMeta = append([]tablequery.SortMeta(nil), ev.MultiSortMeta...)
	}
	return out
}

// clearValues nulls every value in filters. changed is true when any value
// was non-nil before.
func clearValues(filters tablequery.Filters) (out tablequery.Filters, changed bool) {
	out = filters.Clone()
	for i, e := range out {
		switch spec := e.Spec.(type) {
		case tablequery.SimpleFilter:
			changed = changed || spec.Value != nil
			spec.Value = nil
			out[i].Spec = spec
		case *tablequery.SimpleFilter:
			if spec != nil {
				changed = changed || spec.Value != nil
				spec.Value = nil
			}
		case tablequery.ConstraintFilter:
			changed = clearConstraints(spec.Constraints) || changed
		case *tablequery.ConstraintFilter:
			if spec != nil {
				changed = clearConstraints(spec.Constraints) || changed
			}
		}
	}
	return out, changed
}

func clearConstraints(cs []tablequery.Constraint) bool {
	changed := false
	for i := range cs {
		changed = changed || cs[i].Value != nil
		cs[i].Value = nil
	}
	return changed
}
