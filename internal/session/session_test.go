package session

import (
	"context"
	"errors"
	"os"
	"runtime"
	"sync"
	"testing"

	"GatewayAdmin/internal/client"
	"GatewayAdmin/internal/resource"
	"GatewayAdmin/internal/store"
	"GatewayAdmin/internal/tablequery"

	"github.com/google/go-cmp/cmp"
)

type fakeLister struct {
	mu      sync.Mutex
	queries []tablequery.QueryDescriptor
	page    store.Page
	err     error
}

func (f *fakeLister) List(_ context.Context, path string, q tablequery.QueryDescriptor) (store.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if path != "/route" {
		return store.Page{}, errors.New("unexpected path " + path)
	}
	f.queries = append(f.queries, q)
	return f.page, f.err
}

func (f *fakeLister) last(t *testing.T) tablequery.QueryDescriptor {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.queries) == 0 {
		t.Fatalf("no fetch happened")
	}
	return f.queries[len(f.queries)-1]
}

func routeResource(t *testing.T) *resource.Resource {
	t.Helper()
	data, err := os.ReadFile("../../resources/route.yml")
	if err != nil {
		t.Fatalf("read route.yml: %v", err)
	}
	res, err := resource.Parse("route", data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return res
}

func globalEvent(res *resource.Resource, value any) tablequery.TableEvent {
	filters := res.DefaultFilters().Set(tablequery.GlobalField, tablequery.SimpleFilter{
		Value:     value,
		MatchMode: tablequery.MatchContains,
	})
	return tablequery.TableEvent{Rows: 10, Filters: filters}
}

func TestNewSessionDefaults(t *testing.T) {
	s := New(routeResource(t), &fakeLister{})
	q := s.Query()
	if q.Page != 1 || q.Limit != 10 || q.Filters != "[]" {
		t.Fatalf("unexpected initial query: %+v", q)
	}
	if len(s.Items()) != 0 || s.Total() != 0 || s.Filtered() {
		t.Fatalf("unexpected initial state")
	}
}

func TestOnFilterFansOutGlobal(t *testing.T) {
	res := routeResource(t)
	lister := &fakeLister{page: store.Page{Item: []map[string]any{{"id": "r1"}}, TotalRecord: 1}}
	s := New(res, lister)

	if err := s.OnFilter(context.Background(), globalEvent(res, "30")); err != nil {
		t.Fatalf("OnFilter: %v", err)
	}
	preds, err := lister.last(t).Predicates()
	if err != nil {
		t.Fatalf("Predicates: %v", err)
	}
	if len(preds) != len(res.GlobalFilterFields) {
		t.Fatalf("expected %d predicates, got %d", len(res.GlobalFilterFields), len(preds))
	}
	for _, p := range preds {
		if p.Operator != "OR" {
			t.Fatalf("global predicate must be OR: %+v", p)
		}
		if p.Field == "connectionReadTimeout" && (p.MatchMode != "EQUALS" || p.Value != float64(30)) {
			t.Fatalf("number field not coerced: %+v", p)
		}
	}
	if !s.Filtered() || s.Total() != 1 || len(s.Items()) != 1 {
		t.Fatalf("state not updated after filter")
	}
}

func TestOnPageKeepsFilters(t *testing.T) {
	res := routeResource(t)
	lister := &fakeLister{}
	s := New(res, lister)
	ctx := context.Background()

	if err := s.OnFilter(ctx, globalEvent(res, "api")); err != nil {
		t.Fatalf("OnFilter: %v", err)
	}
	filtered := lister.last(t).Filters

	if err := s.OnPage(ctx, tablequery.TableEvent{Page: 2, Rows: 25}); err != nil {
		t.Fatalf("OnPage: %v", err)
	}
	q := lister.last(t)
	if q.Page != 3 || q.Limit != 25 {
		t.Fatalf("unexpected paging: %+v", q)
	}
	if q.Filters != filtered {
		t.Fatalf("filters lost on page change:\n%s\n%s", filtered, q.Filters)
	}

	if err := s.OnPage(ctx, tablequery.TableEvent{Page: 0}); err != nil {
		t.Fatalf("OnPage: %v", err)
	}
	if q := lister.last(t); q.Page != 1 || q.Limit != 25 {
		t.Fatalf("expected first page with kept size, got %+v", q)
	}
}

func TestOnSortUsesAlias(t *testing.T) {
	lister := &fakeLister{}
	s := New(routeResource(t), lister)

	if err := s.OnSort(context.Background(), tablequery.TableEvent{SortField: "id", SortOrder: -1}); err != nil {
		t.Fatalf("OnSort: %v", err)
	}
	q := lister.last(t)
	if q.SortField == nil || *q.SortField != "name" {
		t.Fatalf("expected alias to name, got %v", q.SortField)
	}
	if q.SortDirection == nil || *q.SortDirection != tablequery.SortDesc {
		t.Fatalf("expected DESC, got %v", q.SortDirection)
	}
}

func TestFetchFailureEmptiesItems(t *testing.T) {
	res := routeResource(t)
	lister := &fakeLister{page: store.Page{Item: []map[string]any{{"id": "r1"}}, TotalRecord: 1}}
	s := New(res, lister)
	ctx := context.Background()

	if err := s.Refresh(ctx); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	lister.err = errors.New("down")
	if err := s.Refresh(ctx); err == nil {
		t.Fatalf("expected error")
	}
	if len(s.Items()) != 0 || s.Total() != 0 || s.Loading() {
		t.Fatalf("failed fetch must empty the grid")
	}
}

func TestClearFilters(t *testing.T) {
	res := routeResource(t)
	lister := &fakeLister{}
	s := New(res, lister)
	ctx := context.Background()

	refreshed, err := s.ClearFilters(ctx)
	if err != nil || refreshed {
		t.Fatalf("nothing set, expected no refresh: %v %v", refreshed, err)
	}
	if len(lister.queries) != 0 {
		t.Fatalf("unexpected fetch")
	}

	ev := globalEvent(res, "api")
	ev.Filters = ev.Filters.Set("name", tablequery.ConstraintFilter{
		Operator:    tablequery.OperatorAnd,
		Constraints: []tablequery.Constraint{{Value: "users", MatchMode: tablequery.MatchContains}},
	})
	if err := s.OnFilter(ctx, ev); err != nil {
		t.Fatalf("OnFilter: %v", err)
	}

	refreshed, err = s.ClearFilters(ctx)
	if err != nil || !refreshed {
		t.Fatalf("expected refresh: %v %v", refreshed, err)
	}
	if q := lister.last(t); q.Filters != "[]" {
		t.Fatalf("expected no predicates after clear, got %s", q.Filters)
	}
	if s.Filtered() {
		t.Fatalf("filtered flag must reset")
	}
	// the event the caller passed in is untouched
	if spec, _ := ev.Filters.Get(tablequery.GlobalField); spec.(tablequery.SimpleFilter).Value != "api" {
		t.Fatalf("caller filters mutated")
	}
}

func TestResetRestoresDefaults(t *testing.T) {
	res := routeResource(t)
	s := New(res, &fakeLister{page: store.Page{Item: []map[string]any{{"id": "r1"}}, TotalRecord: 1}})
	initial := s.CurrentState()

	if err := s.OnFilter(context.Background(), globalEvent(res, "api")); err != nil {
		t.Fatalf("OnFilter: %v", err)
	}
	s.Reset()

	if diff := cmp.Diff(initial, s.CurrentState()); diff != "" {
		t.Fatalf("state after reset (-want +got):\n%s", diff)
	}
	if len(s.Items()) != 0 || s.Total() != 0 {
		t.Fatalf("items not cleared")
	}
}

type blockingLister struct {
	started chan struct{}
}

func (b *blockingLister) List(ctx context.Context, _ string, q tablequery.QueryDescriptor) (store.Page, error) {
	if q.Page == 1 {
		close(b.started)
		<-ctx.Done()
		return store.Page{}, ctx.Err()
	}
	return store.Page{Item: []map[string]any{{"id": "p2"}}, TotalRecord: 11}, nil
}

func TestNewerFetchWins(t *testing.T) {
	lister := &blockingLister{started: make(chan struct{})}
	s := New(routeResource(t), lister)

	first := make(chan error, 1)
	go func() { first <- s.Refresh(context.Background()) }()
	<-lister.started

	if err := s.OnPage(context.Background(), tablequery.TableEvent{Page: 1}); err != nil {
		t.Fatalf("OnPage: %v", err)
	}
	if err := <-first; !errors.Is(err, client.ErrSuperseded) {
		t.Fatalf("expected ErrSuperseded, got %v", err)
	}
	if s.Total() != 11 || s.Items()[0]["id"] != "p2" {
		t.Fatalf("stale fetch overwrote newer result")
	}
}

// pageEcho answers with the requested page number as the total.
type pageEcho struct{}

func (pageEcho) List(ctx context.Context, _ string, q tablequery.QueryDescriptor) (store.Page, error) {
	runtime.Gosched()
	if err := ctx.Err(); err != nil {
		return store.Page{}, err
	}
	return store.Page{Item: []map[string]any{{"page": q.Page}}, TotalRecord: int64(q.Page)}, nil
}

func TestOverlappingFetchesMatchState(t *testing.T) {
	s := New(routeResource(t), pageEcho{})
	ctx := context.Background()

	var wg sync.WaitGroup
	for page := 1; page <= 50; page++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.OnPage(ctx, tablequery.TableEvent{Page: page})
			if err != nil && !errors.Is(err, client.ErrSuperseded) {
				t.Errorf("OnPage(%d): %v", page, err)
			}
		}()
	}
	wg.Wait()

	want := int64(s.CurrentState().Page + 1)
	if s.Total() != want || s.Items()[0]["page"] != int(want) {
		t.Fatalf("items from page %v shown for state page %d", s.Items()[0]["page"], want)
	}
	if s.Loading() {
		t.Fatalf("loading flag left set")
	}
}

func TestEditModel(t *testing.T) {
	s := New(routeResource(t), &fakeLister{})
	got := s.EditModel(map[string]any{"id": "r1", "name": "users", "createdBy": "a", "updatedDate": "x"})
	if diff := cmp.Diff(map[string]any{"id": "r1", "name": "users"}, got); diff != "" {
		t.Fatalf("EditModel (-want +got):\n%s", diff)
	}
}
