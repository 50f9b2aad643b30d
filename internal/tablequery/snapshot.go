package tablequery

// TableEvent is the page/sort/filter state carried by a grid interaction,
// or read from the live grid. Zero values mean "not provided".
type TableEvent struct {
	Page               int
	Rows               int
	Filters            Filters
	SortField          string
	SortOrder          int
	MultiSortMeta      []SortMeta
	GlobalFilterFields []string
}

// Table is a live grid whose current state can be captured.
type Table interface {
	CurrentState() TableEvent
}

// Defaults fill whatever the event or the table leaves out.
type Defaults struct {
	Page               int
	Limit              int
	Filters            Filters
	GlobalFilterFields []string
}

// BuildSnapshot captures the state of event, or of table when event is nil.
// Values are copied verbatim; nothing is coerced or validated.
func BuildSnapshot(event *TableEvent, table Table, defaults Defaults) Snapshot {
	var src TableEvent
	switch {
	case event != nil:
		src = *event
	case table != nil:
		src = table.CurrentState()
	}

	snap := Snapshot{
		PageIndex: src.Page,
		PageSize:  src.Rows,
		SortField: src.SortField,
		SortOrder: src.SortOrder,
	}
	if snap.PageIndex == 0 {
		snap.PageIndex = defaults.Page
	}
	if snap.PageSize == 0 {
		snap.PageSize = defaults.Limit
	}

	filters := src.Filters
	if filters == nil {
		filters = defaults.Filters
	}
	snap.Filters = filters.Clone()

	globals := src.GlobalFilterFields
	if globals == nil {
		globals = defaults.GlobalFilterFields
	}
	snap.GlobalFilterFields = append([]string(nil), globals...)

	if src.MultiSortMeta != nil {
		snap.MultiSortMeta = append([]SortMeta(nil), src.MultiSortMeta...)
	}
	return snap
}
