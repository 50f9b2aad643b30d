// Command routeq compiles grid filters for a resource into a record query and
// optionally runs it against the admin service.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"GatewayAdmin/internal/client"
	"GatewayAdmin/internal/config"
	"GatewayAdmin/internal/logger"
	"GatewayAdmin/internal/resource"
	"GatewayAdmin/internal/session"
	"GatewayAdmin/internal/tablequery"
)

type filterFlags []string

func (f *filterFlags) String() string { return strings.Join(*f, ",") }

func (f *filterFlags) Set(v string) error {
	*f = append(*f, v)
	return nil
}

func main() {
	cfg := config.LoadConfig()

	var filters filterFlags
	base := flag.String("base", "http://localhost:"+cfg.Port, "admin service base URL")
	resName := flag.String("resource", "route", "resource name")
	page := flag.Int("page", 1, "page number, 1-based")
	rows := flag.Int("rows", 10, "rows per page")
	sortField := flag.String("sort", "", "sort field")
	order := flag.String("order", "asc", "sort order: asc or desc")
	global := flag.String("global", "", "global search value")
	token := flag.String("token", os.Getenv("GATEWAYADMIN_TOKEN"), "bearer token")
	dry := flag.Bool("dry", false, "print the compiled query instead of fetching")
	debug := flag.Bool("d", false, "log debug output to stderr")
	flag.Var(&filters, "filter", "field=mode:value, repeatable")
	flag.Parse()

	if *debug {
		logger.SetOutput(os.Stderr)
		logger.SetDebug(true)
	}

	if err := run(cfg, options{
		base: *base, resource: *resName, page: *page, rows: *rows,
		sort: *sortField, order: *order, global: *global, token: *token,
		dry: *dry, filters: filters,
	}); err != nil {
		fmt.Fprintln(os.Stderr, "routeq:", err)
		os.Exit(1)
	}
}

type options struct {
	base, resource string
	page, rows     int
	sort, order    string
	global, token  string
	dry            bool
	filters        []string
}

func run(cfg *config.Config, opts options) error {
	reg, err := resource.LoadFromDir(cfg.ResourcesDir)
	if err != nil {
		return err
	}
	res, err := reg.Get(opts.resource)
	if err != nil {
		return err
	}

	ev, err := buildEvent(res, opts)
	if err != nil {
		return err
	}
	conv := tablequery.Converter{DateLayout: cfg.DateLayout, Location: time.UTC}

	if opts.dry {
		snap := tablequery.BuildSnapshot(&ev, nil, res.Defaults())
		return printJSON(res.Compiler(conv).Compile(snap))
	}

	c := client.New(opts.base)
	c.Token = opts.token
	s := session.New(res, c, session.WithConverter(conv))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := s.OnFilter(ctx, ev); err != nil {
		return err
	}
	return printJSON(map[string]any{"item": s.Items(), "totalRecord": s.Total()})
}

// buildEvent turns the flags into the grid event a user would have produced.
func buildEvent(res *resource.Resource, opts options) (tablequery.TableEvent, error) {
	ev := tablequery.TableEvent{
		Rows:      opts.rows,
		SortField: opts.sort,
		Filters:   res.DefaultFilters(),
	}
	if opts.page > 1 {
		ev.Page = opts.page - 1
	}
	if opts.sort != "" {
		switch strings.ToLower(opts.order) {
		case "asc":
			ev.SortOrder = 1
		case "desc":
			ev.SortOrder = -1
		default:
			return ev, fmt.Errorf("invalid -order %q", opts.order)
		}
	}

	if opts.global != "" {
		mode := tablequery.MatchContains
		if spec, ok := ev.Filters.Get(tablequery.GlobalField); ok {
			if sf, ok := spec.(tablequery.SimpleFilter); ok && sf.MatchMode != "" {
				mode = sf.MatchMode
			}
		}
		ev.Filters = ev.Filters.Set(tablequery.GlobalField, tablequery.SimpleFilter{Value: opts.global, MatchMode: mode})
	}

	for _, f := range opts.filters {
		field, rest, ok := strings.Cut(f, "=")
		mode, value, ok2 := strings.Cut(rest, ":")
		if !ok || !ok2 || field == "" || mode == "" {
			return ev, fmt.Errorf("invalid -filter %q, want field=mode:value", f)
		}
		if _, known := res.Column(field); !known {
			return ev, fmt.Errorf("resource %s has no field %q", res.Name, field)
		}
		ev.Filters = setFilter(ev.Filters, field, tablequery.MatchMode(mode), value)
	}
	return ev, nil
}

// setFilter stores value under field, keeping the constraint form when the
// view declares one. Repeated constraint filters add constraints.
func setFilter(filters tablequery.Filters, field string, mode tablequery.MatchMode, value string) tablequery.Filters {
	spec, _ := filters.Get(field)
	if cf, ok := spec.(tablequery.ConstraintFilter); ok {
		var kept []tablequery.Constraint
		for _, c := range cf.Constraints {
			if c.Value != nil {
				kept = append(kept, c)
			}
		}
		cf.Constraints = append(kept, tablequery.Constraint{Value: value, MatchMode: mode})
		return filters.Set(field, cf)
	}
	sf, _ := spec.(tablequery.SimpleFilter)
	sf.Value = value
	sf.MatchMode = mode
	return filters.Set(field, sf)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
