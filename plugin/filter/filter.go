// Package filter narrows event snapshots with CEL expressions such as
// `"work" in categories && duration_minutes >= 30`.
package filter

import (
	"time"

	"github.com/google/cel-go/cel"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pkg/errors"

	"github.com/hrygo/calsense/store"
)

// DefaultCacheSize is the number of compiled programs kept by New.
const DefaultCacheSize = 128

// ErrInvalidExpression is returned for expressions that fail to compile or do not yield a bool.
var ErrInvalidExpression = errors.New("invalid filter expression")

// Filter compiles CEL expressions over event fields and caches the programs.
type Filter struct {
	env   *cel.Env
	cache *lru.Cache[string, cel.Program]
}

// New creates a filter with an LRU of cacheSize compiled programs.
func New(cacheSize int) (*Filter, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	env, err := cel.NewEnv(
		cel.Variable("title", cel.StringType),
		cel.Variable("description", cel.StringType),
		cel.Variable("location", cel.StringType),
		cel.Variable("categories", cel.ListType(cel.StringType)),
		cel.Variable("all_day", cel.BoolType),
		cel.Variable("duration_minutes", cel.DoubleType),
		cel.Variable("start_hour", cel.IntType),
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create cel environment")
	}
	cache, err := lru.New[string, cel.Program](cacheSize)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create program cache")
	}
	return &Filter{env: env, cache: cache}, nil
}

// Compile returns the program for expr, compiling it on first use.
func (f *Filter) Compile(expr string) (cel.Program, error) {
	if prg, ok := f.cache.Get(expr); ok {
		return prg, nil
	}
	ast, issues := f.env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, errors.Wrapf(ErrInvalidExpression, "%s: %v", expr, issues.Err())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, errors.Wrapf(ErrInvalidExpression, "%s: result type is %s, want bool", expr, ast.OutputType())
	}
	prg, err := f.env.Program(ast)
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidExpression, "%s: %v", expr, err)
	}
	f.cache.Add(expr, prg)
	return prg, nil
}

// Apply returns the events for which expr holds, in input order. start_hour is read in loc.
// An empty expression keeps every event.
func (f *Filter) Apply(expr string, events []*store.Event, loc *time.Location) ([]*store.Event, error) {
	if expr == "" {
		return events, nil
	}
	if loc == nil {
		loc = time.UTC
	}
	prg, err := f.Compile(expr)
	if err != nil {
		return nil, err
	}

	matched := make([]*store.Event, 0, len(events))
	for _, event := range events {
		out, _, err := prg.Eval(activation(event, loc))
		if err != nil {
			return nil, errors.Wrapf(err, "failed to evaluate filter on event %s", event.ID)
		}
		if keep, ok := out.Value().(bool); ok && keep {
			matched = append(matched, event)
		}
	}
	return matched, nil
}

func activation(event *store.Event, loc *time.Location) map[string]any {
	categories := event.Categories
	if categories == nil {
		categories = []string{}
	}
	return map[string]any{
		"title":            event.Title,
		"description":      event.Description,
		"location":         event.Location,
		"categories":       categories,
		"all_day":          event.AllDay,
		"duration_minutes": event.Duration().Minutes(),
		"start_hour":       int64(event.Start.In(loc).Hour()),
	}
}
