package trace

import (
	"context"
	"sort"

	"github.com/angelmondragon/dispo-backend/pkg/db/models"
	"github.com/angelmondragon/dispo-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/dispo-backend/pkg/errors"
)

const (
	DefaultMaxDepth   = 256
	DefaultMaxRecords = 10000
)

// Finder returns the active rows matching the literal filters of a query, ordered by
// event_time then id. It ignores the recursion mode.
type Finder interface {
	Find(ctx context.Context, query Query) ([]models.HUTrace, error)
}

// Limits bound a single lineage resolution. Zero values fall back to the defaults.
type Limits struct {
	MaxDepth   int
	MaxRecords int
}

func (l Limits) normalized() Limits {
	if l.MaxDepth <= 0 {
		l.MaxDepth = DefaultMaxDepth
	}
	if l.MaxRecords <= 0 {
		l.MaxRecords = DefaultMaxRecords
	}
	return l
}

// Resolver walks HU lineage on top of a Finder.
//
// BACKWARD follows vhu_source_id links toward the units a record was derived from.
// FORWARD looks up the direct follow-ups of every unit (rows whose vhu_source_id is that
// unit) and continues FORWARD from each follow-up. The walk is depth-first in the order of
// the sorted ids, records are deduplicated by id and every (mode, vhu) pair is expanded at
// most once, so cyclic lineage terminates.
type Resolver struct {
	finder Finder
	limits Limits
}

func NewResolver(finder Finder, limits Limits) *Resolver {
	return &Resolver{finder: finder, limits: limits.normalized()}
}

type expansionKey struct {
	mode  enums.RecursionMode
	vhuID int64
}

type workItem struct {
	query Query
	key   *expansionKey
	depth int
}

// Resolve returns the records matching query plus, depending on its recursion mode, the
// records of its ancestors or descendants. Base records come first.
func (r *Resolver) Resolve(ctx context.Context, query Query) ([]models.HUTrace, error) {
	if query.IsEmpty() {
		return []models.HUTrace{}, nil
	}

	result := []models.HUTrace{}
	seen := map[int64]struct{}{}
	expanded := map[expansionKey]struct{}{}
	followupsFetched := map[int64]struct{}{}

	stack := []workItem{{query: query}}
	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		item := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if item.key != nil {
			if _, done := expanded[*item.key]; done {
				continue
			}
			expanded[*item.key] = struct{}{}
		}
		if item.depth > r.limits.MaxDepth {
			return nil, limitError("hu lineage exceeds the maximum traversal depth", query, r.limits)
		}

		rows, err := r.finder.Find(ctx, item.query)
		if err != nil {
			return nil, err
		}
		for _, row := range rows {
			if _, dup := seen[row.ID]; dup {
				continue
			}
			seen[row.ID] = struct{}{}
			result = append(result, row)
			if len(result) > r.limits.MaxRecords {
				return nil, limitError("hu lineage exceeds the maximum number of records", query, r.limits)
			}
		}

		var next []workItem
		switch item.query.Mode() {
		case enums.RecursionModeBackward:
			for _, sourceID := range distinctSorted(rows, func(row models.HUTrace) int64 { return row.VHUSourceID }) {
				next = append(next, expansion(enums.RecursionModeBackward, sourceID, item.depth+1))
			}
		case enums.RecursionModeForward:
			for _, vhuID := range distinctSorted(rows, func(row models.HUTrace) int64 { return row.VHUID }) {
				if _, done := followupsFetched[vhuID]; done {
					continue
				}
				followupsFetched[vhuID] = struct{}{}
				followups, err := r.finder.Find(ctx, Query{VHUSourceID: vhuID})
				if err != nil {
					return nil, err
				}
				for _, followupID := range distinctSorted(followups, func(row models.HUTrace) int64 { return row.VHUID }) {
					next = append(next, expansion(enums.RecursionModeForward, followupID, item.depth+1))
				}
			}
		}
		for i := len(next) - 1; i >= 0; i-- {
			stack = append(stack, next[i])
		}
	}
	return result, nil
}

func expansion(mode enums.RecursionMode, vhuID int64, depth int) workItem {
	return workItem{
		query: Query{VHUID: vhuID, RecursionMode: mode},
		key:   &expansionKey{mode: mode, vhuID: vhuID},
		depth: depth,
	}
}

// distinctSorted returns the distinct positive values of field in ascending order.
func distinctSorted(rows []models.HUTrace, field func(models.HUTrace) int64) []int64 {
	set := map[int64]struct{}{}
	for _, row := range rows {
		if v := field(row); v > 0 {
			set[v] = struct{}{}
		}
	}
	ids := make([]int64, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func limitError(message string, query Query, limits Limits) error {
	return pkgerrors.New(pkgerrors.CodeTraversalLimit, message).WithDetails(map[string]any{
		"query":       query,
		"max_depth":   limits.MaxDepth,
		"max_records": limits.MaxRecords,
	})
}
