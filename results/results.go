//
// Expected Parrot is pleased to support the open source community by making edsl-go available.
//
// Copyright (C) 2026 Expected Parrot.  All rights reserved.
//
// edsl-go is licensed under the Apache License Version 2.0.
//
//

package results

import (
	"fmt"
	"math/rand/v2"
	"sort"
	"strings"

	"github.com/expectedparrot/edsl-go/internal/canonicaljson"
	"github.com/expectedparrot/edsl-go/survey"
)

// Results is the ordered table of rows a job produced.
type Results []*Result

// Insert places r at its order-sorted position.
func (rs *Results) Insert(r *Result) {
	i := sort.Search(len(*rs), func(i int) bool {
		return (*rs)[i].Order >= r.Order
	})
	*rs = append(*rs, nil)
	copy((*rs)[i+1:], (*rs)[i:])
	(*rs)[i] = r
}

// Select projects rows onto the matching columns. Patterns are exact
// column names, bare prefixes ("answer") or wildcards ("answer.*").
func (rs Results) Select(patterns ...string) []map[string]any {
	out := make([]map[string]any, len(rs))
	for i, r := range rs {
		row := map[string]any{}
		for col, v := range r.Columns() {
			for _, p := range patterns {
				if matchColumn(p, col) {
					row[col] = v
					break
				}
			}
		}
		out[i] = row
	}
	return out
}

// Filter keeps rows satisfying fn.
func (rs Results) Filter(fn func(*Result) bool) Results {
	var out Results
	for _, r := range rs {
		if fn(r) {
			out = append(out, r)
		}
	}
	return out
}

// FilterExpr keeps rows satisfying a predicate expression over columns,
// e.g. "answer.q1 == 'Yes' and cost.q1 < 0.01".
func (rs Results) FilterExpr(expr string) (Results, error) {
	pred, err := survey.ParsePredicate(expr)
	if err != nil {
		return nil, err
	}
	var out Results
	for _, r := range rs {
		ok, err := pred.Evaluate(r.doc())
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, r)
		}
	}
	return out, nil
}

// SortBy stably sorts rows by the given columns. A "-" prefix sorts that
// column descending.
func (rs Results) SortBy(columns ...string) Results {
	out := make(Results, len(rs))
	copy(out, rs)
	sort.SliceStable(out, func(i, j int) bool {
		for _, col := range columns {
			desc := false
			if rest, ok := strings.CutPrefix(col, "-"); ok {
				col, desc = rest, true
			}
			a, _ := out[i].Get(col)
			b, _ := out[j].Get(col)
			c := compareValues(a, b)
			if c == 0 {
				continue
			}
			if desc {
				return c > 0
			}
			return c < 0
		}
		return false
	})
	return out
}

// Shuffle returns a seeded deterministic permutation of the rows.
func (rs Results) Shuffle(seed uint64) Results {
	out := make(Results, len(rs))
	copy(out, rs)
	rng := rand.New(rand.NewPCG(seed, seed))
	rng.Shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})
	return out
}

// Sample returns n rows drawn without replacement with a seeded RNG. When
// n exceeds the row count all rows return, shuffled.
func (rs Results) Sample(n int, seed uint64) Results {
	shuffled := rs.Shuffle(seed)
	if n >= len(shuffled) {
		return shuffled
	}
	return shuffled[:n]
}

// AddColumn returns rows extended with a computed column.
func (rs Results) AddColumn(name string, fn func(*Result) any) Results {
	out := make(Results, len(rs))
	for i, r := range rs {
		c := r.clone()
		if c.Extra == nil {
			c.Extra = map[string]any{}
		}
		c.Extra[name] = fn(r)
		out[i] = c
	}
	return out
}

// DropColumns returns rows with the matching columns removed from view.
func (rs Results) DropColumns(patterns ...string) Results {
	out := make(Results, len(rs))
	for i, r := range rs {
		c := r.clone()
		if c.dropped == nil {
			c.dropped = map[string]bool{}
		}
		for col := range r.Columns() {
			for _, p := range patterns {
				if matchColumn(p, col) {
					c.dropped[col] = true
					break
				}
			}
		}
		out[i] = c
	}
	return out
}

// Dedup removes rows whose full column content repeats an earlier row.
func (rs Results) Dedup() Results {
	seen := map[string]bool{}
	var out Results
	for _, r := range rs {
		cols := r.Columns()
		delete(cols, "order")
		key, err := canonicaljson.Fingerprint(cols)
		if err != nil {
			key = fmt.Sprintf("%v", cols)
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, r)
	}
	return out
}

// Aggregation ops for GroupBy.
const (
	AggSum   = "sum"
	AggMean  = "mean"
	AggMin   = "min"
	AggMax   = "max"
	AggCount = "count"
	AggFirst = "first"
	AggList  = "list"
)

// Aggregation computes one output column over a group.
type Aggregation struct {
	Column string
	Op     string
}

// GroupBy groups rows by key columns and computes aggregations per group.
// Output rows carry the key columns plus one "op(column)" column per
// aggregation, ordered by first appearance of each group.
func (rs Results) GroupBy(keys []string, aggs []Aggregation) ([]map[string]any, error) {
	type group struct {
		keyVals map[string]any
		rows    Results
	}
	var order []string
	groups := map[string]*group{}

	for _, r := range rs {
		keyVals := make(map[string]any, len(keys))
		for _, k := range keys {
			v, _ := r.Get(k)
			keyVals[k] = v
		}
		id, err := canonicaljson.Fingerprint(keyVals)
		if err != nil {
			id = fmt.Sprintf("%v", keyVals)
		}
		g, ok := groups[id]
		if !ok {
			g = &group{keyVals: keyVals}
			groups[id] = g
			order = append(order, id)
		}
		g.rows = append(g.rows, r)
	}

	out := make([]map[string]any, 0, len(order))
	for _, id := range order {
		g := groups[id]
		row := make(map[string]any, len(keys)+len(aggs))
		for k, v := range g.keyVals {
			row[k] = v
		}
		for _, agg := range aggs {
			v, err := aggregate(g.rows, agg)
			if err != nil {
				return nil, err
			}
			row[fmt.Sprintf("%s(%s)", agg.Op, agg.Column)] = v
		}
		out = append(out, row)
	}
	return out, nil
}

func aggregate(rows Results, agg Aggregation) (any, error) {
	values := make([]any, 0, len(rows))
	for _, r := range rows {
		if v, ok := r.Get(agg.Column); ok {
			values = append(values, v)
		}
	}
	switch agg.Op {
	case AggCount:
		return len(values), nil
	case AggList:
		return values, nil
	case AggFirst:
		if len(values) == 0 {
			return nil, nil
		}
		return values[0], nil
	case AggSum, AggMean, AggMin, AggMax:
		nums := make([]float64, 0, len(values))
		for _, v := range values {
			f, ok := toFloat(v)
			if !ok {
				return nil, fmt.Errorf("aggregate %s: column %s has non-numeric value %v", agg.Op, agg.Column, v)
			}
			nums = append(nums, f)
		}
		if len(nums) == 0 {
			return nil, nil
		}
		switch agg.Op {
		case AggSum, AggMean:
			sum := 0.0
			for _, f := range nums {
				sum += f
			}
			if agg.Op == AggMean {
				return sum / float64(len(nums)), nil
			}
			return sum, nil
		case AggMin:
			min := nums[0]
			for _, f := range nums[1:] {
				if f < min {
					min = f
				}
			}
			return min, nil
		default:
			max := nums[0]
			for _, f := range nums[1:] {
				if f > max {
					max = f
				}
			}
			return max, nil
		}
	default:
		return nil, fmt.Errorf("unknown aggregation op %q", agg.Op)
	}
}

// Flatten expands a dictionary-valued column into one column per key,
// returning projected rows with "column.key" names alongside the other
// columns.
func (rs Results) Flatten(column string) []map[string]any {
	out := make([]map[string]any, len(rs))
	for i, r := range rs {
		cols := r.Columns()
		if v, ok := cols[column]; ok {
			if m, isMap := v.(map[string]any); isMap {
				delete(cols, column)
				for k, sub := range m {
					cols[column+"."+k] = sub
				}
			}
		}
		out[i] = cols
	}
	return out
}

// TotalCost sums the per-question cost over all rows.
func (rs Results) TotalCost() float64 {
	total := 0.0
	for _, r := range rs {
		for _, c := range r.Cost {
			total += c
		}
	}
	return total
}

// compareValues orders column values: numbers numerically, everything else
// by string form.
func compareValues(a, b any) int {
	fa, aok := toFloat(a)
	fb, bok := toFloat(b)
	if aok && bok {
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		default:
			return 0
		}
	}
	sa, sb := fmt.Sprint(a), fmt.Sprint(b)
	return strings.Compare(sa, sb)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}
