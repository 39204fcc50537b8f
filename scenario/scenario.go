//
// Expected Parrot is pleased to support the open source community by making edsl-go available.
//
// Copyright (C) 2026 Expected Parrot.  All rights reserved.
//
// edsl-go is licensed under the Apache License Version 2.0.
//
//

// Package scenario provides the Scenario value: a mapping from string keys to
// serializable values that parameterizes survey questions.
package scenario

import (
	"fmt"
	"sort"

	"github.com/expectedparrot/edsl-go/internal/canonicaljson"
)

// Scenario is a mapping from field name to any serializable value. Values may
// include references to file blobs via FileRef.
type Scenario map[string]any

// FileRef references binary content by its SHA-256 hash. Scenarios carry
// FileRefs instead of raw bytes so that cache fingerprints stay stable and
// small.
type FileRef struct {
	// Name is the original file name.
	Name string `json:"name"`
	// SHA256 is the lowercase hex content hash.
	SHA256 string `json:"sha256"`
	// MediaType is the MIME type, when known.
	MediaType string `json:"media_type,omitempty"`
}

// NewFileRef builds a FileRef from raw content.
func NewFileRef(name, mediaType string, content []byte) FileRef {
	return FileRef{
		Name:      name,
		SHA256:    canonicaljson.HashBytes(content),
		MediaType: mediaType,
	}
}

// Get returns the value for key and whether it exists.
func (s Scenario) Get(key string) (any, bool) {
	v, ok := s[key]
	return v, ok
}

// Keys returns the scenario's field names in sorted order.
func (s Scenario) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Copy returns a shallow copy of the scenario.
func (s Scenario) Copy() Scenario {
	out := make(Scenario, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Hash returns the scenario's stable content hash.
func (s Scenario) Hash() string {
	h, err := canonicaljson.Fingerprint(map[string]any(s))
	if err != nil {
		// Non-serializable scenario values are a construction error; fall
		// back to a printf rendering so the hash is still deterministic.
		return canonicaljson.HashBytes([]byte(fmt.Sprintf("%#v", s)))
	}
	return h
}

// List is an ordered sequence of Scenarios.
type List []Scenario

// FromValues builds a single-key List, one Scenario per value.
func FromValues(key string, values ...any) List {
	out := make(List, 0, len(values))
	for _, v := range values {
		out = append(out, Scenario{key: v})
	}
	return out
}

// Filter returns the scenarios for which keep returns true, preserving order.
func (l List) Filter(keep func(Scenario) bool) List {
	out := make(List, 0, len(l))
	for _, s := range l {
		if keep(s) {
			out = append(out, s)
		}
	}
	return out
}

// GroupBy partitions the list by the string rendering of the given key.
// Scenarios missing the key group under the empty string. Group order follows
// first appearance.
func (l List) GroupBy(key string) ([]string, map[string]List) {
	groups := make(map[string]List)
	var order []string
	for _, s := range l {
		g := ""
		if v, ok := s[key]; ok {
			g = fmt.Sprint(v)
		}
		if _, seen := groups[g]; !seen {
			order = append(order, g)
		}
		groups[g] = append(groups[g], s)
	}
	return order, groups
}

// Pivot converts a long-format list into wide format: rows identified by
// idKey, with one field per distinct value of variableKey holding valueKey.
func (l List) Pivot(idKey, variableKey, valueKey string) List {
	var order []string
	rows := make(map[string]Scenario)
	for _, s := range l {
		id := fmt.Sprint(s[idKey])
		row, ok := rows[id]
		if !ok {
			row = Scenario{idKey: s[idKey]}
			rows[id] = row
			order = append(order, id)
		}
		variable := fmt.Sprint(s[variableKey])
		row[variable] = s[valueKey]
	}
	out := make(List, 0, len(order))
	for _, id := range order {
		out = append(out, rows[id])
	}
	return out
}

// Unpivot converts wide format into long format: for each scenario, each key
// not listed in idKeys becomes one output row {idKeys..., variable, value}.
func (l List) Unpivot(idKeys ...string) List {
	idSet := make(map[string]bool, len(idKeys))
	for _, k := range idKeys {
		idSet[k] = true
	}
	var out List
	for _, s := range l {
		for _, k := range s.Keys() {
			if idSet[k] {
				continue
			}
			row := Scenario{"variable": k, "value": s[k]}
			for _, id := range idKeys {
				row[id] = s[id]
			}
			out = append(out, row)
		}
	}
	return out
}
