//
// Expected Parrot is pleased to support the open source community by making edsl-go available.
//
// Copyright (C) 2026 Expected Parrot.  All rights reserved.
//
// edsl-go is licensed under the Apache License Version 2.0.
//
//

package question

import (
	"math"
	"sort"
	"strings"
)

// BM25 parameters. Standard Okapi defaults.
const (
	bm25K1 = 1.5
	bm25B  = 0.75
)

// NarrowOptions ranks a large option set against a query with BM25 and
// returns the top k options in rank order. Used by dropdown questions to keep
// prompts economical. When k >= len(options) or the query is empty, the
// original options are returned unchanged.
func NarrowOptions(options []string, query string, k int) []string {
	if k <= 0 || k >= len(options) || strings.TrimSpace(query) == "" {
		return options
	}
	docs := make([][]string, len(options))
	totalLen := 0
	df := make(map[string]int)
	for i, o := range options {
		docs[i] = tokenize(o)
		totalLen += len(docs[i])
		seen := make(map[string]bool)
		for _, term := range docs[i] {
			if !seen[term] {
				df[term]++
				seen[term] = true
			}
		}
	}
	avgLen := float64(totalLen) / float64(len(options))
	n := float64(len(options))

	queryTerms := tokenize(query)
	type scored struct {
		index int
		score float64
	}
	ranked := make([]scored, len(options))
	for i, doc := range docs {
		tf := make(map[string]int, len(doc))
		for _, term := range doc {
			tf[term]++
		}
		score := 0.0
		for _, term := range queryTerms {
			f := float64(tf[term])
			if f == 0 {
				continue
			}
			idf := math.Log(1 + (n-float64(df[term])+0.5)/(float64(df[term])+0.5))
			denom := f + bm25K1*(1-bm25B+bm25B*float64(len(doc))/avgLen)
			score += idf * f * (bm25K1 + 1) / denom
		}
		ranked[i] = scored{index: i, score: score}
	}
	sort.SliceStable(ranked, func(a, b int) bool { return ranked[a].score > ranked[b].score })

	out := make([]string, 0, k)
	for _, r := range ranked[:k] {
		out = append(out, options[r.index])
	}
	return out
}

func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !('a' <= r && r <= 'z' || '0' <= r && r <= '9')
	})
}
