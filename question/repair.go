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
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// DecodeResponse converts a raw textual completion into an Answer candidate.
// Preferred form is a JSON object {"answer": ..., "comment": ...}; failing
// that, the whole text is treated as the answer payload. The returned Answer
// is unvalidated.
func DecodeResponse(q *Question, rawText string) *Answer {
	ans := &Answer{GeneratedTokens: rawText}
	if obj, ok := extractJSONObject(rawText); ok {
		if v, present := obj["answer"]; present {
			ans.Answer = v
			if c, ok := obj["comment"].(string); ok {
				ans.Comment = c
			}
			return ans
		}
	}
	if v, ok := extractJSONValue(rawText); ok {
		ans.Answer = v
		return ans
	}
	ans.Answer = strings.TrimSpace(rawText)
	return ans
}

// extractJSONObject finds the first decodable JSON object in text, tolerating
// surrounding prose and markdown fences.
func extractJSONObject(text string) (map[string]any, bool) {
	v, ok := extractJSONValue(text)
	if !ok {
		return nil, false
	}
	m, ok := v.(map[string]any)
	return m, ok
}

// extractJSONValue scans text for the first balanced JSON object or array and
// decodes it. Plain JSON scalars are decoded only when the whole trimmed text
// is the scalar.
func extractJSONValue(text string) (any, bool) {
	trimmed := strings.TrimSpace(stripFences(text))
	var whole any
	if err := json.Unmarshal([]byte(trimmed), &whole); err == nil {
		return whole, true
	}
	for i := 0; i < len(trimmed); i++ {
		open := trimmed[i]
		if open != '{' && open != '[' {
			continue
		}
		if end, ok := matchBracket(trimmed, i); ok {
			var v any
			if err := json.Unmarshal([]byte(trimmed[i:end+1]), &v); err == nil {
				return v, true
			}
		}
	}
	return nil, false
}

func stripFences(text string) string {
	s := strings.TrimSpace(text)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return s
}

// matchBracket returns the index of the bracket closing the one at start,
// honoring JSON string literals and escapes.
func matchBracket(s string, start int) (int, bool) {
	open := s[start]
	var close byte = '}'
	if open == '[' {
		close = ']'
	}
	depth := 0
	inString := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch c {
			case '\\':
				i++
			case '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}

// --- repair strategies ---

// repairJSONSubstring re-decodes a string answer that itself contains JSON,
// e.g. the model nested its reply in a string field.
func repairJSONSubstring(q *Question, raw any) (any, bool) {
	s, ok := raw.(string)
	if !ok {
		return nil, false
	}
	v, ok := extractJSONValue(s)
	if !ok {
		return nil, false
	}
	// Unwrap one level of {"answer": ...} nesting.
	if m, ok := v.(map[string]any); ok {
		if inner, present := m["answer"]; present {
			return inner, true
		}
	}
	return v, true
}

// repairStringify renders any non-string answer as a string.
func repairStringify(q *Question, raw any) (any, bool) {
	if _, ok := raw.(string); ok {
		return nil, false
	}
	if raw == nil {
		return nil, false
	}
	return fmt.Sprint(raw), true
}

// repairMatchOption resolves a reply against option labels: exact match,
// then case-insensitive, then unique substring.
func repairMatchOption(q *Question, raw any) (any, bool) {
	s, ok := raw.(string)
	if !ok {
		if f, isNum := toFloat(raw); isNum {
			s = strconv.FormatFloat(f, 'g', -1, 64)
		} else {
			return nil, false
		}
	}
	if resolved, ok := matchOption(q.Options, s); ok {
		return resolved, true
	}
	return nil, false
}

var numberRe = regexp.MustCompile(`-?\d+(?:\.\d+)?`)

// repairFirstNumber extracts the first integer or float from a textual reply.
func repairFirstNumber(q *Question, raw any) (any, bool) {
	s, ok := raw.(string)
	if !ok {
		return nil, false
	}
	// Strip thousands separators before scanning.
	s = strings.ReplaceAll(s, ",", "")
	m := numberRe.FindString(s)
	if m == "" {
		return nil, false
	}
	f, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return nil, false
	}
	return f, true
}

// repairSplitDelimited splits a comma/newline/semicolon separated string into
// a list, trimming whitespace, quotes and bullet markers per element.
func repairSplitDelimited(q *Question, raw any) (any, bool) {
	s, ok := raw.(string)
	if !ok {
		return nil, false
	}
	s = strings.Trim(strings.TrimSpace(s), "[]")
	if s == "" {
		return nil, false
	}
	parts := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == '\n' || r == ';'
	})
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		p = strings.TrimLeft(p, "-*• \t")
		p = strings.Trim(p, `"'`)
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return nil, false
	}
	return out, true
}

// repairMatchOptionList resolves each element of a list against the options.
func repairMatchOptionList(q *Question, raw any) (any, bool) {
	items, ok := toStringSlice(raw)
	if !ok {
		return nil, false
	}
	out := make([]string, 0, len(items))
	changed := false
	for _, item := range items {
		if resolved, ok := matchOption(q.Options, item); ok {
			if resolved != item {
				changed = true
			}
			out = append(out, resolved)
		} else {
			out = append(out, item)
		}
	}
	if !changed {
		return nil, false
	}
	return out, true
}

// repairStringToStructured parses a string-encoded object or array.
func repairStringToStructured(q *Question, raw any) (any, bool) {
	s, ok := raw.(string)
	if !ok {
		return nil, false
	}
	v, ok := extractJSONValue(s)
	if !ok {
		return nil, false
	}
	switch v.(type) {
	case map[string]any, []any:
		return v, true
	}
	return nil, false
}

// repairMatrixCells resolves each matrix cell against the column labels.
func repairMatrixCells(q *Question, raw any) (any, bool) {
	m, ok := toStringMap(raw)
	if !ok {
		return nil, false
	}
	out := make(map[string]any, len(m))
	changed := false
	for row, v := range m {
		cell, ok := v.(string)
		if !ok {
			out[row] = v
			continue
		}
		if resolved, ok := matchOption(q.Columns, cell); ok && resolved != cell {
			out[row] = resolved
			changed = true
		} else {
			out[row] = cell
		}
	}
	if !changed {
		return nil, false
	}
	return out, true
}

// Sentiment keywords for scale-label scoring, checked lowest-to-highest
// specificity after exact, case-insensitive and substring matching fail.
var (
	positiveWords = []string{"love", "like", "great", "good", "agree", "excellent", "best"}
	negativeWords = []string{"hate", "dislike", "terrible", "bad", "disagree", "awful", "worst"}
	neutralWords  = []string{"neutral", "indifferent", "neither", "unsure", "middle"}
)

// repairScaleLabel maps a textual reply to a scale value via the declared
// labels: exact match, then case-insensitive, then substring, then sentiment
// keyword scoring against the scale extremes.
func repairScaleLabel(q *Question, raw any) (any, bool) {
	s, ok := raw.(string)
	if !ok {
		return nil, false
	}
	reply := strings.TrimSpace(s)
	lower := strings.ToLower(reply)

	// Scan labels in scale order so ties resolve to the lowest value.
	values := make([]int, 0, len(q.ScaleLabels))
	for value := range q.ScaleLabels {
		values = append(values, value)
	}
	sort.Ints(values)

	for _, value := range values {
		if q.ScaleLabels[value] == reply {
			return float64(value), true
		}
	}
	for _, value := range values {
		if strings.EqualFold(q.ScaleLabels[value], reply) {
			return float64(value), true
		}
	}
	bestScore := 0
	bestValue := 0
	found := false
	for _, value := range values {
		label := strings.ToLower(q.ScaleLabels[value])
		score := commonWordScore(lower, label)
		if strings.Contains(lower, label) || strings.Contains(label, lower) {
			score += 10
		}
		if score > bestScore {
			bestScore, bestValue, found = score, value, true
		}
	}
	if found {
		return float64(bestValue), true
	}
	if q.ScaleLo != nil && q.ScaleHi != nil {
		if containsAny(lower, positiveWords) {
			return float64(*q.ScaleHi), true
		}
		if containsAny(lower, negativeWords) {
			return float64(*q.ScaleLo), true
		}
		if containsAny(lower, neutralWords) {
			return float64((*q.ScaleLo + *q.ScaleHi) / 2), true
		}
	}
	return nil, false
}

func commonWordScore(a, b string) int {
	aw := strings.Fields(a)
	bw := make(map[string]bool)
	for _, w := range strings.Fields(b) {
		bw[w] = true
	}
	score := 0
	for _, w := range aw {
		if bw[w] {
			score++
		}
	}
	return score
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
