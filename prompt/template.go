//
// Expected Parrot is pleased to support the open source community by making edsl-go available.
//
// Copyright (C) 2026 Expected Parrot.  All rights reserved.
//
// edsl-go is licensed under the Apache License Version 2.0.
//
//

// Package prompt renders question templates into (system, user) prompt pairs.
// The template language is a minimal safe subset: {{ a.b.c }} and {{ a[i] }}
// lookups only; no macros, no inheritance, no code execution.
package prompt

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// RenderError reports an unresolved placeholder or a syntactically bad
// template. Surfaced per turn; the interview continues with the turn
// recorded as failed.
type RenderError struct {
	Template string
	Message  string
}

// Error implements error.
func (e *RenderError) Error() string {
	return fmt.Sprintf("template render: %s", e.Message)
}

func renderErrorf(tmpl, format string, args ...any) *RenderError {
	return &RenderError{Template: tmpl, Message: fmt.Sprintf(format, args...)}
}

// Template is a compiled template: literal chunks interleaved with lookup
// paths. Compile once, render many times.
type Template struct {
	source   string
	segments []segment
}

type segment struct {
	literal string
	path    []pathStep // nil for literal segments
}

type pathStep struct {
	key   string
	index int
	isIdx bool
}

// Compile parses a template. Placeholders use balanced double braces:
// {{ a.b }}, {{ a[0] }}, {{ a.b[2].c }}.
func Compile(source string) (*Template, error) {
	t := &Template{source: source}
	rest := source
	for {
		open := strings.Index(rest, "{{")
		if open < 0 {
			if rest != "" {
				t.segments = append(t.segments, segment{literal: rest})
			}
			return t, nil
		}
		if open > 0 {
			t.segments = append(t.segments, segment{literal: rest[:open]})
		}
		rest = rest[open+2:]
		close := strings.Index(rest, "}}")
		if close < 0 {
			return nil, renderErrorf(source, "unbalanced {{ in template")
		}
		expr := strings.TrimSpace(rest[:close])
		steps, err := parsePath(expr)
		if err != nil {
			return nil, renderErrorf(source, "bad placeholder {{ %s }}: %v", expr, err)
		}
		t.segments = append(t.segments, segment{path: steps})
		rest = rest[close+2:]
	}
}

func parsePath(expr string) ([]pathStep, error) {
	if expr == "" {
		return nil, fmt.Errorf("empty placeholder")
	}
	var steps []pathStep
	i := 0
	for i < len(expr) {
		c := rune(expr[i])
		switch {
		case unicode.IsLetter(c) || c == '_':
			j := i
			for j < len(expr) {
				r := rune(expr[j])
				if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
					j++
					continue
				}
				break
			}
			steps = append(steps, pathStep{key: expr[i:j]})
			i = j
		case c == '.':
			if i+1 >= len(expr) {
				return nil, fmt.Errorf("trailing dot")
			}
			i++
		case c == '[':
			end := strings.IndexByte(expr[i:], ']')
			if end < 0 {
				return nil, fmt.Errorf("unclosed index")
			}
			idx, err := strconv.Atoi(strings.TrimSpace(expr[i+1 : i+end]))
			if err != nil {
				return nil, fmt.Errorf("bad index %q", expr[i+1:i+end])
			}
			steps = append(steps, pathStep{index: idx, isIdx: true})
			i += end + 1
		default:
			return nil, fmt.Errorf("unexpected character %q", string(c))
		}
	}
	if len(steps) == 0 {
		return nil, fmt.Errorf("empty placeholder")
	}
	return steps, nil
}

// Render substitutes every placeholder from env. A missing reference is a
// RenderError; there are no silent empty substitutions.
func (t *Template) Render(env map[string]any) (string, error) {
	var b strings.Builder
	for _, seg := range t.segments {
		if seg.path == nil {
			b.WriteString(seg.literal)
			continue
		}
		v, err := resolve(env, seg.path)
		if err != nil {
			return "", renderErrorf(t.source, "%v", err)
		}
		b.WriteString(format(v))
	}
	return b.String(), nil
}

// Source returns the template's source text.
func (t *Template) Source() string {
	return t.source
}

func resolve(env map[string]any, steps []pathStep) (any, error) {
	var current any = env
	for _, step := range steps {
		if step.isIdx {
			list, ok := asIndexable(current)
			if !ok {
				return nil, fmt.Errorf("reference %s: index into non-list", describe(steps))
			}
			if step.index < 0 || step.index >= len(list) {
				return nil, fmt.Errorf("reference %s: index %d out of range", describe(steps), step.index)
			}
			current = list[step.index]
			continue
		}
		m, ok := current.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("unresolved reference %s", describe(steps))
		}
		current, ok = m[step.key]
		if !ok {
			return nil, fmt.Errorf("unresolved reference %s", describe(steps))
		}
	}
	return current, nil
}

func asIndexable(v any) ([]any, bool) {
	switch x := v.(type) {
	case []any:
		return x, true
	case []string:
		out := make([]any, len(x))
		for i, s := range x {
			out[i] = s
		}
		return out, true
	default:
		return nil, false
	}
}

func describe(steps []pathStep) string {
	var b strings.Builder
	for i, s := range steps {
		if s.isIdx {
			fmt.Fprintf(&b, "[%d]", s.index)
			continue
		}
		if i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(s.key)
	}
	return b.String()
}

// format renders a substituted value as prompt text.
func format(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case nil:
		return ""
	case []string:
		return strings.Join(x, ", ")
	case []any:
		parts := make([]string, len(x))
		for i, e := range x {
			parts[i] = format(e)
		}
		return strings.Join(parts, ", ")
	default:
		return fmt.Sprint(x)
	}
}
