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
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// Compute questions evaluate a safe arithmetic expression locally; no model
// call is made. The grammar covers numbers, dotted identifiers resolved
// against prior answers and scenario fields, + - * / %, unary minus and
// parentheses. No function calls, no caller code execution.

type computeNode interface {
	eval(env map[string]any) (float64, error)
}

type numNode float64

func (n numNode) eval(map[string]any) (float64, error) { return float64(n), nil }

type refNode string

func (r refNode) eval(env map[string]any) (float64, error) {
	v, ok := lookupPath(env, string(r))
	if !ok {
		return 0, fmt.Errorf("unknown reference %q", string(r))
	}
	f, ok := toFloat(v)
	if !ok {
		if s, isStr := v.(string); isStr {
			if parsed, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
				return parsed, nil
			}
		}
		return 0, fmt.Errorf("reference %q is not numeric (%T)", string(r), v)
	}
	return f, nil
}

type binNode struct {
	op          byte
	left, right computeNode
}

func (b *binNode) eval(env map[string]any) (float64, error) {
	l, err := b.left.eval(env)
	if err != nil {
		return 0, err
	}
	r, err := b.right.eval(env)
	if err != nil {
		return 0, err
	}
	switch b.op {
	case '+':
		return l + r, nil
	case '-':
		return l - r, nil
	case '*':
		return l * r, nil
	case '/':
		if r == 0 {
			return 0, fmt.Errorf("division by zero")
		}
		return l / r, nil
	case '%':
		if r == 0 {
			return 0, fmt.Errorf("modulo by zero")
		}
		return float64(int64(l) % int64(r)), nil
	}
	return 0, fmt.Errorf("unknown operator %q", string(b.op))
}

type negNode struct{ inner computeNode }

func (n *negNode) eval(env map[string]any) (float64, error) {
	v, err := n.inner.eval(env)
	return -v, err
}

// lookupPath resolves a dotted path like "q1.answer" in a nested map.
func lookupPath(env map[string]any, path string) (any, bool) {
	parts := strings.Split(path, ".")
	var current any = env
	for _, part := range parts {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

type exprParser struct {
	src string
	pos int
}

func parseComputeExpr(src string) (computeNode, error) {
	p := &exprParser{src: src}
	node, err := p.parseSum()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos != len(p.src) {
		return nil, fmt.Errorf("unexpected %q at position %d", p.src[p.pos:], p.pos)
	}
	return node, nil
}

func (p *exprParser) skipSpace() {
	for p.pos < len(p.src) && p.src[p.pos] == ' ' {
		p.pos++
	}
}

func (p *exprParser) peek() byte {
	p.skipSpace()
	if p.pos >= len(p.src) {
		return 0
	}
	return p.src[p.pos]
}

func (p *exprParser) parseSum() (computeNode, error) {
	left, err := p.parseProduct()
	if err != nil {
		return nil, err
	}
	for {
		op := p.peek()
		if op != '+' && op != '-' {
			return left, nil
		}
		p.pos++
		right, err := p.parseProduct()
		if err != nil {
			return nil, err
		}
		left = &binNode{op: op, left: left, right: right}
	}
}

func (p *exprParser) parseProduct() (computeNode, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		op := p.peek()
		if op != '*' && op != '/' && op != '%' {
			return left, nil
		}
		p.pos++
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &binNode{op: op, left: left, right: right}
	}
}

func (p *exprParser) parseUnary() (computeNode, error) {
	if p.peek() == '-' {
		p.pos++
		inner, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &negNode{inner: inner}, nil
	}
	return p.parseAtom()
}

func (p *exprParser) parseAtom() (computeNode, error) {
	c := p.peek()
	switch {
	case c == '(':
		p.pos++
		node, err := p.parseSum()
		if err != nil {
			return nil, err
		}
		if p.peek() != ')' {
			return nil, fmt.Errorf("missing closing parenthesis")
		}
		p.pos++
		return node, nil
	case c >= '0' && c <= '9' || c == '.':
		start := p.pos
		for p.pos < len(p.src) && (p.src[p.pos] >= '0' && p.src[p.pos] <= '9' || p.src[p.pos] == '.') {
			p.pos++
		}
		f, err := strconv.ParseFloat(p.src[start:p.pos], 64)
		if err != nil {
			return nil, fmt.Errorf("bad number %q", p.src[start:p.pos])
		}
		return numNode(f), nil
	case unicode.IsLetter(rune(c)) || c == '_':
		start := p.pos
		for p.pos < len(p.src) {
			r := rune(p.src[p.pos])
			if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '.' {
				p.pos++
				continue
			}
			break
		}
		return refNode(p.src[start:p.pos]), nil
	case c == 0:
		return nil, fmt.Errorf("unexpected end of expression")
	default:
		return nil, fmt.Errorf("unexpected character %q", string(c))
	}
}

// EvaluateCompute evaluates q's expression against prior answers and scenario
// fields. env maps names to values; dotted paths descend into nested maps.
func EvaluateCompute(q *Question, env map[string]any) (float64, error) {
	node, err := parseComputeExpr(q.Expression)
	if err != nil {
		return 0, fmt.Errorf("parse %q: %w", q.Expression, err)
	}
	v, err := node.eval(env)
	if err != nil {
		return 0, fmt.Errorf("evaluate %q: %w", q.Expression, err)
	}
	return v, nil
}
