//
// Expected Parrot is pleased to support the open source community by making edsl-go available.
//
// Copyright (C) 2026 Expected Parrot.  All rights reserved.
//
// edsl-go is licensed under the Apache License Version 2.0.
//
//

package survey

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// ParsePredicate compiles the compact text form of a rule predicate into a
// Predicate tree. Grammar:
//
//	expr    := term { "or" term }
//	term    := factor { "and" factor }
//	factor  := "not" factor | "(" expr ")" | leaf
//	leaf    := path op value | path ("in" | "not in") list
//	op      := "==" | "!=" | ">" | "<" | ">=" | "<=" | "contains"
//	value   := string | number | true | false | list
//
// Paths are dotted identifiers over prior answers ("q1.answer" or "q1").
func ParsePredicate(src string) (*Predicate, error) {
	toks, err := lexPredicate(src)
	if err != nil {
		return nil, err
	}
	p := &predParser{toks: toks}
	node, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.pos != len(p.toks) {
		return nil, fmt.Errorf("unexpected token %q", p.toks[p.pos].text)
	}
	return node, nil
}

type predToken struct {
	kind string // ident, string, number, op, punct, bool
	text string
}

func lexPredicate(src string) ([]predToken, error) {
	var toks []predToken
	i := 0
	for i < len(src) {
		c := src[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n':
			i++
		case c == '(' || c == ')' || c == '[' || c == ']' || c == ',':
			toks = append(toks, predToken{kind: "punct", text: string(c)})
			i++
		case c == '\'' || c == '"':
			quote := c
			j := i + 1
			for j < len(src) && src[j] != quote {
				j++
			}
			if j >= len(src) {
				return nil, fmt.Errorf("unterminated string at position %d", i)
			}
			toks = append(toks, predToken{kind: "string", text: src[i+1 : j]})
			i = j + 1
		case strings.ContainsRune("=!<>", rune(c)):
			j := i + 1
			if j < len(src) && src[j] == '=' {
				j++
			}
			op := src[i:j]
			switch op {
			case "==", "!=", ">", "<", ">=", "<=":
				toks = append(toks, predToken{kind: "op", text: op})
			case "=":
				// Single = is accepted as equality for caller convenience.
				toks = append(toks, predToken{kind: "op", text: "=="})
			default:
				return nil, fmt.Errorf("bad operator %q", op)
			}
			i = j
		case c >= '0' && c <= '9' || c == '-' || c == '.':
			j := i
			if src[j] == '-' {
				j++
			}
			for j < len(src) && (src[j] >= '0' && src[j] <= '9' || src[j] == '.') {
				j++
			}
			toks = append(toks, predToken{kind: "number", text: src[i:j]})
			i = j
		case unicode.IsLetter(rune(c)) || c == '_':
			j := i
			for j < len(src) {
				r := rune(src[j])
				if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '.' {
					j++
					continue
				}
				break
			}
			word := src[i:j]
			switch strings.ToLower(word) {
			case "and", "or", "not", "in", "contains":
				toks = append(toks, predToken{kind: "keyword", text: strings.ToLower(word)})
			case "true", "false":
				toks = append(toks, predToken{kind: "bool", text: strings.ToLower(word)})
			default:
				toks = append(toks, predToken{kind: "ident", text: word})
			}
			i = j
		default:
			return nil, fmt.Errorf("unexpected character %q at position %d", string(c), i)
		}
	}
	return toks, nil
}

type predParser struct {
	toks []predToken
	pos  int
}

func (p *predParser) peek() *predToken {
	if p.pos >= len(p.toks) {
		return nil
	}
	return &p.toks[p.pos]
}

func (p *predParser) acceptKeyword(word string) bool {
	t := p.peek()
	if t != nil && t.kind == "keyword" && t.text == word {
		p.pos++
		return true
	}
	return false
}

func (p *predParser) acceptPunct(text string) bool {
	t := p.peek()
	if t != nil && t.kind == "punct" && t.text == text {
		p.pos++
		return true
	}
	return false
}

func (p *predParser) parseOr() (*Predicate, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	children := []*Predicate{left}
	for p.acceptKeyword("or") {
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		children = append(children, right)
	}
	if len(children) == 1 {
		return left, nil
	}
	return &Predicate{Any: children}, nil
}

func (p *predParser) parseAnd() (*Predicate, error) {
	left, err := p.parseFactor()
	if err != nil {
		return nil, err
	}
	children := []*Predicate{left}
	for p.acceptKeyword("and") {
		right, err := p.parseFactor()
		if err != nil {
			return nil, err
		}
		children = append(children, right)
	}
	if len(children) == 1 {
		return left, nil
	}
	return &Predicate{All: children}, nil
}

func (p *predParser) parseFactor() (*Predicate, error) {
	if p.acceptKeyword("not") {
		inner, err := p.parseFactor()
		if err != nil {
			return nil, err
		}
		return &Predicate{Not: inner}, nil
	}
	if p.acceptPunct("(") {
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if !p.acceptPunct(")") {
			return nil, fmt.Errorf("missing closing parenthesis")
		}
		return inner, nil
	}
	return p.parseLeaf()
}

func (p *predParser) parseLeaf() (*Predicate, error) {
	t := p.peek()
	if t == nil || t.kind != "ident" {
		return nil, fmt.Errorf("expected a variable path")
	}
	variable := t.text
	p.pos++

	t = p.peek()
	if t == nil {
		return nil, fmt.Errorf("expected an operator after %q", variable)
	}
	switch {
	case t.kind == "op":
		op := t.text
		p.pos++
		value, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		return &Predicate{Variable: variable, Operator: op, Value: value}, nil
	case t.kind == "keyword" && t.text == "contains":
		p.pos++
		value, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		return &Predicate{Variable: variable, Operator: OpContains, Value: value}, nil
	case t.kind == "keyword" && t.text == "in":
		p.pos++
		value, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		return &Predicate{Variable: variable, Operator: OpIn, Value: value}, nil
	case t.kind == "keyword" && t.text == "not":
		p.pos++
		if !p.acceptKeyword("in") {
			return nil, fmt.Errorf("expected \"in\" after \"not\"")
		}
		value, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		return &Predicate{Variable: variable, Operator: OpNotIn, Value: value}, nil
	default:
		return nil, fmt.Errorf("expected an operator after %q, got %q", variable, t.text)
	}
}

func (p *predParser) parseValue() (any, error) {
	t := p.peek()
	if t == nil {
		return nil, fmt.Errorf("expected a value")
	}
	switch t.kind {
	case "string":
		p.pos++
		return t.text, nil
	case "number":
		p.pos++
		f, err := strconv.ParseFloat(t.text, 64)
		if err != nil {
			return nil, fmt.Errorf("bad number %q", t.text)
		}
		return f, nil
	case "bool":
		p.pos++
		return t.text == "true", nil
	case "punct":
		if t.text != "[" {
			return nil, fmt.Errorf("unexpected %q", t.text)
		}
		p.pos++
		var list []any
		for {
			if p.acceptPunct("]") {
				return list, nil
			}
			if len(list) > 0 && !p.acceptPunct(",") {
				return nil, fmt.Errorf("expected \",\" or \"]\" in list")
			}
			elem, err := p.parseValue()
			if err != nil {
				return nil, err
			}
			list = append(list, elem)
		}
	case "ident":
		// Bare words are treated as strings for caller convenience.
		p.pos++
		return t.text, nil
	default:
		return nil, fmt.Errorf("unexpected %q", t.text)
	}
}
