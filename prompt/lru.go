//
// Expected Parrot is pleased to support the open source community by making edsl-go available.
//
// Copyright (C) 2026 Expected Parrot.  All rights reserved.
//
// edsl-go is licensed under the Apache License Version 2.0.
//
//

package prompt

import (
	"container/list"
	"sync"
)

// DefaultTemplateCacheSize bounds the compiled-template cache.
const DefaultTemplateCacheSize = 2048

// templateLRU is a bounded LRU of compiled templates keyed by source text.
type templateLRU struct {
	mu    sync.Mutex
	limit int
	order *list.List
	items map[string]*list.Element
}

type lruEntry struct {
	key  string
	tmpl *Template
}

func newTemplateLRU(limit int) *templateLRU {
	if limit <= 0 {
		limit = DefaultTemplateCacheSize
	}
	return &templateLRU{
		limit: limit,
		order: list.New(),
		items: make(map[string]*list.Element),
	}
}

func (c *templateLRU) get(key string) (*Template, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	elem, ok := c.items[key]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(elem)
	return elem.Value.(*lruEntry).tmpl, true
}

func (c *templateLRU) put(key string, tmpl *Template) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.items[key]; ok {
		c.order.MoveToFront(elem)
		elem.Value.(*lruEntry).tmpl = tmpl
		return
	}
	elem := c.order.PushFront(&lruEntry{key: key, tmpl: tmpl})
	c.items[key] = elem
	if c.order.Len() > c.limit {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.items, oldest.Value.(*lruEntry).key)
	}
}

func (c *templateLRU) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

var compiledTemplates = newTemplateLRU(DefaultTemplateCacheSize)

// CompileCached compiles source, consulting the process-wide LRU first.
func CompileCached(source string) (*Template, error) {
	if tmpl, ok := compiledTemplates.get(source); ok {
		return tmpl, nil
	}
	tmpl, err := Compile(source)
	if err != nil {
		return nil, err
	}
	compiledTemplates.put(source, tmpl)
	return tmpl, nil
}
