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
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// pydantic_schema questions validate against a caller-supplied JSON schema.
// The schema is data: compiled once, cached by its raw text, never executed
// as code.

var (
	schemaCacheMu sync.Mutex
	schemaCache   = make(map[string]*jsonschema.Schema)
)

func compileSchema(raw json.RawMessage) (*jsonschema.Schema, error) {
	key := string(raw)
	schemaCacheMu.Lock()
	defer schemaCacheMu.Unlock()
	if sch, ok := schemaCache[key]; ok {
		return sch, nil
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("answer_schema is not valid JSON: %w", err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource("answer_schema.json", doc); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	sch, err := c.Compile("answer_schema.json")
	if err != nil {
		return nil, fmt.Errorf("compile answer_schema: %w", err)
	}
	schemaCache[key] = sch
	return sch, nil
}

func validateSchema(q *Question, answer any) *ValidationError {
	sch, err := compileSchema(q.Schema)
	if err != nil {
		return invalidf(ErrKindSchema, answer, "bad answer_schema: %v", err)
	}
	// The validator expects decoded JSON values; round-trip non-JSON-native
	// inputs so Go ints and structs validate the same as decoded payloads.
	doc, err := roundTripJSON(answer)
	if err != nil {
		return invalidf(ErrKindSchema, answer, "answer is not serializable: %v", err)
	}
	if err := sch.Validate(doc); err != nil {
		return invalidf(ErrKindSchema, answer, "schema validation failed: %v", err)
	}
	return nil
}

func roundTripJSON(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}
