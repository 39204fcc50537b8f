//
// Expected Parrot is pleased to support the open source community by making edsl-go available.
//
// Copyright (C) 2026 Expected Parrot.  All rights reserved.
//
// edsl-go is licensed under the Apache License Version 2.0.
//
//

package canonicaljson

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalSortsKeys(t *testing.T) {
	got, err := Marshal(map[string]any{"b": 1, "a": 2, "c": []any{"x", map[string]any{"z": 1, "y": 2}}})
	require.NoError(t, err)
	assert.Equal(t, `{"a":2,"b":1,"c":["x",{"y":2,"z":1}]}`, string(got))
}

func TestMarshalStructUsesJSONTags(t *testing.T) {
	type inner struct {
		B string `json:"beta"`
		A string `json:"alpha"`
	}
	got, err := Marshal(inner{B: "2", A: "1"})
	require.NoError(t, err)
	assert.Equal(t, `{"alpha":"1","beta":"2"}`, string(got))
}

func TestMarshalNumberNormalization(t *testing.T) {
	got, err := Marshal(map[string]any{"i": 42, "f": 1.5})
	require.NoError(t, err)
	assert.Equal(t, `{"f":1.5,"i":42}`, string(got))
}

func TestFingerprintStable(t *testing.T) {
	a, err := Fingerprint(map[string]any{"model": "gpt-4o", "temperature": 0.5})
	require.NoError(t, err)
	b, err := Fingerprint(map[string]any{"temperature": 0.5, "model": "gpt-4o"})
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)

	c, err := Fingerprint(map[string]any{"temperature": 0.7, "model": "gpt-4o"})
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
}

func TestHashBytes(t *testing.T) {
	assert.Equal(t, HashBytes([]byte("blob")), HashBytes([]byte("blob")))
	assert.NotEqual(t, HashBytes([]byte("a")), HashBytes([]byte("b")))
}
