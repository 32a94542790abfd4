package store

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetadataMarshalPreservesOrder(t *testing.T) {
	m := Metadata{}
	m.Set("source_id", String("guide.md"))
	m.Set("title", String("Brewing Guide"))
	m.Set("section", String("Water"))
	m.Set("estimated_tokens", Int(310))

	b, err := json.Marshal(m)
	require.NoError(t, err)
	assert.Equal(t,
		`{"source_id":"guide.md","title":"Brewing Guide","section":"Water","estimated_tokens":310}`,
		string(b))
}

func TestMetadataRoundTrip(t *testing.T) {
	m := Metadata{}
	m.Set("title", String("Menu"))
	m.Set("pinned", Bool(true))
	m.Set("weight", Number(0.5))

	b, err := json.Marshal(m)
	require.NoError(t, err)

	var out Metadata
	require.NoError(t, json.Unmarshal(b, &out))
	require.Len(t, out, 3)

	title, _ := out.Get("title")
	assert.Equal(t, KindString, title.Kind())
	assert.Equal(t, "Menu", title.AsString())

	pinned, _ := out.Get("pinned")
	assert.True(t, pinned.AsBool())

	weight, _ := out.Get("weight")
	assert.Equal(t, 0.5, weight.AsNumber())
}

func TestMetadataSetReplaces(t *testing.T) {
	m := Metadata{}
	m.Set("k", String("a"))
	m.Set("k", String("b"))

	require.Len(t, m, 1)
	v, ok := m.Get("k")
	require.True(t, ok)
	assert.Equal(t, "b", v.AsString())
}

func TestMetadataUnmarshalSkipsNull(t *testing.T) {
	var m Metadata
	require.NoError(t, json.Unmarshal([]byte(`{"section":null,"title":"T"}`), &m))
	require.Len(t, m, 1)
	_, ok := m.Get("section")
	assert.False(t, ok)
}

func TestMetadataUnmarshalRejectsNested(t *testing.T) {
	var m Metadata
	err := json.Unmarshal([]byte(`{"nested":{"a":1}}`), &m)
	assert.Error(t, err)
}

func TestValueAsString(t *testing.T) {
	assert.Equal(t, "310", Int(310).AsString())
	assert.Equal(t, "0.5", Number(0.5).AsString())
	assert.Equal(t, "true", Bool(true).AsString())
	assert.Equal(t, "x", String("x").AsString())
}
