package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestValuesKeepInsertionOrder(t *testing.T) {
	v := NewValues()
	v.Set("zeta", 1)
	v.Set("alpha", 2)
	v.Set("mid", 3)
	v.Set("zeta", 4)

	assert.Equal(t, []string{"zeta", "alpha", "mid"}, v.Keys())
	got, ok := v.Get("zeta")
	assert.True(t, ok)
	assert.Equal(t, 4, got)

	v.Delete("alpha")
	assert.Equal(t, []string{"zeta", "mid"}, v.Keys())
	assert.Equal(t, 2, v.Len())
}

func TestValuesNilReceiver(t *testing.T) {
	var v *Values
	assert.Equal(t, 0, v.Len())
	assert.Nil(t, v.Keys())
	_, ok := v.Get("x")
	assert.False(t, ok)
	v.Delete("x")
}

func TestValuesFromMap(t *testing.T) {
	v := ValuesFromMap(map[string]any{"c": 1, "b": 2, "a": 3, "block_type": "bugs"}, "block_type")
	assert.Equal(t, []string{"block_type", "a", "b", "c"}, v.Keys())
}

func TestValuesJSONOrder(t *testing.T) {
	input := `{"name":"exp","num_blocks":2,"blocks":[{"block_type":"media","media_url":"a.mp4"},{"num_trials":3}]}`

	var v Values
	require.NoError(t, json.Unmarshal([]byte(input), &v))
	assert.Equal(t, []string{"name", "num_blocks", "blocks"}, v.Keys())

	num, _ := v.Get("num_blocks")
	assert.Equal(t, float64(2), num)

	blocks, _ := v.Get("blocks")
	list, ok := blocks.([]any)
	require.True(t, ok)
	require.Len(t, list, 2)
	first, ok := list[0].(*Values)
	require.True(t, ok)
	assert.Equal(t, []string{"block_type", "media_url"}, first.Keys())

	out, err := json.Marshal(&v)
	require.NoError(t, err)
	assert.JSONEq(t, input, string(out))
	assert.Equal(t, input, string(out))
}

func TestValuesJSONRejectsNonObject(t *testing.T) {
	var v Values
	assert.Error(t, json.Unmarshal([]byte(`[1,2]`), &v))
}

func TestValuesYAMLOrder(t *testing.T) {
	input := `
name: exp
cameras: top,side
num_blocks: 1
blocks:
  - block_type: bugs
    bug_types: [cockroach, worm]
    bug_speed: 5
    is_default_bug_size: true
`
	var v Values
	require.NoError(t, yaml.Unmarshal([]byte(input), &v))
	assert.Equal(t, []string{"name", "cameras", "num_blocks", "blocks"}, v.Keys())

	num, _ := v.Get("num_blocks")
	assert.Equal(t, float64(1), num)

	blocks, _ := v.Get("blocks")
	block := blocks.([]any)[0].(*Values)
	assert.Equal(t, []string{"block_type", "bug_types", "bug_speed", "is_default_bug_size"}, block.Keys())
	bugTypes, _ := block.Get("bug_types")
	assert.Equal(t, []any{"cockroach", "worm"}, bugTypes)

	out, err := yaml.Marshal(&v)
	require.NoError(t, err)

	var again Values
	require.NoError(t, yaml.Unmarshal(out, &again))
	assert.Equal(t, v.Keys(), again.Keys())
	assert.Equal(t, v.String(), again.String())
}

func TestValuesOfPanicsOnOddArgs(t *testing.T) {
	assert.Panics(t, func() { ValuesOf("a") })
	assert.Panics(t, func() { ValuesOf(1, 2) })
}
