package checks

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompareOperators(t *testing.T) {
	assert.True(t, compare(5, "gt", 3))
	assert.False(t, compare(3, "gt", 5))
	assert.True(t, compare(3, "lte", 3))
	assert.True(t, compare("3", "eq", 3))
	assert.True(t, compare("foobar", "contains", "oob"))
	assert.False(t, compare("foo", "bogus_operator", "bar"))
}

func TestToFloatAcrossTypes(t *testing.T) {
	cases := []struct {
		in   any
		want float64
		ok   bool
	}{
		{float64(1.5), 1.5, true},
		{float32(2), 2, true},
		{42, 42, true},
		{int64(7), 7, true},
		{"3.25", 3.25, true},
		{"not-a-number", 0, false},
		{true, 0, false},
	}
	for _, tt := range cases {
		got, ok := toFloat(tt.in)
		assert.Equal(t, tt.ok, ok, "input %v", tt.in)
		if ok {
			assert.Equal(t, tt.want, got, "input %v", tt.in)
		}
	}
}

func TestParamsMatchEmptyConditionsAlwaysMatch(t *testing.T) {
	assert.True(t, paramsMatch(map[string]any{"a": 1}, map[string]any{}))
}

func TestParamsMatchDirectEquality(t *testing.T) {
	actual := map[string]any{"status": "ok", "count": 3}
	assert.True(t, paramsMatch(actual, map[string]any{"status": "ok"}))
	assert.False(t, paramsMatch(actual, map[string]any{"status": "failed"}))
	assert.False(t, paramsMatch(actual, map[string]any{"missing_key": "x"}))
}

func TestParamsMatchOperatorCondition(t *testing.T) {
	actual := map[string]any{"count": 5}
	assert.True(t, paramsMatch(actual, map[string]any{"count": map[string]any{"gte": 3}}))
	assert.False(t, paramsMatch(actual, map[string]any{"count": map[string]any{"lt": 3}}))
}

func TestEqualScalarNumericCoercion(t *testing.T) {
	assert.True(t, equalScalar(3, "3"))
	assert.True(t, equalScalar(float64(2), 2))
	assert.False(t, equalScalar("a", "b"))
}
