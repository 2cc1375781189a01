package stepstate

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPruneToJSON_Idempotent(t *testing.T) {
	input := map[string]any{
		"name":  "spring promo",
		"count": float64(3),
		"flags": []any{true, false},
		"nested": map[string]any{
			"when": time.Date(2025, 4, 1, 10, 0, 0, 0, time.UTC),
		},
	}

	once, err := PruneToJSON(input)
	require.NoError(t, err)
	twice, err := PruneToJSON(once)
	require.NoError(t, err)

	assert.Equal(t, once, twice)
}

func TestPruneToJSON_TimeBecomesRFC3339(t *testing.T) {
	out, err := PruneToJSON(map[string]any{
		"launchedAt": time.Date(2025, 4, 1, 10, 30, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Equal(t, "2025-04-01T10:30:00Z", out.(map[string]any)["launchedAt"])
}

func TestPruneToJSON_DropsFunctionsSilently(t *testing.T) {
	out, err := PruneToJSON(map[string]any{
		"keep": "value",
		"fn":   func() {},
		"ch":   make(chan int),
	})
	require.NoError(t, err)

	m := out.(map[string]any)
	assert.Equal(t, "value", m["keep"])
	assert.NotContains(t, m, "fn")
	assert.NotContains(t, m, "ch")
}

func TestPruneToJSON_DropsFunctionsFromArrays(t *testing.T) {
	out, err := PruneToJSON([]any{"a", func() {}, "b"})
	require.NoError(t, err)
	assert.Equal(t, []any{"a", "b"}, out)
}

func TestPruneToJSON_RejectsNonPlainValues(t *testing.T) {
	type custom struct{ X int }

	cases := map[string]any{
		"struct value":       map[string]any{"v": custom{X: 1}},
		"NaN":                map[string]any{"v": math.NaN()},
		"positive infinity":  map[string]any{"v": math.Inf(1)},
		"non-string map key": map[string]any{"v": map[int]any{1: "x"}},
	}

	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := PruneToJSON(input)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrNotJSONSafe)
		})
	}
}

func TestPruneToJSON_TypedSlicesAndMapsCoerced(t *testing.T) {
	out, err := PruneToJSON(map[string]any{
		"tags":   []string{"x", "y"},
		"counts": map[string]int{"a": 1},
	})
	require.NoError(t, err)

	m := out.(map[string]any)
	assert.Equal(t, []any{"x", "y"}, m["tags"])
	assert.Equal(t, map[string]any{"a": 1}, m["counts"])
}

func TestPruneToJSON_NilPointerBecomesNull(t *testing.T) {
	var ts *time.Time
	out, err := PruneToJSON(map[string]any{"at": ts})
	require.NoError(t, err)
	assert.Nil(t, out.(map[string]any)["at"])
}
