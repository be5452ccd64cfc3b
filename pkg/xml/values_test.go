package xml

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestValues(text string, ranges ...Range) *Values {
	values := newValues(text)
	for _, r := range ranges {
		values.add(r)
	}
	return values
}

func TestValuesNext(t *testing.T) {
	values := newTestValues("<a>one</a><b>two</b>", Range{3, 6}, Range{13, 16})
	assert.Equal(t, 2, values.Len())

	v, ok := values.Next()
	require.True(t, ok)
	assert.Equal(t, "one", v)
	assert.Equal(t, 1, values.Remaining())

	v, ok = values.Next()
	require.True(t, ok)
	assert.Equal(t, "two", v)

	// Exhausted for good
	for i := 0; i < 3; i++ {
		v, ok = values.Next()
		assert.False(t, ok)
		assert.Empty(t, v)
	}
	assert.Equal(t, 0, values.Remaining())
	assert.Equal(t, 2, values.Len())
}

func TestValuesAllSharesCursor(t *testing.T) {
	values := newTestValues("abc", Range{0, 1}, Range{1, 2}, Range{2, 3})

	for v := range values.All() {
		assert.Equal(t, "a", v)
		break
	}

	assert.Equal(t, []string{"b", "c"}, values.Collect())
	assert.Empty(t, values.Collect())
}

func TestValuesRangesIsACopy(t *testing.T) {
	values := newTestValues("abc", Range{0, 3})

	ranges := values.Ranges()
	ranges[0].End = 1

	assert.Equal(t, []Range{{0, 3}}, values.Ranges())
	assert.Equal(t, []string{"abc"}, values.Collect())
}

func TestValuesInvalidRangePanics(t *testing.T) {
	testCases := []struct {
		name string
		text string
		rng  Range
	}{
		{name: "start splits a rune", text: "☃x", rng: Range{1, 4}},
		{name: "end splits a rune", text: "x☃", rng: Range{0, 2}},
		{name: "end past text", text: "abc", rng: Range{0, 10}},
		{name: "negative start", text: "abc", rng: Range{-1, 2}},
		{name: "empty range", text: "abc", rng: Range{1, 1}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			values := newTestValues(tc.text, tc.rng)
			assert.Panics(t, func() { values.Next() })
		})
	}
}
