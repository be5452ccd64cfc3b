package xml

import (
	"fmt"
	"iter"
	"unicode/utf8"
)

// Range is a half-open [Start, End) byte range into the scanned text.
type Range struct {
	Start int
	End   int
}

// Values holds the ranges found by a Scanner and hands out the matching
// substrings of the original text, in document order. Iteration is forward
// only: once a value has been returned there is no way back to it.
//
// The text is never copied, every value shares memory with the string given
// to New.
type Values struct {
	original  string
	positions []Range
	next      int
}

func newValues(original string) *Values {
	return &Values{original: original}
}

func (v *Values) add(r Range) {
	v.positions = append(v.positions, r)
}

// Next returns the next value, or false once all values have been consumed.
func (v *Values) Next() (string, bool) {
	if v.next >= len(v.positions) {
		return "", false
	}

	r := v.positions[v.next]
	v.next++
	return v.slice(r), true
}

func (v *Values) slice(r Range) string {
	if r.Start < 0 || r.End > len(v.original) || r.Start >= r.End ||
		!onBoundary(v.original, r.Start) || !onBoundary(v.original, r.End) {
		panic(fmt.Sprintf("xml: range [%d, %d) is not a valid slice of a %d byte text", r.Start, r.End, len(v.original)))
	}
	return v.original[r.Start:r.End]
}

func onBoundary(s string, i int) bool {
	return i == len(s) || utf8.RuneStart(s[i])
}

// Len returns the total number of values, consumed or not.
func (v *Values) Len() int {
	return len(v.positions)
}

// Remaining returns how many values Next will still return.
func (v *Values) Remaining() int {
	return len(v.positions) - v.next
}

// All returns an iterator over the values not consumed yet. It advances the
// same cursor as Next.
func (v *Values) All() iter.Seq[string] {
	return func(yield func(string) bool) {
		for {
			s, ok := v.Next()
			if !ok || !yield(s) {
				return
			}
		}
	}
}

// Collect drains the remaining values into a slice.
func (v *Values) Collect() []string {
	out := make([]string, 0, v.Remaining())
	for s := range v.All() {
		out = append(out, s)
	}
	return out
}

// Ranges returns a copy of every recorded range, regardless of the cursor.
func (v *Values) Ranges() []Range {
	out := make([]Range, len(v.positions))
	copy(out, v.positions)
	return out
}
