package xml

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected []string
	}{
		{
			name:     "single element",
			input:    `<tag>Hello world!</tag>`,
			expected: []string{"Hello world!"},
		},
		{
			name:     "siblings",
			input:    `<a>One</a><b>Two</b><c>Three</c>`,
			expected: []string{"One", "Two", "Three"},
		},
		{
			name:     "nested tag before text",
			input:    `<outer><inner>Text</inner></outer>`,
			expected: []string{"Text"},
		},
		{
			name:     "multibyte inside run",
			input:    `<x>abc☃.</x>`,
			expected: []string{"abc☃."},
		},
		{
			name:     "multibyte at end of run",
			input:    `<a>ÆØÅ</a>`,
			expected: []string{"ÆØÅ"},
		},
		{
			name:     "four byte rune only",
			input:    `<a>👍</a>`,
			expected: []string{"👍"},
		},
		{
			name:     "whitespace only",
			input:    `<a>    </a>`,
			expected: nil,
		},
		{
			name:     "surrounding whitespace trimmed",
			input:    `<a>  Hello  world  </a>`,
			expected: []string{"Hello  world"},
		},
		{
			name:     "newlines and tabs",
			input:    "<a>\n\tline one\n\tline two\n</a>",
			expected: []string{"line one\n\tline two"},
		},
		{
			name:     "no-break space trimmed",
			input:    "<a>\u00a0x\u00a0</a>",
			expected: []string{"x"},
		},
		{
			name:     "attributes ignored",
			input:    `<a href="/x" id=1>link</a>`,
			expected: []string{"link"},
		},
		{
			name:     "self closing tag",
			input:    `<root><br/>text</root>`,
			expected: []string{"text"},
		},
		{
			name:     "entities not decoded",
			input:    `<a>fish &amp; chips</a>`,
			expected: []string{"fish &amp; chips"},
		},
		{
			name:     "unterminated run dropped",
			input:    `<a>One</a><b>dangling`,
			expected: []string{"One"},
		},
		{
			name:     "text without tags",
			input:    `plain text`,
			expected: nil,
		},
		{
			name:     "empty input",
			input:    ``,
			expected: nil,
		},
		{
			name: "postal address",
			input: `
    <cac:PostalAddress>
    <cbc:StreetName>SOMEMULTIBYTETEXTÆØÅ👍.8-LEV.E: 10.00.</cbc:StreetName>
    <cbc:AdditionalStreetName>MAX PALL: 1,20</cbc:AdditionalStreetName>
    <cbc:CityName>OSLO</cbc:CityName>
`,
			expected: []string{
				"SOMEMULTIBYTETEXTÆØÅ👍.8-LEV.E: 10.00.",
				"MAX PALL: 1,20",
				"OSLO",
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			values, err := New(tc.input).Parse()
			require.NoError(t, err)

			var got []string
			for v := range values.All() {
				got = append(got, v)
			}
			assert.Equal(t, tc.expected, got)
		})
	}
}

func TestParseMalformedNesting(t *testing.T) {
	testCases := []struct {
		name    string
		input   string
		wantErr string
	}{
		{
			name:    "double close after open tag",
			input:   `<a>>`,
			wantErr: "invalid XML: unexpected double >> at position 3",
		},
		{
			name:    "close before any tag",
			input:   `>`,
			wantErr: "invalid XML: unexpected double >> at position 0",
		},
		{
			name:    "double close after closing tag",
			input:   `<a>text</a>>`,
			wantErr: "invalid XML: unexpected double >> at position 11",
		},
		{
			name:    "values before the fault",
			input:   `<a>One</a><b>>Two</b>`,
			wantErr: "invalid XML: unexpected double >> at position 13",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			values, err := New(tc.input).Parse()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformedNesting))
			assert.EqualError(t, err, tc.wantErr)
			assert.Nil(t, values)
		})
	}
}

func TestParseConsumesScanner(t *testing.T) {
	scanner := New(`<a>x</a>`)

	_, err := scanner.Parse()
	require.NoError(t, err)

	values, err := scanner.Parse()
	assert.ErrorIs(t, err, ErrScannerConsumed)
	assert.Nil(t, values)
}

// Whitespace between a tag and the next '<' does not count as text, so the
// '<b>' below is a nested opening tag and not the end of a run.
func TestParseLeadingWhitespaceIsNotText(t *testing.T) {
	values, err := New("<a> \n <b>x</b></a>").Parse()
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, values.Collect())
}

func TestParseIdempotent(t *testing.T) {
	input := readTestdata(t, "invoice.xml")

	first, err := New(input).Parse()
	require.NoError(t, err)
	second, err := New(input).Parse()
	require.NoError(t, err)

	assert.Equal(t, first.Collect(), second.Collect())
}

func TestParseRangesRoundTrip(t *testing.T) {
	input := readTestdata(t, "invoice.xml")

	values, err := New(input).Parse()
	require.NoError(t, err)

	ranges := values.Ranges()
	got := values.Collect()
	require.Len(t, got, len(ranges))

	for i, r := range ranges {
		assert.Equal(t, input[r.Start:r.End], got[i])
		assert.True(t, utf8.RuneStart(input[r.Start]), "start %d splits a rune", r.Start)
		assert.True(t, r.End == len(input) || utf8.RuneStart(input[r.End]), "end %d splits a rune", r.End)
		assert.Equal(t, strings.TrimSpace(got[i]), got[i])
	}
}

func TestParseTestdata(t *testing.T) {
	input := readTestdata(t, "invoice.xml")
	expected := strings.Split(strings.TrimSuffix(readTestdata(t, "invoice.txt"), "\n"), "\n")

	values, err := New(input).Parse()
	require.NoError(t, err)
	assert.Equal(t, expected, values.Collect())
}

func TestParseGeneratedDocument(t *testing.T) {
	var b strings.Builder
	b.WriteString("<root>\n")
	for i := 0; i < 50; i++ {
		fmt.Fprintf(&b, "  <item id=\"%d\">\n    <name>  item ☃ %d  </name>\n    <empty> </empty>\n  </item>\n", i, i)
	}
	b.WriteString("</root>\n")

	values, err := New(b.String()).Parse()
	require.NoError(t, err)
	require.Equal(t, 50, values.Len())

	for i := 0; i < 50; i++ {
		v, ok := values.Next()
		require.True(t, ok)
		assert.Equal(t, fmt.Sprintf("item ☃ %d", i), v)
	}
	_, ok := values.Next()
	assert.False(t, ok)
}

func readTestdata(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile("testdata/" + name)
	require.NoError(t, err)
	return string(data)
}

func BenchmarkParse(b *testing.B) {
	var builder strings.Builder
	builder.WriteString(`<root>`)
	for i := 0; i < 1000; i++ {
		fmt.Fprintf(&builder, `<item id="%d"><name>item-%d ÆØÅ</name><value>%d</value></item>`, i, i, i*3)
	}
	builder.WriteString(`</root>`)
	input := builder.String()

	b.SetBytes(int64(len(input)))
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		values, err := New(input).Parse()
		if err != nil {
			b.Fatalf("unexpected error: %v", err)
		}
		if values.Len() != 2000 {
			b.Fatalf("expected 2000 values, got %d", values.Len())
		}
	}
}
