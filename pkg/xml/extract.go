package xml

import (
	"bytes"
	"fmt"
	"unicode/utf8"
)

// ExtractValuesNul extracts the values of a NUL terminated document. The
// terminator must be the last byte and the only NUL in data.
func ExtractValuesNul(data []byte) ([]string, error) {
	nul := bytes.IndexByte(data, 0)
	if nul < 0 {
		return nil, ErrNotNulTerminated
	}
	if nul != len(data)-1 {
		return nil, fmt.Errorf("%w at position %d", ErrInteriorNul, nul)
	}
	return ExtractValues(data[:nul])
}

// ExtractValues extracts the values of the document in data. The returned
// strings do not share memory with data.
func ExtractValues(data []byte) ([]string, error) {
	return ExtractValuesString(string(data))
}

// ExtractValuesString extracts the values of text into a slice. Text that is
// not valid UTF-8 is rejected with ErrInvalidUTF8.
func ExtractValuesString(text string) ([]string, error) {
	if err := validateUTF8(text); err != nil {
		return nil, err
	}

	values, err := New(text).Parse()
	if err != nil {
		return nil, err
	}
	return values.Collect(), nil
}

func validateUTF8(text string) error {
	if utf8.ValidString(text) {
		return nil
	}

	for i := 0; i < len(text); {
		r, width := utf8.DecodeRuneInString(text[i:])
		if r == utf8.RuneError && width == 1 {
			return fmt.Errorf("%w at position %d", ErrInvalidUTF8, i)
		}
		i += width
	}
	return ErrInvalidUTF8
}
