package xml

import (
	"fmt"
	"unicode/utf8"
)

type parseState uint8

const (
	outsideBracket parseState = iota
	insideOpenBracket
	insideCloseBracket
	value
)

// Scanner pulls the text between tags out of an XML document in one pass.
// Tag names, attributes, comments and structure are skipped; nothing is
// decoded or validated beyond bracket nesting.
//
// This 'parser' only keeps byte offsets of the text runs it sees, the values
// themselves are substrings of the input handed out by the returned Values.
type Scanner struct {
	text   string
	state  parseState
	values *Values

	charCount int  // non-whitespace chars in the current run
	started   bool // a run is open and start is valid
	start     int  // first byte of the open run
	end       int  // one past the last byte of the run's last non-whitespace char
	pos       int  // byte offset of the current char
}

// New creates a Scanner over text. text must be valid UTF-8.
func New(text string) *Scanner {
	return &Scanner{
		text:   text,
		state:  outsideBracket,
		values: newValues(text),
	}
}

// Parse walks the whole text and returns the values found in it. A Scanner
// can only be parsed once.
//
// A '>' outside of a tag aborts the scan with ErrMalformedNesting. Text still
// open at the end of the input is dropped.
func (s *Scanner) Parse() (*Values, error) {
	if s.values == nil {
		return nil, ErrScannerConsumed
	}
	values := s.values
	s.values = nil

	for s.pos < len(s.text) {
		ch, width := utf8.DecodeRuneInString(s.text[s.pos:])
		if err := s.step(ch, width, values); err != nil {
			return nil, err
		}
		s.pos += width
	}

	return values, nil
}

func (s *Scanner) step(ch rune, width int, values *Values) error {
	switch classify(ch) {
	case LeftCroc:
		switch s.state {
		case outsideBracket:
			s.state = insideOpenBracket
		case value:
			// No text yet, so this is a nested opening tag
			if s.charCount == 0 {
				s.state = insideOpenBracket
				break
			}
			s.state = insideCloseBracket
			s.extract(values)
			s.charCount = 0
		}

	case RightCroc:
		switch s.state {
		case insideOpenBracket:
			s.state = value
		case insideCloseBracket:
			s.state = outsideBracket
		default:
			return fmt.Errorf("%w at position %d", ErrMalformedNesting, s.pos)
		}

	case Char:
		if s.state != value {
			break
		}
		if !s.started {
			s.started = true
			s.start = s.pos
		}
		s.end = s.pos + width
		s.charCount++
	}

	// WhiteSpace, NewLine, Equalsign, Slash and Tick don't move the state.
	// Whitespace inside a run is picked up when the next char extends s.end.
	return nil
}

func (s *Scanner) extract(values *Values) {
	values.add(Range{Start: s.start, End: s.end})
	s.started = false
}
