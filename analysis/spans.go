package analysis

import (
	"regexp"
	"strings"
)

// Span locates one capture group of a match within its subject.
type Span struct {
	Index  int
	Length int
	Value  string
}

// End returns the index just past the span.
func (s Span) End() int {
	return s.Index + s.Length
}

// ComputeSpans matches re against subject and returns the whole match as
// span 0 followed by one span per capture group. Each group is located by
// searching for its text forward from the previous group, so spans are
// ordered and do not overlap. A group that matched empty text sits at its
// match position and one that did not participate sits where the previous
// group ended. It returns nil when re does not match.
func ComputeSpans(re *regexp.Regexp, subject string) []Span {
	loc := re.FindStringSubmatchIndex(subject)
	if loc == nil {
		return nil
	}

	spans := make([]Span, 0, len(loc)/2) //nolint:mnd // start/end pairs
	spans = append(spans, Span{Index: loc[0], Length: loc[1] - loc[0], Value: subject[loc[0]:loc[1]]})

	from := loc[0]

	for g := 1; g < len(loc)/2; g++ {
		var value string
		if loc[2*g] >= 0 {
			value = subject[loc[2*g]:loc[2*g+1]]
		}

		at := from
		if value == "" {
			// An empty match is placed where the regexp matched it.
			if loc[2*g] >= from {
				at = loc[2*g]
			}
		} else if idx := strings.Index(subject[from:], value); idx >= 0 {
			at = from + idx
		}

		span := Span{Index: at, Length: len(value), Value: value}
		spans = append(spans, span)
		from = span.End()
	}

	return spans
}

// ActiveParameter returns the index of the parameter span containing
// cursor, both ends included. A cursor before the first span selects the
// first parameter and one after the last span the last parameter. A cursor
// in a gap between spans yields len(params). That out-of-range index only
// means "no active parameter" to clients that honour it; the LSP default
// for an out-of-range activeParameter is 0, so other clients highlight the
// first parameter instead.
func ActiveParameter(params []Span, cursor int) int {
	if len(params) == 0 {
		return 0
	}

	for i, p := range params {
		if cursor >= p.Index && cursor <= p.End() {
			return i
		}
	}

	switch {
	case cursor < params[0].Index:
		return 0
	case cursor > params[len(params)-1].End():
		return len(params) - 1
	default:
		return len(params)
	}
}
