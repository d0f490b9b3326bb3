// Package llmjson decodes JSON out of free-form model output.
//
// Model responses may be bare JSON, JSON wrapped in code fences, JSON buried
// in prose, or no JSON at all. Decode tries a strict parse first and then a
// structural recovery pass. Callers own the heuristic fallback, since only
// they know what a sensible default looks like.
package llmjson

import (
	"encoding/json"
	"errors"
	"reflect"
	"regexp"
	"strings"
)

// Stage reports which path produced a value.
type Stage int

const (
	Strict Stage = iota
	Recovered
	Fallback
)

func (s Stage) String() string {
	switch s {
	case Strict:
		return "strict"
	case Recovered:
		return "recovered"
	case Fallback:
		return "fallback"
	default:
		return "unknown"
	}
}

// ErrNoJSON is returned when neither parse path yields a value.
var ErrNoJSON = errors.New("llmjson: no decodable json in model output")

var fence = regexp.MustCompile("(?i)```(?:json)?")

// DecodeObject decodes the first JSON object found in raw into dst.
func DecodeObject(raw string, dst any) (Stage, error) {
	return decode(raw, '{', '}', dst)
}

// DecodeArray decodes the first JSON array found in raw into dst.
func DecodeArray(raw string, dst any) (Stage, error) {
	return decode(raw, '[', ']', dst)
}

func decode(raw string, open, close byte, dst any) (Stage, error) {
	if unmarshalInto([]byte(strings.TrimSpace(raw)), dst) {
		return Strict, nil
	}

	cleaned := Clean(raw)
	if unmarshalInto([]byte(cleaned), dst) {
		return Recovered, nil
	}

	// only top-level candidates, never a value nested inside a rejected one
	for start := strings.IndexByte(cleaned, open); start >= 0; {
		end := balancedEnd(cleaned, start, open, close)
		if end < 0 {
			break
		}
		if unmarshalInto([]byte(cleaned[start:end+1]), dst) {
			return Recovered, nil
		}
		next := strings.IndexByte(cleaned[end+1:], open)
		if next < 0 {
			break
		}
		start = end + 1 + next
	}
	return Fallback, ErrNoJSON
}

// unmarshalInto decodes b into a fresh value and stores it in dst only on
// success, so a failed attempt never leaks partial fields.
func unmarshalInto(b []byte, dst any) bool {
	rv := reflect.ValueOf(dst)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return json.Unmarshal(b, dst) == nil
	}
	fresh := reflect.New(rv.Elem().Type())
	if err := json.Unmarshal(b, fresh.Interface()); err != nil {
		return false
	}
	rv.Elem().Set(fresh.Elem())
	return true
}

// StripFences removes markdown code fence markers, keeping line breaks.
func StripFences(raw string) string {
	return fence.ReplaceAllString(raw, "")
}

// Clean strips code fences and turns control characters into spaces.
func Clean(raw string) string {
	s := strings.Map(func(r rune) rune {
		if r < 0x20 {
			return ' '
		}
		return r
	}, StripFences(raw))
	return strings.TrimSpace(s)
}

// balancedEnd returns the index of the delimiter closing s[start], skipping
// over JSON string literals, or -1.
func balancedEnd(s string, start int, open, close byte) int {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
