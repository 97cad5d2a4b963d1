package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrMalformedResponse marks provider output that failed every recovery
// step. Callers treat it as a transient provider failure.
var ErrMalformedResponse = errors.New("malformed provider response")

var fencedBlockRegex = regexp.MustCompile("```(?:json)?\\s*([\\s\\S]*?)\\s*```")

// DecodeLenient parses provider output into v using a three-step recovery
// pipeline:
//  1. direct parse
//  2. parse the fenced code block or the outermost balanced JSON
//     object/array substring
//  3. heuristically close open strings/brackets in truncated output,
//     dropping any trailing partial element, and re-parse
//
// Each step is attempted in order; if all fail the error wraps
// ErrMalformedResponse.
func DecodeLenient(raw string, v any) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fmt.Errorf("%w: empty response", ErrMalformedResponse)
	}

	// Step 1: direct parse
	directErr := json.Unmarshal([]byte(raw), v)
	if directErr == nil {
		return nil
	}

	// Step 2: fenced block or balanced substring
	if candidate, ok := ExtractJSON(raw); ok {
		if err := json.Unmarshal([]byte(candidate), v); err == nil {
			return nil
		}
	}

	// Step 3: bracket repair on the best available fragment
	fragment := jsonFragment(raw)
	if fragment != "" {
		if repaired, ok := CloseTruncated(fragment); ok {
			if err := json.Unmarshal([]byte(repaired), v); err == nil {
				return nil
			}
		}
	}

	return fmt.Errorf("%w: %v", ErrMalformedResponse, directErr)
}

// ExtractJSON locates a complete JSON value inside prose or markdown: first
// the content of a fenced code block, then the outermost balanced
// object/array substring. Returns false when no balanced value exists.
func ExtractJSON(raw string) (string, bool) {
	if m := fencedBlockRegex.FindStringSubmatch(raw); len(m) == 2 {
		inner := strings.TrimSpace(m[1])
		if inner != "" {
			return inner, true
		}
	}

	start := strings.IndexAny(raw, "{[")
	if start < 0 {
		return "", false
	}

	end := matchBalanced(raw, start)
	if end < 0 {
		return "", false
	}
	return raw[start : end+1], true
}

// CloseTruncated repairs JSON cut off mid-stream: it closes an unterminated
// string, drops the trailing partial element, and appends the closers the
// bracket stack still needs. Only content that was fully present before the
// truncation point survives; nothing is fabricated. Returns false when the
// input has no JSON structure at all.
func CloseTruncated(raw string) (string, bool) {
	candidate := strings.TrimSpace(raw)
	if candidate == "" || (candidate[0] != '{' && candidate[0] != '[') {
		return "", false
	}

	// Each iteration chops the candidate back to the previous element
	// boundary and retries, so a partial trailing element is discarded
	// rather than patched into something that was never emitted.
	for range [8]struct{}{} {
		stack, inString := scanState(candidate)

		repaired := candidate
		if inString {
			repaired += `"`
		}
		repaired = strings.TrimRight(repaired, " \t\r\n")
		repaired = strings.TrimRight(repaired, ",")
		repaired = strings.TrimRight(repaired, " \t\r\n")
		for i := len(stack) - 1; i >= 0; i-- {
			switch stack[i] {
			case '{':
				repaired += "}"
			case '[':
				repaired += "]"
			}
		}

		if json.Valid([]byte(repaired)) {
			return repaired, true
		}

		cut := lastBoundary(candidate)
		if cut <= 0 {
			return "", false
		}
		candidate = candidate[:cut]
	}

	return "", false
}

// jsonFragment returns the substring starting at the first JSON opener,
// preferring the fenced block content when present
func jsonFragment(raw string) string {
	if m := fencedBlockRegex.FindStringSubmatch(raw); len(m) == 2 {
		raw = m[1]
	}
	start := strings.IndexAny(raw, "{[")
	if start < 0 {
		return ""
	}
	return raw[start:]
}

// matchBalanced returns the index of the bracket closing the value opened
// at start, or -1 when the value never closes. String contents and escapes
// are skipped.
func matchBalanced(s string, start int) int {
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
		case '{', '[':
			depth++
		case '}', ']':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// scanState walks s and returns the stack of unclosed brackets plus whether
// the scan ended inside a string literal
func scanState(s string) ([]byte, bool) {
	var stack []byte
	inString := false
	escaped := false

	for i := 0; i < len(s); i++ {
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
		case '{', '[':
			stack = append(stack, c)
		case '}', ']':
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		}
	}
	return stack, inString
}

// lastBoundary finds the rightmost top-of-element boundary (a comma or
// opening bracket outside strings) to chop a partial trailing element at
func lastBoundary(s string) int {
	inString := false
	escaped := false
	last := -1

	for i := 0; i < len(s); i++ {
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
		case ',', '{', '[':
			last = i
		}
	}
	return last
}
