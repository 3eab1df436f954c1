// Package jsonutil provides utilities for extracting and parsing JSON from
// agent responses that may be wrapped in markdown code fences, embedded in
// prose, or carry formatting artifacts like trailing commas.
package jsonutil

import (
	"encoding/json"
	"regexp"
	"strings"
)

// RawOutputKey is the fallback key under which output that could not be
// parsed as a JSON object is preserved verbatim. Callers can always recover
// the original text through it.
const RawOutputKey = "raw_output"

// blankLineRuns matches one or more consecutive blank (or whitespace-only) lines.
var blankLineRuns = regexp.MustCompile(`\n[ \t]*(\n[ \t]*)+`)

// StripMarkdownFences removes ```json and bare ``` fence markers from text,
// collapses runs of blank lines left behind, and trims surrounding whitespace.
func StripMarkdownFences(text string) string {
	text = strings.ReplaceAll(text, "```json", "")
	text = strings.ReplaceAll(text, "```", "")
	text = blankLineRuns.ReplaceAllString(text, "\n")
	return strings.TrimSpace(text)
}

// ExtractObject returns the span of the first JSON object in text, matching
// the opening brace to its balancing close. The scan tracks string literals
// and escapes so braces inside string values don't skew the depth count.
// Returns false when text contains no balanced object.
func ExtractObject(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
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
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}
	return "", false
}

// removeTrailingCommas drops commas that sit immediately before a closing
// } or ] (a common artifact of generatively produced JSON). String literals
// are left untouched.
func removeTrailingCommas(text string) string {
	var b strings.Builder
	b.Grow(len(text))

	inString := false
	escaped := false
	for i := 0; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			b.WriteByte(c)
			continue
		}
		if c == '"' {
			inString = true
			b.WriteByte(c)
			continue
		}
		if c == ',' {
			j := i + 1
			for j < len(text) && (text[j] == ' ' || text[j] == '\t' || text[j] == '\n' || text[j] == '\r') {
				j++
			}
			if j < len(text) && (text[j] == '}' || text[j] == ']') {
				continue // drop the comma; whitespace and closer are written as usual
			}
		}
		b.WriteByte(c)
	}
	return b.String()
}

// Normalize turns an arbitrary task output value into a key/value mapping.
// Already-parsed objects pass through unchanged. Strings go through a series
// of cleanup passes (fence stripping, object narrowing, trailing-comma
// removal) before a strict parse. Anything that still won't parse — and any
// non-object, non-string input — is wrapped as {raw_output: value} so the
// function is total and never loses the original content.
func Normalize(v any) map[string]any {
	if m, ok := v.(map[string]any); ok && m != nil {
		return m
	}

	s, ok := v.(string)
	if !ok {
		return map[string]any{RawOutputKey: v}
	}

	cleaned := StripMarkdownFences(s)

	candidate := cleaned
	if obj, found := ExtractObject(cleaned); found {
		candidate = obj
	}
	candidate = removeTrailingCommas(candidate)

	var parsed map[string]any
	if err := json.Unmarshal([]byte(candidate), &parsed); err != nil || parsed == nil {
		return map[string]any{RawOutputKey: cleaned}
	}
	return parsed
}
