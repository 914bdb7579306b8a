package service

import (
	"regexp"
	"strings"
)

var (
	fenceStart = regexp.MustCompile("(?is)^\\s*```(?:json)?\\s*")
	fenceEnd   = regexp.MustCompile("(?is)\\s*```\\s*$")
)

// cleanLLMJSONResponse quita BOM y fences ```json ... ```.
func cleanLLMJSONResponse(raw string) string {
	s := strings.TrimPrefix(strings.TrimSpace(raw), "\uFEFF")
	if s == "" {
		return ""
	}
	s = fenceStart.ReplaceAllString(s, "")
	s = fenceEnd.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// extractFirstJSONObject devuelve el primer objeto {...} balanceado, ignorando llaves dentro de strings.
func extractFirstJSONObject(input string) string {
	start := strings.IndexByte(input, '{')
	if start == -1 {
		return ""
	}

	depth := 0
	inString, escaped := false, false
	for i := start; i < len(input); i++ {
		ch := input[i]
		switch {
		case escaped:
			escaped = false
		case inString && ch == '\\':
			escaped = true
		case ch == '"':
			inString = !inString
		case inString:
		case ch == '{':
			depth++
		case ch == '}':
			depth--
			if depth == 0 {
				return input[start : i+1]
			}
		}
	}
	return ""
}
