package utils

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var (
	fenceJSONRe     = regexp.MustCompile("(?s)```json\\s*(.+?)\\s*```")
	fenceAnyRe      = regexp.MustCompile("(?s)```[a-zA-Z]*\\s*(.+?)\\s*```")
	trailingCommaRe = regexp.MustCompile(`,\s*([}\]])`)
	unquotedKeyRe   = regexp.MustCompile(`([{,]\s*)(\w+)(\s*:)`)
	controlCharsRe  = regexp.MustCompile(`[\x00-\x08\x0B\x0C\x0E-\x1F]`)
)

// ParseAIJSON extracts and parses JSON from model output that may contain:
// - Pure JSON
// - JSON wrapped in markdown code fences (```json ... ```)
// - JSON with surrounding text
// - Slightly malformed JSON (trailing commas, unquoted keys)
func ParseAIJSON(input string, target interface{}) error {
	if strings.TrimSpace(input) == "" {
		return fmt.Errorf("empty input")
	}

	if err := json.Unmarshal([]byte(input), target); err == nil {
		return nil
	}

	if stripped := StripCodeFences(input); stripped != input {
		if err := json.Unmarshal([]byte(stripped), target); err == nil {
			return nil
		}
	}

	if extracted := extractJSONFromText(input); extracted != "" {
		if err := json.Unmarshal([]byte(extracted), target); err == nil {
			return nil
		}
	}

	if cleaned := cleanAndFixJSON(input); cleaned != "" {
		if err := json.Unmarshal([]byte(cleaned), target); err == nil {
			return nil
		}
	}

	return fmt.Errorf("failed to parse JSON from input: %s", truncateString(input, 100))
}

// StripCodeFences removes a markdown fence (optionally tagged, e.g. ```json)
// around a payload. Text without a fence is returned trimmed.
func StripCodeFences(input string) string {
	s := strings.TrimSpace(input)
	if extracted := extractFromMarkdown(s); extracted != "" {
		return extracted
	}
	// unterminated fence: drop the opening line
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		if nl := strings.IndexByte(s, '\n'); nl >= 0 && !strings.ContainsAny(s[:nl], "{[") {
			s = s[nl+1:]
		}
		return strings.TrimSpace(strings.TrimSuffix(s, "```"))
	}
	return s
}

// extractFromMarkdown extracts the payload of a markdown code block
// Supports: ```json {...} ```, ```{...}```, or ```\n{...}\n```
func extractFromMarkdown(input string) string {
	if matches := fenceJSONRe.FindStringSubmatch(input); len(matches) > 1 {
		return strings.TrimSpace(matches[1])
	}

	if matches := fenceAnyRe.FindStringSubmatch(input); len(matches) > 1 {
		content := strings.TrimSpace(matches[1])
		if strings.HasPrefix(content, "{") || strings.HasPrefix(content, "[") {
			return content
		}
	}

	return ""
}

// extractJSONFromText finds JSON object or array in surrounding text
func extractJSONFromText(input string) string {
	if start := strings.Index(input, "{"); start >= 0 {
		if extracted := extractBalancedBraces(input[start:], '{', '}'); extracted != "" {
			return extracted
		}
	}

	if start := strings.Index(input, "["); start >= 0 {
		if extracted := extractBalancedBraces(input[start:], '[', ']'); extracted != "" {
			return extracted
		}
	}

	return ""
}

// extractBalancedBraces extracts content with balanced braces
func extractBalancedBraces(input string, open, close rune) string {
	if len(input) == 0 {
		return ""
	}

	depth := 0
	inString := false
	escape := false
	start := 0

	for i, ch := range input {
		if escape {
			escape = false
			continue
		}

		if ch == '\\' {
			escape = true
			continue
		}

		if ch == '"' {
			inString = !inString
			continue
		}

		if inString {
			continue
		}

		if ch == open {
			if depth == 0 {
				start = i
			}
			depth++
		} else if ch == close {
			depth--
			if depth == 0 {
				return input[start : i+1]
			}
		}
	}

	return ""
}

// cleanAndFixJSON attempts to fix common JSON formatting issues
func cleanAndFixJSON(input string) string {
	s := StripCodeFences(input)
	s = strings.TrimPrefix(s, "\ufeff")

	s = trailingCommaRe.ReplaceAllString(s, "$1")
	s = unquotedKeyRe.ReplaceAllString(s, `$1"$2"$3`)
	s = fixSingleQuotes(s)
	s = controlCharsRe.ReplaceAllString(s, "")

	return s
}

// fixSingleQuotes converts single quotes to double quotes for JSON compatibility
func fixSingleQuotes(input string) string {
	var result strings.Builder
	inDoubleQuote := false
	escape := false
	var prev rune

	for i, ch := range input {
		if escape {
			result.WriteRune(ch)
			escape = false
			prev = ch
			continue
		}

		if ch == '\\' {
			result.WriteRune(ch)
			escape = true
			prev = ch
			continue
		}

		if ch == '"' {
			inDoubleQuote = !inDoubleQuote
			result.WriteRune(ch)
			prev = ch
			continue
		}

		// Only quote-like single quotes outside double-quoted strings
		if ch == '\'' && !inDoubleQuote {
			if i == 0 || strings.ContainsRune(":,[{ ", prev) || isClosingQuote(input[i+1:]) {
				result.WriteRune('"')
				prev = ch
				continue
			}
		}

		result.WriteRune(ch)
		prev = ch
	}

	return result.String()
}

// isClosingQuote reports whether what follows a quote looks like a value end
func isClosingQuote(rest string) bool {
	rest = strings.TrimLeft(rest, " \t\r\n")
	return rest == "" || strings.ContainsRune(":,]}", rune(rest[0]))
}

// truncateString truncates a string to maxLen characters
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

// TryParseJSONObject attempts to parse a JSON object with fallback strategies
func TryParseJSONObject(input string) (map[string]interface{}, error) {
	var result map[string]interface{}
	if err := ParseAIJSON(input, &result); err != nil {
		return nil, err
	}
	if result == nil {
		return nil, fmt.Errorf("JSON value is not an object")
	}
	return result, nil
}
