package cognition

import "strings"

// extractJSON pulls the first JSON object or array out of a model reply,
// tracking string and escape state so braces inside quoted text do not
// unbalance the scan. Returns "" when no balanced payload exists.
func extractJSON(text string) string {
	start := strings.Index(text, "{")
	if start == -1 {
		start = strings.Index(text, "[")
	}
	if start == -1 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	startChar := text[start]
	endChar := byte('}')
	if startChar == '[' {
		endChar = ']'
	}

	for i := start; i < len(text); i++ {
		ch := text[i]

		if escaped {
			escaped = false
			continue
		}
		if ch == '\\' {
			escaped = true
			continue
		}
		if ch == '"' {
			inString = !inString
			continue
		}

		if !inString {
			if ch == startChar || ch == '{' || ch == '[' {
				depth++
			} else if ch == endChar || ch == '}' || ch == ']' {
				depth--
				if depth == 0 {
					return text[start : i+1]
				}
			}
		}
	}
	return ""
}

// extractJSONBlock returns the body of a ```json fenced block, or "" when
// the reply carries no fence. Models often wrap structured output this
// way despite instructions not to.
func extractJSONBlock(text string) string {
	start := strings.Index(text, "```json")
	if start == -1 {
		start = strings.Index(text, "```")
		if start == -1 {
			return ""
		}
	}

	open := strings.Index(text[start:], "\n")
	if open == -1 {
		return ""
	}
	body := start + open + 1

	end := strings.Index(text[body:], "```")
	if end == -1 {
		return ""
	}
	return strings.TrimSpace(text[body : body+end])
}

// replyPayload normalizes a model reply to its JSON payload: fenced block
// first, then a bare brace scan, then the trimmed reply itself as a last
// resort for backends that return clean JSON.
func replyPayload(raw string) string {
	if block := extractJSONBlock(raw); block != "" {
		if payload := extractJSON(block); payload != "" {
			return payload
		}
		return block
	}
	if payload := extractJSON(raw); payload != "" {
		return payload
	}
	return strings.TrimSpace(raw)
}
