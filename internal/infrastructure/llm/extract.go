package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"arxivdigest/internal/domain"
)

// extractScore pulls the integer score out of a completion that may wrap the
// JSON object in code fences or surrounding prose. It strips fence markers,
// then scans for the first balanced {...} block; anything else is
// ErrRaterMalformedResponse rather than a guess.
func extractScore(content string) (int, error) {
	block, ok := firstJSONObject(stripCodeFences(content))
	if !ok {
		return 0, fmt.Errorf("%w: no JSON object in %q", domain.ErrRaterMalformedResponse, truncate(content, 120))
	}

	var payload struct {
		Score *int `json:"score"`
	}
	if err := json.Unmarshal([]byte(block), &payload); err != nil {
		return 0, fmt.Errorf("%w: parse score block: %v", domain.ErrRaterMalformedResponse, err)
	}
	if payload.Score == nil {
		return 0, fmt.Errorf("%w: score field missing", domain.ErrRaterMalformedResponse)
	}

	return *payload.Score, nil
}

// stripCodeFences removes ``` and ```json markers, keeping the fenced body.
func stripCodeFences(content string) string {
	content = strings.TrimSpace(content)
	if !strings.Contains(content, "```") {
		return content
	}

	parts := strings.Split(content, "```")
	// Fenced replies look like [prose] ``` body ``` [prose]; the body is the
	// first odd segment. Unbalanced fences fall through to the raw text.
	if len(parts) >= 2 {
		body := strings.TrimSpace(parts[1])
		if lower := strings.ToLower(body); strings.HasPrefix(lower, "json") {
			body = strings.TrimSpace(body[len("json"):])
		}
		if body != "" {
			return body
		}
	}
	return content
}

// firstJSONObject scans for the first balanced top-level {...} block. Braces
// inside JSON strings are ignored.
func firstJSONObject(content string) (string, bool) {
	start := -1
	depth := 0
	inString := false
	escaped := false

	for i, r := range content {
		if inString {
			switch {
			case escaped:
				escaped = false
			case r == '\\':
				escaped = true
			case r == '"':
				inString = false
			}
			continue
		}

		switch r {
		case '"':
			if depth > 0 {
				inString = true
			}
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth == 0 {
				continue
			}
			depth--
			if depth == 0 {
				return content[start : i+1], true
			}
		}
	}

	return "", false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
