package synth

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/itchyny/gojq"
)

// extractJSONObject finds the first balanced `{...}` substring in text
// and returns it. LLM completions routinely prose-wrap their JSON ("Here
// is the plan:\n{...}\nLet me know..."); this bracket scan recovers the
// object before attempting to parse it.
func extractJSONObject(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	for i := start; i < len(text); i++ {
		switch text[i] {
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

// parseJSONWithFallback attempts a direct json.Unmarshal first, then
// falls back to bracket-scanning the first JSON object out of a
// prose-wrapped completion and re-running it through gojq's parser as a
// stricter second opinion before handing it to json.Unmarshal.
func parseJSONWithFallback(raw string, out any) bool {
	if err := json.Unmarshal([]byte(raw), out); err == nil {
		return true
	}

	candidate, ok := extractJSONObject(raw)
	if !ok {
		return false
	}

	if !validateWithGojq(candidate) {
		return false
	}

	return json.Unmarshal([]byte(candidate), out) == nil
}

// validateWithGojq runs the extracted candidate through gojq's `.` query
// as a parse sanity check independent of encoding/json, since gojq's
// parser is stricter about trailing garbage some LLM completions leave
// behind a closing brace.
func validateWithGojq(candidate string) bool {
	query, err := gojq.Parse(".")
	if err != nil {
		return false
	}

	var decoded any
	if err := json.Unmarshal([]byte(candidate), &decoded); err != nil {
		return false
	}

	iter := query.RunWithContext(context.Background(), decoded)
	_, ok := iter.Next()
	return ok
}
