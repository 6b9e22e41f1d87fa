package common

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ParseJSON cleans and unmarshals a JSON object from an LLM response into a
// type T. It tolerates common quirks like markdown fences or prose around
// the object.
func ParseJSON[T any](response string) (T, error) {
	var zero T
	jsonStr, err := extract(response, '{', '}')
	if err != nil {
		return zero, err
	}

	var result T
	if err := json.Unmarshal([]byte(jsonStr), &result); err != nil {
		return zero, fmt.Errorf("failed to unmarshal JSON: %w\nData: %s", err, jsonStr)
	}
	return result, nil
}

func extract(response string, open, close byte) (string, error) {
	start := strings.IndexByte(response, open)
	if start == -1 {
		return "", fmt.Errorf("no JSON value found in response (missing %q)", string(open))
	}
	end := strings.LastIndexByte(response, close)
	if end <= start {
		return "", fmt.Errorf("no JSON value found in response (missing %q)", string(close))
	}
	return response[start : end+1], nil
}

// Truncate shortens s to at most n runes for prompt assembly and logs.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "…"
}
