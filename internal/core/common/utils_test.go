package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

func TestParseJSONToleratesFencesAndProse(t *testing.T) {
	resp := "Sure, here you go:\n```json\n{\"name\": \"scene\", \"score\": 0.7}\n```\nLet me know if you need changes."

	got, err := ParseJSON[payload](resp)
	require.NoError(t, err)
	assert.Equal(t, payload{Name: "scene", Score: 0.7}, got)
}

func TestParseJSONErrorsWithoutObject(t *testing.T) {
	_, err := ParseJSON[payload]("no structured data here")
	assert.Error(t, err)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abc", 10))
	assert.Equal(t, "ab…", Truncate("abcdef", 2))
	assert.Equal(t, "", Truncate("abc", 0))
}
