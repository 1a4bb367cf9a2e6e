package utils_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"ganita-server/shared/utils"
)

func TestExtractJSONContent(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "json fence",
			input:    "Here you go:\n```json\n{\"a\": 1}\n```",
			expected: `{"a": 1}`,
		},
		{
			name:     "plain fence",
			input:    "```\n{\"a\": 1}\n```",
			expected: `{"a": 1}`,
		},
		{
			name:     "bare json with prose around",
			input:    `Sure! {"a": 1} Hope that helps.`,
			expected: `{"a": 1}`,
		},
		{
			name:     "no json at all",
			input:    "I cannot help with that.",
			expected: "",
		},
		{
			name:     "broken json",
			input:    `{"a": `,
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, utils.ExtractJSONContent(tt.input))
		})
	}
}

func TestSanitizeFileName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Linear equations", "Linear_equations"},
		{"x^2 + 1 = 0", "x2__1__0"},
		{"", "scene"},
		{"###", "scene"},
		{"already-safe_name", "already-safe_name"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, utils.SanitizeFileName(tt.input))
	}
}

func TestStringShort(t *testing.T) {
	assert.Equal(t, "short", utils.StringShort("short", 10))
	assert.Equal(t, "very lo...", utils.StringShort("very long string", 10))
	assert.Equal(t, "...", utils.StringShort("abcdef", 3))
}
