package narration

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanScript(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"plain text unchanged", "Click the button.", "Click the button."},
		{"strips bold markers", "Click **the button** now.", "Click the button now."},
		{"strips italic markers", "Click *the button* now.", "Click the button now."},
		{"newlines collapsed", "First line.\nSecond line.", "First line. Second line."},
		{"whitespace collapsed", "Too   many    spaces.", "Too many spaces."},
		{"space before punctuation fixed", "Hello , world ! Done .", "Hello, world! Done."},
		{"leading and trailing trimmed", "  padded  ", "padded"},
		{
			"combined",
			"**Welcome!**\n\nThis demo   shows *the app* .",
			"Welcome! This demo shows the app.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanScript(tt.in))
		})
	}
}
