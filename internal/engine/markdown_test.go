package engine

import "testing"

func TestUnwrapMarkdownFence(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"md tag", "```md\n# Title\n```", "# Title"},
		{"markdown tag upper", "```MARKDOWN\n# Title\n\nBody\n```", "# Title\n\nBody"},
		{"untagged", "```\n- a\n- b\n```", "- a\n- b"},
		{"surrounding whitespace", "  \n```markdown\n  # T  \n```\n\n", "# T"},
		{"crlf", "```md\r\n# T\r\n```", "# T"},
		{"other language", "```json\n{}\n```", "```json\n{}\n```"},
		{"plain text", "# Just markdown", "# Just markdown"},
		{"text after fence", "```md\n# T\n```\nmore", "```md\n# T\n```\nmore"},
		{"prose before fence", "Intro\n```md\n# T\n```", "Intro\n```md\n# T\n```"},
		{"inline fence", "```md # T```", "```md # T```"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := UnwrapMarkdownFence(tt.in); got != tt.want {
				t.Errorf("UnwrapMarkdownFence(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
