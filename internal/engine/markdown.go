package engine

import (
	"regexp"
	"strings"
)

var fencedMarkdown = regexp.MustCompile("(?is)^```(?:md|markdown)?\\s*\\r?\\n(.*?)\\r?\\n```\\s*$")

// UnwrapMarkdownFence strips a single fence wrapping the whole response,
// when it is untagged or tagged md/markdown. Other text is returned as is.
func UnwrapMarkdownFence(text string) string {
	m := fencedMarkdown.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		return text
	}
	return strings.TrimSpace(m[1])
}
