package composer

import "strings"

// Separator joins a task template and the user prompt.
const Separator = "\n\n---\n\n"

// Compose prepends the trimmed task template to userPrompt. A blank template
// leaves userPrompt unchanged.
func Compose(template, userPrompt string) string {
	template = strings.TrimSpace(template)
	if template == "" {
		return userPrompt
	}
	return template + Separator + userPrompt
}

// DeriveTitle returns explicit when it is non-blank, otherwise the first 80
// characters of text with whitespace runs collapsed. It reports false when
// both are blank.
func DeriveTitle(explicit, text string) (string, bool) {
	if t := strings.TrimSpace(explicit); t != "" {
		return t, true
	}
	collapsed := strings.Join(strings.Fields(text), " ")
	if r := []rune(collapsed); len(r) > 80 {
		collapsed = string(r[:80])
	}
	collapsed = strings.TrimSpace(collapsed)
	return collapsed, collapsed != ""
}
