package export

import (
	"strings"
	"unicode"
)

const (
	defaultProjectName = "MunzGen Project"
	maxNameLen         = 64
)

// SanitizeName strips control characters and replaces anything outside a
// conservative set with '_', trimming to maxLen runes when maxLen > 0.
func SanitizeName(s string, maxLen int) string {
	cleaned := strings.TrimSpace(strings.Map(func(r rune) rune {
		switch {
		case unicode.IsControl(r):
			return -1
		case isAllowedNameRune(r):
			return r
		}
		return '_'
	}, s))

	if runes := []rune(cleaned); maxLen > 0 && len(runes) > maxLen {
		cleaned = strings.TrimSpace(string(runes[:maxLen]))
	}
	return cleaned
}

func isAllowedNameRune(r rune) bool {
	if unicode.IsLetter(r) || unicode.IsDigit(r) {
		return true
	}
	return strings.ContainsRune(" -_.,()", r)
}

// FileName is the download name of the EDL for project.
func FileName(project string) string {
	name := SanitizeName(project, maxNameLen)
	if name == "" {
		name = defaultProjectName
	}
	return name + ".edl"
}
