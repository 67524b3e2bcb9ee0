package utils

import (
	"strings"
)

// Split a windows path into components. We accept both / and \ as
// separators and drop empty components so "\Windows\\System32" and
// "Windows/System32" parse the same way.
func SplitComponents(path string) []string {
	result := []string{}
	for _, component := range strings.FieldsFunc(path,
		func(r rune) bool {
			return r == '/' || r == '\\'
		}) {
		if component != "" {
			result = append(result, component)
		}
	}
	return result
}

func JoinComponents(components ...string) string {
	return strings.Join(components, "\\")
}

// Base name of a windows path.
func BaseComponent(path string) string {
	components := SplitComponents(path)
	if len(components) == 0 {
		return ""
	}
	return components[len(components)-1]
}

// UserAssist key names are ROT13 obfuscated.
func Rot13(in string) string {
	out := make([]rune, 0, len(in))
	for _, c := range in {
		switch {
		case c >= 'a' && c <= 'z':
			c = 'a' + (c-'a'+13)%26
		case c >= 'A' && c <= 'Z':
			c = 'A' + (c-'A'+13)%26
		}
		out = append(out, c)
	}
	return string(out)
}
