package utils

import "strings"

// ContainsString reports whether list contains value, ignoring case.
func ContainsString(list []string, value string) bool {
	for _, item := range list {
		if strings.EqualFold(item, value) {
			return true
		}
	}
	return false
}

// CleanToValidUTF8 drops invalid UTF-8 sequences and NUL bytes, which Postgres rejects.
func CleanToValidUTF8(s string) string {
	s = strings.ToValidUTF8(s, "")
	return strings.ReplaceAll(s, "\x00", "")
}
