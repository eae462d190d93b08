package util

import (
	"path/filepath"
	"strings"
)

const maxExtLen = 10

// SanitizeFileName strips directories and control characters so a client
// supplied name is safe to echo back in a Content-Disposition header.
func SanitizeFileName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	name = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f || r == '"' {
			return -1
		}
		return r
	}, name)
	name = strings.TrimSpace(name)
	if name == "." || name == ".." {
		return ""
	}
	return name
}

// SafeExtension returns the lower-cased extension of name including the dot,
// or "" when it is missing or contains anything but ASCII letters and digits.
func SafeExtension(name string) string {
	ext := strings.ToLower(filepath.Ext(SanitizeFileName(name)))
	if len(ext) < 2 || len(ext) > maxExtLen+1 {
		return ""
	}
	for _, r := range ext[1:] {
		if !((r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')) {
			return ""
		}
	}
	return ext
}
