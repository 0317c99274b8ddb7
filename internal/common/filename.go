package common

import "strings"

const fallbackFilename = "image"

// BaseFilename strips any directory component from a client supplied filename.
// Both '/' and '\' are treated as separators; quotes and line breaks are dropped
// so the result is safe inside a quoted header parameter.
func BaseFilename(name string) string {
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	name = strings.Map(func(r rune) rune {
		switch r {
		case '"', '\r', '\n':
			return -1
		}
		return r
	}, name)
	name = strings.TrimSpace(name)
	if name == "" || name == "." || name == ".." {
		return fallbackFilename
	}
	return name
}
