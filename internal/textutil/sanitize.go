package textutil

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	storedNameInvalid  = regexp.MustCompile(`[^a-z0-9.-]`)
	storedNameLeading  = regexp.MustCompile(`^[^a-z0-9]+`)
	storedNameTrailing = regexp.MustCompile(`[^a-z0-9]+$`)
)

// fileNameReplacer replaces filesystem-unsafe characters with safe alternatives.
var fileNameReplacer = strings.NewReplacer(
	"/", "-",
	"\\", "-",
	":", "-",
	"*", "-",
	"?", "",
	"\"", "",
	"<", "",
	">", "",
	"|", "",
)

// SanitizeFileName replaces filesystem-unsafe characters in a filename.
// Slashes, backslashes, colons, and asterisks become dashes; other unsafe
// characters are removed. The result is trimmed of leading/trailing whitespace.
func SanitizeFileName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	return strings.TrimSpace(fileNameReplacer.Replace(name))
}

// SplitExt splits name into base and extension. A dot that only starts the
// name does not begin an extension, so ".hidden" has none.
func SplitExt(name string) (string, string) {
	idx := strings.LastIndexByte(name, '.')
	if idx <= 0 {
		return name, ""
	}
	if strings.TrimLeft(name[:idx], ".") == "" {
		return name, ""
	}
	return name[:idx], name[idx:]
}

// StoredName returns the name the backend stores an upload under: the base is
// lowercased, characters outside [a-z0-9.-] become dashes, and leading or
// trailing non-alphanumerics are stripped. The extension is kept verbatim.
func StoredName(filename string) string {
	base, ext := SplitExt(filename)
	sanitized := storedNameInvalid.ReplaceAllString(strings.ToLower(base), "-")
	sanitized = storedNameLeading.ReplaceAllString(sanitized, "")
	sanitized = storedNameTrailing.ReplaceAllString(sanitized, "")
	return sanitized + ext
}

// UniqueStoredName applies StoredName and then appends -1, -2, ... to the base
// until taken reports the candidate free.
func UniqueStoredName(filename string, taken func(string) bool) string {
	candidate := StoredName(filename)
	if taken == nil {
		return candidate
	}
	base, ext := SplitExt(candidate)
	for counter := 1; taken(candidate); counter++ {
		candidate = base + "-" + strconv.Itoa(counter) + ext
	}
	return candidate
}
