// internal/app/system/normalize/normalize.go
package normalize

import (
	"regexp"
	"strings"
	"unicode"
)

var courseCodeRE = regexp.MustCompile(`^[A-Z0-9-]{2,20}$`)

// Email trims and lowercases an email address.
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Name trims a display name. Case is preserved.
func Name(s string) string {
	return strings.TrimSpace(s)
}

// Status trims and lowercases a status value.
func Status(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Role trims and lowercases a role value.
func Role(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// QueryParam trims a query-string value.
func QueryParam(s string) string {
	return strings.TrimSpace(s)
}

// CourseCode trims and upper-cases a course code.
func CourseCode(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// ValidCourseCode reports whether an already-normalized code is well formed.
func ValidCourseCode(code string) bool {
	return courseCodeRE.MatchString(code)
}

// CourseType title-cases each word: "core robotics" -> "Core Robotics".
func CourseType(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r := []rune(strings.ToLower(w))
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}
