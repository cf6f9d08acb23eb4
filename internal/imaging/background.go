package imaging

import (
	"image"
	"regexp"
	"strconv"
	"strings"
)

var cssURLPattern = regexp.MustCompile(`url\(\s*['"]?(.*?)['"]?\s*\)`)

// ParseBackgroundImage extracts the first image URL from a computed CSS
// background-image value such as `url("sprites/a.png")`.
//
// It reports false for "none", an empty value, or a value without a url()
// term (gradients, for example), which callers treat as "no background image".
func ParseBackgroundImage(value string) (string, bool) {
	value = strings.TrimSpace(value)
	if value == "" || value == "none" {
		return "", false
	}

	m := cssURLPattern.FindStringSubmatch(value)
	if m == nil || m[1] == "" {
		return "", false
	}
	return m[1], true
}

// ParseBackgroundPosition converts a computed background-position value such
// as "10px -4px" into a pixel offset.
//
// Each component is read with leading-integer semantics: "12.7px" is 12,
// "50%" is 50 and keywords such as "left" are 0. A missing second component
// is also 0.
func ParseBackgroundPosition(value string) image.Point {
	fields := strings.Fields(value)

	var p image.Point
	if len(fields) > 0 {
		p.X = leadingInt(fields[0])
	}
	if len(fields) > 1 {
		p.Y = leadingInt(fields[1])
	}
	return p
}

func leadingInt(s string) int {
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0
	}
	return n
}
