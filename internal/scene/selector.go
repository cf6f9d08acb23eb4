package scene

import (
	"fmt"
	"strings"
)

// selector is a comma-separated list of compound selectors. Each compound is
// an optional tag (or "*") followed by any number of #id and .class terms.
// Combinators are not supported.
type selector []compound

type compound struct {
	tag     string
	id      string
	classes []string
}

func parseSelector(s string) (selector, error) {
	var sel selector
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			return nil, fmt.Errorf("empty selector in %q", s)
		}
		if strings.ContainsAny(part, " \t>+~[]:") {
			return nil, fmt.Errorf("unsupported selector %q: only tag, #id and .class terms", part)
		}

		c, err := parseCompound(part)
		if err != nil {
			return nil, err
		}
		sel = append(sel, c)
	}
	return sel, nil
}

func parseCompound(s string) (compound, error) {
	var c compound

	i := strings.IndexAny(s, "#.")
	if i < 0 {
		i = len(s)
	}
	if tag := s[:i]; tag != "*" {
		c.tag = strings.ToLower(tag)
	}

	for i < len(s) {
		kind := s[i]
		j := strings.IndexAny(s[i+1:], "#.")
		if j < 0 {
			j = len(s)
		} else {
			j += i + 1
		}
		name := s[i+1 : j]
		if name == "" {
			return compound{}, fmt.Errorf("empty %q term in selector %q", kind, s)
		}
		if kind == '#' {
			c.id = name
		} else {
			c.classes = append(c.classes, name)
		}
		i = j
	}
	return c, nil
}

func (sel selector) matches(e *element) bool {
	for _, c := range sel {
		if c.matches(e) {
			return true
		}
	}
	return false
}

func (c compound) matches(e *element) bool {
	if c.tag != "" && c.tag != e.tag {
		return false
	}
	if c.id != "" && c.id != string(e.id) {
		return false
	}
	for _, class := range c.classes {
		if !e.hasClass(class) {
			return false
		}
	}
	return true
}
