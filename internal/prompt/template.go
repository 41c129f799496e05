package prompt

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

var placeholder = regexp.MustCompile(`\{\{(\w+)\}\}`)

// Render fills {{name}} placeholders from vars. Every placeholder must have
// a value; values are inserted verbatim and never re-expanded.
func Render(tmpl string, vars map[string]string) (string, error) {
	if missing := missingVars(tmpl, vars); len(missing) > 0 {
		return "", fmt.Errorf("missing template variables: %s", strings.Join(missing, ", "))
	}

	return placeholder.ReplaceAllStringFunc(tmpl, func(match string) string {
		return vars[match[2:len(match)-2]]
	}), nil
}

// Variables lists the distinct placeholder names in tmpl, in first-use order.
func Variables(tmpl string) []string {
	seen := make(map[string]bool)
	var names []string
	for _, m := range placeholder.FindAllStringSubmatch(tmpl, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			names = append(names, m[1])
		}
	}
	return names
}

func missingVars(tmpl string, vars map[string]string) []string {
	var missing []string
	for _, name := range Variables(tmpl) {
		if _, ok := vars[name]; !ok {
			missing = append(missing, name)
		}
	}
	sort.Strings(missing)
	return missing
}
