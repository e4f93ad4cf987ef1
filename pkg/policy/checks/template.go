package checks

import (
	"fmt"
	"regexp"
	"strings"
)

var templateVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// substituteTemplate replaces every ${a.b.c} placeholder in template with
// the dotted-path lookup against details; a path that cannot be resolved
// (missing key or a non-map intermediate) renders as the literal <a.b.c>.
func substituteTemplate(template string, details map[string]any) string {
	return templateVarPattern.ReplaceAllStringFunc(template, func(match string) string {
		path := templateVarPattern.FindStringSubmatch(match)[1]
		return stringify(lookupPath(path, details))
	})
}

func lookupPath(path string, details map[string]any) any {
	parts := strings.Split(path, ".")
	var current any = details
	for _, part := range parts {
		m, ok := current.(map[string]any)
		if !ok {
			return fmt.Sprintf("<%s>", path)
		}
		v, ok := m[part]
		if !ok {
			return fmt.Sprintf("<%s>", path)
		}
		current = v
	}
	return current
}

func stringify(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// generateViolationMessage returns the user's custom template rendered
// against details, or falls back to autoGenerate when no template is set.
func generateViolationMessage(customTemplate string, details map[string]any, autoGenerate func(map[string]any) string) string {
	if customTemplate != "" {
		return substituteTemplate(customTemplate, details)
	}
	return autoGenerate(details)
}
