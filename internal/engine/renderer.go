package engine

import (
	"fmt"
	"regexp"

	"github.com/spec-kit/notification-engine/internal/domain"
)

var placeholderPattern = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_.]+)\s*\}\}`)

// Render substitutes {{path.to.value}} placeholders with values looked up by
// dotted path in bindings. Unresolved placeholders render as empty string and
// are returned as warnings; rendering itself never fails. Pure function, safe
// for concurrent use.
func Render(template string, bindings map[string]any) (string, []string) {
	var unresolved []string

	rendered := placeholderPattern.ReplaceAllStringFunc(template, func(match string) string {
		path := placeholderPattern.FindStringSubmatch(match)[1]
		value, ok := domain.LookupPath(bindings, path)
		if !ok {
			unresolved = append(unresolved, path)
			return ""
		}
		return stringifyBinding(value)
	})

	return rendered, unresolved
}

func stringifyBinding(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}
