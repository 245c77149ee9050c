package changelog

import (
	"fmt"
	"regexp"

	"github.com/ariel-frischer/relsync/internal/template"
)

// applyReplacers runs every replacer over text in declaration order. Search
// and Replace are resolved against props before the search is compiled.
func applyReplacers(engine *template.Engine, replacers []Replacer, text string, props template.Props) (string, error) {
	for i, r := range replacers {
		search, err := engine.Render(r.Search, props)
		if err != nil {
			return "", fmt.Errorf("replacers[%d].search: %w", i, err)
		}
		replace, err := engine.Render(r.Replace, props)
		if err != nil {
			return "", fmt.Errorf("replacers[%d].replace: %w", i, err)
		}
		re, err := regexp.Compile(search)
		if err != nil {
			return "", &ValidationError{Field: fmt.Sprintf("replacers[%d].search", i), Message: err.Error()}
		}
		text = re.ReplaceAllString(text, replace)
	}
	return text, nil
}
