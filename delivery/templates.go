package delivery

import (
	"embed"
	"html/template"
	"sync"
)

//go:embed templates/*.html
var templateFS embed.FS

var (
	registerTemplate *template.Template
	loginTemplate    *template.Template
	homeTemplate     *template.Template
	errorTemplate    *template.Template

	parseOnce sync.Once
	parseErr  error
)

// ParseAllTemplates pre-parses all HTML templates at startup. Later calls return the
// first call's result.
func ParseAllTemplates() error {
	parseOnce.Do(func() {
		parse := func(page string) *template.Template {
			if parseErr != nil {
				return nil
			}
			var t *template.Template
			t, parseErr = template.ParseFS(templateFS, "templates/partials.html", "templates/"+page)
			return t
		}
		registerTemplate = parse("register.html")
		loginTemplate = parse("login.html")
		homeTemplate = parse("home.html")
		errorTemplate = parse("error.html")
	})
	return parseErr
}
