package api

import (
	"embed"
	"fmt"
	"html/template"
	"time"

	"goodads/internal/service"
)

//go:embed templates/*.html
var templateFS embed.FS

func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"count": func(v any) string {
			switch n := v.(type) {
			case int:
				return service.FormatCount(int64(n))
			case int64:
				return service.FormatCount(n)
			default:
				return fmt.Sprint(v)
			}
		},
		"pct":       service.FormatPercent,
		"mask":      service.MaskKey,
		"date":      service.FormatDate,
		"datetime":  service.FormatDateTime,
		"seconds":   service.FormatSeconds,
		"humanize":  service.HumanizeEventName,
		"errmsg":    service.UserMessage,
		"formValue": service.FormatFormValue,
		"add":       func(a, b int) int { return a + b },
		"year":      func() int { return time.Now().Year() },
	}
}

// loadTemplates parses every page template; names are the file base names.
func loadTemplates() (*template.Template, error) {
	return template.New("").Funcs(templateFuncs()).ParseFS(templateFS, "templates/*.html")
}
