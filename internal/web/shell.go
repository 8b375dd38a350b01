package web

import (
	"embed"
	"html/template"
	"strings"

	"avatarstudio/internal/avatar"
)

//go:embed templates/*.html
var templateFS embed.FS

var shellTemplate = template.Must(template.New("").Funcs(template.FuncMap{
	"title": func(s string) string {
		if s == "" {
			return s
		}
		return strings.ToUpper(s[:1]) + s[1:]
	},
	"list": func(v ...string) []string { return v },
	"int":  func(h avatar.HairStyle) int { return int(h) },
}).ParseFS(templateFS, "templates/*.html"))
