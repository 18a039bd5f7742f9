// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package email

import (
	"embed"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var (
	htmlTemplates = htmltemplate.Must(htmltemplate.ParseFS(templateFS, "templates/*.html.tmpl"))
	textTemplates = texttemplate.Must(texttemplate.ParseFS(templateFS, "templates/*.txt.tmpl"))
)

type templateData struct {
	URL string
}

func renderPasswordReset(url string) (htmlBody, textBody string, err error) {
	return render("password_reset", url)
}

func renderMagicLink(url string) (htmlBody, textBody string, err error) {
	return render("magic_link", url)
}

func render(name, url string) (htmlBody, textBody string, err error) {
	data := templateData{URL: url}

	var html strings.Builder
	if err := htmlTemplates.ExecuteTemplate(&html, name+".html.tmpl", data); err != nil {
		return "", "", err
	}

	var text strings.Builder
	if err := textTemplates.ExecuteTemplate(&text, name+".txt.tmpl", data); err != nil {
		return "", "", err
	}

	return html.String(), text.String(), nil
}
