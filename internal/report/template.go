package report

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/template"

	"go.uber.org/zap"
)

const fallbackTemplateName = "session-report.md.go.tmpl"

//go:embed templates/session-report.md.go.tmpl
var fallbackTemplate string

var funcMap = template.FuncMap{
	"join": func(items []int, sep string) string {
		parts := make([]string, len(items))
		for i, item := range items {
			parts[i] = "Q" + strconv.Itoa(item)
		}
		return strings.Join(parts, sep)
	},
}

// ParseTemplate parses the template at templatePath, falling back to the
// embedded one when the path is empty, missing or does not parse.
func ParseTemplate(templatePath string, logger *zap.Logger) (*template.Template, error) {
	if templatePath != "" {
		if _, err := os.Stat(templatePath); err == nil {
			tmpl, err := template.New(filepath.Base(templatePath)).
				Funcs(funcMap).
				ParseFiles(templatePath)
			if err == nil {
				return tmpl, nil
			}
			logger.Warn("failed to parse report template, using the embedded one",
				zap.String("templatePath", templatePath),
				zap.Error(err))
		}
	}

	tmpl, err := template.New(fallbackTemplateName).
		Funcs(funcMap).
		Parse(fallbackTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse embedded template: %w", err)
	}
	return tmpl, nil
}
