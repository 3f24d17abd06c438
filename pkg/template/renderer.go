// Package template renders reply bodies from files on disk. Template
// references in rule files are paths relative to the templates directory,
// with placeholders like {{.sender_name}}, {{.sender_email}} and
// {{.subject}}.
package template

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"
)

type FileRenderer struct {
	dir string
}

func NewFileRenderer(dir string) *FileRenderer {
	return &FileRenderer{dir: dir}
}

// Render loads the referenced template file and executes it with the given
// context map.
func (r *FileRenderer) Render(ref string, context map[string]string) (string, error) {
	path := filepath.Join(r.dir, ref)
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read template %s: %w", ref, err)
	}
	tpl, err := template.New(filepath.Base(ref)).Option("missingkey=zero").Parse(string(data))
	if err != nil {
		return "", fmt.Errorf("failed to parse template %s: %w", ref, err)
	}
	var sb strings.Builder
	if err := tpl.Execute(&sb, context); err != nil {
		return "", fmt.Errorf("failed to render template %s: %w", ref, err)
	}
	return sb.String(), nil
}
