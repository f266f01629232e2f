package services

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/custodia-labs/ray/internal/core/domain"
	"github.com/custodia-labs/ray/internal/core/ports/driven"
)

// renderPrompt loads a named prompt and executes it against data.
func renderPrompt(store driven.PromptStore, name string, data any) (string, error) {
	text, err := store.Load(name)
	if err != nil {
		return "", fmt.Errorf("load prompt %s: %w", name, err)
	}
	tmpl, err := template.New(name).Option("missingkey=zero").Parse(text)
	if err != nil {
		return "", fmt.Errorf("parse prompt %s: %w", name, err)
	}
	var b strings.Builder
	if err := tmpl.Execute(&b, data); err != nil {
		return "", fmt.Errorf("render prompt %s: %w", name, err)
	}
	return b.String(), nil
}

// formatHistory renders turns as "User: ..." / "Assistant: ..." lines.
func formatHistory(turns []domain.Turn) string {
	if len(turns) == 0 {
		return "(none)"
	}
	var b strings.Builder
	for i, t := range turns {
		if i > 0 {
			b.WriteByte('\n')
		}
		switch t.Role {
		case domain.RoleUser:
			b.WriteString("User: ")
		default:
			b.WriteString("Assistant: ")
		}
		b.WriteString(t.Text)
	}
	return b.String()
}
