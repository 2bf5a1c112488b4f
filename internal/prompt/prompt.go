// Package prompt assembles generator prompts from retrieved passages and
// the user's question.
package prompt

import (
	"fmt"
	"strings"
	"text/template"

	"wikirag/internal/domain"
)

// DefaultTemplate instructs the model to answer strictly from the
// retrieved context.
const DefaultTemplate = `Answer the question based on the provided context.
Context:
{{- range .Documents}}
{{.Content}}
{{- end}}
Question: {{.Question}}
`

// Builder renders prompts from a template.
type Builder struct {
	tmpl *template.Template
}

type promptData struct {
	Documents []domain.Document
	Question  string
}

// NewBuilder parses the given template, or DefaultTemplate if empty. The
// template sees .Documents and .Question.
func NewBuilder(tmplText string) (*Builder, error) {
	if strings.TrimSpace(tmplText) == "" {
		tmplText = DefaultTemplate
	}
	tmpl, err := template.New("prompt").Parse(tmplText)
	if err != nil {
		return nil, fmt.Errorf("parse prompt template: %w", err)
	}
	return &Builder{tmpl: tmpl}, nil
}

// Render produces the prompt for the question over the retrieved
// documents, in retrieval order.
func (b *Builder) Render(docs []domain.Document, question string) (string, error) {
	var sb strings.Builder
	if err := b.tmpl.Execute(&sb, promptData{Documents: docs, Question: question}); err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}
	return sb.String(), nil
}
