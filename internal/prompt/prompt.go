// Package prompt assembles the generation prompt for a single company.
package prompt

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"strings"
	"text/template"

	"github.com/rotisserie/eris"

	"github.com/sells-group/outreach-cli/internal/config"
	"github.com/sells-group/outreach-cli/internal/model"
)

//go:embed prompt.tmpl
var defaultTemplate string

// DefaultSender is the company the emails are written for.
const DefaultSender = "Cad & Cart"

// Input holds everything that varies per row.
type Input struct {
	Profile     string
	WebsiteText string
	Examples    []model.Example
	Company     string
	Industry    string
}

// templateData holds the variables available in the prompt template.
type templateData struct {
	Sender           string
	Profile          string
	Company          string
	WebsiteText      string
	Examples         string
	ClientReferences string
}

// Assembler renders prompts from a parsed template. It is safe for
// concurrent use.
type Assembler struct {
	tmpl       *template.Template
	sender     string
	industries []config.IndustryReference
}

// NewAssembler parses the embedded template, or the file at
// cfg.TemplatePath when set.
func NewAssembler(cfg config.PromptConfig) (*Assembler, error) {
	src := defaultTemplate
	if cfg.TemplatePath != "" {
		b, err := os.ReadFile(cfg.TemplatePath)
		if err != nil {
			return nil, eris.Wrapf(err, "prompt: read template %s", cfg.TemplatePath)
		}
		src = string(b)
	}

	tmpl, err := template.New("prompt").Option("missingkey=error").Parse(src)
	if err != nil {
		return nil, eris.Wrap(err, "prompt: parse template")
	}

	sender := cfg.Sender
	if sender == "" {
		sender = DefaultSender
	}
	industries := cfg.Industries
	if len(industries) == 0 {
		industries = DefaultIndustries
	}

	return &Assembler{tmpl: tmpl, sender: sender, industries: industries}, nil
}

// Build renders the prompt for one company.
func (a *Assembler) Build(in Input) (string, error) {
	if strings.TrimSpace(in.WebsiteText) == "" {
		return "", eris.New("prompt: website text is empty")
	}

	data := templateData{
		Sender:           a.sender,
		Profile:          in.Profile,
		Company:          in.Company,
		WebsiteText:      in.WebsiteText,
		Examples:         FormatExamples(in.Examples),
		ClientReferences: ClientReferences(a.industries, in.Industry),
	}

	var buf bytes.Buffer
	if err := a.tmpl.Execute(&buf, data); err != nil {
		return "", eris.Wrap(err, "prompt: render")
	}
	return buf.String(), nil
}

// FormatExamples renders the few-shot block, numbering examples from 1.
func FormatExamples(examples []model.Example) string {
	var b strings.Builder
	for i, ex := range examples {
		fmt.Fprintf(&b, "--- EXAMPLE %d (%s) ---\n%s\n\n", i+1, ex.Industry, ex.EmailBody)
	}
	return b.String()
}
