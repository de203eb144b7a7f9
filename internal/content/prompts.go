package content

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"

	"duendefinder/internal/events"
)

//go:embed prompts.yaml
var defaultPrompts []byte

// ImageKind selects one of the image prompts.
type ImageKind string

const (
	ImageHero      ImageKind = "hero"
	ImageNightPlan ImageKind = "nightPlan"
)

type promptFile struct {
	System string               `yaml:"system"`
	User   string               `yaml:"user"`
	Images map[ImageKind]string `yaml:"images"`
}

// Prompts holds the parsed prompt pack.
type Prompts struct {
	system string
	user   *template.Template
	images map[ImageKind]*template.Template
}

type promptData struct {
	Event  *events.Event
	Source string
}

// DefaultPrompts parses the embedded prompt pack.
func DefaultPrompts() (*Prompts, error) {
	return ParsePrompts(defaultPrompts)
}

// LoadPrompts reads a prompt pack from path, or the embedded pack when path
// is empty.
func LoadPrompts(path string) (*Prompts, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultPrompts()
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read prompts: %w", err)
	}
	return ParsePrompts(raw)
}

// ParsePrompts parses a YAML prompt pack.
func ParsePrompts(raw []byte) (*Prompts, error) {
	var file promptFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse prompts: %w", err)
	}
	if strings.TrimSpace(file.System) == "" {
		return nil, errors.New("parse prompts: system prompt is empty")
	}
	if strings.TrimSpace(file.User) == "" {
		return nil, errors.New("parse prompts: user template is empty")
	}
	user, err := template.New("user").Option("missingkey=error").Parse(file.User)
	if err != nil {
		return nil, fmt.Errorf("parse user template: %w", err)
	}
	p := &Prompts{
		system: strings.TrimSpace(file.System),
		user:   user,
		images: make(map[ImageKind]*template.Template, len(file.Images)),
	}
	for _, kind := range []ImageKind{ImageHero, ImageNightPlan} {
		text, ok := file.Images[kind]
		if !ok || strings.TrimSpace(text) == "" {
			return nil, fmt.Errorf("parse prompts: images.%s is empty", kind)
		}
		tmpl, err := template.New(string(kind)).Parse(text)
		if err != nil {
			return nil, fmt.Errorf("parse images.%s template: %w", kind, err)
		}
		p.images[kind] = tmpl
	}
	return p, nil
}

// System returns the system prompt.
func (p *Prompts) System() string { return p.system }

// User renders the user prompt for an event and optional source context.
func (p *Prompts) User(e *events.Event, source string) (string, error) {
	return render(p.user, promptData{Event: e, Source: strings.TrimSpace(source)})
}

// Image renders an image prompt.
func (p *Prompts) Image(kind ImageKind, e *events.Event) (string, error) {
	tmpl, ok := p.images[kind]
	if !ok {
		return "", fmt.Errorf("unknown image prompt %q", kind)
	}
	return render(tmpl, promptData{Event: e})
}

func render(tmpl *template.Template, data promptData) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s prompt: %w", tmpl.Name(), err)
	}
	return strings.TrimSpace(buf.String()), nil
}
