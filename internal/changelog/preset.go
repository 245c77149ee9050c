package changelog

import (
	"bytes"
	"embed"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// PresetConventionalCommits is the only built-in preset.
const PresetConventionalCommits = "conventional-commits"

//go:embed presets/*.yaml
var presetFS embed.FS

// ValidationError represents a changelog configuration error with context.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

// Preset bundles a line format with categories and labelers.
type Preset struct {
	Name       string     `yaml:"name"`
	Format     string     `yaml:"format"`
	Categories []Category `yaml:"categories"`
	Labelers   []Labeler  `yaml:"labelers"`
}

// LoadPreset returns the embedded preset with the given name.
func LoadPreset(name string) (*Preset, error) {
	data, err := presetFS.ReadFile("presets/" + name + ".yaml")
	if err != nil {
		return nil, &ValidationError{Field: "preset", Message: fmt.Sprintf("unknown preset %q", name)}
	}
	return LoadPresetFromReader(bytes.NewReader(data))
}

// LoadPresetFromReader reads and validates a preset document.
func LoadPresetFromReader(r io.Reader) (*Preset, error) {
	var p Preset

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("parsing preset YAML: %w", err)
	}

	if err := ValidatePreset(&p); err != nil {
		return nil, err
	}
	return &p, nil
}

// ValidatePreset checks that category keys are unique and every labeler has
// a label and at least one matcher.
func ValidatePreset(p *Preset) error {
	if p.Name == "" {
		return &ValidationError{Field: "name", Message: "required field is empty"}
	}
	if err := validateCategories(p.Categories); err != nil {
		return err
	}
	for i, l := range p.Labelers {
		if l.Title == "" && l.Body == "" && l.Contributor == "" {
			return &ValidationError{
				Field:   fmt.Sprintf("labelers[%d]", i),
				Message: "at least one of title, body or contributor is required",
			}
		}
	}
	_, err := compileLabelers(p.Labelers)
	return err
}

func validateCategories(cats []Category) error {
	seen := make(map[string]bool, len(cats))
	for i, c := range cats {
		if c.Key == "" {
			return &ValidationError{Field: fmt.Sprintf("categories[%d].key", i), Message: "required field is empty"}
		}
		if c.Key == UncategorizedKey {
			return &ValidationError{Field: fmt.Sprintf("categories[%d].key", i), Message: fmt.Sprintf("%q is reserved", c.Key)}
		}
		if seen[c.Key] {
			return &ValidationError{Field: fmt.Sprintf("categories[%d].key", i), Message: fmt.Sprintf("duplicate category %q", c.Key)}
		}
		seen[c.Key] = true
	}
	return nil
}

// Apply merges the preset into opts. Preset categories and labelers come
// first; a user category with the same key replaces the preset's in place.
// The preset format is used only when opts has none.
func (p *Preset) Apply(opts Options) Options {
	byKey := make(map[string]int, len(p.Categories))
	cats := make([]Category, len(p.Categories))
	copy(cats, p.Categories)
	for i, c := range cats {
		byKey[c.Key] = i
	}
	for _, c := range opts.Categories {
		if i, ok := byKey[c.Key]; ok {
			cats[i] = c
			continue
		}
		cats = append(cats, c)
	}
	opts.Categories = cats

	labelers := make([]Labeler, 0, len(p.Labelers)+len(opts.Labelers))
	labelers = append(labelers, p.Labelers...)
	opts.Labelers = append(labelers, opts.Labelers...)

	if opts.Format == "" {
		opts.Format = p.Format
	}
	return opts
}
