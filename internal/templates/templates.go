// Package templates provides the fixed project track layouts.
package templates

import (
	_ "embed"
	"errors"
	"fmt"

	"github.com/samber/lo"
	"gopkg.in/yaml.v3"

	"github.com/munzgen/munzgen-agent/internal/project"
)

var ErrNotFound = errors.New("template not found")

//go:embed templates.yaml
var catalogYAML []byte

type Template struct {
	ID          string          `json:"id" yaml:"id"`
	Name        string          `json:"name" yaml:"name"`
	Description string          `json:"description" yaml:"description"`
	Tracks      []project.Track `json:"tracks" yaml:"tracks"`
}

type Catalog struct {
	templates []Template
}

// Load parses the embedded catalog.
func Load() (*Catalog, error) {
	return Parse(catalogYAML)
}

func Parse(data []byte) (*Catalog, error) {
	var ts []Template
	if err := yaml.Unmarshal(data, &ts); err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	for i, t := range ts {
		if t.ID == "" || len(t.Tracks) == 0 {
			return nil, fmt.Errorf("template %d: id and tracks are required", i)
		}
	}
	return &Catalog{templates: ts}, nil
}

// List returns copies of every template in catalog order.
func (c *Catalog) List() []Template {
	return lo.Map(c.templates, func(t Template, _ int) Template { return t.copy() })
}

// Get returns a copy of template id whose tracks are free to mutate.
func (c *Catalog) Get(id string) (Template, error) {
	t, ok := lo.Find(c.templates, func(t Template) bool { return t.ID == id })
	if !ok {
		return Template{}, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	return t.copy(), nil
}

func (t Template) copy() Template {
	c := t
	c.Tracks = lo.Map(t.Tracks, func(tr project.Track, _ int) project.Track {
		tr.Clips = []project.Clip{}
		return tr
	})
	return c
}
