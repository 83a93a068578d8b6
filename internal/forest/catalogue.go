// Package forest builds merger tree forests from subhalo catalogues.
package forest

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/galevo/internal/dynamo"
)

// SubhaloRecord is one subhalo of a catalogue. Descendant is -1 for
// subhalos without descendant. A nil LastSnapshot is derived from the
// main progenitor chain.
type SubhaloRecord struct {
	ID             int64   `yaml:"id"`
	Host           int64   `yaml:"host"`
	Snapshot       int     `yaml:"snapshot"`
	Descendant     int64   `yaml:"descendant"`
	Type           string  `yaml:"type"`
	MainProgenitor bool    `yaml:"main_progenitor,omitempty"`
	LastSnapshot   *int    `yaml:"last_snapshot,omitempty"`
	Mvir           float64 `yaml:"mvir"`
	Vvir           float64 `yaml:"vvir"`
	Vcirc          float64 `yaml:"vcirc,omitempty"`
	Concentration  float64 `yaml:"concentration,omitempty"`
	Lambda         float64 `yaml:"lambda,omitempty"`
	AccretedMass   float64 `yaml:"accreted_mass,omitempty"`
}

type Catalogue struct {
	Redshifts map[int]float64  `yaml:"redshifts"`
	Subhalos  []*SubhaloRecord `yaml:"subhalos"`
}

func Load(path string) (*Catalogue, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalogue: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Catalogue, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var cat Catalogue
	if err := dec.Decode(&cat); err != nil {
		return nil, fmt.Errorf("%w: parse catalogue: %v", dynamo.ErrConfig, err)
	}
	return &cat, nil
}

func (c *Catalogue) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal catalogue: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}
