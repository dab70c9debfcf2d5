package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"sgxfeed/internal/model"
)

// DatePlaceholder is replaced by the shifted business date in NamingRule patterns.
const DatePlaceholder = "{date}"

var ErrInvalidSpec = errors.New("invalid file spec")

// specsFile is the on-disk shape of a FileSpec catalogue (YAML or TOML).
type specsFile struct {
	Files []model.FileSpec `yaml:"files" toml:"files"`
}

// DefaultSpecs returns the four files published daily by the SGX derivatives feed.
func DefaultSpecs() []model.FileSpec {
	return []model.FileSpec{
		{
			Name:     "WEBPXTICK_DT",
			Category: model.CategoryRaw,
			Kind:     model.KindArchive,
			Remote:   model.NamingRule{Pattern: "WEBPXTICK_DT-{date}.zip", DateFormat: "20060102", BusinessDayOffset: 1},
		},
		{
			Name:     "TickData_structure",
			Category: model.CategoryReference,
			Kind:     model.KindFlat,
			Remote:   model.NamingRule{Pattern: "TickData_structure.dat"},
		},
		{
			Name:     "TC",
			Category: model.CategoryRaw,
			Kind:     model.KindFlat,
			Remote:   model.NamingRule{Pattern: "TC_{date}.txt", DateFormat: "20060102", BusinessDayOffset: 1},
		},
		{
			Name:     "TC_structure",
			Category: model.CategoryReference,
			Kind:     model.KindFlat,
			Remote:   model.NamingRule{Pattern: "TC_structure.dat"},
		},
	}
}

// LoadSpecs reads a FileSpec catalogue. An empty path returns DefaultSpecs.
// The format is chosen by extension: .yaml/.yml or .toml.
func LoadSpecs(path string) ([]model.FileSpec, error) {
	if path == "" {
		return DefaultSpecs(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading specs: %w", err)
	}

	var doc specsFile
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &doc)
	case ".toml":
		err = toml.Unmarshal(data, &doc)
	default:
		return nil, fmt.Errorf("reading specs: unsupported format %q", filepath.Ext(path))
	}
	if err != nil {
		return nil, fmt.Errorf("parsing specs: %w", err)
	}

	if err := ValidateSpecs(doc.Files); err != nil {
		return nil, err
	}
	return doc.Files, nil
}

// ValidateSpecs checks that names are unique and every rule is resolvable.
func ValidateSpecs(specs []model.FileSpec) error {
	if len(specs) == 0 {
		return fmt.Errorf("%w: no files configured", ErrInvalidSpec)
	}
	seen := make(map[string]struct{}, len(specs))
	for i, s := range specs {
		if s.Name == "" {
			return fmt.Errorf("%w: files[%d] has no name", ErrInvalidSpec, i)
		}
		if strings.ContainsAny(s.Name, "/\\") {
			return fmt.Errorf("%w: %s: name must not contain path separators", ErrInvalidSpec, s.Name)
		}
		if _, dup := seen[s.Name]; dup {
			return fmt.Errorf("%w: duplicate name %s", ErrInvalidSpec, s.Name)
		}
		seen[s.Name] = struct{}{}

		switch s.Category {
		case model.CategoryRaw, model.CategoryReference:
		default:
			return fmt.Errorf("%w: %s: unknown category %q", ErrInvalidSpec, s.Name, s.Category)
		}
		switch s.Kind {
		case model.KindArchive, model.KindFlat:
		default:
			return fmt.Errorf("%w: %s: unknown kind %q", ErrInvalidSpec, s.Name, s.Kind)
		}

		if s.Remote.Pattern == "" {
			return fmt.Errorf("%w: %s: remote pattern is required", ErrInvalidSpec, s.Name)
		}
		if strings.Contains(s.Remote.Pattern, DatePlaceholder) && s.Remote.DateFormat == "" {
			return fmt.Errorf("%w: %s: pattern uses %s but date_format is empty", ErrInvalidSpec, s.Name, DatePlaceholder)
		}
	}
	return nil
}
