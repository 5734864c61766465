package joins

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/go-errors/errors"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// ModelDefinition names a collection reachable by joins.
type ModelDefinition struct {
	Name       string `json:"name" yaml:"name" validate:"required"`
	Collection string `json:"collection" yaml:"collection" validate:"required"`
	SoftDelete bool   `json:"softDelete" yaml:"softDelete"`
}

// Definition declares a join without code. Predicate joins cannot be
// declared this way.
type Definition struct {
	Model    string `json:"model" yaml:"model" validate:"required"`
	Path     string `json:"path" yaml:"path" validate:"required"`
	Type     string `json:"type" yaml:"type" validate:"required"`
	Target   string `json:"target" yaml:"target"`
	Multiple bool   `json:"multiple" yaml:"multiple"`
	Nullable *bool  `json:"nullable" yaml:"nullable"`
	Mapping  any    `json:"mapping" yaml:"mapping" validate:"required"`
}

// DefinitionFile is the content of a join definitions file.
type DefinitionFile struct {
	Models []ModelDefinition `json:"models" yaml:"models" validate:"dive"`
	Joins  []Definition      `json:"joins" yaml:"joins" validate:"dive"`
}

var validate = validator.New()

func ParseDefinitionsJSON(data []byte) (*DefinitionFile, error) {
	var file DefinitionFile
	if err := sonic.Unmarshal(data, &file); err != nil {
		return nil, errors.WrapPrefix(err, "invalid join definitions", 0)
	}
	return &file, file.Validate()
}

func ParseDefinitionsYAML(data []byte) (*DefinitionFile, error) {
	var file DefinitionFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, errors.WrapPrefix(err, "invalid join definitions", 0)
	}
	return &file, file.Validate()
}

// LoadDefinitions reads a definitions file. Files ending in .json are read
// as JSON, anything else as YAML.
func LoadDefinitions(path string) (*DefinitionFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, 0)
	}

	if strings.EqualFold(filepath.Ext(path), ".json") {
		return ParseDefinitionsJSON(data)
	}
	return ParseDefinitionsYAML(data)
}

// Validate checks required fields, and that joins only reference listed
// models when any are listed.
func (f *DefinitionFile) Validate() error {
	if err := validate.Struct(f); err != nil {
		return errors.WrapPrefix(err, "invalid join definitions", 0)
	}

	if len(f.Models) == 0 {
		return nil
	}

	known := make(map[string]bool, len(f.Models))
	for _, model := range f.Models {
		if known[model.Name] {
			return errors.Errorf("model %s defined twice", model.Name)
		}
		known[model.Name] = true
	}

	for _, join := range f.Joins {
		if !known[join.Model] {
			return errors.Errorf("join %s.%s: unknown model %s", join.Model, join.Path, join.Model)
		}
		if join.Target != "" && !known[join.Target] {
			return errors.Errorf("join %s.%s: unknown target %s", join.Model, join.Path, join.Target)
		}
	}

	return nil
}

// Apply declares the joins of file on the catalog, creating schemas for its
// models. It stops at the first join that fails to declare.
func (c *Catalog) Apply(file *DefinitionFile) error {
	for _, model := range file.Models {
		c.Schema(model.Name, model.Collection)
	}

	for _, definition := range file.Joins {
		schema := c.Schema(definition.Model, "")

		_, err := schema.Declare(definition.Path, definition.Type, definition.Target, Options{
			Multiple: definition.Multiple,
			Nullable: definition.Nullable,
			Mapping:  definition.Mapping,
		})
		if err != nil {
			return errors.WrapPrefix(err, definition.Model, 0)
		}
	}

	return nil
}
