package catalog

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/solatis/rulebuilder/internal/types"
)

/*
 * Catalog documents.
 *
 * A document declares named operator sets and choice-lists once and lets fields
 * reference them by name, the way host pages share one operator list between
 * every numeric field. Fields may also inline their operators and choices.
 * Resolve turns a document into a Catalog with plain per-field lists; references
 * are ordinary map lookups, nothing is read from ambient state.
 *
 * YAML is a superset of JSON, so the same parser accepts both formats.
 */

// Document is the on-disk and in-database shape of a catalog.
type Document struct {
	OperatorSets map[string][]types.OperatorDef `yaml:"operatorSets" json:"operatorSets"`
	ChoiceLists  map[string][]types.Choice      `yaml:"choiceLists" json:"choiceLists"`
	Fields       []FieldSpec                    `yaml:"fields" json:"fields"`
}

// FieldSpec is one field of a Document.
// OperatorSet and ChoiceList name shared lists; Operators and Choices are inline
// and are appended after the referenced lists.
type FieldSpec struct {
	Name        string              `yaml:"name" json:"name"`
	Label       string              `yaml:"label" json:"label"`
	OperatorSet string              `yaml:"operatorSet,omitempty" json:"operatorSet,omitempty"`
	Operators   []types.OperatorDef `yaml:"operators,omitempty" json:"operators,omitempty"`
	ChoiceList  string              `yaml:"choiceList,omitempty" json:"choiceList,omitempty"`
	Choices     []types.Choice      `yaml:"choices,omitempty" json:"choices,omitempty"`
}

// Parse decodes a YAML or JSON catalog document.
func Parse(data []byte) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrInvalidCatalog, err)
	}
	return &doc, nil
}

// ReadFile reads the catalog document at path without resolving it.
func ReadFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	return Parse(data)
}

// LoadFile reads and resolves the catalog document at path.
func LoadFile(path string) (*Catalog, error) {
	doc, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	return doc.Resolve()
}

// Resolve validates the document and builds a Catalog.
// Unknown set or list references, unnamed fields and unknown field types are errors.
func (d *Document) Resolve() (*Catalog, error) {
	fields := make([]types.Field, 0, len(d.Fields))
	for i, fd := range d.Fields {
		if fd.Name == "" {
			return nil, fmt.Errorf("%w: field %d has no name", types.ErrInvalidCatalog, i)
		}

		var ops []types.OperatorDef
		if fd.OperatorSet != "" {
			set, ok := d.OperatorSets[fd.OperatorSet]
			if !ok {
				return nil, fmt.Errorf("%w: field %q references unknown operator set %q",
					types.ErrInvalidCatalog, fd.Name, fd.OperatorSet)
			}
			ops = append(ops, set...)
		}
		ops = append(ops, fd.Operators...)

		for j := range ops {
			ft, ok := types.ParseFieldType(string(ops[j].FieldType))
			if !ok {
				return nil, fmt.Errorf("%w: field %q operator %q has unknown field type %q",
					types.ErrInvalidCatalog, fd.Name, ops[j].Name, ops[j].FieldType)
			}
			ops[j].FieldType = ft
		}

		var choices []types.Choice
		if fd.ChoiceList != "" {
			list, ok := d.ChoiceLists[fd.ChoiceList]
			if !ok {
				return nil, fmt.Errorf("%w: field %q references unknown choice list %q",
					types.ErrInvalidCatalog, fd.Name, fd.ChoiceList)
			}
			choices = append(choices, list...)
		}
		choices = append(choices, fd.Choices...)

		fields = append(fields, types.Field{
			Name:      fd.Name,
			Label:     fd.Label,
			Operators: ops,
			Choices:   choices,
		})
	}
	return New(fields), nil
}

// Normalize moves inline operator and choice lists into named entries so that
// every field references its lists by name. Generated names are prefixed with
// "field:" and the field name. Normalize is idempotent.
func (d *Document) Normalize() {
	if d.OperatorSets == nil {
		d.OperatorSets = map[string][]types.OperatorDef{}
	}
	if d.ChoiceLists == nil {
		d.ChoiceLists = map[string][]types.Choice{}
	}
	for i := range d.Fields {
		fd := &d.Fields[i]
		if len(fd.Operators) > 0 {
			name := "field:" + fd.Name
			var ops []types.OperatorDef
			if fd.OperatorSet != "" {
				ops = append(ops, d.OperatorSets[fd.OperatorSet]...)
			}
			d.OperatorSets[name] = append(ops, fd.Operators...)
			fd.OperatorSet, fd.Operators = name, nil
		}
		if len(fd.Choices) > 0 {
			name := "field:" + fd.Name
			var choices []types.Choice
			if fd.ChoiceList != "" {
				choices = append(choices, d.ChoiceLists[fd.ChoiceList]...)
			}
			d.ChoiceLists[name] = append(choices, fd.Choices...)
			fd.ChoiceList, fd.Choices = name, nil
		}
	}
}
