package compiler

import (
	"fmt"

	"github.com/aretw0/arbor/internal/validator"
	"github.com/aretw0/arbor/pkg/dsl"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Document is the file form of a tree description. A file holds either a
// document with a "trees" list or a single root node.
type Document struct {
	Trees []dsl.Node `mapstructure:"trees"`
}

// Parser is responsible for converting raw bytes into trees.
type Parser struct{}

// NewParser creates a new parser instance.
func NewParser() *Parser {
	return &Parser{}
}

// Parse decodes a YAML (or JSON) tree description and validates it. Unknown keys
// are rejected.
func (p *Parser) Parse(data []byte) ([]dsl.Node, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse tree: %w", err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("tree document is empty")
	}

	var doc Document
	if _, ok := raw["trees"]; ok {
		if err := decode(raw, &doc); err != nil {
			return nil, err
		}
	} else {
		var root dsl.Node
		if err := decode(raw, &root); err != nil {
			return nil, err
		}
		doc.Trees = []dsl.Node{root}
	}

	if err := validator.ValidateTree(doc.Trees...); err != nil {
		return nil, err
	}
	return doc.Trees, nil
}

func decode(raw map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		ErrorUnused: true,
		Result:      out,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(raw); err != nil {
		return fmt.Errorf("failed to decode tree: %w", err)
	}
	return nil
}
