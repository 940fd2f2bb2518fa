package schema

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Document is the YAML form of a schema.
type Document struct {
	Types []TypeDecl `yaml:"types"`
}

// TypeDecl declares one record type.
type TypeDecl struct {
	Name       string       `yaml:"name"`
	Members    []MemberDecl `yaml:"members"`
	EncodeOnly bool         `yaml:"encode_only"`
	DecodeOnly bool         `yaml:"decode_only"`
}

// MemberDecl declares one member of a record type.
type MemberDecl struct {
	Name     string  `yaml:"name"`
	Type     string  `yaml:"type"`
	Order    *Order  `yaml:"order"`
	Skip     bool    `yaml:"skip"`
	ReadOnly bool    `yaml:"readonly"`
	When     string  `yaml:"when"`
	Fallback *string `yaml:"fallback"`
}

// Order is a member order hint: an integer, or min/first and max/last for
// the extreme positions.
type Order struct {
	raw string
}

// UnmarshalYAML accepts integer and keyword scalars.
func (o *Order) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: order must be a scalar", value.Line)
	}
	switch value.Value {
	case "min", "first", "max", "last":
	default:
		if _, err := strconv.Atoi(value.Value); err != nil {
			return fmt.Errorf("line %d: order %q is not an integer, min or max", value.Line, value.Value)
		}
	}
	o.raw = value.Value
	return nil
}

// MarshalYAML writes the hint as it was given.
func (o Order) MarshalYAML() (any, error) {
	if n, err := strconv.Atoi(o.raw); err == nil {
		return n, nil
	}
	return o.raw, nil
}

func (o Order) String() string {
	return o.raw
}

// OrderOf builds an integer order hint.
func OrderOf(n int) *Order {
	return &Order{raw: strconv.Itoa(n)}
}

// ParseDocument decodes a schema document. Unknown keys are rejected.
func ParseDocument(data []byte) (*Document, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var doc Document
	if err := dec.Decode(&doc); err != nil && err != io.EOF {
		return nil, fmt.Errorf("parse schema: %w", err)
	}
	return &doc, nil
}

// Parse decodes and compiles a schema document.
func Parse(data []byte) (*Schema, error) {
	doc, err := ParseDocument(data)
	if err != nil {
		return nil, err
	}
	return Compile(doc)
}

// Load reads and compiles the schema file at path.
func Load(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema: %w", err)
	}
	return Parse(data)
}
