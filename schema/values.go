package schema

import (
	"bytes"
	"fmt"
	"io"
	"reflect"

	"gopkg.in/yaml.v3"
)

// New returns a pointer to a fresh zero value of t.
func (t *Type) New() any {
	return reflect.New(t.Go).Interface()
}

// ReadYAML decodes a YAML value of t. Keys that are not members are
// rejected. An empty document yields the zero value.
func (t *Type) ReadYAML(data []byte) (any, error) {
	v := t.New()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(v); err != nil && err != io.EOF {
		return nil, fmt.Errorf("read %s: %w", t.Name, err)
	}
	return v, nil
}

// WriteYAML encodes v, a value of t or a pointer to one, as YAML.
func (t *Type) WriteYAML(v any) ([]byte, error) {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		rv = rv.Elem()
	}
	if !rv.IsValid() || rv.Type() != t.Go {
		return nil, fmt.Errorf("write %s: got %T", t.Name, v)
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(rv.Interface()); err != nil {
		return nil, fmt.Errorf("write %s: %w", t.Name, err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("write %s: %w", t.Name, err)
	}
	return buf.Bytes(), nil
}
