package document

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// WritePreset encodes the property as a YAML preset. Storage bookkeeping
// (version, timestamps) is not part of a preset.
func WritePreset(w io.Writer, p *Property) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(p); err != nil {
		return fmt.Errorf("encode preset: %w", err)
	}
	return enc.Close()
}

// ReadPreset decodes and validates a YAML preset.
func ReadPreset(r io.Reader) (*Property, error) {
	var p Property
	if err := yaml.NewDecoder(r).Decode(&p); err != nil {
		return nil, fmt.Errorf("%w: decode preset: %w", ErrInvalidDocument, err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Parse decodes and validates a JSON property document.
func Parse(data []byte) (*Property, error) {
	var p Property
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("%w: decode property: %w", ErrInvalidDocument, err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}
