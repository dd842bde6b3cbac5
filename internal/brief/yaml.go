package brief

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// UnmarshalYAML decodes a record document written as YAML. The keys are
// the same as in the JSON document; the YAML is re-encoded as JSON and
// decoded by Unmarshal so both formats share one codec.
func UnmarshalYAML(data []byte) (*Brief, error) {
	var raw map[string]any
	dec := yaml.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode brief yaml: %w", err)
	}
	js, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("decode brief yaml: %w", err)
	}
	return Unmarshal(js)
}

// Decode reads a record document in either format. Input whose first
// non-blank byte is '{' is JSON; anything else is YAML.
func Decode(data []byte) (*Brief, error) {
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '{' {
		return Unmarshal(trimmed)
	}
	return UnmarshalYAML(data)
}
