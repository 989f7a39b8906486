package makefile

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

const (
	FormatYAML = "yaml"
	FormatJSON = "json"
	FormatTOML = "toml"
)

// Encode serializes the extracted variables (see Vars) in the given format
func (c *Config) Encode(format string) ([]byte, error) {
	vars := c.Vars()
	switch format {
	case FormatYAML:
		return yaml.Marshal(vars)
	case FormatJSON:
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetIndent("", "  ")
		if err := enc.Encode(vars); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case FormatTOML:
		return toml.Marshal(vars)
	default:
		return nil, fmt.Errorf("unknown format %q", format)
	}
}
