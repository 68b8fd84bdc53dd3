package output

import (
	"encoding/json"

	"gopkg.in/yaml.v3"
)

// PrintJSON prints data as JSON to the output writer.
func PrintJSON(data interface{}) error {
	encoder := json.NewEncoder(outputWriter)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// PrintYAML prints data as YAML to the output writer.
func PrintYAML(data interface{}) error {
	encoder := yaml.NewEncoder(outputWriter)
	encoder.SetIndent(2)
	if err := encoder.Encode(data); err != nil {
		return err
	}
	return encoder.Close()
}
