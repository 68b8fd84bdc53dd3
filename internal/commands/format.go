package commands

import (
	"fmt"
	"sort"
	"strings"

	"github.com/port-experimental/dispatch-cli/internal/output"
)

// formatOutput formats and displays output data.
func formatOutput(data interface{}, format string) error {
	switch format {
	case "json":
		return output.PrintJSON(data)
	case "yaml":
		return output.PrintYAML(data)
	case "text":
		printText(data)
		return nil
	default:
		return fmt.Errorf("invalid output format '%s' (expected json, yaml or text)", format)
	}
}

// printText prints records one per line as sorted key=value pairs.
func printText(data interface{}) {
	switch v := data.(type) {
	case []map[string]interface{}:
		for _, rec := range v {
			output.Println(textRecord(rec))
		}
	case map[string]interface{}:
		output.Println(textRecord(v))
	default:
		output.Printf("%+v\n", data)
	}
}

func textRecord(rec map[string]interface{}) string {
	keys := make([]string, 0, len(rec))
	for k := range rec {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", output.Dim(k), rec[k]))
	}
	return strings.Join(parts, " ")
}
