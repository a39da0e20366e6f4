package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

var validOutputs = []string{"text", "json", "yaml"}

func validateOutput(output string) error {
	for _, o := range validOutputs {
		if output == o {
			return nil
		}
	}
	return fmt.Errorf("invalid output format: %s (valid: %s)", output, strings.Join(validOutputs, ", "))
}

func outputJSON(w io.Writer, v interface{}) error {
	jsonData, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal to JSON: %w", err)
	}
	fmt.Fprintln(w, string(jsonData))
	return nil
}

func outputYAML(w io.Writer, v interface{}) error {
	yamlData, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal to YAML: %w", err)
	}
	fmt.Fprint(w, string(yamlData))
	return nil
}
