package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

func parseFormat(value string) (string, error) {
	switch format := strings.ToLower(strings.TrimSpace(value)); format {
	case "", formatTable:
		return formatTable, nil
	case formatJSON, formatYAML:
		return format, nil
	case "yml":
		return formatYAML, nil
	default:
		return "", fmt.Errorf("unsupported --format %q (use table, json or yaml)", value)
	}
}

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeYAML encodes v as YAML to the command's stdout.
func writeYAML(cmd *cobra.Command, v any) error {
	enc := yaml.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

// writeStructured writes v in a machine format. It reports false for the table format.
func writeStructured(cmd *cobra.Command, format string, v any) (bool, error) {
	switch format {
	case formatJSON:
		return true, writeJSON(cmd, v)
	case formatYAML:
		return true, writeYAML(cmd, v)
	default:
		return false, nil
	}
}
