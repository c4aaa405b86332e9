package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"
)

// render writes v as json or yaml, or calls table with a tab-aligned writer
func render(out io.Writer, format string, v interface{}, table func(w io.Writer)) error {
	switch format {
	case "json":
		return writeJSON(out, v)
	case "yaml":
		data, err := yaml.Marshal(v)
		if err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		_, err = out.Write(data)
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	table(tw)
	return tw.Flush()
}

func writeJSON(out io.Writer, v interface{}) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func headerOf(s string) string {
	return strings.ToUpper(strings.ReplaceAll(s, "_", " "))
}
