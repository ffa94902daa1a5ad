// Package output renders result envelopes and run reports for the terminal.
package output

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/torosent/authrelay/internal/response"
)

// Format selects how envelopes are printed.
type Format string

const (
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
	FormatTable Format = "table"
)

// envelopeView holds decoded data so YAML renders it as a tree instead of raw bytes.
type envelopeView struct {
	Code    int    `json:"code" yaml:"code"`
	Message string `json:"message,omitempty" yaml:"message,omitempty"`
	Status  int    `json:"status" yaml:"status"`
	OK      bool   `json:"ok" yaml:"ok"`
	Data    any    `json:"data" yaml:"data"`
}

// PrintEnvelope writes raw as indented JSON or as YAML.
func PrintEnvelope(w io.Writer, raw *response.Raw, format Format) error {
	if raw == nil {
		return fmt.Errorf("nothing to print")
	}
	switch format {
	case FormatJSON, "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(raw)
	case FormatYAML:
		view := envelopeView{Code: raw.Code, Message: raw.Message, Status: raw.Status, OK: raw.OK}
		if len(raw.Data) > 0 {
			if err := json.Unmarshal(raw.Data, &view.Data); err != nil {
				return fmt.Errorf("decode data: %w", err)
			}
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(view); err != nil {
			return err
		}
		return enc.Close()
	case FormatTable:
		return printEnvelopeTable(w, raw)
	default:
		return fmt.Errorf("unsupported output format %q", format)
	}
}
