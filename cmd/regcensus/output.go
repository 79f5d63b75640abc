package main

import (
	"encoding/json"
	"io"

	"github.com/spf13/cobra"

	"github.com/QuantGov/regcensus-api-go/pkg/regdata"
	"github.com/QuantGov/regcensus-api-go/pkg/sink"
)

// writeTableResult prints t even when err is a download failure, then
// returns err.
func writeTableResult(cmd *cobra.Command, opts *RootOptions, t *regdata.ResultTable, err error) error {
	if t == nil {
		return err
	}
	if werr := writeTable(cmd.OutOrStdout(), opts.Format, t); werr != nil {
		return werr
	}
	return err
}

func writeTable(w io.Writer, format string, t *regdata.ResultTable) error {
	if format == "json" {
		header := t.Header()
		rows := make([]map[string]any, t.Len())
		for i := range t.Rows {
			row := make(map[string]any, len(header))
			for _, col := range header {
				row[col] = t.Value(i, col)
			}
			rows[i] = row
		}
		return writeJSON(w, rows)
	}
	return sink.EncodeCSV(w, t)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
