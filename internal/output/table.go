package output

import (
	"bytes"
	"encoding/json"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"

	"github.com/torosent/authrelay/internal/response"
)

func printEnvelopeTable(w io.Writer, raw *response.Raw) error {
	data := string(raw.Data)
	var compact bytes.Buffer
	if err := json.Compact(&compact, raw.Data); err == nil {
		data = compact.String()
	}

	return PrintTable(w, [2]string{"Field", "Value"}, [][2]string{
		{"Code", strconv.Itoa(raw.Code)},
		{"Status", strconv.Itoa(raw.Status)},
		{"OK", strconv.FormatBool(raw.OK)},
		{"Message", raw.Message},
		{"Data", data},
	})
}

// PrintTable renders key/value rows under a two-column header.
func PrintTable(w io.Writer, header [2]string, rows [][2]string) error {
	table := tablewriter.NewWriter(w)
	table.Header(header[0], header[1])
	for _, row := range rows {
		if err := table.Append(row[0], row[1]); err != nil {
			return err
		}
	}
	return table.Render()
}
