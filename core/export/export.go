// Package export renders collections as downloadable CSV and JSON files.
package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/masomo-console/core"
)

const (
	FormatCSV  = "csv"
	FormatJSON = "json"

	ContentTypeCSV  = "text/csv"
	ContentTypeJSON = "application/json"
)

var ErrUnknownFormat = core.NewFieldError("format", "format must be one of csv, json")

// Row is a flat record keyed by column name.
type Row map[string]interface{}

// Dataset is a named report: an ordered list of columns and the rows to export.
type Dataset struct {
	Name    string
	Columns []string
	Rows    []Row
}

// CSV writes the header then one record per row. Values are quoted as needed.
func (ds Dataset) CSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ds.Columns); err != nil {
		return errors.Wrap(err, "writing csv header")
	}
	record := make([]string, len(ds.Columns))
	for _, row := range ds.Rows {
		for i, col := range ds.Columns {
			record[i] = formatValue(row[col])
		}
		if err := cw.Write(record); err != nil {
			return errors.Wrap(err, "writing csv record")
		}
	}
	cw.Flush()
	return errors.Wrap(cw.Error(), "flushing csv")
}

// JSON writes the rows, projected on the dataset columns, as an indented array of flat objects.
func (ds Dataset) JSON(w io.Writer) error {
	rows := make([]Row, 0, len(ds.Rows))
	for _, row := range ds.Rows {
		projected := make(Row, len(ds.Columns))
		for _, col := range ds.Columns {
			projected[col] = row[col]
		}
		rows = append(rows, projected)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return errors.Wrap(enc.Encode(rows), "encoding json")
}

// Render writes the dataset in the given format.
func (ds Dataset) Render(format string) (*bytes.Buffer, error) {
	buf := new(bytes.Buffer)
	var err error
	switch format {
	case FormatCSV:
		err = ds.CSV(buf)
	case FormatJSON:
		err = ds.JSON(buf)
	default:
		return nil, ErrUnknownFormat
	}
	if err != nil {
		return nil, err
	}
	return buf, nil
}

// CSVFilename returns "<report>-<YYYY-MM-DD>.csv".
func (ds Dataset) CSVFilename(t time.Time) string {
	return fmt.Sprintf("%s-%s.csv", ds.Name, t.Format(core.DateLayout))
}

// JSONFilename returns "<entity>-export-<YYYY-MM-DD>.json".
func (ds Dataset) JSONFilename(t time.Time) string {
	return fmt.Sprintf("%s-export-%s.json", ds.Name, t.Format(core.DateLayout))
}

// Filename returns the file name and MIME type of the dataset exported in format.
func (ds Dataset) Filename(format string, t time.Time) (string, string, error) {
	switch format {
	case FormatCSV:
		return ds.CSVFilename(t), ContentTypeCSV, nil
	case FormatJSON:
		return ds.JSONFilename(t), ContentTypeJSON, nil
	}
	return "", "", ErrUnknownFormat
}

func formatValue(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []string:
		return strings.Join(val, "; ")
	case bool:
		return strconv.FormatBool(val)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case time.Time:
		if val.IsZero() {
			return ""
		}
		return val.Format(time.RFC3339)
	}
	return fmt.Sprint(v)
}
