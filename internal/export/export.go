// Package export writes clinic results to disk. The format is chosen by the
// output file extension.
package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/clinic-intel/internal/model"
	"github.com/sells-group/clinic-intel/internal/store"
)

// Format identifies an output encoding.
type Format string

// Supported formats.
const (
	FormatJSONL  Format = "jsonl"
	FormatJSON   Format = "json"
	FormatCSV    Format = "csv"
	FormatXLSX   Format = "xlsx"
	FormatYAML   Format = "yaml"
	FormatSQLite Format = "sqlite"
)

// ErrUnsupportedFormat is returned for an unrecognized extension.
var ErrUnsupportedFormat = eris.New("export: unsupported output format")

// Header is the column order for tabular formats.
var Header = append([]string{"url"}, model.AllFields...)

// Options controls output encoding.
type Options struct {
	// Compact writes one JSON object per line for jsonl.
	Compact bool
	// Provider is recorded on the run row for sqlite output.
	Provider string
}

// FormatFor maps a path's extension to a Format.
func FormatFor(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jsonl", ".ndjson":
		return FormatJSONL, nil
	case ".json":
		return FormatJSON, nil
	case ".csv":
		return FormatCSV, nil
	case ".xlsx":
		return FormatXLSX, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".db", ".sqlite", ".sqlite3":
		return FormatSQLite, nil
	}
	return "", eris.Wrapf(ErrUnsupportedFormat, "export: %q", path)
}

// Write encodes rows to path in the format implied by its extension.
func Write(ctx context.Context, path string, rows []model.ClinicResult, opts Options) error {
	format, err := FormatFor(path)
	if err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return eris.Wrapf(err, "export: create dir %s", dir)
		}
	}

	switch format {
	case FormatXLSX:
		err = writeXLSX(path, rows)
	case FormatSQLite:
		err = writeSQLite(ctx, path, rows, opts)
	default:
		var data []byte
		data, err = Encode(format, rows, opts)
		if err == nil {
			err = os.WriteFile(path, data, 0o644)
		}
	}
	if err != nil {
		return eris.Wrapf(err, "export: write %s", path)
	}

	zap.L().Info("export: wrote results",
		zap.String("path", path),
		zap.String("format", string(format)),
		zap.Int("rows", len(rows)),
	)
	return nil
}

// Encode renders rows for the text formats.
func Encode(format Format, rows []model.ClinicResult, opts Options) ([]byte, error) {
	switch format {
	case FormatJSONL:
		return encodeJSONL(rows, opts.Compact)
	case FormatJSON:
		return encodeJSON(rows)
	case FormatCSV:
		return encodeCSV(rows)
	case FormatYAML:
		return encodeYAML(rows)
	}
	return nil, eris.Wrapf(ErrUnsupportedFormat, "export: %s is not a text format", format)
}

// MarshalResult renders a single result as indented JSON.
func MarshalResult(r model.ClinicResult) ([]byte, error) {
	return marshal(r, true)
}

func marshal(v any, indent bool) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if indent {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(v); err != nil {
		return nil, eris.Wrap(err, "export: marshal json")
	}
	return buf.Bytes(), nil
}

func encodeJSONL(rows []model.ClinicResult, compact bool) ([]byte, error) {
	var buf bytes.Buffer
	for i, r := range rows {
		data, err := marshal(r, !compact)
		if err != nil {
			return nil, err
		}
		if !compact && i > 0 {
			buf.WriteByte('\n')
		}
		buf.Write(data)
	}
	return buf.Bytes(), nil
}

func encodeJSON(rows []model.ClinicResult) ([]byte, error) {
	if len(rows) == 1 {
		return marshal(rows[0], true)
	}
	if rows == nil {
		rows = []model.ClinicResult{}
	}
	return marshal(rows, true)
}

func encodeCSV(rows []model.ClinicResult) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(Header); err != nil {
		return nil, eris.Wrap(err, "export: csv header")
	}
	for _, r := range rows {
		if err := w.Write(tabular(r)); err != nil {
			return nil, eris.Wrapf(err, "export: csv row %s", r.URL)
		}
	}
	w.Flush()
	return buf.Bytes(), eris.Wrap(w.Error(), "export: csv flush")
}

func encodeYAML(rows []model.ClinicResult) ([]byte, error) {
	if rows == nil {
		rows = []model.ClinicResult{}
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(rows); err != nil {
		return nil, eris.Wrap(err, "export: marshal yaml")
	}
	if err := enc.Close(); err != nil {
		return nil, eris.Wrap(err, "export: close yaml encoder")
	}
	return buf.Bytes(), nil
}

func writeXLSX(path string, rows []model.ClinicResult) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("clinics")
	if err != nil {
		return eris.Wrap(err, "xlsx: add sheet")
	}
	addRow(sheet, Header)
	for _, r := range rows {
		addRow(sheet, tabular(r))
	}
	return eris.Wrap(f.Save(path), "xlsx: save")
}

func addRow(sheet *xlsx.Sheet, cells []string) {
	row := sheet.AddRow()
	for _, c := range cells {
		row.AddCell().SetString(c)
	}
}

// writeSQLite appends rows as a completed run.
func writeSQLite(ctx context.Context, path string, rows []model.ClinicResult, opts Options) error {
	st, err := store.NewSQLite(path)
	if err != nil {
		return err
	}
	defer st.Close() //nolint:errcheck

	if err := st.Migrate(ctx); err != nil {
		return err
	}
	run, err := st.CreateRun(ctx, opts.Provider, len(rows))
	if err != nil {
		return err
	}
	for _, r := range rows {
		if _, err := st.SaveOutcome(ctx, store.Outcome{
			RunID:  run.ID,
			URL:    r.URL,
			Status: store.OutcomeOK,
			Record: r.ClinicInfo,
		}); err != nil {
			return err
		}
	}
	return st.FinishRun(ctx, run.ID, store.RunStatusComplete)
}

func tabular(r model.ClinicResult) []string {
	out := make([]string, 0, len(Header))
	out = append(out, r.URL)
	for _, f := range model.AllFields {
		out = append(out, r.ClinicInfo.Get(f))
	}
	return out
}
