package seeds

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// Read loads seeds from a .csv or .xlsx file.
func Read(ctx context.Context, path string) ([]Seed, error) {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return ReadXLSX(ctx, path)
	}
	return ReadCSV(ctx, path)
}

// ReadXLSX reads seeds from the first sheet of a workbook. The first row must
// carry the url header.
func ReadXLSX(ctx context.Context, path string) ([]Seed, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "seeds: open %s", path)
	}
	if len(f.Sheets) == 0 || len(f.Sheets[0].Rows) == 0 {
		return nil, eris.Wrapf(ErrMissingURLColumn, "seeds: %s is empty", path)
	}

	sheet := f.Sheets[0]
	col := urlColumn(cellStrings(sheet.Rows[0]))
	if col < 0 {
		return nil, eris.Wrapf(ErrMissingURLColumn, "seeds: %s", path)
	}

	var out []Seed
	for i, row := range sheet.Rows[1:] {
		if ctx.Err() != nil {
			return nil, eris.Wrap(ctx.Err(), "seeds: context cancelled")
		}
		if row == nil || col >= len(row.Cells) {
			continue
		}
		u := strings.TrimSpace(row.Cells[col].String())
		if u == "" {
			continue
		}
		out = append(out, Seed{Line: i + 2, URL: u})
	}
	return out, nil
}

func cellStrings(row *xlsx.Row) []string {
	if row == nil {
		return nil
	}
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		cells[j] = cell.String()
	}
	return cells
}
