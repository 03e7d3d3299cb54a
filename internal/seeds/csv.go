// Package seeds reads batch seed lists.
package seeds

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"
)

// URLColumn is the required header.
const URLColumn = "url"

// ErrMissingURLColumn is a configuration error: the seed file has no url
// header, so nothing is crawled.
var ErrMissingURLColumn = eris.New("seeds: missing url column")

// Seed is one clinic URL from the input file.
type Seed struct {
	// Line is the 1-based CSV record number, header included.
	Line int
	URL  string
}

// ReadCSV reads every seed from the file at path. Rows with a blank url are
// skipped.
func ReadCSV(ctx context.Context, path string) ([]Seed, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "seeds: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	rows, errs := Stream(ctx, f)
	var out []Seed
	for s := range rows {
		out = append(out, s)
	}
	if err := <-errs; err != nil {
		return nil, eris.Wrapf(err, "seeds: read %s", path)
	}
	return out, nil
}

// Stream parses CSV seeds from r. The caller must drain the seed channel;
// at most one error is sent. Both channels are closed when done.
func Stream(ctx context.Context, r io.Reader) (<-chan Seed, <-chan error) {
	seedCh := make(chan Seed, 64)
	errCh := make(chan error, 1)

	go func() {
		defer close(seedCh)
		defer close(errCh)

		reader := csv.NewReader(r)
		reader.FieldsPerRecord = -1
		reader.LazyQuotes = true

		header, err := reader.Read()
		if err == io.EOF {
			errCh <- ErrMissingURLColumn
			return
		}
		if err != nil {
			errCh <- eris.Wrap(err, "seeds: read header")
			return
		}
		col := urlColumn(header)
		if col < 0 {
			errCh <- eris.Wrapf(ErrMissingURLColumn, "seeds: header %v", header)
			return
		}

		line := 1
		for {
			if ctx.Err() != nil {
				errCh <- eris.Wrap(ctx.Err(), "seeds: context cancelled")
				return
			}

			record, err := reader.Read()
			if err == io.EOF {
				return
			}
			if err != nil {
				errCh <- eris.Wrap(err, "seeds: read row")
				return
			}
			line++

			if col >= len(record) {
				continue
			}
			u := strings.TrimSpace(record[col])
			if u == "" {
				continue
			}

			select {
			case seedCh <- Seed{Line: line, URL: u}:
			case <-ctx.Done():
				errCh <- eris.Wrap(ctx.Err(), "seeds: context cancelled")
				return
			}
		}
	}()

	return seedCh, errCh
}

func urlColumn(header []string) int {
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if h == URLColumn {
			return i
		}
	}
	return -1
}
