// Package extract contains the concrete Extractor implementations known to
// the core: csv, api, and parquet.
package extract

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"io"
	"os"

	"eltorch/internal/plugin"
)

// CSVConfig is the wire shape of a csv extractor's config.
type CSVConfig struct {
	Type string `json:"type"`
	Path string `json:"path"`
}

// CSV reads a local CSV file, treating the first row as the header.
type CSV struct{}

// NewCSV constructs a CSV extractor. Matches plugin.ExtractorFactory.
func NewCSV() plugin.Extractor {
	return &CSV{}
}

func (c *CSV) Extract(ctx context.Context, config json.RawMessage) (*plugin.Dataset, error) {
	var cfg CSVConfig
	if err := json.Unmarshal(config, &cfg); err != nil {
		return nil, plugin.NewExtractError("csv.parseConfig", false, err)
	}
	if cfg.Path == "" {
		return nil, plugin.NewExtractError("csv.parseConfig", false, errors.New("path is required"))
	}

	f, err := os.Open(cfg.Path)
	if err != nil {
		return nil, plugin.NewExtractError("csv.open", isTransientFSError(err), err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	header, err := reader.Read()
	if err != nil {
		return nil, plugin.NewExtractError("csv.readHeader", isTransientFSError(err), err)
	}

	var rows []map[string]any
	for {
		select {
		case <-ctx.Done():
			return nil, &plugin.CancelledError{Op: "csv.read"}
		default:
		}

		record, err := reader.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, plugin.NewExtractError("csv.readRow", isTransientFSError(err), err)
		}
		row := make(map[string]any, len(header))
		for i, col := range header {
			if i < len(record) {
				row[col] = record[i]
			}
		}
		rows = append(rows, row)
	}

	return &plugin.Dataset{Columns: header, Rows: rows}, nil
}

func isTransientFSError(err error) bool {
	return errors.Is(err, os.ErrDeadlineExceeded)
}
