package extract

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"

	"github.com/parquet-go/parquet-go"

	"eltorch/internal/plugin"
)

// ParquetConfig is the wire shape of a parquet extractor's config.
type ParquetConfig struct {
	Type string `json:"type"`
	Path string `json:"path"`
}

// Parquet reads a local Parquet file row group by row group into a Dataset.
// Schema is read from the file itself; no struct tags are involved since the
// column set is only known at run time.
type Parquet struct{}

// NewParquet constructs a Parquet extractor. Matches plugin.ExtractorFactory.
func NewParquet() plugin.Extractor {
	return &Parquet{}
}

func (p *Parquet) Extract(ctx context.Context, config json.RawMessage) (*plugin.Dataset, error) {
	var cfg ParquetConfig
	if err := json.Unmarshal(config, &cfg); err != nil {
		return nil, plugin.NewExtractError("parquet.parseConfig", false, err)
	}
	if cfg.Path == "" {
		return nil, plugin.NewExtractError("parquet.parseConfig", false, errors.New("path is required"))
	}

	f, err := os.Open(cfg.Path)
	if err != nil {
		return nil, plugin.NewExtractError("parquet.open", false, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, plugin.NewExtractError("parquet.stat", false, err)
	}

	pf, err := parquet.OpenFile(f, info.Size())
	if err != nil {
		return nil, plugin.NewExtractError("parquet.openFile", false, err)
	}

	schema := pf.Schema()
	columns := make([]string, 0, len(schema.Fields()))
	for _, field := range schema.Fields() {
		columns = append(columns, field.Name())
	}

	reader := parquet.NewReader(f, schema)
	defer reader.Close()

	var rows []map[string]any
	for {
		select {
		case <-ctx.Done():
			return nil, &plugin.CancelledError{Op: "parquet.read"}
		default:
		}

		row := make(map[string]any, len(columns))
		if err := reader.Read(&row); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, plugin.NewExtractError("parquet.readRow", false, err)
		}
		rows = append(rows, row)
	}

	return &plugin.Dataset{Columns: columns, Rows: rows}, nil
}
