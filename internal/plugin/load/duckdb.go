// Package load contains the concrete Loader implementations known to the
// core. Today that is a single variant, duckdb.
package load

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	_ "github.com/marcboeker/go-duckdb"

	"eltorch/internal/plugin"
)

// DuckDBConfig is the wire shape of a duckdb loader's config.
type DuckDBConfig struct {
	Type      string `json:"type"`
	DBPath    string `json:"db_path"`
	TableName string `json:"table_name"`
}

// DuckDB writes a Dataset into a DuckDB table, creating the table from the
// dataset's columns if it does not already exist and appending rows inside a
// single transaction. Unlike the CSV-bridge approach in the system this was
// adapted from, rows are inserted directly through database/sql, matching
// the host codebase's storage idiom.
type DuckDB struct{}

// NewDuckDB constructs a DuckDB loader. Matches plugin.LoaderFactory.
func NewDuckDB() plugin.Loader {
	return &DuckDB{}
}

func (d *DuckDB) Load(ctx context.Context, config json.RawMessage, dataset *plugin.Dataset) error {
	var cfg DuckDBConfig
	if err := json.Unmarshal(config, &cfg); err != nil {
		return plugin.NewLoadError("duckdb.parseConfig", false, err)
	}
	if cfg.DBPath == "" {
		return plugin.NewLoadError("duckdb.parseConfig", false, errors.New("db_path is required"))
	}
	if cfg.TableName == "" {
		return plugin.NewLoadError("duckdb.parseConfig", false, errors.New("table_name is required"))
	}

	db, err := sql.Open("duckdb", cfg.DBPath)
	if err != nil {
		return plugin.NewLoadError("duckdb.open", true, err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return plugin.NewLoadError("duckdb.ping", true, err)
	}

	if len(dataset.Columns) == 0 {
		return nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return plugin.NewLoadError("duckdb.begin", true, err)
	}
	defer tx.Rollback()

	createSQL := fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s (%s)",
		quoteIdent(cfg.TableName), columnDefs(dataset.Columns),
	)
	if _, err := tx.ExecContext(ctx, createSQL); err != nil {
		return plugin.NewLoadError("duckdb.createTable", false, err)
	}

	insertSQL := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		quoteIdent(cfg.TableName), quotedColumnList(dataset.Columns), placeholders(len(dataset.Columns)),
	)
	stmt, err := tx.PrepareContext(ctx, insertSQL)
	if err != nil {
		return plugin.NewLoadError("duckdb.prepare", false, err)
	}
	defer stmt.Close()

	for _, row := range dataset.Rows {
		select {
		case <-ctx.Done():
			return &plugin.CancelledError{Op: "duckdb.load"}
		default:
		}

		args := make([]any, len(dataset.Columns))
		for i, col := range dataset.Columns {
			args[i] = row[col]
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return plugin.NewLoadError("duckdb.insertRow", true, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return plugin.NewLoadError("duckdb.commit", true, err)
	}
	return nil
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func columnDefs(columns []string) string {
	defs := make([]string, len(columns))
	for i, col := range columns {
		defs[i] = quoteIdent(col) + " VARCHAR"
	}
	return strings.Join(defs, ", ")
}

func quotedColumnList(columns []string) string {
	quoted := make([]string, len(columns))
	for i, col := range columns {
		quoted[i] = quoteIdent(col)
	}
	return strings.Join(quoted, ", ")
}

func placeholders(n int) string {
	marks := make([]string, n)
	for i := range marks {
		marks[i] = "?"
	}
	return strings.Join(marks, ", ")
}
