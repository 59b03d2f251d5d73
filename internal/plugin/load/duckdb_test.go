package load

import (
	"context"
	"database/sql"
	"encoding/json"
	"path/filepath"
	"testing"

	_ "github.com/marcboeker/go-duckdb"

	"eltorch/internal/plugin"
)

func TestDuckDB_Load_CreatesTableAndInserts(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "warehouse.duckdb")

	d := NewDuckDB()
	cfg, _ := json.Marshal(DuckDBConfig{Type: "duckdb", DBPath: dbPath, TableName: "events"})
	dataset := &plugin.Dataset{
		Columns: []string{"id", "name"},
		Rows: []map[string]any{
			{"id": "1", "name": "a"},
			{"id": "2", "name": "b"},
		},
	}

	if err := d.Load(context.Background(), cfg, dataset); err != nil {
		t.Fatalf("Load: %v", err)
	}

	db, err := sql.Open("duckdb", dbPath)
	if err != nil {
		t.Fatalf("open for verification: %v", err)
	}
	defer db.Close()

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM "events"`).Scan(&count); err != nil {
		t.Fatalf("count query: %v", err)
	}
	if count != 2 {
		t.Errorf("expected 2 rows, got %d", count)
	}
}

func TestDuckDB_Load_AppendsAcrossCalls(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "warehouse.duckdb")
	d := NewDuckDB()
	cfg, _ := json.Marshal(DuckDBConfig{Type: "duckdb", DBPath: dbPath, TableName: "events"})

	first := &plugin.Dataset{Columns: []string{"id"}, Rows: []map[string]any{{"id": "1"}}}
	second := &plugin.Dataset{Columns: []string{"id"}, Rows: []map[string]any{{"id": "2"}}}

	if err := d.Load(context.Background(), cfg, first); err != nil {
		t.Fatalf("first load: %v", err)
	}
	if err := d.Load(context.Background(), cfg, second); err != nil {
		t.Fatalf("second load: %v", err)
	}

	db, err := sql.Open("duckdb", dbPath)
	if err != nil {
		t.Fatalf("open for verification: %v", err)
	}
	defer db.Close()

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM "events"`).Scan(&count); err != nil {
		t.Fatalf("count query: %v", err)
	}
	if count != 2 {
		t.Errorf("expected 2 rows after two appends, got %d", count)
	}
}

func TestDuckDB_Load_MissingTableName(t *testing.T) {
	d := NewDuckDB()
	cfg, _ := json.Marshal(DuckDBConfig{Type: "duckdb", DBPath: filepath.Join(t.TempDir(), "w.duckdb")})
	dataset := &plugin.Dataset{Columns: []string{"id"}, Rows: []map[string]any{{"id": "1"}}}

	if err := d.Load(context.Background(), cfg, dataset); err == nil {
		t.Fatal("expected error for missing table_name")
	}
}

func TestDuckDB_Load_EmptyDataset(t *testing.T) {
	d := NewDuckDB()
	cfg, _ := json.Marshal(DuckDBConfig{Type: "duckdb", DBPath: filepath.Join(t.TempDir(), "w.duckdb"), TableName: "events"})

	if err := d.Load(context.Background(), cfg, &plugin.Dataset{}); err != nil {
		t.Errorf("expected no-op success for empty dataset, got %v", err)
	}
}
