package db

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestReadOnly(t *testing.T) {
	tests := []struct {
		query string
		ok    bool
	}{
		{query: "SELECT * FROM stations", ok: true},
		{query: "  select count(*) from stations;", ok: true},
		{query: "WITH t AS (SELECT 1) SELECT * FROM t", ok: true},
		{query: "DESCRIBE stations", ok: true},
		{query: "DROP TABLE stations"},
		{query: "SELECT 1; DROP TABLE stations"},
		{query: "INSERT INTO stations VALUES (1)"},
		{query: "   "},
	}
	for _, tt := range tests {
		err := ReadOnly(tt.query)
		if tt.ok && err != nil {
			t.Errorf("ReadOnly(%q)=%v, want nil", tt.query, err)
		}
		if !tt.ok && !errors.Is(err, ErrNotReadOnly) {
			t.Errorf("ReadOnly(%q)=%v, want ErrNotReadOnly", tt.query, err)
		}
	}
}

func TestOpenLoadsStations(t *testing.T) {
	dir := t.TempDir()
	data := `[{"STATION_NAME":"Spokane","LABEL_FLAG":1,"TEMP":72},{"STATION_NAME":"Pullman","LABEL_FLAG":0,"TEMP":65}]`
	if err := os.WriteFile(filepath.Join(dir, "station_data.json"), []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	conn, err := Open(ctx, Config{DataDir: dir, Stations: "station_data.json"})
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	tables, err := Tables(ctx, conn)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{StationsTable}, tables); diff != "" {
		t.Errorf("tables (-want +got):\n%s", diff)
	}

	res, err := Query(ctx, conn, "SELECT STATION_NAME FROM stations WHERE LABEL_FLAG = 1", 0)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]map[string]any{{"STATION_NAME": "Spokane"}}, res.Rows); diff != "" {
		t.Errorf("rows (-want +got):\n%s", diff)
	}

	res, err = Query(ctx, conn, "SELECT * FROM stations", 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Rows) != 1 {
		t.Errorf("limit ignored: %d rows", len(res.Rows))
	}

	if _, err := Query(ctx, conn, "DELETE FROM stations", 0); !errors.Is(err, ErrNotReadOnly) {
		t.Errorf("DELETE err=%v", err)
	}
}

func TestOpenWithoutDataset(t *testing.T) {
	ctx := context.Background()
	conn, err := Open(ctx, Config{DataDir: t.TempDir(), Stations: "station_data.json"})
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	tables, err := Tables(ctx, conn)
	if err != nil {
		t.Fatal(err)
	}
	if len(tables) != 0 {
		t.Errorf("tables=%v, want none", tables)
	}
}
