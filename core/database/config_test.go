package database

import (
	"testing"
	"testing/fstest"
)

func TestNormalizeDefaults(t *testing.T) {
	cfg := Config{Host: "db", Name: "potluck", User: "bot", Password: "p@ss word"}
	if err := cfg.Normalize(); err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if cfg.Dialect != DialectPostgres || cfg.Port != "5432" || cfg.SSLMode != "disable" || cfg.MaxConnections != 10 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if got, want := cfg.MigrateURL(), "postgres://bot:p%40ss%20word@db:5432/potluck?sslmode=disable"; got != want {
		t.Fatalf("MigrateURL = %q, want %q", got, want)
	}
	if cfg.DriverName() != "postgres" {
		t.Fatalf("DriverName = %q", cfg.DriverName())
	}
}

func TestNormalizeSQLite(t *testing.T) {
	cfg := Config{Dialect: "SQLite", Path: "/tmp/potluck.db", MaxConnections: 8}
	if err := cfg.Normalize(); err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if cfg.Dialect != DialectSQLite || cfg.MaxConnections != 1 {
		t.Fatalf("unexpected sqlite config: %+v", cfg)
	}
	if got := cfg.MigrateURL(); got != "sqlite:///tmp/potluck.db" {
		t.Fatalf("MigrateURL = %q", got)
	}
	if cfg.DriverName() != "sqlite" {
		t.Fatalf("DriverName = %q", cfg.DriverName())
	}
}

func TestNormalizeRejects(t *testing.T) {
	cases := []Config{
		{Dialect: "mysql"},
		{Dialect: DialectSQLite},
		{Dialect: DialectPostgres, Host: "db"},
	}
	for _, cfg := range cases {
		if err := cfg.Normalize(); err == nil {
			t.Fatalf("expected error for %+v", cfg)
		}
	}
}

func TestMigrationFileSelection(t *testing.T) {
	fsys := fstest.MapFS{
		"0002_dishes.up.sql":  {},
		"0001_init.up.sql":    {},
		"0001_init.down.sql":  {},
		"0003_seed.up.sql":    {},
		"notes/0004_x.up.sql": {},
	}
	files := listMigrationFiles(fsys)
	if len(files) != 3 || files[0] != "0001_init.up.sql" || files[2] != "0003_seed.up.sql" {
		t.Fatalf("listMigrationFiles = %v", files)
	}
	got := selectApplied(files, 1, 3)
	if len(got) != 2 || got[0] != "0002_dishes.up.sql" {
		t.Fatalf("selectApplied = %v", got)
	}
	if selectApplied(files, 3, 3) != nil {
		t.Fatalf("expected nothing applied")
	}
}
