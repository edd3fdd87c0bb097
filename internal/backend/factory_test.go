package backend

import (
	"context"
	"path/filepath"
	"testing"

	"finanzas/internal/config"
)

func TestFromAppConfig(t *testing.T) {
	if _, err := FromAppConfig(nil); err == nil {
		t.Error("expected error for nil config")
	}

	cfg, err := FromAppConfig(&config.Config{DataBackend: "postgres", PostgresURL: "postgres://x"})
	if err != nil {
		t.Fatalf("FromAppConfig() error = %v", err)
	}
	if cfg.Type != PostgresBackend || cfg.PostgresURL != "postgres://x" {
		t.Errorf("unexpected config %+v", cfg)
	}

	if _, err := FromAppConfig(&config.Config{DataBackend: "sheets"}); err == nil {
		t.Error("expected error for unknown backend")
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{"memory", Config{Type: MemoryBackend}, false},
		{"sqlite without path", Config{Type: SQLiteBackend}, true},
		{"postgres without url", Config{Type: PostgresBackend}, true},
		{"mongo without database", Config{Type: MongoBackend, MongoURI: "mongodb://localhost"}, true},
		{"unknown", Config{Type: "sheets"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.config.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestGetBackendTypeStrings(t *testing.T) {
	got := GetBackendTypeStrings()
	want := []string{"memory", "sqlite", "postgres", "mongo"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got %v, want %v", got, want)
		}
	}
}

func TestCreateBackend_MemoryAndSQLite(t *testing.T) {
	f := NewFactory(nil)
	ctx := context.Background()

	for _, cfg := range []Config{
		{Type: MemoryBackend},
		{Type: SQLiteBackend, SQLiteDBPath: filepath.Join(t.TempDir(), "finanzas.db")},
	} {
		res, err := f.CreateBackend(ctx, cfg)
		if err != nil {
			t.Fatalf("CreateBackend(%s) error = %v", cfg.Type, err)
		}
		if res.Store == nil {
			t.Fatalf("CreateBackend(%s) returned nil store", cfg.Type)
		}
		if err := res.Store.Ping(ctx); err != nil {
			t.Errorf("Ping(%s) error = %v", cfg.Type, err)
		}
		if res.AMQP != nil {
			t.Errorf("AMQP should be disabled for %s", cfg.Type)
		}
		if err := res.Cleanup(); err != nil {
			t.Errorf("Cleanup(%s) error = %v", cfg.Type, err)
		}
	}
}
