package backend

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"mapesa/internal/auth"
	"mapesa/internal/config"
	"mapesa/internal/core"
	"mapesa/internal/services"
)

func TestFromAppConfig(t *testing.T) {
	if _, err := FromAppConfig(nil); err == nil {
		t.Error("FromAppConfig(nil) should fail")
	}

	cfg := &config.Config{DataBackend: "mongodb"}
	if _, err := FromAppConfig(cfg); err == nil {
		t.Error("FromAppConfig() should reject unknown backends")
	}

	cfg = &config.Config{
		DataBackend:          "postgres",
		DatabaseURL:          "postgres://localhost/mapesa",
		AMQPQueue:            "tag_events",
		TagLookupConcurrency: 4,
		MaxTagLookupIDs:      50,
	}
	got, err := FromAppConfig(cfg)
	if err != nil {
		t.Fatalf("FromAppConfig() error = %v", err)
	}
	if got.Type != PostgresBackend || got.dsn() != "postgres://localhost/mapesa" {
		t.Errorf("FromAppConfig() = %+v", got)
	}
	if got.LookupConcurrency != 4 || got.MaxLookupIDs != 50 {
		t.Errorf("lookup limits = %d/%d", got.LookupConcurrency, got.MaxLookupIDs)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{"sqlite", Config{Type: SQLiteBackend, SQLiteDBPath: "x.db"}, false},
		{"sqlite without path", Config{Type: SQLiteBackend}, true},
		{"postgres", Config{Type: PostgresBackend, DatabaseURL: "postgres://localhost/x"}, false},
		{"postgres without url", Config{Type: PostgresBackend}, true},
		{"unknown", Config{Type: "memory"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.config.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCreateBackend_SQLite(t *testing.T) {
	f := NewFactory(nil)
	ctx := context.Background()

	if _, err := f.TagRepository(); err == nil {
		t.Error("TagRepository() before any backend should fail")
	}

	result, err := f.CreateBackend(ctx, Config{
		Type:              SQLiteBackend,
		SQLiteDBPath:      filepath.Join(t.TempDir(), "mapesa.db"),
		LookupConcurrency: 2,
		MaxLookupIDs:      10,
	})
	if err != nil {
		t.Fatalf("CreateBackend() error = %v", err)
	}
	defer result.Cleanup()

	b := result.Backend
	if b.Events != nil {
		t.Error("Events should be nil without AMQP_URL")
	}
	if held, err := f.TagRepository(); err != nil || held != b.Tags {
		t.Errorf("TagRepository() = %p, %v; want backend repository %p", held, err, b.Tags)
	}

	user, err := b.Auth.Register(ctx, auth.Credentials{Username: "alice", Password: "pw"}, "alice@example.com")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	tags, err := b.TagService.CreateTags(ctx, user.ID, []core.NewTag{{Name: "Groceries", Description: "Food spend"}})
	if err != nil {
		t.Fatalf("CreateTags() error = %v", err)
	}
	if len(tags) != 1 || tags[0].Name != "Groceries" {
		t.Fatalf("CreateTags() = %+v", tags)
	}

	tx, err := b.TransactionService.Record(ctx, user.ID, services.RecordTransaction{
		Type:              "buy_goods",
		SourceMessageID:   1,
		TransactionCode:   "SBC1234XYZ",
		TransactionAmount: 25000,
		Subject:           "NAIVAS SUPERMARKET",
		DateTime:          time.Date(2024, 5, 6, 18, 45, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	if _, err := b.TagService.LinkTag(ctx, user.ID, core.NewTransactionTag{TagID: tags[0].ID, TransactionID: tx.ID}); err != nil {
		t.Fatalf("LinkTag() error = %v", err)
	}

	grouped, err := b.TagService.ListUserTagsGrouped(ctx, user.ID)
	if err != nil {
		t.Fatalf("ListUserTagsGrouped() error = %v", err)
	}
	if len(grouped) != 1 || len(grouped[0].Transactions) != 1 || grouped[0].TotalDisplay != "Ksh250.00" {
		t.Errorf("grouped = %+v", grouped)
	}
}

func TestCreateBackend_Invalid(t *testing.T) {
	f := NewFactory(nil)
	if _, err := f.CreateBackend(context.Background(), Config{Type: "memory"}); err == nil {
		t.Error("CreateBackend() with unknown type should fail")
	}
}
