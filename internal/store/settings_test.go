package store

import (
	"context"
	"testing"

	"github.com/erazemk/prenos/internal/db"
)

func TestGetJWTSecret_GeneratesAndPersists(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	secret1, err := GetJWTSecret(ctx, database)
	if err != nil {
		t.Fatal(err)
	}
	if len(secret1) != 64 { // 32 bytes = 64 hex chars
		t.Fatalf("expected 64 hex chars, got %d", len(secret1))
	}

	secret2, err := GetJWTSecret(ctx, database)
	if err != nil {
		t.Fatal(err)
	}
	if secret1 != secret2 {
		t.Fatalf("expected same secret, got %q and %q", secret1, secret2)
	}
}

func TestSettings(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	if _, ok, err := GetSetting(ctx, database, SettingSeededAt); err != nil || ok {
		t.Fatalf("expected missing setting, got ok=%v err=%v", ok, err)
	}

	if err := SetSetting(ctx, database, SettingSeededAt, "2024-01-15"); err != nil {
		t.Fatalf("SetSetting: %v", err)
	}
	if err := SetSetting(ctx, database, SettingSeededAt, "2024-01-16"); err != nil {
		t.Fatalf("SetSetting overwrite: %v", err)
	}

	value, ok, err := GetSetting(ctx, database, SettingSeededAt)
	if err != nil || !ok || value != "2024-01-16" {
		t.Errorf("expected 2024-01-16, got %q ok=%v err=%v", value, ok, err)
	}
}
