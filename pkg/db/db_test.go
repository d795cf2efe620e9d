package db

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"eventservices/pkg/config"
)

func TestTimestampsTouch_KeepsCreatedAt(t *testing.T) {
	var ts Timestamps
	first := time.Date(2025, 11, 7, 10, 0, 0, 0, time.UTC)
	ts.Touch(first)
	if !ts.CreatedAt.Equal(first) || !ts.UpdatedAt.Equal(first) {
		t.Fatalf("expected both timestamps at %s, got %+v", first, ts)
	}

	later := first.Add(time.Hour)
	ts.Touch(later)
	if !ts.CreatedAt.Equal(first) {
		t.Fatalf("created_at must not move, got %s", ts.CreatedAt)
	}
	if !ts.UpdatedAt.Equal(later) {
		t.Fatalf("expected updated_at %s, got %s", later, ts.UpdatedAt)
	}
}

func TestIsUniqueViolation(t *testing.T) {
	wrapped := fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})
	if !IsUniqueViolation(wrapped) {
		t.Fatalf("expected wrapped 23505 to be detected")
	}
	if IsUniqueViolation(&pgconn.PgError{Code: "23503"}) {
		t.Fatalf("foreign key violation is not a unique violation")
	}
	if IsUniqueViolation(errors.New("boom")) {
		t.Fatalf("plain error is not a unique violation")
	}
}

func TestConnStrings(t *testing.T) {
	cfg := config.Config{DB: config.DBConfig{User: "u", Password: "p", Host: "h", Port: "5432", Name: "n"}}
	if got := runtimeConnString(cfg); got != "postgres://u:p@h:5432/n?sslmode=disable" {
		t.Fatalf("unexpected dsn %q", got)
	}

	cfg.DatabaseURL = "postgres://pooler/db?pgbouncer=true"
	cfg.DirectURL = "postgres://direct/db"
	if got := runtimeConnString(cfg); got != cfg.DatabaseURL {
		t.Fatalf("expected DATABASE_URL, got %q", got)
	}
	if got := migrationConnString(cfg); got != cfg.DirectURL {
		t.Fatalf("expected DIRECT_URL for migrations, got %q", got)
	}
}

func TestPoolConfig(t *testing.T) {
	cfg := config.Config{
		DatabaseURL: "postgres://u:p@pooler:6543/db?pgbouncer=true",
		DB:          config.DBConfig{MaxConns: 4, MinConns: 2, MaxConnIdleTime: time.Minute},
	}
	pcfg, err := poolConfig(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pcfg.MaxConns != 4 || pcfg.MinConns != 2 || pcfg.MaxConnIdleTime != time.Minute {
		t.Fatalf("pool limits not applied: max=%d min=%d idle=%s", pcfg.MaxConns, pcfg.MinConns, pcfg.MaxConnIdleTime)
	}
	if pcfg.ConnConfig.StatementCacheCapacity != 0 {
		t.Fatalf("expected statement cache disabled behind pgbouncer")
	}
}
