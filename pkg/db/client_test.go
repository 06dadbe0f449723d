package db

import (
	"context"
	"testing"

	"github.com/angelmondragon/packfinderz-cart/pkg/config"
	"gorm.io/driver/sqlite"
)

func TestNewRejectsUnknownDriver(t *testing.T) {
	if _, err := New(context.Background(), "bolt", config.DBConfig{DSN: "x"}, nil); err == nil {
		t.Fatal("expected unsupported driver error")
	}
	if _, err := New(context.Background(), config.StoreDriverSQLite, config.DBConfig{}, nil); err == nil {
		t.Fatal("expected missing dsn error")
	}
}

func TestNewSQLiteAndPing(t *testing.T) {
	client, err := New(context.Background(), config.StoreDriverSQLite, config.DBConfig{DSN: "file::memory:", MaxOpenConns: 1}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer client.Close()

	if client.Driver() != config.StoreDriverSQLite {
		t.Fatalf("unexpected driver %q", client.Driver())
	}
	if err := client.Ping(context.Background()); err != nil {
		t.Fatalf("unexpected ping error: %v", err)
	}
}

func TestNewFromConn(t *testing.T) {
	conn, err := Open(sqlite.Open("file::memory:"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	client := NewFromConn(conn, config.StoreDriverSQLite)
	sqlDB, err := client.SQL()
	if err != nil || sqlDB == nil {
		t.Fatalf("expected sql handle, err=%v", err)
	}
	if err := client.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}
