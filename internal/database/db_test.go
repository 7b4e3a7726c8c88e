package database

import (
	"strings"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
)

func TestDSNKeepsTimesInUTC(t *testing.T) {
	dsn := Options{User: "app", Pass: "secret", Host: "db", Port: "3306", Name: "frontdesk"}.DSN()

	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		t.Fatalf("ParseDSN(%q): %v", dsn, err)
	}
	if !cfg.ParseTime {
		t.Fatalf("parseTime must be enabled")
	}
	if cfg.Loc != time.UTC {
		t.Fatalf("loc = %v, want UTC", cfg.Loc)
	}
	if cfg.Addr != "db:3306" || cfg.DBName != "frontdesk" || cfg.User != "app" || cfg.Passwd != "secret" {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if !strings.Contains(dsn, "charset=utf8mb4") {
		t.Fatalf("dsn %q should select utf8mb4", dsn)
	}
}
