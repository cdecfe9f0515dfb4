package mariadb

import (
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
)

func TestNormalizeDSN(t *testing.T) {
	dsn, err := normalizeDSN("faceauth:secret@tcp(mariadb:3306)/faceauth")
	if err != nil {
		t.Fatalf("normalizeDSN() error: %v", err)
	}

	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		t.Fatalf("ParseDSN() error: %v", err)
	}
	if !cfg.ParseTime {
		t.Error("expected parseTime to be enabled")
	}
	if cfg.Loc != time.UTC {
		t.Errorf("expected UTC location, got %v", cfg.Loc)
	}
	if cfg.Addr != "mariadb:3306" || cfg.DBName != "faceauth" || cfg.User != "faceauth" {
		t.Errorf("unexpected parsed DSN: %+v", cfg)
	}
}

func TestNormalizeDSN_Invalid(t *testing.T) {
	if _, err := normalizeDSN("not a dsn"); err == nil {
		t.Error("expected error for invalid DSN")
	}
}
