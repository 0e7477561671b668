package database_test

import (
	"net/url"
	"testing"

	"github.com/JaimeStill/upload-lab/pkg/database"
)

func TestConfig_Finalize_Defaults(t *testing.T) {
	cfg := &database.Config{}

	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}

	if cfg.Host != "localhost" || cfg.Port != 5432 {
		t.Errorf("Host:Port = %s:%d, want localhost:5432", cfg.Host, cfg.Port)
	}
	if cfg.Name != "upload_lab" || cfg.User != "upload_lab" {
		t.Errorf("Name/User = %s/%s, want upload_lab/upload_lab", cfg.Name, cfg.User)
	}
	if cfg.MaxOpenConns != 8 || cfg.MaxIdleConns != 2 {
		t.Errorf("conns = %d/%d, want 8/2", cfg.MaxOpenConns, cfg.MaxIdleConns)
	}
	if cfg.SSLMode != "disable" || cfg.ConnTimeout != "5s" {
		t.Errorf("SSLMode/ConnTimeout = %q/%q, want disable/5s", cfg.SSLMode, cfg.ConnTimeout)
	}
}

func TestConfig_Finalize_Validation(t *testing.T) {
	tests := []struct {
		name string
		cfg  database.Config
	}{
		{"bad port", database.Config{Port: 70000}},
		{"bad ssl mode", database.Config{SSLMode: "always"}},
		{"idle exceeds open", database.Config{MaxOpenConns: 2, MaxIdleConns: 4}},
		{"bad lifetime", database.Config{ConnMaxLifetime: "forever"}},
		{"bad timeout", database.Config{ConnTimeout: "soon"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Finalize(nil); err == nil {
				t.Error("Finalize() succeeded, want error")
			}
		})
	}
}

func TestConfig_Merge(t *testing.T) {
	cfg := &database.Config{Host: "db", Name: "tracking", MaxOpenConns: 4}
	cfg.Merge(&database.Config{Host: "replica", Port: 6432})

	if cfg.Host != "replica" || cfg.Port != 6432 || cfg.Name != "tracking" || cfg.MaxOpenConns != 4 {
		t.Errorf("merged = %+v", cfg)
	}
}

func TestConfig_Env(t *testing.T) {
	t.Setenv("TEST_DB_HOST", "db.internal")
	t.Setenv("TEST_DB_PORT", "6543")
	t.Setenv("TEST_DB_PASSWORD", "p@ss word")

	cfg := &database.Config{}
	env := &database.Env{Host: "TEST_DB_HOST", Port: "TEST_DB_PORT", Password: "TEST_DB_PASSWORD"}
	if err := cfg.Finalize(env); err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}

	u, err := url.Parse(cfg.Dsn())
	if err != nil {
		t.Fatalf("Dsn() %q does not parse: %v", cfg.Dsn(), err)
	}
	if u.Host != "db.internal:6543" || u.Path != "/upload_lab" {
		t.Errorf("Dsn() = %q, want db.internal:6543/upload_lab", cfg.Dsn())
	}
	if pw, _ := u.User.Password(); pw != "p@ss word" {
		t.Errorf("password = %q, want %q", pw, "p@ss word")
	}

	q := u.Query()
	if q.Get("sslmode") != "disable" || q.Get("application_name") != "upload-lab-tracking" || q.Get("connect_timeout") != "5" {
		t.Errorf("query = %v", q)
	}
}

func TestConfig_EnvInvalidInt(t *testing.T) {
	t.Setenv("TEST_DB_MAX_OPEN", "many")

	cfg := &database.Config{}
	if err := cfg.Finalize(&database.Env{MaxOpenConns: "TEST_DB_MAX_OPEN"}); err == nil {
		t.Error("Finalize() accepted a non-numeric pool size")
	}
}
