package database_test

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/JaimeStill/upload-lab/pkg/database"
)

func TestNew_ConnectionNotReady(t *testing.T) {
	cfg := &database.Config{Name: "uploads", User: "uploads"}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("Finalize() failed: %v", err)
	}

	sys, err := database.New(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	if _, err := sys.Connection(); !errors.Is(err, database.ErrNotReady) {
		t.Errorf("Connection() error = %v, want %v", err, database.ErrNotReady)
	}
}
