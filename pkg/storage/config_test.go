package storage_test

import (
	"testing"

	"github.com/JaimeStill/upload-lab/pkg/storage"
)

func TestConfig_Finalize_Defaults(t *testing.T) {
	cfg := &storage.Config{}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("Finalize() failed: %v", err)
	}

	if cfg.BasePath != ".data/blobs" {
		t.Errorf("BasePath = %q, want %q", cfg.BasePath, ".data/blobs")
	}
	if cfg.MaxUploadSizeBytes() != 1<<30 {
		t.Errorf("MaxUploadSizeBytes() = %d, want %d", cfg.MaxUploadSizeBytes(), 1<<30)
	}
}

func TestConfig_Finalize_Sizes(t *testing.T) {
	tests := []struct {
		size    string
		want    int64
		wantErr bool
	}{
		{"25MiB", 25 << 20, false},
		{"1GB", 1 << 30, false},
		{"512k", 512 << 10, false},
		{"lots", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.size, func(t *testing.T) {
			cfg := &storage.Config{MaxUploadSize: tt.size}
			err := cfg.Finalize(nil)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Finalize() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && cfg.MaxUploadSizeBytes() != tt.want {
				t.Errorf("MaxUploadSizeBytes() = %d, want %d", cfg.MaxUploadSizeBytes(), tt.want)
			}
		})
	}
}

func TestConfig_Env(t *testing.T) {
	t.Setenv("TEST_STORAGE_PATH", "/tmp/uploads")

	cfg := &storage.Config{}
	if err := cfg.Finalize(&storage.Env{BasePath: "TEST_STORAGE_PATH"}); err != nil {
		t.Fatalf("Finalize() failed: %v", err)
	}
	if cfg.BasePath != "/tmp/uploads" {
		t.Errorf("BasePath = %q, want %q", cfg.BasePath, "/tmp/uploads")
	}
}
