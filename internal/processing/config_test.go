package processing_test

import (
	"slices"
	"testing"
	"time"

	"github.com/JaimeStill/upload-lab/internal/processing"
)

func TestConfig_Defaults(t *testing.T) {
	cfg := &processing.Config{}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("Finalize() failed: %v", err)
	}

	if cfg.DelayDuration() != 5*time.Second {
		t.Errorf("DelayDuration() = %v, want 5s", cfg.DelayDuration())
	}
	if !slices.Equal(cfg.Operations, []string{"summary", "qa"}) {
		t.Errorf("Operations = %v, want [summary qa]", cfg.Operations)
	}
}

func TestConfig_Env(t *testing.T) {
	t.Setenv("TEST_PROCESSING_DELAY", "250ms")
	t.Setenv("TEST_PROCESSING_OPERATIONS", "summary, qa ,quiz")

	cfg := &processing.Config{}
	err := cfg.Finalize(&processing.Env{
		Delay:      "TEST_PROCESSING_DELAY",
		Operations: "TEST_PROCESSING_OPERATIONS",
	})
	if err != nil {
		t.Fatalf("Finalize() failed: %v", err)
	}

	if cfg.DelayDuration() != 250*time.Millisecond {
		t.Errorf("DelayDuration() = %v, want 250ms", cfg.DelayDuration())
	}
	if !slices.Equal(cfg.Operations, []string{"summary", "qa", "quiz"}) {
		t.Errorf("Operations = %v, want [summary qa quiz]", cfg.Operations)
	}
}

func TestConfig_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		delay string
	}{
		{"unparseable", "soon"},
		{"negative", "-1s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &processing.Config{Delay: tt.delay}
			if err := cfg.Finalize(nil); err == nil {
				t.Error("Finalize() succeeded, want error")
			}
		})
	}
}

func TestConfig_Merge(t *testing.T) {
	cfg := &processing.Config{Delay: "5s", Operations: []string{"summary"}}
	cfg.Merge(&processing.Config{Delay: "1s"})

	if cfg.Delay != "1s" || !slices.Equal(cfg.Operations, []string{"summary"}) {
		t.Errorf("Merge() = %+v", cfg)
	}
}
