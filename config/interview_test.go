package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadInterviewMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadInterview(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("LoadInterview error: %v", err)
	}
	if cfg != DefaultInterview() {
		t.Errorf("cfg = %+v, want defaults", cfg)
	}
}

func TestLoadInterviewFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "interview.yaml")
	body := "question_count: 5\nsilence_timeout_ms: 3000\nturn_lock_ttl: 10s\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadInterview(path)
	if err != nil {
		t.Fatalf("LoadInterview error: %v", err)
	}
	if cfg.QuestionCount != 5 {
		t.Errorf("QuestionCount = %d, want 5", cfg.QuestionCount)
	}
	if cfg.SilenceTimeout() != 3*time.Second {
		t.Errorf("SilenceTimeout = %v, want 3s", cfg.SilenceTimeout())
	}
	if cfg.TurnLockTTL != 10*time.Second {
		t.Errorf("TurnLockTTL = %v, want 10s", cfg.TurnLockTTL)
	}
	if cfg.GenerationAttempts != 2 {
		t.Errorf("GenerationAttempts = %d, want default 2", cfg.GenerationAttempts)
	}
}

func TestLoadInterviewEnvOverride(t *testing.T) {
	t.Setenv("QUESTION_COUNT", "9")
	t.Setenv("SILENCE_TIMEOUT_MS", "1500")

	cfg, err := LoadInterview(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("LoadInterview error: %v", err)
	}
	if cfg.QuestionCount != 9 || cfg.SilenceTimeoutMS != 1500 {
		t.Errorf("cfg = %+v, want env overrides", cfg)
	}
}

func TestLoadInterviewInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"zero questions", "question_count: 0\n"},
		{"no attempts", "generation_attempts: 0\n"},
		{"bad yaml", "question_count: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "interview.yaml")
			if err := os.WriteFile(path, []byte(tt.body), 0o644); err != nil {
				t.Fatal(err)
			}
			if _, err := LoadInterview(path); err == nil {
				t.Error("expected error")
			}
		})
	}
}
