package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const DefaultInterviewConfigPath = "config/interview.yaml"

// Interview holds the tuning knobs of the interview flow.
type Interview struct {
	QuestionCount      int           `yaml:"question_count"`
	MinQuestionLength  int           `yaml:"min_question_length"`
	GenerationAttempts int           `yaml:"generation_attempts"`
	SilenceTimeoutMS   int           `yaml:"silence_timeout_ms"`
	TurnLockTTL        time.Duration `yaml:"turn_lock_ttl"`
	DoubtCacheTTL      time.Duration `yaml:"doubt_cache_ttl"`
}

func DefaultInterview() Interview {
	return Interview{
		QuestionCount:      7,
		MinQuestionLength:  6,
		GenerationAttempts: 2,
		SilenceTimeoutMS:   5000,
		TurnLockTTL:        30 * time.Second,
		DoubtCacheTTL:      24 * time.Hour,
	}
}

// LoadInterview reads the YAML file at path over the defaults. A missing
// file is not an error. QUESTION_COUNT and SILENCE_TIMEOUT_MS override the
// file.
func LoadInterview(path string) (Interview, error) {
	cfg := DefaultInterview()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return cfg, fmt.Errorf("read %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	cfg.QuestionCount = getEnvAsInt("QUESTION_COUNT", cfg.QuestionCount)
	cfg.SilenceTimeoutMS = getEnvAsInt("SILENCE_TIMEOUT_MS", cfg.SilenceTimeoutMS)

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Interview) Validate() error {
	if c.QuestionCount <= 0 {
		return errors.New("question_count must be greater than 0")
	}
	if c.MinQuestionLength < 0 {
		return errors.New("min_question_length cannot be negative")
	}
	if c.GenerationAttempts < 1 {
		return errors.New("generation_attempts must be at least 1")
	}
	if c.SilenceTimeoutMS <= 0 {
		return errors.New("silence_timeout_ms must be greater than 0")
	}
	if c.TurnLockTTL <= 0 {
		return errors.New("turn_lock_ttl must be greater than 0")
	}
	return nil
}

func (c Interview) SilenceTimeout() time.Duration {
	return time.Duration(c.SilenceTimeoutMS) * time.Millisecond
}

func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
