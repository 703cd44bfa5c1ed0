package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Load reads and parses a YAML project file at path.
// If path does not exist or is empty, it returns an empty Config with no errors.
// If the YAML is malformed, it returns nil config with a parse error.
// For validation errors, it returns a valid config with invalid entries stripped
// plus errors describing what was removed.
func Load(path string) (*Config, []error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, []error{fmt.Errorf("failed to read config file: %w", err)}
	}

	if len(strings.TrimSpace(string(data))) == 0 {
		return &Config{}, nil
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, []error{fmt.Errorf("failed to parse config YAML: %w", err)}
	}

	var validationErrors []error

	if cfg.Entry != "" {
		if err := ValidateEntry(cfg.Entry); err != nil {
			validationErrors = append(validationErrors, fmt.Errorf("entry: %w", err))
			cfg.Entry = ""
		}
	}

	if cfg.Port < 0 || cfg.Port > 65535 {
		validationErrors = append(validationErrors, fmt.Errorf("port: out of range: %d", cfg.Port))
		cfg.Port = 0
	}

	cfg.HTTP, validationErrors = validRules("http", cfg.HTTP, false, validationErrors)
	cfg.HTTPS, validationErrors = validRules("https", cfg.HTTPS, true, validationErrors)

	timings := []struct {
		name  string
		value *string
	}{
		{"timing.startupGrace", &cfg.Timing.StartupGrace},
		{"timing.keepalive", &cfg.Timing.Keepalive},
		{"timing.debounce", &cfg.Timing.Debounce},
	}
	for _, tm := range timings {
		if *tm.value == "" {
			continue
		}
		d, err := time.ParseDuration(*tm.value)
		if err != nil || d < 0 {
			validationErrors = append(validationErrors, fmt.Errorf("%s: invalid duration %q", tm.name, *tm.value))
			*tm.value = ""
		}
	}

	return &cfg, validationErrors
}

func validRules(field string, raws []string, secure bool, errs []error) ([]string, []error) {
	valid := make([]string, 0, len(raws))
	for i, raw := range raws {
		if _, err := ParseForwardRule(raw, secure); err != nil {
			errs = append(errs, fmt.Errorf("%s[%d]: %w", field, i, err))
			continue
		}
		valid = append(valid, raw)
	}
	return valid, errs
}
