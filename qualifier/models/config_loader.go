package models

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadRIDQualifierTestConfiguration reads and parses a
// RIDQualifierTestConfiguration from a YAML file, adapted from the teacher
// engine's YAML-configuration loading pattern in its runtime package
// (without that package's fsnotify hot-reload: a one-shot test run has
// nothing long-lived to reload into).
func LoadRIDQualifierTestConfiguration(path string) (RIDQualifierTestConfiguration, error) {
	var cfg RIDQualifierTestConfiguration
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("ridqualifier: reading test configuration %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("ridqualifier: parsing test configuration %s: %w", path, err)
	}
	return cfg, nil
}

// LoadEvaluationConfiguration reads and parses an EvaluationConfiguration
// from a YAML file.
func LoadEvaluationConfiguration(path string) (EvaluationConfiguration, error) {
	var cfg EvaluationConfiguration
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("ridqualifier: reading evaluation configuration %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("ridqualifier: parsing evaluation configuration %s: %w", path, err)
	}
	return cfg, nil
}
