// Copyright 2025 Reown RPC Proxy
//
// Provider Catalog Loader
//
// Loads the static provider catalog from a YAML file, substituting
// ${VAR_NAME} references against the process environment before parsing.

package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// ProviderCatalog is the root of providers.yaml.
type ProviderCatalog struct {
	Providers []ProviderEntry `yaml:"providers"`
}

// ProviderEntry describes one configured upstream provider instance.
type ProviderEntry struct {
	Kind        string   `yaml:"kind"`
	URLTemplate string   `yaml:"url_template"`
	WSTemplate  string   `yaml:"ws_template,omitempty"`
	Credential  string   `yaml:"credential,omitempty"`
	Supports    []string `yaml:"supports"`
	SupportsWS  []string `yaml:"supports_ws,omitempty"`
}

// envVarPattern matches ${VAR_NAME} or ${VAR_NAME:-default}.
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(:-([^}]*))?\}`)

func substituteEnvVars(content string) string {
	return envVarPattern.ReplaceAllStringFunc(content, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		varName := groups[1]
		defaultValue := ""
		if len(groups) >= 4 {
			defaultValue = groups[3]
		}
		if value := os.Getenv(varName); value != "" {
			return value
		}
		return defaultValue
	})
}

// LoadProviderCatalog reads and parses the provider catalog at path,
// substituting environment variables of the form ${VAR_NAME} first.
func LoadProviderCatalog(path string) (*ProviderCatalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read provider catalog %s: %w", path, err)
	}

	expanded := substituteEnvVars(string(data))

	var catalog ProviderCatalog
	if err := yaml.Unmarshal([]byte(expanded), &catalog); err != nil {
		return nil, fmt.Errorf("failed to parse provider catalog %s: %w", path, err)
	}

	if err := catalog.validate(); err != nil {
		return nil, err
	}

	return &catalog, nil
}

func (c *ProviderCatalog) validate() error {
	var problems []string
	for i, p := range c.Providers {
		if p.Kind == "" {
			problems = append(problems, fmt.Sprintf("providers[%d].kind is required", i))
		}
		if p.URLTemplate == "" {
			problems = append(problems, fmt.Sprintf("providers[%d].url_template is required", i))
		}
		if len(p.Supports) == 0 {
			problems = append(problems, fmt.Sprintf("providers[%d].supports must list at least one chain", i))
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("provider catalog validation failed:\n  - %s", strings.Join(problems, "\n  - "))
	}
	return nil
}
