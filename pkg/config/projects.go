// Copyright 2025 Reown RPC Proxy
//
// Project Catalog Loader
//
// Loads the static project catalog (id, allowed origins, quota) from a
// YAML file, the same way LoadProviderCatalog loads providers.yaml. The
// real project registry is an external collaborator out of this gateway's
// scope; this is the local stand-in used when one isn't wired in.

package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ProjectCatalog is the root of projects.yaml.
type ProjectCatalog struct {
	Projects []ProjectEntry `yaml:"projects"`
}

// ProjectEntry describes one registered caller's allowance.
type ProjectEntry struct {
	ID             string   `yaml:"id"`
	AllowedOrigins []string `yaml:"allowed_origins,omitempty"`
	Quota          int64    `yaml:"quota"`
}

// LoadProjectCatalog reads and parses the project catalog at path.
func LoadProjectCatalog(path string) (*ProjectCatalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read project catalog %s: %w", path, err)
	}

	var catalog ProjectCatalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("failed to parse project catalog %s: %w", path, err)
	}

	for i, p := range catalog.Projects {
		if p.ID == "" {
			return nil, fmt.Errorf("projects[%d].id is required", i)
		}
	}

	return &catalog, nil
}
