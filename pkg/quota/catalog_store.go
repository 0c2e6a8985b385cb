// Copyright 2025 Reown RPC Proxy

package quota

import "github.com/reown-rpc-proxy/gateway/pkg/config"

// CatalogStore adapts a static config.ProjectCatalog to ProjectStore.
type CatalogStore struct {
	projects map[string]Project
}

// NewCatalogStore indexes catalog by project id.
func NewCatalogStore(catalog *config.ProjectCatalog) *CatalogStore {
	s := &CatalogStore{projects: make(map[string]Project, len(catalog.Projects))}
	for _, p := range catalog.Projects {
		s.projects[p.ID] = Project{ID: p.ID, AllowedOrigins: p.AllowedOrigins, Quota: p.Quota}
	}
	return s
}

// Project implements ProjectStore.
func (s *CatalogStore) Project(id string) (Project, bool) {
	p, ok := s.projects[id]
	return p, ok
}
