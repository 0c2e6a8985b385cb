// Copyright 2025 Reown RPC Proxy
//
// Package quota gates requests on project identity and quota headroom.

package quota

import (
	"sync"

	"github.com/reown-rpc-proxy/gateway/pkg/gatewayerr"
)

// Project is one registered caller's allowance.
type Project struct {
	ID             string
	AllowedOrigins []string
	Quota          int64
}

// ProjectStore resolves a project id to its configuration. The composition
// root wires a concrete implementation (static catalog, remote registry,
// ...); the gate only depends on this interface.
type ProjectStore interface {
	Project(id string) (Project, bool)
}

// Gate enforces project existence and quota headroom before a request
// reaches the selector.
type Gate struct {
	store    ProjectStore
	disabled bool

	mu    sync.Mutex
	usage map[string]int64
}

// New returns a gate reading project configuration from store. When
// disabled is true (test mode), Check always succeeds without consulting
// store, per the configuration flag described for the quota/access gate.
func New(store ProjectStore, disabled bool) *Gate {
	return &Gate{store: store, disabled: disabled, usage: make(map[string]int64)}
}

// Check verifies projectID exists and has quota headroom, atomically
// bumping its usage counter on success.
func (g *Gate) Check(projectID string) error {
	if g.disabled {
		return nil
	}

	project, ok := g.store.Project(projectID)
	if !ok {
		return gatewayerr.ErrUnauthorized
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.usage[projectID] >= project.Quota {
		return gatewayerr.ErrQuotaExceeded
	}
	g.usage[projectID]++
	return nil
}
