// Copyright 2025 Reown RPC Proxy

package quota

import (
	"errors"
	"testing"

	"github.com/reown-rpc-proxy/gateway/pkg/gatewayerr"
)

type staticStore map[string]Project

func (s staticStore) Project(id string) (Project, bool) {
	p, ok := s[id]
	return p, ok
}

func TestCheckUnknownProject(t *testing.T) {
	g := New(staticStore{}, false)
	if err := g.Check("nope"); !errors.Is(err, gatewayerr.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestCheckQuotaExceeded(t *testing.T) {
	store := staticStore{"p1": {ID: "p1", Quota: 2}}
	g := New(store, false)

	if err := g.Check("p1"); err != nil {
		t.Fatalf("unexpected error on first call: %v", err)
	}
	if err := g.Check("p1"); err != nil {
		t.Fatalf("unexpected error on second call: %v", err)
	}
	if err := g.Check("p1"); !errors.Is(err, gatewayerr.ErrQuotaExceeded) {
		t.Fatalf("expected ErrQuotaExceeded on third call, got %v", err)
	}
}

func TestCheckDisabledShortCircuits(t *testing.T) {
	g := New(staticStore{}, true)
	if err := g.Check("anything"); err != nil {
		t.Fatalf("expected disabled gate to always pass, got %v", err)
	}
}
