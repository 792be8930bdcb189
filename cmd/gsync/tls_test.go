package main

import (
	"context"
	"path/filepath"
	"testing"
)

func TestNewCertManager(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "certs")

	m, err := newCertManager(" tau-core.io, www.tau-core.io ,", dir)
	if err != nil {
		t.Fatalf("newCertManager: %v", err)
	}

	ctx := context.Background()
	for _, host := range []string{"tau-core.io", "www.tau-core.io"} {
		if err := m.HostPolicy(ctx, host); err != nil {
			t.Errorf("HostPolicy(%q) = %v, want nil", host, err)
		}
	}
	if err := m.HostPolicy(ctx, "evil.example"); err == nil {
		t.Error("HostPolicy should reject unlisted hosts")
	}
}

func TestNewCertManagerNoDomains(t *testing.T) {
	if _, err := newCertManager(" , ", t.TempDir()); err == nil {
		t.Error("expected error for empty domain list")
	}
}

func TestDisplayAddr(t *testing.T) {
	tests := map[string]string{
		":5000":          "0.0.0.0:5000",
		"127.0.0.1:8080": "127.0.0.1:8080",
		"":               "",
	}
	for in, want := range tests {
		if got := displayAddr(in); got != want {
			t.Errorf("displayAddr(%q) = %q, want %q", in, got, want)
		}
	}
}
