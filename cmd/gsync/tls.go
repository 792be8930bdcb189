package main

import (
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/crypto/acme/autocert"
)

// newCertManager returns an ACME manager issuing certificates for the
// comma-separated hosts in domains, cached under cacheDir.
func newCertManager(domains, cacheDir string) (*autocert.Manager, error) {
	var hosts []string
	for _, d := range strings.Split(domains, ",") {
		if d = strings.TrimSpace(d); d != "" {
			hosts = append(hosts, d)
		}
	}
	if len(hosts) == 0 {
		return nil, errors.New("no TLS domains configured")
	}

	if err := os.MkdirAll(cacheDir, 0o700); err != nil {
		return nil, fmt.Errorf("create cert cache dir: %w", err)
	}

	return &autocert.Manager{
		Cache:      autocert.DirCache(cacheDir),
		Prompt:     autocert.AcceptTOS,
		HostPolicy: autocert.HostWhitelist(hosts...),
	}, nil
}

// serveTLS runs srv on :443 with ACME certificates and returns the :80
// server that answers HTTP-01 challenges and redirects everything else.
func serveTLS(srv *http.Server, manager *autocert.Manager, logger *slog.Logger) *http.Server {
	tlsCfg := manager.TLSConfig()
	tlsCfg.MinVersion = tls.VersionTLS12
	srv.Addr = ":443"
	srv.TLSConfig = tlsCfg

	challenge := &http.Server{
		Addr:              ":80",
		Handler:           manager.HTTPHandler(nil),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("starting ACME challenge server", "addr", challenge.Addr)
		if err := challenge.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("challenge server listen error", "error", err)
		}
	}()

	go func() {
		logger.Info("starting TLS server", "addr", srv.Addr)
		// Certificates come from TLSConfig.GetCertificate.
		if err := srv.ListenAndServeTLS("", ""); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server listen error", "error", err)
			os.Exit(1)
		}
	}()

	return challenge
}
