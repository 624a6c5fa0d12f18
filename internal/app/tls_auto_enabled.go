//go:build autocert

package app

import (
	"crypto/tls"
	"errors"
	"net/http"

	"golang.org/x/crypto/acme/autocert"

	"github.com/gonglijing/alertfi/internal/config"
)

func listenAndServeWithAutoCert(server *http.Server, cfg *config.Config) error {
	if server == nil || cfg == nil {
		return http.ErrServerClosed
	}

	manager := &autocert.Manager{
		Cache:      autocert.DirCache(cfg.TLSCacheDir),
		Prompt:     autocert.AcceptTOS,
		HostPolicy: autocert.HostWhitelist(cfg.TLSDomain),
	}
	server.TLSConfig = &tls.Config{
		GetCertificate: manager.GetCertificate,
		MinVersion:     tls.VersionTLS12,
	}

	// ACME HTTP-01 质询
	go func() {
		if err := http.ListenAndServe(":80", manager.HTTPHandler(nil)); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("acme challenge listener stopped", err)
		}
	}()

	log.Info("starting HTTPS (auto-cert)", "addr", cfg.ListenAddr, "domain", cfg.TLSDomain)
	return server.ListenAndServeTLS("", "")
}
