package api

import (
	"net/http"
	"testing"

	"github.com/angelmondragon/storefront/pkg/config"
)

func TestNewServerUsesConfiguredPort(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Port: "8081"}}
	srv := NewServer(cfg, http.NotFoundHandler())

	if srv.Addr != ":8081" {
		t.Fatalf("unexpected addr %q", srv.Addr)
	}
	if srv.ReadHeaderTimeout == 0 || srv.WriteTimeout <= srv.ReadTimeout {
		t.Fatalf("unexpected timeouts %+v", srv)
	}
}
