package server

import (
	"fmt"
	"net/http"
	"time"

	"hardhat-shell/internal/config"
)

// NewHTTPServer binds the loopback interface only. The UI is the sole
// intended client; nothing here is meant to be reachable from the network.
func NewHTTPServer(cfg config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf("127.0.0.1:%d", cfg.Port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
