package httpserver

import (
	"net/http"
	"time"
)

// New builds the gateway's HTTP server. The write timeout leaves headroom
// over the upstream NID verification budget so a slow verification is
// reported to the partner instead of being cut off mid-response.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
}
