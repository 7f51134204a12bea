package handlers

import (
	"net/http"

	"github.com/bhoomi-id/bhoomi/internal/app"
	httpx "github.com/bhoomi-id/bhoomi/internal/http/httpx"
)

// NewReadyzHandler chequea las dependencias duras (store y cache).
func NewReadyzHandler(c *app.Container) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := c.Store.Ping(r.Context()); err != nil {
			httpx.WriteError(w, http.StatusServiceUnavailable, "not_ready", "store no disponible", httpx.CodeInternal)
			return
		}
		if c.Cache != nil {
			if err := c.Cache.Ping(r.Context()); err != nil {
				httpx.WriteError(w, http.StatusServiceUnavailable, "not_ready", "cache no disponible", httpx.CodeInternal)
				return
			}
		}
		httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}
