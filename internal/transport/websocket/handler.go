// Package websocket streams published samples to browser and LAN clients.
package websocket

import (
	"net/http"
	"slices"

	"github.com/gorilla/websocket"

	"netsampler/internal/config"
	"netsampler/internal/logger"
)

type Handler struct {
	hub      Hub
	upgrader websocket.Upgrader
	log      logger.Logger
}

func NewHandler(hub Hub, log logger.Logger, cfg *config.Config) *Handler {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" || len(cfg.AllowedOrigins) == 0 {
				return true
			}

			if !slices.Contains(cfg.AllowedOrigins, origin) {
				log.Warn("ws: origin rejected", "origin", origin)
				return false
			}
			return true
		},
	}

	return &Handler{
		hub:      hub,
		upgrader: upgrader,
		log:      log,
	}
}

func (h *Handler) Serve(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error("ws: upgrade failed", "error", err)
		return
	}

	client := NewClient(h.hub, conn, h.log)
	go client.writePump()
	go client.readPump()

	h.log.Info("ws: client connected", "client_id", client.ID, "remote_addr", conn.RemoteAddr())
}
