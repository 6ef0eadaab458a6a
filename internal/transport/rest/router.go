// Package rest
package rest

import (
	"net/http"

	"netsampler/internal/config"
	"netsampler/internal/logger"
	"netsampler/internal/transport/rest/middleware"
	"netsampler/internal/transport/websocket"
)

type RouterDeps struct {
	Ws      *websocket.Handler
	Sampler *SamplerHandler
	// Signal is nil unless the push signal source is configured.
	Signal  *SignalHandler
	Metrics http.Handler
}

func NewRouter(cfg *config.Config, deps *RouterDeps, log logger.Logger) http.Handler {
	mux := http.NewServeMux()

	globalMw := middleware.New()
	globalMw.Use(middleware.Logger(log))
	globalMw.Use(middleware.CORS(cfg))

	// HEALTH
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	// METRICS
	if deps.Metrics != nil {
		mux.Handle("GET /metrics", deps.Metrics)
	}

	// WEBSOCKET
	if deps.Ws != nil {
		mux.HandleFunc("GET /ws", deps.Ws.Serve)
	}

	// SAMPLER
	mux.HandleFunc("GET /samples/latest", deps.Sampler.Latest)
	mux.HandleFunc("GET /sampler/status", deps.Sampler.Status)
	mux.HandleFunc("POST /sampler/start", deps.Sampler.Start)
	mux.HandleFunc("POST /sampler/stop", deps.Sampler.Stop)

	// RADIO
	if deps.Signal != nil {
		mux.HandleFunc("POST /radio/signal", deps.Signal.Push)
	}

	return globalMw.Then(mux)
}
