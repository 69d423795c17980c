// Package server is the HTTP surface: the websocket endpoint the game runs
// over plus a few read-only JSON routes for dashboards and health checks.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"

	"github.com/Rajput-xv/room-T-D/internal/content"
	"github.com/Rajput-xv/room-T-D/internal/game"
	"github.com/Rajput-xv/room-T-D/internal/signaling"
)

const shutdownGrace = 10 * time.Second

// Server wires the hub, registry and catalog behind an httprouter mux.
type Server struct {
	cfg      *Config
	registry *game.Registry
	catalog  *content.Catalog
	hub      *signaling.Hub
}

func New(cfg *Config, registry *game.Registry, catalog *content.Catalog, hub *signaling.Hub) *Server {
	return &Server{cfg: cfg, registry: registry, catalog: catalog, hub: hub}
}

// Router builds the route table.
func (s *Server) Router() *httprouter.Router {
	mux := httprouter.New()

	mux.GET("/healthz", s.serveHealth)
	mux.GET("/api/rooms", s.serveRooms)
	mux.GET("/api/rooms/:id", s.serveRoom)
	mux.GET("/api/truth", s.servePrompt(game.ChoiceTruth))
	mux.GET("/api/dare", s.servePrompt(game.ChoiceDare))
	mux.GET("/api/stats", s.serveStats)

	mux.HandlerFunc(http.MethodGet, "/ws", ServeWs(s.hub))

	return mux
}

// Run serves until ctx is cancelled, then drains connections for a grace
// period.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Addr(),
		Handler:      s.Router(),
		ReadTimeout:  0, // websocket connections are long-lived
		WriteTimeout: 0,
	}

	errs := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", srv.Addr)
		if s.cfg.TLSCert != "" {
			errs <- srv.ListenAndServeTLS(s.cfg.TLSCert, s.cfg.TLSKey)
		} else {
			errs <- srv.ListenAndServe()
		}
	}()

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("response write failed", "err", err)
	}
}

func (s *Server) serveHealth(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) serveRooms(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	rooms, err := s.registry.AvailableRooms(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list rooms"})
		return
	}
	if rooms == nil {
		rooms = []*game.Room{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"rooms": rooms})
}

func (s *Server) serveRoom(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	room, err := s.registry.Room(r.Context(), p.ByName("id"))
	if errors.Is(err, game.ErrRoomNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "room not found"})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to fetch room"})
		return
	}
	writeJSON(w, http.StatusOK, room)
}

func (s *Server) servePrompt(choice game.Choice) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		prompt := s.catalog.Random(choice)
		if choice == game.ChoiceTruth {
			writeJSON(w, http.StatusOK, map[string]string{"question": prompt})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"task": prompt})
	}
}

func (s *Server) serveStats(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	rooms, err := s.registry.AvailableRooms(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to gather stats"})
		return
	}
	members := 0
	for _, room := range rooms {
		members += len(room.Members)
	}
	truths, dares := s.catalog.Counts()
	writeJSON(w, http.StatusOK, map[string]any{
		"availableRooms": len(rooms),
		"seatedMembers":  members,
		"truths":         truths,
		"dares":          dares,
	})
}
