package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/denmalbas007/draw-together/domain"
)

// RoomService is the slice of the hub the HTTP surface needs.
type RoomService interface {
	SaveRoom(roomID string) error
	RoomStats(roomID string) (domain.RoomStats, error)
	Stats() (rooms, clients int)
}

// RoomLister is the slice of the store the HTTP surface needs.
type RoomLister interface {
	ListRooms() ([]domain.RoomInfo, error)
}

// NewRouter builds the REST surface: room listing, on-demand save, per-room
// stats and process health.
func NewRouter(rooms RoomService, lister RoomLister) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
	}))

	r.Get("/health", handleHealth)
	r.Get("/stats", handleStats(rooms))
	r.Route("/api/rooms", func(r chi.Router) {
		r.Get("/", handleListRooms(lister))
		r.Post("/{roomID}/save", handleSaveRoom(rooms))
		r.Get("/{roomID}/stats", handleRoomStats(rooms))
	})

	return r
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func handleStats(rooms RoomService) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		roomCount, clients := rooms.Stats()
		writeJSON(w, http.StatusOK, map[string]int{"rooms": roomCount, "clients": clients})
	}
}

func handleListRooms(lister RoomLister) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		list, err := lister.ListRooms()
		if err != nil {
			slog.Error("list rooms failed", "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "storage unavailable"})
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func handleSaveRoom(rooms RoomService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roomID := chi.URLParam(r, "roomID")
		err := rooms.SaveRoom(roomID)
		switch {
		case errors.Is(err, domain.ErrRoomNotFound):
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "room not found"})
		case err != nil:
			slog.Error("save room failed", "room", roomID, "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "save failed"})
		default:
			writeJSON(w, http.StatusOK, map[string]string{"status": "saved"})
		}
	}
}

func handleRoomStats(rooms RoomService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roomID := chi.URLParam(r, "roomID")
		stats, err := rooms.RoomStats(roomID)
		if err != nil {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "room not found"})
			return
		}
		writeJSON(w, http.StatusOK, stats)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
