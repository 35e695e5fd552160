package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/joho/godotenv"

	"github.com/denmalbas007/draw-together/api"
	"github.com/denmalbas007/draw-together/hub"
	"github.com/denmalbas007/draw-together/protocol"
	"github.com/denmalbas007/draw-together/store"
	ws "github.com/denmalbas007/draw-together/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Warn("no .env file found, using environment variables")
	}
	setupLogger()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		dbPath = "drawings.db"
	}

	st, err := store.Open(dbPath)
	if err != nil {
		slog.Error("store init failed", "path", dbPath, "error", err)
		os.Exit(1)
	}

	rooms := hub.New(st)
	handler := protocol.NewHandler(rooms)

	router := api.NewRouter(rooms, st)
	router.Get("/ws/{roomID}", wsHandler(rooms, handler))

	server := &http.Server{
		Addr:    ":" + port,
		Handler: router,
	}

	go func() {
		slog.Info("server starting", "port", port, "db", dbPath)
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("server shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}

func setupLogger() {
	level := slog.LevelInfo
	switch os.Getenv("LOG_LEVEL") {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})))
}

func wsHandler(rooms *hub.Hub, handler *protocol.Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roomID := chi.URLParam(r, "roomID")
		if roomID == "" {
			http.Error(w, "missing room id", http.StatusBadRequest)
			return
		}

		query := r.URL.Query()
		userID := query.Get("user_id")
		if userID == "" {
			userID = uuid.New().String()
		}
		nickname := query.Get("nickname")
		if nickname == "" {
			nickname = "Anonymous"
		}
		password := query.Get("password")

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			slog.Error("upgrade error", "room", roomID, "error", err)
			return
		}

		ws.NewConn(userID, nickname, roomID, conn, rooms, handler).Start(password)
	}
}
