// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
	"github.com/tribalfm/tribal/internal/auth"
	"github.com/tribalfm/tribal/internal/cache"
	"github.com/tribalfm/tribal/internal/database"
	"github.com/tribalfm/tribal/internal/handlers"
	"github.com/tribalfm/tribal/internal/middleware"
	"github.com/tribalfm/tribal/internal/spotify"
)

func main() {
	auth.Init()
	database.ConnectDB()

	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)

	// Redis journaling is best effort; the session flow works without it.
	if err := cache.ConnectRedis(); err != nil {
		logger.Warnf("redis unavailable, event journaling disabled: %v", err)
	}

	sp := spotify.NewClient(os.Getenv("SPOTIFY_API_BASE"))
	ss := handlers.NewSessionServer(logger, sp)

	logMW := middleware.LogMiddleware(logger)
	mux := http.NewServeMux()

	// health + catalog
	mux.HandleFunc("/test", handlers.TestHandler)
	mux.Handle("/tracks", logMW(http.HandlerFunc(ss.TracksHandler)))

	// user endpoints
	mux.HandleFunc("/user/create", handlers.CreateUserHandler)
	mux.HandleFunc("/user/login", handlers.LoginHandler)
	mux.HandleFunc("/user/me", handlers.MeHandler)

	// playlist endpoints
	mux.Handle("/playlists", logMW(http.HandlerFunc(handlers.ListPlaylistsHandler)))
	mux.Handle("/playlist/create", logMW(http.HandlerFunc(handlers.CreatePlaylistHandler)))
	mux.Handle("/playlist/", logMW(http.HandlerFunc(handlers.PlaylistRouter)))

	// session websocket
	mux.Handle("/session/ws", logMW(http.HandlerFunc(
		handlers.SessionWSHandler(logger, ss),
	)))

	addr := ":4242"
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}

	server := &http.Server{Addr: addr, Handler: mux}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Infof("Running on %s", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server exited: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("shutdown did not finish cleanly: %v", err)
	}
	database.DB.Close()
}
