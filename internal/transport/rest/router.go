package rest

import (
	"net/http"
	"os"

	"github.com/gorilla/mux"

	"sinfiltro/internal/service"
	"sinfiltro/internal/transport/rest/handler"
	"sinfiltro/internal/transport/rest/middleware"
	"sinfiltro/internal/transport/ws"
)

// Container holds all dependencies for the router
type Container struct {
	AuthService   *service.AuthService
	RoomService   *service.RoomService
	PlayerService *service.PlayerService
	GameService   *service.GameService
	WSHub         *ws.Hub
}

// NewRouter creates the API router with all endpoints
func NewRouter(c *Container) http.Handler {
	r := mux.NewRouter()

	// Initialize handlers
	roomHandler := handler.NewRoomHandler(c.RoomService, c.PlayerService)
	gameHandler := handler.NewGameHandler(c.GameService, c.RoomService)
	wsHandler := ws.NewHandler(c.WSHub, c.AuthService, c.PlayerService)

	// Initialize middleware
	authMW := middleware.NewAuthMiddleware(c.AuthService)

	// CORS middleware (apply first)
	r.Use(corsMiddleware)

	// API v1 routes
	v1 := r.PathPrefix("/v1").Subrouter()

	// Public routes
	v1.HandleFunc("/rooms", roomHandler.Create).Methods("POST", "OPTIONS")
	v1.HandleFunc("/rooms/{code}", roomHandler.Get).Methods("GET", "OPTIONS")
	v1.HandleFunc("/rooms/{code}/joinable", roomHandler.Joinable).Methods("GET", "OPTIONS")
	v1.HandleFunc("/rooms/{code}/join", roomHandler.Join).Methods("POST", "OPTIONS")

	// WebSocket route (public with token in query param)
	v1.HandleFunc("/ws/rooms/{code}", wsHandler.RoomWS).Methods("GET")

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	// Player routes (require player auth)
	playerRoutes := v1.NewRoute().Subrouter()
	playerRoutes.Use(authMW.RequirePlayer)

	playerRoutes.HandleFunc("/rooms/{code}/leave", roomHandler.Leave).Methods("POST", "OPTIONS")
	playerRoutes.HandleFunc("/rooms/{code}/ready", roomHandler.Ready).Methods("POST", "OPTIONS")
	playerRoutes.HandleFunc("/rooms/{code}/config", roomHandler.UpdateConfig).Methods("PATCH", "OPTIONS")
	playerRoutes.HandleFunc("/rooms/{code}/kick", roomHandler.Kick).Methods("POST", "OPTIONS")

	playerRoutes.HandleFunc("/rooms/{code}/start", gameHandler.Start).Methods("POST", "OPTIONS")
	playerRoutes.HandleFunc("/rooms/{code}/answer", gameHandler.Answer).Methods("POST", "OPTIONS")
	playerRoutes.HandleFunc("/rooms/{code}/vote", gameHandler.Vote).Methods("POST", "OPTIONS")
	playerRoutes.HandleFunc("/rooms/{code}/phase", gameHandler.Phase).Methods("POST", "OPTIONS")
	playerRoutes.HandleFunc("/rooms/{code}/advance", gameHandler.Advance).Methods("POST", "OPTIONS")
	playerRoutes.HandleFunc("/rooms/{code}/state", gameHandler.State).Methods("GET", "OPTIONS")
	playerRoutes.HandleFunc("/rooms/{code}/results", gameHandler.Results).Methods("GET", "OPTIONS")

	return r
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowedOrigins := os.Getenv("CORS_ALLOWED_ORIGINS")
		if allowedOrigins == "" {
			allowedOrigins = "*"
		}

		allowedMethods := os.Getenv("CORS_ALLOWED_METHODS")
		if allowedMethods == "" {
			allowedMethods = "GET, POST, PATCH, DELETE, OPTIONS"
		}

		allowedHeaders := os.Getenv("CORS_ALLOWED_HEADERS")
		if allowedHeaders == "" {
			allowedHeaders = "Content-Type, Authorization"
		}

		w.Header().Set("Access-Control-Allow-Origin", allowedOrigins)
		w.Header().Set("Access-Control-Allow-Methods", allowedMethods)
		w.Header().Set("Access-Control-Allow-Headers", allowedHeaders)

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
