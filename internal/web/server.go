// Package web exposes the bot's HTTP surface: a health probe and the webhook
// endpoint that feeds deposit events into the notification layer when Pusher
// is not configured.
package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/copperx/payout-bot/internal/notify"
)

// EventSink receives webhook events. *notify.WebhookProvider satisfies it.
type EventSink interface {
	Deliver(channel, event string, payload []byte) error
}

type Server struct {
	router    *mux.Router
	sink      EventSink
	bind      string
	jwtSecret []byte
}

func New(bind, jwtSecret string, sink EventSink) *Server {
	s := &Server{
		router:    mux.NewRouter(),
		sink:      sink,
		bind:      bind,
		jwtSecret: []byte(jwtSecret),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/healthz", s.handleHealth).Methods("GET")

	protected := s.router.PathPrefix("/api").Subrouter()
	protected.Use(s.authMiddleware)
	protected.HandleFunc("/events/{channel}", s.handleEvent).Methods("POST")
}

// Handler returns the full HTTP handler, CORS included.
func (s *Server) Handler() http.Handler {
	corsOptions := cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: false,
	}
	return cors.New(corsOptions).Handler(s.router)
}

func (s *Server) Start() error {
	log.Printf("web server listening on http://%s", s.bind)
	return http.ListenAndServe(s.bind, s.Handler())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

type eventRequest struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	channel := mux.Vars(r)["channel"]

	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Event == "" {
		http.Error(w, "missing event name", http.StatusBadRequest)
		return
	}

	if err := s.sink.Deliver(channel, req.Event, req.Data); err != nil {
		if errors.Is(err, notify.ErrUnknownChannel) {
			http.Error(w, "no subscription for channel", http.StatusNotFound)
			return
		}
		http.Error(w, "delivery failed", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]string{"status": "accepted"})
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "missing authorization header", http.StatusUnauthorized)
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			http.Error(w, "invalid authorization header", http.StatusUnauthorized)
			return
		}

		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method")
			}
			return s.jwtSecret, nil
		})
		if err != nil || !token.Valid {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}
