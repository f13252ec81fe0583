package router

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	httpmiddleware "github.com/wolfman30/vetchat-assistant/internal/http/middleware"
	"github.com/wolfman30/vetchat-assistant/internal/webchat"
	"github.com/wolfman30/vetchat-assistant/pkg/logging"
)

const serviceName = "vetchat-assistant"

// Pinger reports whether a backing service is reachable.
type Pinger func(ctx context.Context) error

// Config holds router configuration
type Config struct {
	Logger             *logging.Logger
	ChatHandler        *webchat.Handler
	MetricsHandler     http.Handler
	HealthChecks       map[string]Pinger
	CORSAllowedOrigins []string
	RateLimitRPS       float64
	RateLimitBurst     int
	StaffJWTSecret     string
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(httpmiddleware.SecurityHeaders)
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Get("/", indexHandler(cfg.StaffJWTSecret != ""))
	r.Get("/health", healthHandler(cfg.HealthChecks))
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	chat := cfg.ChatHandler
	if chat == nil {
		return r
	}

	r.Route("/api", func(api chi.Router) {
		// Sockets need the raw writer, so they skip compression.
		api.Get("/chat/ws", chat.HandleWebSocket)

		api.Group(func(rest chi.Router) {
			rest.Use(middleware.Compress(5))
			rest.Get("/chat/history/{sessionID}", chat.HandleHistory)
			rest.Get("/appointments", chat.HandleAppointments)
			rest.Get("/appointments/{sessionID}", chat.HandleAppointments)

			rest.Group(func(limited chi.Router) {
				if cfg.RateLimitRPS > 0 {
					limited.Use(httpmiddleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst))
				}
				limited.Post("/chat/session", chat.HandleCreateSession)
				limited.Post("/chat/message", chat.HandleMessage)
			})
		})
	})

	if cfg.StaffJWTSecret != "" {
		r.Route("/admin", func(admin chi.Router) {
			admin.Use(httpmiddleware.StaffJWT(cfg.StaffJWTSecret))
			admin.Get("/appointments", chat.HandleAllAppointments)
			admin.Get("/appointments/{appointmentID}", chat.HandleAppointment)
		})
	}
	return r
}

func healthHandler(checks map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		resp := map[string]string{
			"status":    "ok",
			"service":   serviceName,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		}
		status := http.StatusOK
		for name, ping := range checks {
			if err := ping(ctx); err != nil {
				resp[name] = "unavailable"
				resp["status"] = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			resp[name] = "ok"
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(resp)
	}
}

// indexHandler lists the public endpoints so a widget developer can find them.
func indexHandler(staff bool) http.HandlerFunc {
	endpoints := map[string]string{
		"health":          "GET /health",
		"createSession":   "POST /api/chat/session",
		"sendMessage":     "POST /api/chat/message",
		"getHistory":      "GET /api/chat/history/{sessionID}",
		"getAppointments": "GET /api/appointments/{sessionID}",
		"websocket":       "GET /api/chat/ws?session={sessionID}",
	}
	if staff {
		endpoints["listAppointments"] = "GET /admin/appointments"
		endpoints["getAppointment"] = "GET /admin/appointments/{appointmentID}"
	}
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"service":   serviceName,
			"endpoints": endpoints,
		})
	}
}
