/*
Package handler provides the HTTP handlers and routing setup for the CampusConnect portal.

This file defines the main Router, applying necessary middleware like logging, CORS,
and IP-based rate limiting before delegating requests to specific handlers (API and WebSocket).
*/
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"
	"golang.org/x/time/rate"

	"campusconnect/internal/pkg/auth/jwt"
	"campusconnect/internal/pkg/limiter"
	"campusconnect/internal/pkg/logx"
	"campusconnect/internal/pkg/resp"
)

const (
	// RegisterRate throttles account creation per IP.
	RegisterRate  = 0.05
	RegisterBurst = 2

	// ConnectRate throttles WebSocket handshakes per IP.
	ConnectRate  = 0.2
	ConnectBurst = 5
)

// Router sets up the main HTTP routing table (chi.Router) for the application.
// It initializes IP-based rate limiters, configures CORS, and applies global
// and per-route middleware.
func Router(deps *AppDeps) http.Handler {
	registerLimiter := limiter.NewIPRateLimiter(rate.Limit(RegisterRate), RegisterBurst)
	connectLimiter := limiter.NewIPRateLimiter(rate.Limit(ConnectRate), ConnectBurst)

	r := chi.NewRouter()

	allowedOrigins := make(map[string]struct{})
	for _, origin := range deps.Config.AllowedOrigins {
		allowedOrigins[origin] = struct{}{}
	}

	var wsUpgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			if deps.Config.Environment == "development" {
				return true
			}

			origin := r.Header.Get("Origin")
			if _, ok := allowedOrigins[origin]; ok {
				return true
			}

			logx.Warn("WebSocket connection rejected: Origin not allowed.", "origin", origin)
			return false
		},
	}

	corsAllowedOrigins := []string{}
	if deps.Config.Environment == "development" {
		corsAllowedOrigins = []string{"*"}
	} else if len(deps.Config.AllowedOrigins) > 0 {
		corsAllowedOrigins = deps.Config.AllowedOrigins
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   corsAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-PoW-Token"},
		ExposedHeaders:   []string{},
		AllowCredentials: true,
		MaxAge:           300,
	})
	r.Use(c.Handler)

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logx.RequestLogger())
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		data := map[string]string{
			"status":  "ok",
			"service": "CampusConnect Server",
		}
		resp.RespondSuccess(w, r, data)
	})

	r.Route("/api", func(api chi.Router) {
		api.Use(jwt.IdentityExtractorMiddleware(deps.Config.JWTSecret))

		api.Route("/auth", func(auth chi.Router) {
			auth.Get("/challenge", HandleChallengeRequest(deps))
			auth.Post("/challenge/verify", HandleChallengeVerify(deps))

			rateLimitedRegister := registerLimiter.Middleware(HandleRegister(deps))
			auth.Post("/register", rateLimitedRegister.ServeHTTP)

			auth.Post("/login", HandleLogin(deps))
			auth.Post("/change-password", HandleChangePassword(deps))
		})

		api.Route("/user", func(u chi.Router) {
			u.Get("/profile", HandleGetUserProfile(deps))
			u.Post("/profile", HandleUpdateUserProfile(deps))
			u.Post("/avatar/presign", HandlePresignAvatarURL(deps))
		})

		api.Get("/teachers", HandleListTeachers(deps))

		api.Route("/chat", func(chat chi.Router) {
			chat.Post("/resolve", HandleResolveConversation(deps))
			chat.Get("/conversations", HandleListConversations(deps))
			chat.Get("/conversations/{id}/messages", HandleListMessages(deps))
		})

		api.Route("/announcements", func(a chi.Router) {
			a.Get("/", HandleListAnnouncements(deps))
			a.Post("/", HandleCreateAnnouncement(deps))
			a.Delete("/{id}", HandleDeleteAnnouncement(deps))
		})

		api.Route("/attendance", func(a chi.Router) {
			a.Get("/", HandleListAttendance(deps))
			a.Post("/", HandleMarkAttendance(deps))
		})

		api.Route("/exams", func(e chi.Router) {
			e.Get("/", HandleListExams(deps))
			e.Post("/", HandleCreateExam(deps))
			e.Delete("/{id}", HandleDeleteExam(deps))
		})

		api.Route("/materials", func(m chi.Router) {
			m.Get("/", HandleListMaterials(deps))
			m.Post("/", HandleCreateMaterial(deps))
			m.Post("/presign-upload", HandlePresignMaterialUpload(deps))
			m.Get("/{id}/presign-download", HandlePresignMaterialDownload(deps))
		})

		api.Route("/calendar", func(cal chi.Router) {
			cal.Get("/", HandleListCalendarEvents(deps))
			cal.Post("/", HandleCreateCalendarEvent(deps))
			cal.Delete("/{id}", HandleDeleteCalendarEvent(deps))
		})

		api.Route("/timetable", func(tt chi.Router) {
			tt.Get("/", HandleListTimetable(deps))
			tt.Post("/", HandleCreateTimetableEntry(deps))
			tt.Delete("/{id}", HandleDeleteTimetableEntry(deps))
		})

		api.Route("/admin", func(admin chi.Router) {
			admin.Post("/users", HandleCreateStaffUser(deps))
		})
	})

	r.Get("/ws", HandleWebSocket(deps, wsUpgrader, connectLimiter))

	return r
}
