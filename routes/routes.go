package routes

import (
	"net/http"

	"github.com/Dosada05/sports-registration/handlers"
	"github.com/Dosada05/sports-registration/middleware"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware" // Alias to avoid conflict
	"github.com/go-chi/cors"
)

type Handlers struct {
	Health       *handlers.HealthHandler
	Catalog      *handlers.CatalogHandler
	Registration *handlers.RegistrationHandler
	Invite       *handlers.InviteHandler
	Document     *handlers.DocumentHandler
	Admin        *handlers.AdminHandler
	Session      *handlers.SessionHandler
}

type Options struct {
	AllowedOrigins []string
	Authenticator  *middleware.Authenticator
	// Проверяет роль admin после аутентификации.
	RequireAdmin func(http.Handler) http.Handler
}

func SetupRoutes(router chi.Router, h Handlers, opts Options) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	authenticate := opts.Authenticator.Authenticate

	router.Get("/health", h.Health.Health)

	router.Route("/sports", func(r chi.Router) {
		r.Get("/", h.Catalog.ListSports)
		r.Get("/{slug}", h.Catalog.GetSport)
	})

	router.Route("/events", func(r chi.Router) {
		r.Get("/", h.Catalog.ListEvents)
		r.Get("/{eventID}", h.Catalog.GetEvent)

		r.With(authenticate).Get("/{eventID}/registration", h.Registration.CheckEventRegistration)
	})

	router.Route("/invites/{code}", func(r chi.Router) {
		// Публичный предпросмотр приглашения
		r.Get("/", h.Invite.Preview)
		r.Get("/qr.png", h.Invite.QRCode)

		r.With(authenticate).Post("/join", h.Invite.Join)
	})

	router.Group(func(r chi.Router) {
		r.Use(authenticate)

		r.Get("/ws/session", h.Session.ServeWs)

		r.Route("/registrations", func(r chi.Router) {
			r.Post("/", h.Registration.CreateRegistration)
			r.Get("/me", h.Registration.ListMyRegistrations)

			r.Route("/{registrationID}", func(r chi.Router) {
				r.Get("/", h.Registration.GetTeamDetails)
				r.Delete("/", h.Registration.DeleteTeam)
				r.Get("/access", h.Registration.CheckAccess)
				r.Get("/invite", h.Registration.GetInviteCode)
				r.Get("/capacity", h.Registration.CanAddMember)
				r.Get("/qr.png", h.Registration.QRCode)
				r.Post("/exit", h.Registration.ExitTeam)
				r.Post("/documents", h.Document.Upload)
				r.Get("/documents", h.Document.List)
			})
		})

		r.Delete("/team-members/{memberID}", h.Registration.RemoveTeamMember)
	})

	router.Route("/admin", func(r chi.Router) {
		r.Use(authenticate)
		r.Use(opts.RequireAdmin)

		r.Post("/events", h.Admin.CreateEvent)
		r.Put("/events/{eventID}", h.Admin.UpdateEvent)
		r.Delete("/events/{eventID}", h.Admin.DeleteEvent)
		r.Get("/events/{eventID}/teams", h.Admin.TeamsByEvent)

		r.Get("/registrations", h.Admin.ListRegistrations)
		r.Delete("/registrations/{registrationID}", h.Admin.DeleteRegistration)
		r.Get("/teams/{registrationID}", h.Admin.GetTeamDetails)

		r.Get("/users", h.Admin.ListUsers)
		r.Put("/users/{userID}/role", h.Admin.UpdateUserRole)
		r.Delete("/users/{userID}", h.Admin.DeleteUser)
	})
}
