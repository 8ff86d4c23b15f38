package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/ternarybob/arbor"

	"github.com/markdave123-py/myhealth/internal/api/handlers"
	middleware "github.com/markdave123-py/myhealth/internal/api/middlewares"
	"github.com/markdave123-py/myhealth/internal/config"
	"github.com/markdave123-py/myhealth/internal/models"
	"github.com/markdave123-py/myhealth/internal/services"
)

// Deps are the services the HTTP routes call into.
type Deps struct {
	Tokens        *middleware.TokenManager
	Users         *services.UserService
	Reports       handlers.ReportStore
	Prescriptions handlers.PrescriptionStore
	Contacts      *services.ContactService
	Chat          handlers.ChatAssistant
	Summarizer    handlers.Summarizer
}

// Server wraps the HTTP server instance and its handlers.
type Server struct {
	httpServer *http.Server
	logger     arbor.ILogger
}

// NewServer builds and wires all routes.
func NewServer(cfg *config.Config, d Deps, logger arbor.ILogger) *Server {
	authHandler := handlers.NewAuthHandler(d.Users, d.Tokens, logger)
	reportHandler := handlers.NewReportHandler(d.Reports, d.Users, d.Summarizer, 0, logger)
	patientHandler := handlers.NewPatientHandler(d.Users, logger)
	rxHandler := handlers.NewPrescriptionHandler(d.Prescriptions, d.Users, logger)
	contactHandler := handlers.NewContactHandler(d.Contacts, logger)
	chatHandler := handlers.NewChatHandler(d.Chat, logger)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	// a summary makes one generation call per chunk plus one
	r.Use(chimw.Timeout(5 * time.Minute))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	r.Route("/api", func(api chi.Router) {
		// public endpoints
		api.Post("/patients/signup", authHandler.PatientSignup)
		api.Post("/patients/login", authHandler.PatientLogin)
		api.Post("/doctors/signup", authHandler.DoctorSignup)
		api.Post("/doctors/login", authHandler.DoctorLogin)
		api.Post("/contact", contactHandler.Submit)

		// protected endpoints
		api.Group(func(protected chi.Router) {
			protected.Use(d.Tokens.JWTMiddleware)

			protected.Post("/reports", reportHandler.Upload)
			protected.Get("/reports", reportHandler.List)
			protected.Get("/reports/{id}/download", reportHandler.Download)
			protected.Post("/reports/{id}/summary", reportHandler.Summarize)
			protected.Post("/chat", chatHandler.Ask)
			protected.Get("/prescriptions", rxHandler.ListMine)

			protected.Group(func(doctor chi.Router) {
				doctor.Use(middleware.RequireRole(models.RoleDoctor))

				doctor.Get("/patients", patientHandler.List)
				doctor.Post("/patients/{username}/reports", reportHandler.UploadForPatient)
				doctor.Get("/patients/{username}/reports", reportHandler.ListForPatient)
				doctor.Get("/patients/{username}/reports/{id}/download", reportHandler.ViewForPatient)
				doctor.Post("/patients/{username}/prescriptions", rxHandler.Create)
				doctor.Get("/patients/{username}/prescriptions", rxHandler.ListForPatient)
			})
		})
	})

	httpSrv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &Server{httpServer: httpSrv, logger: logger}
}

// Start runs the HTTP server until it is shut down.
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.httpServer.Addr).Msg("HTTP server listening")
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("Shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}
