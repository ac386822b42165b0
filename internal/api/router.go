package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-scheduling/internal/access"
	"github.com/hackgods/clinic-scheduling/internal/appointment"
)

type RouterConfig struct {
	Service  AppointmentService
	Parties  PartyService
	Audit    AuditLister
	Verifier *access.Verifier // nil enables dev headers
	Postgres Pinger
	Redis    Pinger
	Metrics  http.Handler
	Logger   zerolog.Logger
	Env      string
	Version  string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))

	health := NewHealthHandler(cfg.Postgres, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics)
	}

	r.Group(func(r chi.Router) {
		r.Use(Authenticate(cfg.Verifier))

		r.Route("/appointments", func(r chi.Router) {
			r.With(RequireCapability(access.CapReadAppointments)).Get("/", listAppointmentsHandler(cfg.Service))
			r.With(RequireCapability(access.CapWriteAppointments)).Post("/", createAppointmentHandler(cfg.Service))

			r.Route("/{id}", func(r chi.Router) {
				r.With(RequireCapability(access.CapReadAppointments)).Get("/", getAppointmentHandler(cfg.Service))

				r.Group(func(r chi.Router) {
					r.Use(RequireCapability(access.CapWriteAppointments))
					r.Put("/", updateAppointmentHandler(cfg.Service))
					r.Delete("/", deleteAppointmentHandler(cfg.Service))
					r.Post("/confirm", transitionHandler(cfg.Service, appointment.StatusConfirmed))
					r.Post("/cancel", transitionHandler(cfg.Service, appointment.StatusCancelled))
				})

				r.Group(func(r chi.Router) {
					r.Use(RequireCapability(access.CapAttendAppointments))
					r.Use(RequireAssignment(cfg.Service))
					r.Post("/start", transitionHandler(cfg.Service, appointment.StatusInProgress))
					r.With(RequireCapability(access.CapWriteRecords)).Post("/complete", completeAppointmentHandler(cfg.Service))
				})
			})
		})

		r.With(RequireCapability(access.CapReadRecords)).
			Get("/patients/{id}/clinical-records", listClinicalRecordsHandler(cfg.Service))

		if cfg.Parties != nil {
			r.With(RequireCapability(access.CapManagePatients)).
				Put("/patients/{id}/active", setPatientActiveHandler(cfg.Parties))

			r.Route("/practitioners/{id}", func(r chi.Router) {
				r.Use(RequireCapability(access.CapManageStaff))
				r.Put("/active", setPractitionerActiveHandler(cfg.Parties))
				r.Put("/schedule", updateScheduleHandler(cfg.Parties))
			})
		}

		if cfg.Audit != nil {
			r.With(RequireCapability(access.CapReadAudit)).Get("/audit", listAuditHandler(cfg.Audit))
		}
	})

	return r
}
