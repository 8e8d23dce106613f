package router

import (
	"roombook/internal/handlers/booking"
	"roombook/internal/handlers/calendar"
	"roombook/internal/handlers/link"
	"roombook/internal/handlers/reminder"
	"roombook/internal/handlers/room"
	"roombook/transport/http/middleware"

	"github.com/go-chi/chi/v5"
)

type DomainHandlers struct {
	Room     room.Handler
	Booking  booking.Handler
	Calendar calendar.Handler
	Link     link.Handler
	Reminder reminder.Handler
}

type Router struct {
	DomainHandlers DomainHandlers
	Auth           middleware.Auth
}

func (r *Router) SetupRoutes(router chi.Router) {
	router.Route("/v1", func(routerGroup chi.Router) {
		r.DomainHandlers.Room.Router(routerGroup, r.Auth.APIKey)
		r.DomainHandlers.Booking.Router(routerGroup, r.Auth.APIKey)
		r.DomainHandlers.Calendar.Router(routerGroup)
		r.DomainHandlers.Link.Router(routerGroup)
		r.DomainHandlers.Reminder.Router(routerGroup, r.Auth.APIKey)
	})
}

func New(domainHandlers DomainHandlers, auth middleware.Auth) Router {
	return Router{
		DomainHandlers: domainHandlers,
		Auth:           auth,
	}
}
