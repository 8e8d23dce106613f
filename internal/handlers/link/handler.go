package link

import (
	"net/http"
	"roombook/infras/otel"
	"roombook/internal/domains/booking/model"
	"roombook/internal/domains/booking/service"
	"roombook/shared/constant"
	"roombook/transport/http/response"

	"github.com/go-chi/chi/v5"

	"github.com/rs/zerolog/log"
)

// Handler serves the confirm and cancel links sent to organizers. The token
// is the only credential, so these routes stay outside the API key guard.
type Handler struct {
	service service.Booking
	otel    otel.Otel
}

func New(service service.Booking, otel otel.Otel) Handler {
	return Handler{
		service: service,
		otel:    otel,
	}
}

func (handler *Handler) Router(router chi.Router) {
	router.Route("/links", func(routerGroup chi.Router) {
		routerGroup.Get("/confirm", handler.Confirm)
		routerGroup.Get("/cancel", handler.Cancel)
	})
}

// Confirm marks the booking owning the token as confirmed.
// @Summary Confirm a booking by token
// @Tags Link
// @Produce json
// @Param token query string true "Confirmation token"
// @Success 200 {object} response.Data[dto.StatusChangeResponse] "Outcome is applied or already_in_state"
// @Failure 404 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/links/confirm [get]
func (handler *Handler) Confirm(w http.ResponseWriter, r *http.Request) {
	handler.apply(w, r, model.StatusConfirmed)
}

// Cancel marks the booking owning the token as cancelled.
// @Summary Cancel a booking by token
// @Tags Link
// @Produce json
// @Param token query string true "Confirmation token"
// @Success 200 {object} response.Data[dto.StatusChangeResponse] "Outcome is applied or already_in_state"
// @Failure 404 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/links/cancel [get]
func (handler *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	handler.apply(w, r, model.StatusCancelled)
}

func (handler *Handler) apply(w http.ResponseWriter, r *http.Request, target model.Status) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".link."+string(target))
	defer scope.End()

	token := r.URL.Query().Get(constant.RequestParamToken)

	res, err := handler.service.SetStatusByToken(ctx, token, target)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Str("target", string(target)).Msg("failed to apply booking link")

		response.WithError(w, err)

		return
	}

	scope.AddEvent("Booking link " + string(res.Outcome))

	response.WithJSON(w, http.StatusOK, res)
}
