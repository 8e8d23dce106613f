package reminder

import (
	"net/http"
	"roombook/infras/otel"
	"roombook/internal/domains/booking/model"
	"roombook/internal/domains/reminder/service"
	"roombook/shared/constant"
	"roombook/shared/failure"
	"roombook/shared/timezone"
	"roombook/transport/http/response"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/rs/zerolog/log"
)

type Handler struct {
	service service.Reminder
	otel    otel.Otel
}

func New(service service.Reminder, otel otel.Otel) Handler {
	return Handler{
		service: service,
		otel:    otel,
	}
}

func (handler *Handler) Router(router chi.Router, adminOnly func(http.Handler) http.Handler) {
	router.Route("/reminders", func(routerGroup chi.Router) {
		routerGroup.Use(adminOnly)
		routerGroup.Get("/", handler.Preview)
		routerGroup.Post("/dispatch", handler.Dispatch)
	})
}

// Preview lists the bookings a dispatch would message now, with manual wa.me links.
// @Summary Preview due reminders
// @Tags Reminder
// @Produce json
// @Param lookahead query int false "Lookahead hours (1-72)" default(24)
// @Success 200 {object} response.Data[dto.PreviewResponse] "Due reminders"
// @Failure 400 {object} response.Error
// @Failure 401 {object} response.Error
// @Failure 403 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/reminders [get]
// @Security ApiKeyAuth
func (handler *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".PreviewReminders")
	defer scope.End()

	lookahead, err := lookaheadParam(r)
	if err != nil {
		response.WithError(w, err)

		return
	}

	res, err := handler.service.Preview(ctx, lookahead, timezone.Now())
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Int("lookahead", lookahead).Msg("failed to preview reminders")

		response.WithError(w, err)

		return
	}

	response.WithJSON(w, http.StatusOK, res)
}

// Dispatch sends the due reminders. Failed sends are listed in the report and
// stay due for the next run.
// @Summary Send due reminders
// @Tags Reminder
// @Produce json
// @Param lookahead query int false "Lookahead hours (1-72)" default(24)
// @Success 200 {object} response.Data[dto.DispatchReport] "Dispatch report"
// @Failure 400 {object} response.Error
// @Failure 401 {object} response.Error
// @Failure 403 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/reminders/dispatch [post]
// @Security ApiKeyAuth
func (handler *Handler) Dispatch(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".DispatchReminders")
	defer scope.End()

	lookahead, err := lookaheadParam(r)
	if err != nil {
		response.WithError(w, err)

		return
	}

	res, err := handler.service.Dispatch(ctx, lookahead, timezone.Now())
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Int("lookahead", lookahead).Msg("failed to dispatch reminders")

		response.WithError(w, err)

		return
	}

	response.WithJSON(w, http.StatusOK, res)
}

func lookaheadParam(r *http.Request) (int, error) {
	value := r.URL.Query().Get(constant.RequestParamLookahead)
	if value == "" {
		return model.DefaultLookaheadHours, nil
	}

	lookahead, err := strconv.Atoi(value)
	if err != nil {
		return 0, failure.BadRequestFromString("lookahead must be an integer") //nolint:wrapcheck
	}

	return lookahead, nil
}
