package room

import (
	"net/http"
	"net/url"
	"roombook/infras/otel"
	"roombook/internal/domains/room/model/dto"
	"roombook/internal/domains/room/service"
	"roombook/shared/constant"
	"roombook/shared/failure"
	"roombook/shared/validator"
	"roombook/transport/http/response"

	"github.com/go-chi/chi/v5"

	"github.com/rs/zerolog/log"
)

type Handler struct {
	service service.Room
	otel    otel.Otel
}

func New(service service.Room, otel otel.Otel) Handler {
	return Handler{
		service: service,
		otel:    otel,
	}
}

func (handler *Handler) Router(router chi.Router, adminOnly func(http.Handler) http.Handler) {
	router.Route("/rooms", func(routerGroup chi.Router) {
		routerGroup.Get("/", handler.GetRooms)
		routerGroup.Get("/{room}", handler.GetRoom)
		routerGroup.Get("/{room}/capacity", handler.GetCapacity)
		routerGroup.With(adminOnly).Put("/{room}", handler.UpdateRoom)
	})
}

// GetRooms lists every room ordered by name.
// @Summary Get all rooms
// @Tags Room
// @Produce json
// @Success 200 {object} response.Data[dto.GetRoomsResponse] "List of rooms"
// @Failure 500 {object} response.Error
// @Router /v1/rooms [get]
func (handler *Handler) GetRooms(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".GetRooms")
	defer scope.End()

	rooms, err := handler.service.List(ctx)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to get rooms")

		response.WithError(w, err)

		return
	}

	response.WithJSON(w, http.StatusOK, rooms)
}

// GetRoom retrieves a room by name.
// @Summary Get a room
// @Tags Room
// @Produce json
// @Param room path string true "Room name"
// @Success 200 {object} response.Data[dto.RoomResponse] "Room details"
// @Failure 404 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/rooms/{room} [get]
func (handler *Handler) GetRoom(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".GetRoom")
	defer scope.End()

	name, err := roomParam(r)
	if err != nil {
		response.WithError(w, err)

		return
	}

	room, err := handler.service.Get(ctx, name)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Str("room", name).Msg("failed to get room")

		response.WithError(w, err)

		return
	}

	response.WithJSON(w, http.StatusOK, room)
}

// GetCapacity returns the capacity of a room. A null capacity means unlimited.
// @Summary Get room capacity
// @Tags Room
// @Produce json
// @Param room path string true "Room name"
// @Success 200 {object} response.Data[dto.CapacityResponse] "Room capacity"
// @Failure 404 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/rooms/{room}/capacity [get]
func (handler *Handler) GetCapacity(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".GetCapacity")
	defer scope.End()

	name, err := roomParam(r)
	if err != nil {
		response.WithError(w, err)

		return
	}

	capacity, err := handler.service.GetCapacity(ctx, name)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Str("room", name).Msg("failed to get room capacity")

		response.WithError(w, err)

		return
	}

	response.WithJSON(w, http.StatusOK, capacity)
}

// UpdateRoom replaces the type and capacity of a room.
// @Summary Update a room
// @Description Set the room type and capacity. A null capacity removes the limit. Existing bookings are not revalidated.
// @Tags Room
// @Accept json
// @Produce json
// @Param room path string true "Room name"
// @Param request body dto.UpdateRoomRequest true "Update Room Request"
// @Success 200 {object} response.Data[dto.RoomResponse] "Updated room"
// @Failure 400 {object} response.Error
// @Failure 401 {object} response.Error
// @Failure 403 {object} response.Error
// @Failure 404 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/rooms/{room} [put]
// @Security ApiKeyAuth
func (handler *Handler) UpdateRoom(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".UpdateRoom")
	defer scope.End()

	name, err := roomParam(r)
	if err != nil {
		response.WithError(w, err)

		return
	}

	req := dto.UpdateRoomRequest{}

	if err := validator.Validate(r.Body, &req); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to validate request body")

		response.WithError(w, err)

		return
	}

	room, err := handler.service.SetCapacity(ctx, name, req)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Str("room", name).Msg("failed to update room")

		response.WithError(w, err)

		return
	}

	user, _ := ctx.Value(constant.ContextKeyUserID).(string)
	scope.AddEvent("Room updated successfully by user " + user)

	response.WithJSON(w, http.StatusOK, room)
}

func roomParam(r *http.Request) (string, error) {
	name, err := url.PathUnescape(chi.URLParam(r, constant.RequestParamRoom))
	if err != nil {
		return "", failure.BadRequestFromString("invalid room name") //nolint:wrapcheck
	}

	return name, nil
}
