package dto

import (
	"roombook/internal/domains/room/model"
	gDto "roombook/shared/dto"
)

// UpdateRoomRequest replaces the room type and capacity. A null capacity removes the limit.
type UpdateRoomRequest struct {
	Type     *string `json:"type"     validate:"omitempty,max=100"`
	Capacity *int    `json:"capacity" validate:"omitempty,gte=0"`
}

type RoomResponse struct {
	Room      string  `json:"room"`
	Type      *string `json:"type"`
	Capacity  *int    `json:"capacity"`
	Unlimited bool    `json:"unlimited"`
	gDto.Metadata
}

func (r *RoomResponse) FromModel(model model.Room) {
	r.Room = model.Room
	r.Type = model.Type
	r.Capacity = model.Capacity
	r.Unlimited = model.Capacity == nil
	r.Metadata.FromModel(model.Metadata)
}

type GetRoomsResponse struct {
	Rooms []RoomResponse `json:"rooms"`
}

func (r *GetRoomsResponse) FromModels(models []model.Room) {
	r.Rooms = make([]RoomResponse, len(models))
	for i, mod := range models {
		r.Rooms[i].FromModel(mod)
	}
}

type CapacityResponse struct {
	Room     string `json:"room"`
	Capacity *int   `json:"capacity"`
}

// SeedReport lists the rooms inserted and the existing rooms whose missing capacity was filled.
type SeedReport struct {
	Inserted []string `json:"inserted"`
	Filled   []string `json:"filled"`
}
