package model

import "strings"

const FallbackCapacity = 30

// PrefixDefault applies to every room whose name starts with Prefix.
type PrefixDefault struct {
	Prefix   string
	Type     string
	Capacity int
}

type Seed struct {
	Rooms    []string
	ByName   map[string]int
	ByPrefix []PrefixDefault
}

// DefaultSeed is the room list installed on a fresh database.
func DefaultSeed() Seed {
	return Seed{
		Rooms: []string{
			"Glass Room 1",
			"Glass Room 2",
			"Glass Room 3",
			"Glass Room 4",
			"Winners",
			"Ballito Area",
		},
		ByName: map[string]int{
			"Glass Room 1": 30,
			"Glass Room 2": 30,
			"Glass Room 3": 30,
			"Glass Room 4": 60,
			"Winners":      500,
			"Ballito Area": 1000,
		},
		ByPrefix: []PrefixDefault{
			{Prefix: "Glass Room", Type: "Glass room", Capacity: 12},
			{Prefix: "Winners", Type: "Conference hall", Capacity: 60},
			{Prefix: "Ballito", Type: "Open area", Capacity: 100},
		},
	}
}

// WithRooms replaces the room list and keeps the defaults.
func (s Seed) WithRooms(rooms []string) Seed {
	if len(rooms) > 0 {
		s.Rooms = rooms
	}

	return s
}

func (s Seed) longestPrefix(name string) (PrefixDefault, bool) {
	var (
		best  PrefixDefault
		found bool
	)

	for _, candidate := range s.ByPrefix {
		if !strings.HasPrefix(name, candidate.Prefix) {
			continue
		}

		if !found || len(candidate.Prefix) > len(best.Prefix) {
			best = candidate
			found = true
		}
	}

	return best, found
}

// Resolve returns the type and capacity a new room named name receives.
// Capacity comes from the exact name, else the longest matching prefix, else
// FallbackCapacity. Type comes from the longest matching prefix only.
func (s Seed) Resolve(name string) (*string, int) {
	var roomType *string

	capacity := FallbackCapacity

	if prefix, ok := s.longestPrefix(name); ok {
		t := prefix.Type
		roomType = &t
		capacity = prefix.Capacity
	}

	if exact, ok := s.ByName[name]; ok {
		capacity = exact
	}

	return roomType, capacity
}
