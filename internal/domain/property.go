package domain

type Property struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	City      *string  `json:"city,omitempty"`
	Country   *string  `json:"country,omitempty"`
	Address   *string  `json:"address,omitempty"`
	Lat       *float64 `json:"lat,omitempty"`
	Lon       *float64 `json:"lon,omitempty"`
	BasePrice float64  `json:"base_price"`
	Currency  string   `json:"currency"`
	RawJSON   []byte   `json:"-"` // full store row
}

type RoomType struct {
	ID            string  `json:"id"`
	PropertyID    string  `json:"property_id"`
	Name          string  `json:"name"`
	NumberOfRooms int     `json:"number_of_rooms"`
	MaxGuests     *int    `json:"max_guests,omitempty"`
	BasePrice     float64 `json:"base_price"`
	RawJSON       []byte  `json:"-"`
}

// TotalRooms sums the declared room counts of the room types belonging to
// propertyID.
func TotalRooms(rts []RoomType, propertyID string) int {
	own := make([]RoomType, 0, len(rts))
	for _, rt := range rts {
		if rt.PropertyID == propertyID {
			own = append(own, rt)
		}
	}
	return SumRooms(own)
}

// SumRooms adds up room counts regardless of property. Non-positive counts
// contribute nothing.
func SumRooms(rts []RoomType) int {
	n := 0
	for _, rt := range rts {
		if rt.NumberOfRooms > 0 {
			n += rt.NumberOfRooms
		}
	}
	return n
}

// Read models

type PropertyView struct {
	Property
	RoomTypes  []RoomType `json:"room_types"`
	TotalRooms int        `json:"total_rooms"`
}
