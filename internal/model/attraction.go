package model

// Attraction is a read-only catalog entry from the `attractions` table.
// RowNumber is the join key into `attractionImages`; it is not exposed to
// clients.
type Attraction struct {
	ID          uint64   `json:"id"`
	RowNumber   uint64   `json:"-"`
	Name        string   `json:"name"`
	Category    string   `json:"category"`
	Description string   `json:"description"`
	Address     string   `json:"address"`
	Transport   string   `json:"transport"`
	MRT         *string  `json:"mrt"`
	Lat         float64  `json:"lat"`
	Lng         float64  `json:"lng"`
	Images      []string `json:"images"`
}

// AttractionSummary is the short attraction view embedded in bookings and
// orders: id, name, address and the first image URL.
type AttractionSummary struct {
	ID      uint64 `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address"`
	Image   string `json:"image"`
}
