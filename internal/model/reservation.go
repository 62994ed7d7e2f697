package model

// Reservation is the single pending trip a member may hold, stored in the
// `booking` table keyed uniquely by member id.  Placing a new reservation
// overwrites the previous one.
//
// Fields:
//
//	MemberID     – owning member; also the row's identity.
//	AttractionID – attraction being booked.
//	Date         – trip date as submitted by the client (YYYY-MM-DD).
//	Time         – trip slot, "morning" or "afternoon" in the site's UI.
//	Price        – price quoted to the client.
type Reservation struct {
	MemberID     uint64 // booking.memberID
	AttractionID uint64 // booking.attractionID
	Date         string // booking.date
	Time         string // booking.time
	Price        int    // booking.price
}

// ReservationDetail is the reservation joined with its attraction, as
// returned by GET /api/booking.
type ReservationDetail struct {
	Attraction AttractionSummary `json:"attraction"`
	Date       string            `json:"date"`
	Time       string            `json:"time"`
	Price      int               `json:"price"`
}
