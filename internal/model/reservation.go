package model

import (
	"time"

	"github.com/google/uuid"
)

// Reservation is a time-boxed hold against available stock. A reservation is
// live until its row is deleted: explicit release, expiry sweep, and
// consumption all end in deletion, so deletion is the single completion
// signal — there is no lingering "consumed" state.
type Reservation struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ProductID uuid.UUID `gorm:"type:uuid;not null;index"`
	Quantity  int       `gorm:"not null"`

	OrderID *uuid.UUID `gorm:"type:uuid;index"`
	CartID  *uuid.UUID `gorm:"type:uuid;index"`
	Reason  string

	ExpiresAt time.Time `gorm:"not null;index"`
	CreatedAt time.Time
}

func (Reservation) TableName() string { return "reservations" }

// Live reports whether the reservation still counts against available stock
// at the given instant. Expired rows are excluded even before the sweep
// physically removes them.
func (r *Reservation) Live(now time.Time) bool {
	return r.ExpiresAt.After(now)
}
