package dto

import "time"

type ReserveStockRequest struct {
	ProductID  string  `json:"product_id" validate:"required,uuid"`
	Quantity   int     `json:"quantity" validate:"required,gt=0"`
	TTLMinutes int     `json:"ttl_minutes" validate:"omitempty,gt=0"`
	Reason     string  `json:"reason"`
	OrderID    *string `json:"order_id,omitempty" validate:"omitempty,uuid"`
	CartID     *string `json:"cart_id,omitempty" validate:"omitempty,uuid"`
}

type ReleaseReservationRequest struct {
	Reason string `json:"reason"`
}

type ReservationResponse struct {
	ID        string    `json:"id"`
	ProductID string    `json:"product_id"`
	Quantity  int       `json:"quantity"`
	OrderID   *string   `json:"order_id,omitempty"`
	CartID    *string   `json:"cart_id,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

type ReleaseResponse struct {
	Released bool `json:"released"`
}

type SweepResponse struct {
	ReleasedCount int `json:"released_count"`
}
