package handler

import (
	"net/http"

	"stockledger/internal/apierror"
	"stockledger/internal/dto"
	"stockledger/internal/middleware"
	"stockledger/internal/model"
	"stockledger/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type ReservationsHandler struct {
	svc service.ReservationService
}

func NewReservationsHandler(svc service.ReservationService) *ReservationsHandler {
	return &ReservationsHandler{svc: svc}
}

func (h *ReservationsHandler) Reserve(c *gin.Context) {
	var req dto.ReserveStockRequest
	if !bindAndValidate(c, &req) {
		return
	}

	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid product_id"))
		return
	}

	svcReq := service.ReserveRequest{
		ProductID:  productID,
		Quantity:   req.Quantity,
		TTLMinutes: req.TTLMinutes,
		Reason:     req.Reason,
	}
	if req.OrderID != nil {
		orderID, err := uuid.Parse(*req.OrderID)
		if err != nil {
			c.JSON(http.StatusBadRequest, apierror.New("invalid order_id"))
			return
		}
		svcReq.OrderID = &orderID
	}
	if req.CartID != nil {
		cartID, err := uuid.Parse(*req.CartID)
		if err != nil {
			c.JSON(http.StatusBadRequest, apierror.New("invalid cart_id"))
			return
		}
		svcReq.CartID = &cartID
	}

	res, err := h.svc.Reserve(c.Request.Context(), svcReq)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, reservationToResponse(res))
}

func (h *ReservationsHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid reservation id"))
		return
	}

	res, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, reservationToResponse(res))
}

// Release is idempotent: releasing an already-gone reservation reports
// released=false with a 200, never an error.
func (h *ReservationsHandler) Release(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid reservation id"))
		return
	}

	var req dto.ReleaseReservationRequest
	_ = c.ShouldBindJSON(&req) // body optional

	released, err := h.svc.Release(c.Request.Context(), id, req.Reason)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ReleaseResponse{Released: released})
}

func (h *ReservationsHandler) ReleaseByOrder(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("order_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid order id"))
		return
	}

	var req dto.ReleaseReservationRequest
	_ = c.ShouldBindJSON(&req)

	released, err := h.svc.ReleaseByOrder(c.Request.Context(), orderID, req.Reason)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ReleaseResponse{Released: released})
}

// Consume converts a hold into a committed sale decrement.
func (h *ReservationsHandler) Consume(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid reservation id"))
		return
	}

	rec, err := h.svc.Consume(c.Request.Context(), id, middleware.GetClaims(c).Username)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"product_id":         rec.ProductID.String(),
		"quantity":           rec.Quantity,
		"reserved_quantity":  rec.ReservedQuantity,
		"available_quantity": rec.Available(),
	})
}

// ConsumeByOrder resolves the reservation through its order reference, for
// checkout flows that only carry the order id.
func (h *ReservationsHandler) ConsumeByOrder(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("order_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid order id"))
		return
	}

	rec, err := h.svc.ConsumeByOrder(c.Request.Context(), orderID, middleware.GetClaims(c).Username)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"product_id":         rec.ProductID.String(),
		"quantity":           rec.Quantity,
		"reserved_quantity":  rec.ReservedQuantity,
		"available_quantity": rec.Available(),
	})
}

// ListByProduct returns a product's live holds.
func (h *ReservationsHandler) ListByProduct(c *gin.Context) {
	productID, err := uuid.Parse(c.Param("product_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid product id"))
		return
	}

	reservations, err := h.svc.ListByProduct(c.Request.Context(), productID)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	data := make([]dto.ReservationResponse, 0, len(reservations))
	for i := range reservations {
		data = append(data, reservationToResponse(&reservations[i]))
	}
	c.JSON(http.StatusOK, data)
}

func (h *ReservationsHandler) Sweep(c *gin.Context) {
	released, err := h.svc.SweepExpired(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, apierror.New("sweep failed"))
		return
	}
	c.JSON(http.StatusOK, dto.SweepResponse{ReleasedCount: released})
}

func reservationToResponse(res *model.Reservation) dto.ReservationResponse {
	resp := dto.ReservationResponse{
		ID:        res.ID.String(),
		ProductID: res.ProductID.String(),
		Quantity:  res.Quantity,
		Reason:    res.Reason,
		ExpiresAt: res.ExpiresAt,
		CreatedAt: res.CreatedAt,
	}
	if res.OrderID != nil {
		s := res.OrderID.String()
		resp.OrderID = &s
	}
	if res.CartID != nil {
		s := res.CartID.String()
		resp.CartID = &s
	}
	return resp
}
