package handler

import (
	"net/http"
	"strconv"
	"time"

	"stockledger/internal/apierror"
	"stockledger/internal/dto"
	"stockledger/internal/model"
	"stockledger/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// MovementsHandler exposes the read side of the movement ledger.
type MovementsHandler struct {
	repo repository.MovementRepository
}

func NewMovementsHandler(repo repository.MovementRepository) *MovementsHandler {
	return &MovementsHandler{repo: repo}
}

func (h *MovementsHandler) List(c *gin.Context) {
	var q dto.MovementFilter
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid query params"))
		return
	}

	filter := repository.MovementFilter{
		Type:      model.MovementType(q.Type),
		CreatedBy: q.CreatedBy,
		Page:      q.Page,
		Limit:     q.Limit,
	}
	if q.ProductID != "" {
		productID, err := uuid.Parse(q.ProductID)
		if err != nil {
			c.JSON(http.StatusBadRequest, apierror.New("invalid product_id"))
			return
		}
		filter.ProductID = &productID
	}
	if q.BatchID != "" {
		batchID, err := uuid.Parse(q.BatchID)
		if err != nil {
			c.JSON(http.StatusBadRequest, apierror.New("invalid batch_id"))
			return
		}
		filter.BatchID = &batchID
	}
	if q.From != "" {
		from, err := time.Parse(time.RFC3339, q.From)
		if err != nil {
			c.JSON(http.StatusBadRequest, apierror.New("invalid from date, expected RFC 3339"))
			return
		}
		filter.From = &from
	}
	if q.To != "" {
		to, err := time.Parse(time.RFC3339, q.To)
		if err != nil {
			c.JSON(http.StatusBadRequest, apierror.New("invalid to date, expected RFC 3339"))
			return
		}
		filter.To = &to
	}

	movements, total, err := h.repo.List(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, apierror.New("failed to list movements"))
		return
	}

	data := make([]dto.MovementResponse, 0, len(movements))
	for i := range movements {
		data = append(data, movementToResponse(&movements[i]))
	}
	page := q.Page
	if page < 1 {
		page = 1
	}
	limit := q.Limit
	if limit < 1 || limit > 500 {
		limit = 100
	}
	c.JSON(http.StatusOK, dto.MovementListResponse{Data: data, Total: total, Page: page, Limit: limit})
}

func (h *MovementsHandler) Summary(c *gin.Context) {
	productID, err := uuid.Parse(c.Param("product_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid product id"))
		return
	}

	windowDays := 30
	if raw := c.Query("window_days"); raw != "" {
		windowDays, err = strconv.Atoi(raw)
		if err != nil || windowDays < 1 {
			c.JSON(http.StatusBadRequest, apierror.New("invalid window_days"))
			return
		}
	}

	summary, err := h.repo.Summarize(c.Request.Context(), productID, windowDays)
	if err != nil {
		c.JSON(http.StatusInternalServerError, apierror.New("failed to summarize movements"))
		return
	}
	c.JSON(http.StatusOK, summary)
}

func movementToResponse(m *model.StockMovement) dto.MovementResponse {
	resp := dto.MovementResponse{
		ID:               m.ID.String(),
		ProductID:        m.ProductID.String(),
		Type:             string(m.Type),
		Quantity:         m.Quantity,
		PreviousQuantity: m.PreviousQuantity,
		NewQuantity:      m.NewQuantity,
		UnitCost:         m.UnitCost,
		Reason:           m.Reason,
		ReferenceType:    m.ReferenceType,
		CreatedBy:        m.CreatedBy,
		CreatedAt:        m.CreatedAt,
	}
	if m.ReferenceID != nil {
		s := m.ReferenceID.String()
		resp.ReferenceID = &s
	}
	if m.BatchID != nil {
		s := m.BatchID.String()
		resp.BatchID = &s
	}
	return resp
}
