package handler

import (
	"net/http"

	"stockledger/internal/apierror"
	"stockledger/internal/dto"
	"stockledger/internal/middleware"
	"stockledger/internal/model"
	"stockledger/internal/repository"
	"stockledger/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// StockHandler exposes the adjustment engine, the bulk batch processor, and
// the inventory read side.
type StockHandler struct {
	adjuster  service.AdjustmentService
	batch     service.BatchService
	inventory repository.InventoryRepository
	// overstockMultiplier feeds derived status in responses.
	overstockMultiplier int
}

func NewStockHandler(
	adjuster service.AdjustmentService,
	batch service.BatchService,
	inventory repository.InventoryRepository,
	overstockMultiplier int,
) *StockHandler {
	return &StockHandler{
		adjuster:            adjuster,
		batch:               batch,
		inventory:           inventory,
		overstockMultiplier: overstockMultiplier,
	}
}

func (h *StockHandler) Adjust(c *gin.Context) {
	var req dto.AdjustStockRequest
	if !bindAndValidate(c, &req) {
		return
	}

	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid product_id"))
		return
	}

	adjReq := service.AdjustmentRequest{
		ProductID:     productID,
		Type:          model.MovementType(req.Type),
		Quantity:      req.Quantity,
		UnitCost:      req.UnitCost,
		Reason:        req.Reason,
		ReferenceType: req.ReferenceType,
		CreatedBy:     middleware.GetClaims(c).Username,
	}
	if req.ReferenceID != nil {
		refID, err := uuid.Parse(*req.ReferenceID)
		if err != nil {
			c.JSON(http.StatusBadRequest, apierror.New("invalid reference_id"))
			return
		}
		adjReq.ReferenceID = &refID
	}

	rec, err := h.adjuster.Adjust(c.Request.Context(), adjReq)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.recordToResponse(rec))
}

func (h *StockHandler) ApplyBatch(c *gin.Context) {
	var req dto.ApplyBatchRequest
	if !bindAndValidate(c, &req) {
		return
	}

	items := make([]service.BatchItem, 0, len(req.Items))
	for _, item := range req.Items {
		productID, err := uuid.Parse(item.ProductID)
		if err != nil {
			c.JSON(http.StatusBadRequest, apierror.New("invalid product_id: "+item.ProductID))
			return
		}
		items = append(items, service.BatchItem{
			ProductID: productID,
			Quantity:  item.Quantity,
			Reason:    item.Reason,
		})
	}

	result, err := h.batch.ApplyBatch(c.Request.Context(), items, req.Reason, middleware.GetClaims(c).Username)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *StockHandler) Get(c *gin.Context) {
	productID, err := uuid.Parse(c.Param("product_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid product id"))
		return
	}

	rec, err := h.inventory.Get(c.Request.Context(), productID)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.recordToResponse(rec))
}

func (h *StockHandler) List(c *gin.Context) {
	var filter dto.InventoryFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid query params"))
		return
	}

	repoFilter := repository.InventoryFilter{
		LowStock: filter.LowStock,
		Page:     filter.Page,
		Limit:    filter.Limit,
	}
	if filter.ProductID != "" {
		productID, err := uuid.Parse(filter.ProductID)
		if err != nil {
			c.JSON(http.StatusBadRequest, apierror.New("invalid product_id"))
			return
		}
		repoFilter.ProductID = &productID
	}

	records, total, err := h.inventory.List(c.Request.Context(), repoFilter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, apierror.New("failed to list inventory"))
		return
	}

	data := make([]dto.InventoryRecordResponse, 0, len(records))
	for i := range records {
		data = append(data, h.recordToResponse(&records[i]))
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	limit := filter.Limit
	if limit < 1 || limit > 500 {
		limit = 100
	}
	c.JSON(http.StatusOK, dto.InventoryListResponse{Data: data, Total: total, Page: page, Limit: limit})
}

func (h *StockHandler) recordToResponse(rec *model.InventoryRecord) dto.InventoryRecordResponse {
	return dto.InventoryRecordResponse{
		ProductID:         rec.ProductID.String(),
		Quantity:          rec.Quantity,
		ReservedQuantity:  rec.ReservedQuantity,
		AvailableQuantity: rec.Available(),
		LowStockThreshold: rec.LowStockThreshold,
		ReorderPoint:      rec.ReorderPoint,
		ReorderQuantity:   rec.ReorderQuantity,
		AllowBackorder:    rec.AllowBackorder,
		AverageCost:       rec.AverageCost,
		LastCost:          rec.LastCost,
		Status:            rec.Status(h.overstockMultiplier),
		UpdatedAt:         rec.UpdatedAt,
	}
}
