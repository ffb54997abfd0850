package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/warecore/inventory/internal/core/domain"
	"github.com/warecore/inventory/internal/core/service"
)

const dateLayout = "2006-01-02"

type Handler struct {
	inventory *service.InventoryService
	ledger    *service.LedgerService
	orders    *service.OrderService
	logger    *zap.Logger
}

func New(inventory *service.InventoryService, ledger *service.LedgerService, orders *service.OrderService, logger *zap.Logger) *Handler {
	return &Handler{
		inventory: inventory,
		ledger:    ledger,
		orders:    orders,
		logger:    logger,
	}
}

func (h *Handler) Register(r *gin.Engine) {
	v1 := r.Group("/api/v1")

	inv := v1.Group("/inventory")
	inv.POST("", h.createInventory)
	inv.GET("/:id", h.getInventory)
	inv.DELETE("/:id", h.deleteInventory)
	inv.PUT("/:id/quantity", h.setQuantity)
	inv.POST("/:id/adjust", h.adjustQuantity)
	inv.GET("/:id/movements", h.movementHistory)
	inv.GET("/alerts", h.lowStockAlerts)
	inv.GET("/top-movers", h.topMovers)
	inv.GET("/inactive", h.inactiveInventory)
	inv.GET("/category/:category", h.byCategory)

	ord := v1.Group("/orders")
	ord.POST("", h.createOrder)
	ord.GET("", h.listOrders)
	ord.GET("/:id", h.getOrder)
	ord.PUT("/:id/status", h.updateOrderStatus)
	ord.POST("/:id/cancel", h.cancelOrder)
	ord.GET("/:id/total", h.orderTotal)
	ord.GET("/summary", h.orderSummary)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}

// --- inventory ---

type createInventoryRequest struct {
	ProductID string `json:"product_id" binding:"required"`
	Quantity  int    `json:"quantity"`
}

func (h *Handler) createInventory(c *gin.Context) {
	var req createInventoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	rec, err := h.inventory.Create(c.Request.Context(), req.ProductID, req.Quantity)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toInventoryResponse(rec))
}

func (h *Handler) getInventory(c *gin.Context) {
	rec, err := h.inventory.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toInventoryResponse(rec))
}

func (h *Handler) deleteInventory(c *gin.Context) {
	if err := h.inventory.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "inventory deleted"})
}

type setQuantityRequest struct {
	NewQuantity  int    `json:"new_quantity"`
	MovementType string `json:"movement_type" binding:"required"`
}

func (h *Handler) setQuantity(c *gin.Context) {
	var req setQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	rec, err := h.inventory.SetQuantity(c.Request.Context(), c.Param("id"), req.NewQuantity, req.MovementType)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toInventoryResponse(rec))
}

type adjustQuantityRequest struct {
	Delta        int    `json:"delta"`
	MovementType string `json:"movement_type" binding:"required"`
}

func (h *Handler) adjustQuantity(c *gin.Context) {
	var req adjustQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	rec, err := h.inventory.AdjustQuantity(c.Request.Context(), c.Param("id"), req.Delta, req.MovementType)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toInventoryResponse(rec))
}

func (h *Handler) movementHistory(c *gin.Context) {
	page, size := pageParams(c)
	entries, err := h.ledger.History(c.Request.Context(), c.Param("id"), page, size)
	if err != nil {
		h.respondError(c, err)
		return
	}

	out := make([]movementResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, toMovementResponse(e))
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) lowStockAlerts(c *gin.Context) {
	threshold := intQuery(c, "threshold", 10)
	page, size := pageParams(c)

	records, err := h.inventory.LowStock(c.Request.Context(), threshold, page, size)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toInventoryResponses(records))
}

func (h *Handler) topMovers(c *gin.Context) {
	limit := intQuery(c, "limit", 10)
	records, err := h.ledger.TopMovers(c.Request.Context(), limit)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toInventoryResponses(records))
}

func (h *Handler) inactiveInventory(c *gin.Context) {
	cutoff, err := time.Parse(dateLayout, c.Query("cutoff"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cutoff must be a date in YYYY-MM-DD format"})
		return
	}
	limit := intQuery(c, "limit", 10)

	records, err := h.ledger.InactiveSince(c.Request.Context(), cutoff, limit)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toInventoryResponses(records))
}

func (h *Handler) byCategory(c *gin.Context) {
	page, size := pageParams(c)
	records, err := h.inventory.ByCategory(c.Request.Context(), c.Param("category"), page, size)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toInventoryResponses(records))
}

// --- orders ---

type createOrderRequest struct {
	UserID string                   `json:"user_id" binding:"required"`
	Items  []createOrderRequestItem `json:"items" binding:"required"`
}

type createOrderRequestItem struct {
	ProductID string          `json:"product_id" binding:"required"`
	Quantity  int             `json:"quantity" binding:"required,min=1"`
	Price     decimal.Decimal `json:"price"`
}

func (h *Handler) createOrder(c *gin.Context) {
	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	items := make([]service.NewLineItem, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, service.NewLineItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Price:     item.Price,
		})
	}

	order, err := h.orders.Create(c.Request.Context(), req.UserID, items)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toOrderResponse(*order))
}

func (h *Handler) getOrder(c *gin.Context) {
	order, lines, err := h.orders.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	resp := toOrderResponse(*order)
	resp.Items = make([]lineItemResponse, 0, len(lines))
	for _, line := range lines {
		resp.Items = append(resp.Items, toLineItemResponse(line))
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) listOrders(c *gin.Context) {
	if userID := c.Query("user_id"); userID != "" {
		orders, err := h.orders.ListByUser(c.Request.Context(), userID)
		if err != nil {
			h.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, toOrderResponses(orders))
		return
	}

	status := c.Query("status")
	if status == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "either status or user_id query parameter is required"})
		return
	}

	page, size := pageParams(c)
	orders, err := h.orders.ListByStatus(c.Request.Context(), status, page, size)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toOrderResponses(orders))
}

type updateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

func (h *Handler) updateOrderStatus(c *gin.Context) {
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	order, err := h.orders.Transition(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toOrderResponse(*order))
}

func (h *Handler) cancelOrder(c *gin.Context) {
	if err := h.orders.Cancel(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "order cancelled"})
}

func (h *Handler) orderTotal(c *gin.Context) {
	total, err := h.orders.Total(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order_id": c.Param("id"), "total": total})
}

func (h *Handler) orderSummary(c *gin.Context) {
	from, err := time.Parse(dateLayout, c.Query("from"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "from must be a date in YYYY-MM-DD format"})
		return
	}
	to, err := time.Parse(dateLayout, c.Query("to"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "to must be a date in YYYY-MM-DD format"})
		return
	}

	summary, err := h.orders.Summary(c.Request.Context(), from, to)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summaryResponse{
		FromDate:       summary.FromDate.Format(dateLayout),
		ToDate:         summary.ToDate.Format(dateLayout),
		TotalOrders:    summary.TotalOrders,
		TotalRevenue:   summary.TotalRevenue,
		TotalItemsSold: summary.TotalItemsSold,
	})
}

// respondError maps the typed error taxonomy onto HTTP status codes:
// NotFoundError to 404, everything else recognized to 400.
func (h *Handler) respondError(c *gin.Context, err error) {
	var (
		notFound   *domain.NotFoundError
		validation *domain.ValidationError
		invalidOp  *domain.InvalidOperationError
		transition *domain.InvalidTransitionError
	)

	switch {
	case errors.As(err, &notFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.As(err, &validation), errors.As(err, &invalidOp), errors.As(err, &transition):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		h.logger.Error("request failed",
			zap.String("path", c.FullPath()),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func pageParams(c *gin.Context) (int, int) {
	return intQuery(c, "page", 0), intQuery(c, "size", 10)
}

func intQuery(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}
