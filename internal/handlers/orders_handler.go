package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"tradehub-be/internal/inventory"
	"tradehub-be/internal/money"
	"tradehub-be/internal/order"
	"tradehub-be/internal/reward"
	"tradehub-be/internal/utils"
	"tradehub-be/internal/validation"

	"github.com/gin-gonic/gin"
	validatorv10 "github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

type orderHandler struct {
	svc      order.Service
	validate *validatorv10.Validate
}

// RegisterOrderRoutes wires the order lifecycle API onto the router.
func RegisterOrderRoutes(r *gin.Engine, svc order.Service) {
	h := &orderHandler{svc: svc, validate: validation.New()}

	orders := r.Group("/orders")
	orders.POST("", h.create)
	orders.GET("", h.list)
	orders.GET("/mine", h.listMine)
	orders.GET("/:id", h.get)
	orders.PUT("/:id/pay", h.confirmPayment)
	orders.PUT("/:id/ship", h.confirmShipment)
	orders.PUT("/:id/deliver", h.confirmDelivery)
	orders.PUT("/:id/return", h.requestReturn)
	orders.PUT("/:id/return/decision", h.decideReturn)
}

func (h *orderHandler) create(c *gin.Context) {
	ctx := c.Request.Context()

	buyerID, ok := utils.GetUserIDFromContext(ctx)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req validation.CreateOrderRequest
	if err := validation.BindAndValidate(c, &req, h.validate); err != nil {
		return
	}

	input := order.CreateInput{
		BuyerID: buyerID,
		ShippingAddress: order.ShippingAddress{
			Address:    req.ShippingAddress.Address,
			City:       req.ShippingAddress.City,
			PostalCode: req.ShippingAddress.PostalCode,
			Country:    req.ShippingAddress.Country,
		},
		PaymentMethod: req.PaymentMethod,
		ItemsPrice:    money.Money(req.ItemsPrice),
		ShippingPrice: money.Money(req.ShippingPrice),
		TaxPrice:      money.Money(req.TaxPrice),
	}
	for _, item := range req.Items {
		input.Items = append(input.Items, order.ItemInput{
			ProductID: item.ProductID,
			Name:      item.Name,
			UnitPrice: money.Money(item.UnitPrice),
			Quantity:  item.Quantity,
		})
	}

	o, err := h.svc.Create(ctx, input)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toOrderResponse(o))
}

func (h *orderHandler) get(c *gin.Context) {
	ctx := c.Request.Context()

	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_order_id"})
		return
	}

	o, err := h.svc.Get(ctx, orderID)
	if err != nil {
		writeError(c, err)
		return
	}

	// Buyers only see their own orders.
	buyerID, _ := utils.GetUserIDFromContext(ctx)
	if !utils.IsAdmin(ctx) && o.BuyerID != buyerID {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}

	c.JSON(http.StatusOK, toOrderResponse(o))
}

func (h *orderHandler) listMine(c *gin.Context) {
	ctx := c.Request.Context()

	buyerID, ok := utils.GetUserIDFromContext(ctx)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	orders, err := h.svc.ListForBuyer(ctx, buyerID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, toOrderListResponse(orders))
}

func (h *orderHandler) list(c *gin.Context) {
	ctx := c.Request.Context()

	if !utils.IsAdmin(ctx) {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}

	filter := &order.FilterInput{}
	if s := c.Query("status"); s != "" {
		status := order.Status(s)
		filter.Status = &status
	}
	if b := c.Query("buyer_id"); b != "" {
		id, err := strconv.ParseUint(b, 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_buyer_id"})
			return
		}
		buyerID := uint(id)
		filter.BuyerID = &buyerID
	}
	if from := c.Query("date_from"); from != "" {
		ts, err := time.Parse(time.RFC3339, from)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_date_from"})
			return
		}
		filter.DateFrom = &ts
	}
	if to := c.Query("date_to"); to != "" {
		ts, err := time.Parse(time.RFC3339, to)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_date_to"})
			return
		}
		filter.DateTo = &ts
	}

	limit := queryInt32(c, "limit", 20)
	page := queryInt32(c, "page", 1)

	orders, err := h.svc.List(ctx, filter, limit, page)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, toOrderListResponse(orders))
}

func (h *orderHandler) confirmPayment(c *gin.Context) {
	ctx := c.Request.Context()

	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_order_id"})
		return
	}

	var req validation.ConfirmPaymentRequest
	if err := validation.BindAndValidate(c, &req, h.validate); err != nil {
		return
	}

	o, err := h.svc.ConfirmPayment(ctx, orderID, order.PaymentReceipt{
		ID:         req.ID,
		Status:     req.Status,
		UpdateTime: req.UpdateTime,
		PayerEmail: req.PayerEmail,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, toOrderResponse(o))
}

func (h *orderHandler) confirmShipment(c *gin.Context) {
	h.adminTransition(c, h.svc.ConfirmShipment)
}

func (h *orderHandler) confirmDelivery(c *gin.Context) {
	h.adminTransition(c, h.svc.ConfirmDelivery)
}

func (h *orderHandler) adminTransition(c *gin.Context, apply func(ctx context.Context, orderID uuid.UUID) (*order.Order, error)) {
	ctx := c.Request.Context()

	if !utils.IsAdmin(ctx) {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}

	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_order_id"})
		return
	}

	o, err := apply(ctx, orderID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, toOrderResponse(o))
}

func (h *orderHandler) requestReturn(c *gin.Context) {
	ctx := c.Request.Context()

	buyerID, ok := utils.GetUserIDFromContext(ctx)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_order_id"})
		return
	}

	var req validation.RequestReturnRequest
	if err := validation.BindAndValidate(c, &req, h.validate); err != nil {
		return
	}

	// Only the owner may ask for a return.
	existing, err := h.svc.Get(ctx, orderID)
	if err != nil {
		writeError(c, err)
		return
	}
	if existing.BuyerID != buyerID {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}

	o, err := h.svc.RequestReturn(ctx, orderID, req.Reason)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, toOrderResponse(o))
}

func (h *orderHandler) decideReturn(c *gin.Context) {
	ctx := c.Request.Context()

	if !utils.IsAdmin(ctx) {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}

	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_order_id"})
		return
	}

	var req validation.DecideReturnRequest
	if err := validation.BindAndValidate(c, &req, h.validate); err != nil {
		return
	}

	o, err := h.svc.DecideReturn(ctx, orderID, order.Decision(req.Decision), req.RejectReason)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, toOrderResponse(o))
}

func queryInt32(c *gin.Context, key string, fallback int32) int32 {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseInt(raw, 10, 32)
	if err != nil || v <= 0 {
		return fallback
	}
	return int32(v)
}

// writeError maps domain errors onto HTTP status codes.
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, order.ErrOrderNotFound),
		errors.Is(err, inventory.ErrProductNotFound),
		errors.Is(err, reward.ErrAccountNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})

	case errors.Is(err, order.ErrEmptyOrder),
		errors.Is(err, order.ErrInvalidQuantity),
		errors.Is(err, order.ErrNegativePrice),
		errors.Is(err, order.ErrInvalidDecision),
		errors.Is(err, order.ErrReturnWindowExpired):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

	case errors.Is(err, order.ErrInvalidTransition),
		errors.Is(err, order.ErrReturnAlreadyRequested),
		errors.Is(err, order.ErrNoActiveReturnRequest),
		errors.Is(err, inventory.ErrInsufficientStock),
		errors.Is(err, reward.ErrInsufficientBalance),
		errors.Is(err, reward.ErrInsufficientPoints):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})

	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
	}
}
