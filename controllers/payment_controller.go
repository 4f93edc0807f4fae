package controllers

import (
	"errors"
	"net/http"

	"payment-service/config"
	"payment-service/middleware"
	"payment-service/models"
	"payment-service/repository"
	"payment-service/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type PaymentController struct {
	Repo     repository.PaymentRepository
	Tasks    repository.SyncTaskRepository
	PayHere  *services.PayHereService
	Geocoder services.Geocoder
	Orders   services.OrderNotifier
	Config   *config.Config
	Logger   *zap.Logger
}

// InitializePaymentRequest is the typed checkout initialization payload.
// Malformed bodies are rejected here, before any business logic runs.
type InitializePaymentRequest struct {
	OrderID         string                  `json:"orderId" binding:"required"`
	CustomerID      string                  `json:"customerId" binding:"required"`
	RestaurantID    string                  `json:"restaurantId" binding:"required"`
	Amount          float64                 `json:"amount" binding:"required,gt=0"`
	Currency        string                  `json:"currency"`
	Items           []models.PaymentItem    `json:"items" binding:"required,min=1,dive"`
	CustomerDetails models.CustomerDetails  `json:"customerDetails"`
	DeliveryDetails *models.DeliveryDetails `json:"deliveryDetails"`
}

// InitializePayment geocodes the customer address on a best-effort basis,
// persists a pending payment, and returns the gateway parameter bundle the
// client forwards to PayHere.
func (pc *PaymentController) InitializePayment(c *gin.Context) {
	var req InitializePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	currency := req.Currency
	if currency == "" {
		currency = "LKR"
	}

	// Geocoding failures must never block checkout; a nil result simply
	// means no location is available for the driver app.
	coords := pc.Geocoder.Geocode(c.Request.Context(),
		req.CustomerDetails.Address,
		req.CustomerDetails.City,
		req.CustomerDetails.Country,
		"")

	payment := &models.Payment{
		OrderID:         req.OrderID,
		CustomerID:      req.CustomerID,
		RestaurantID:    req.RestaurantID,
		Amount:          req.Amount,
		Currency:        currency,
		Items:           req.Items,
		Status:          models.StatusPending,
		CustomerDetails: req.CustomerDetails,
		DeliveryDetails: req.DeliveryDetails,
	}
	payment.CustomerDetails.Coordinates = coords

	if err := pc.Repo.Create(c.Request.Context(), payment); err != nil {
		if errors.Is(err, repository.ErrDuplicateOrder) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "payment already initialized for this order"})
			return
		}
		pc.respondInternal(c, "failed to create payment", err)
		return
	}

	hash := pc.PayHere.GenerateHash(req.OrderID, req.Amount, currency)

	delivery := models.DeliveryDetails{}
	if req.DeliveryDetails != nil {
		delivery = *req.DeliveryDetails
	}

	paymentData := gin.H{
		"merchant_id":      pc.Config.PayHereMerchantID,
		"return_url":       pc.Config.PayHereReturnURL,
		"cancel_url":       pc.Config.PayHereCancelURL,
		"notify_url":       pc.Config.PayHereNotifyURL,
		"order_id":         req.OrderID,
		"items":            itemSummary(req.Items),
		"currency":         currency,
		"amount":           services.FormatAmount(req.Amount),
		"hash":             hash,
		"first_name":       req.CustomerDetails.FirstName,
		"last_name":        req.CustomerDetails.LastName,
		"email":            req.CustomerDetails.Email,
		"phone":            req.CustomerDetails.Phone,
		"address":          req.CustomerDetails.Address,
		"city":             req.CustomerDetails.City,
		"country":          req.CustomerDetails.Country,
		"delivery_address": delivery.Address,
		"delivery_city":    delivery.City,
		"delivery_country": delivery.Country,
		"custom_1":         req.CustomerID,
		"custom_2":         req.RestaurantID,
	}

	pc.Logger.Info("payment initialized",
		zap.String("order_id", req.OrderID),
		zap.String("customer_id", req.CustomerID),
		zap.Bool("geocoded", coords != nil))

	c.JSON(http.StatusOK, gin.H{
		"message":             "payment initialized",
		"paymentData":         paymentData,
		"customerCoordinates": coords,
	})
}

// GetPaymentStatus returns the current state of a payment.
func (pc *PaymentController) GetPaymentStatus(c *gin.Context) {
	orderID := c.Param("orderId")

	payment, err := pc.Repo.FindByOrderID(c.Request.Context(), orderID)
	if err != nil {
		if errors.Is(err, repository.ErrPaymentNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "payment not found"})
			return
		}
		pc.respondInternal(c, "failed to fetch payment", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"orderId":             payment.OrderID,
		"status":              payment.Status,
		"amount":              payment.Amount,
		"currency":            payment.Currency,
		"paymentId":           payment.PaymentID,
		"paymentMethod":       payment.PaymentMethod,
		"paymentTimestamp":    payment.PaymentTimestamp,
		"customerCoordinates": payment.CustomerDetails.Coordinates,
	})
}

// UpdatePaymentStatus is the manual override path. Unlike the webhook it is
// not transition-guarded: it exists precisely to repair stuck payments, so
// an operator may move a payment out of a terminal status.
func (pc *PaymentController) UpdatePaymentStatus(c *gin.Context) {
	orderID := c.Param("orderId")

	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !models.ValidStatus(req.Status) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
		return
	}

	payment, err := pc.Repo.FindByOrderID(c.Request.Context(), orderID)
	if err != nil {
		if errors.Is(err, repository.ErrPaymentNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "payment not found"})
			return
		}
		pc.respondInternal(c, "failed to fetch payment", err)
		return
	}

	if err := pc.Repo.UpdateStatus(c.Request.Context(), orderID, req.Status); err != nil {
		pc.respondInternal(c, "failed to update payment status", err)
		return
	}

	pc.Logger.Info("payment status manually overridden",
		zap.String("order_id", orderID),
		zap.String("from", payment.Status),
		zap.String("to", req.Status))

	if req.Status == models.StatusSuccess {
		pc.enqueueOrderSync(c, orderID, payment.PaymentID)
	}

	c.JSON(http.StatusOK, gin.H{"message": "payment status updated", "status": req.Status})
}

// ListCustomerPayments returns the authenticated customer's payments.
func (pc *PaymentController) ListCustomerPayments(c *gin.Context) {
	customerID, err := middleware.GetUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	payments, err := pc.Repo.FindByCustomerID(c.Request.Context(), customerID)
	if err != nil {
		pc.respondInternal(c, "failed to list payments", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"payments": payments})
}

// ListRestaurantPayments returns a restaurant's payments. The token subject
// must own the restaurant it is asking about.
func (pc *PaymentController) ListRestaurantPayments(c *gin.Context) {
	restaurantID := c.Param("restaurantId")

	userID, err := middleware.GetUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	if userID != restaurantID {
		c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
		return
	}

	payments, err := pc.Repo.FindByRestaurantID(c.Request.Context(), restaurantID)
	if err != nil {
		pc.respondInternal(c, "failed to list payments", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"payments": payments})
}

// RegenerateCoordinates re-geocodes the stored customer address and persists
// the result. Only the embedded coordinates are touched, never the status.
func (pc *PaymentController) RegenerateCoordinates(c *gin.Context) {
	orderID := c.Param("orderId")

	payment, err := pc.Repo.FindByOrderID(c.Request.Context(), orderID)
	if err != nil {
		if errors.Is(err, repository.ErrPaymentNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "payment not found"})
			return
		}
		pc.respondInternal(c, "failed to fetch payment", err)
		return
	}

	if payment.CustomerDetails.Address == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "payment has no stored address"})
		return
	}

	coords := pc.Geocoder.Geocode(c.Request.Context(),
		payment.CustomerDetails.Address,
		payment.CustomerDetails.City,
		payment.CustomerDetails.Country,
		"")
	if coords == nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "unable to resolve coordinates"})
		return
	}

	if err := pc.Repo.UpdateCoordinates(c.Request.Context(), orderID, coords); err != nil {
		pc.respondInternal(c, "failed to persist coordinates", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "coordinates regenerated", "customerCoordinates": coords})
}

// SyncPaymentWithOrder forces the order-service propagation for a payment
// that already succeeded. This is the user-facing recovery path when the
// outbox has given up.
func (pc *PaymentController) SyncPaymentWithOrder(c *gin.Context) {
	orderID := c.Param("orderId")

	payment, err := pc.Repo.FindByOrderID(c.Request.Context(), orderID)
	if err != nil {
		if errors.Is(err, repository.ErrPaymentNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "payment not found"})
			return
		}
		pc.respondInternal(c, "failed to fetch payment", err)
		return
	}

	if payment.Status != models.StatusSuccess {
		c.JSON(http.StatusBadRequest, gin.H{"error": "payment is not in success status"})
		return
	}

	if err := pc.Orders.UpdatePaymentStatus(c.Request.Context(), orderID, "Paid", payment.PaymentID); err != nil {
		pc.Logger.Error("manual order sync failed",
			zap.String("order_id", orderID),
			zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "order service update failed"})
		return
	}

	pc.Logger.Info("manual order sync completed", zap.String("order_id", orderID))
	c.JSON(http.StatusOK, gin.H{"message": "order payment status synced"})
}
