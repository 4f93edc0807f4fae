package controllers

import (
	"errors"
	"net/http"
	"time"

	"payment-service/models"
	"payment-service/repository"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// PayHereNotification is the form payload PayHere posts to the callback
// endpoint. Field names are fixed by the gateway.
type PayHereNotification struct {
	MerchantID      string `form:"merchant_id"`
	OrderID         string `form:"order_id"`
	PaymentID       string `form:"payment_id"`
	PayHereAmount   string `form:"payhere_amount"`
	PayHereCurrency string `form:"payhere_currency"`
	StatusCode      string `form:"status_code"`
	MD5Sig          string `form:"md5sig"`
	Method          string `form:"method"`
	CardHolderName  string `form:"card_holder_name"`
	CardNo          string `form:"card_no"`
	CardExpiry      string `form:"card_expiry"`
}

// HandlePayHereNotify processes the asynchronous gateway notification. The
// MD5 signature is the sole authentication for this endpoint, so nothing is
// read from the database until it verifies. Once the local update is
// persisted the gateway always gets a 200; propagation to the order service
// happens through the outbox and never gates this response.
func (pc *PaymentController) HandlePayHereNotify(c *gin.Context) {
	var n PayHereNotification
	if err := c.ShouldBind(&n); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid notification payload"})
		return
	}

	if n.OrderID == "" || n.StatusCode == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing order_id or status_code"})
		return
	}

	expected := pc.PayHere.NotificationSignature(n.MerchantID, n.OrderID, n.PayHereAmount, n.PayHereCurrency, n.StatusCode)
	if expected != n.MD5Sig {
		pc.Logger.Warn("payhere signature verification failed",
			zap.String("order_id", n.OrderID),
			zap.String("expected_sig", expected),
			zap.String("received_sig", n.MD5Sig))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid signature"})
		return
	}

	payment, err := pc.Repo.FindByOrderID(c.Request.Context(), n.OrderID)
	if err != nil {
		if errors.Is(err, repository.ErrPaymentNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "payment not found"})
			return
		}
		pc.respondInternal(c, "failed to fetch payment", err)
		return
	}

	newStatus := models.StatusFromGatewayCode(n.StatusCode)

	// Terminal statuses never move again from a gateway notification; a
	// duplicate or out-of-order delivery is acknowledged without mutation so
	// the gateway stops retrying.
	if models.IsTerminalStatus(payment.Status) {
		pc.Logger.Info("ignoring notification for finalized payment",
			zap.String("order_id", n.OrderID),
			zap.String("current_status", payment.Status),
			zap.String("reported_status", newStatus))
		c.JSON(http.StatusOK, gin.H{"status": "received"})
		return
	}

	update := repository.NotificationUpdate{
		Status:        newStatus,
		PaymentID:     n.PaymentID,
		PaymentMethod: n.Method,
		Timestamp:     time.Now(),
		Card:          cardDetailsFromNotification(n),
	}

	applied, err := pc.Repo.ApplyNotification(c.Request.Context(), n.OrderID, update)
	if err != nil {
		pc.respondInternal(c, "failed to apply notification", err)
		return
	}
	if !applied {
		// Lost the race to a concurrent notification that finalized first.
		pc.Logger.Info("notification skipped, payment finalized concurrently",
			zap.String("order_id", n.OrderID))
		c.JSON(http.StatusOK, gin.H{"status": "received"})
		return
	}

	pc.Logger.Info("payment status updated from gateway notification",
		zap.String("order_id", n.OrderID),
		zap.String("status", newStatus),
		zap.String("gateway_payment_id", n.PaymentID))

	if newStatus == models.StatusSuccess {
		pc.enqueueOrderSync(c, n.OrderID, n.PaymentID)
	}

	c.JSON(http.StatusOK, gin.H{"status": "received"})
}

func cardDetailsFromNotification(n PayHereNotification) *models.CardDetails {
	if n.CardHolderName == "" && n.CardNo == "" && n.CardExpiry == "" {
		return nil
	}
	return &models.CardDetails{
		HolderName: n.CardHolderName,
		MaskedNo:   n.CardNo,
		Expiry:     n.CardExpiry,
	}
}
