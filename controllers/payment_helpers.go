package controllers

import (
	"context"
	"net/http"
	"strings"
	"unicode/utf8"

	"payment-service/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// maxItemSummaryLen is the gateway's limit on the items field.
const maxItemSummaryLen = 255

// itemSummary joins the line-item names into the single items string PayHere
// displays, truncated to the gateway's field limit.
func itemSummary(items []models.PaymentItem) string {
	names := make([]string, 0, len(items))
	for _, item := range items {
		names = append(names, item.Name)
	}
	summary := strings.Join(names, ", ")
	if len(summary) > maxItemSummaryLen {
		// The limit is in bytes; back up so the cut never splits a rune.
		end := maxItemSummaryLen
		for end > 0 && !utf8.RuneStart(summary[end]) {
			end--
		}
		summary = summary[:end]
	}
	return summary
}

// respondInternal logs the full error server-side and returns a generic 500
// with no internal detail.
func (pc *PaymentController) respondInternal(c *gin.Context, msg string, err error) {
	pc.Logger.Error(msg, zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
}

// enqueueOrderSync writes a "notify order service" task to the outbox. An
// enqueue failure is logged but never fails the caller's response; the
// manual sync endpoint remains the recovery path.
func (pc *PaymentController) enqueueOrderSync(c *gin.Context, orderID, paymentID string) {
	// The status update is already persisted; a client disconnect must not
	// cancel the outbox write and lose the propagation task.
	ctx := context.WithoutCancel(c.Request.Context())
	if _, err := pc.Tasks.Enqueue(ctx, orderID, "Paid", paymentID); err != nil {
		pc.Logger.Error("failed to enqueue order sync task",
			zap.String("order_id", orderID),
			zap.Error(err))
		return
	}
	pc.Logger.Info("order sync task enqueued", zap.String("order_id", orderID))
}
