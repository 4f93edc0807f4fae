package routes

import (
	"payment-service/controllers"
	"payment-service/middleware"

	"github.com/gin-gonic/gin"
)

// RegisterPaymentRoutes mounts the payment API. The gateway callback is
// public (signature-authenticated, rate limited); everything else carries a
// role-scoped JWT.
func RegisterPaymentRoutes(r *gin.Engine, pc *controllers.PaymentController, jwtSecret string) {
	api := r.Group("/api/payments")

	api.POST("/callback", middleware.RateLimitMiddleware(), pc.HandlePayHereNotify)
	api.GET("/status/:orderId", pc.GetPaymentStatus)

	customer := api.Group("", middleware.AuthMiddleware(jwtSecret, middleware.RoleCustomer))
	customer.POST("/initialize", pc.InitializePayment)
	customer.PUT("/status/:orderId", pc.UpdatePaymentStatus)
	customer.GET("/customer", pc.ListCustomerPayments)
	customer.POST("/customer/order/:orderId/regenerate-coordinates", pc.RegenerateCoordinates)
	customer.POST("/sync/:orderId", pc.SyncPaymentWithOrder)

	restaurant := api.Group("", middleware.AuthMiddleware(jwtSecret, middleware.RoleRestaurant))
	restaurant.GET("/restaurant/:restaurantId", pc.ListRestaurantPayments)
}
