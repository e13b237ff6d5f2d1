package router

import (
	"net/http"

	"order-service/internal/handlers"
	"order-service/internal/middleware"
	"order-service/internal/service"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

type Handlers struct {
	Orders   *handlers.OrderHandler
	Payments *handlers.PaymentHandler
	Seller   *handlers.SellerHandler
	Vouchers *handlers.VoucherHandler
	Admin    *handlers.AdminHandler
}

func Router(h Handlers, verifier middleware.TokenVerifier, log *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
		})
	})

	v1 := r.Group("/api/v1")

	// вебхуки шлюзов без токена
	v1.POST("/payments/vietqr/callback", h.Payments.VietQRCallback)
	v1.GET("/payments/payos/callback", h.Payments.PayOSCallback)
	v1.GET("/payments/payos/cancel", h.Payments.PayOSCancel)

	auth := v1.Group("", middleware.AuthRequired(verifier, log))

	buyer := auth.Group("", middleware.RequireRole(service.RoleCustomer, service.RoleAdmin))
	{
		buyer.POST("/orders", h.Orders.PlaceOrder)
		buyer.GET("/orders", h.Orders.ListOrders)
		buyer.GET("/orders/:id", h.Orders.GetOrder)

		buyer.POST("/payments", h.Payments.CreatePayment)
		buyer.GET("/payments/status/:orderId", h.Payments.GetPaymentStatus)

		buyer.GET("/vouchers/:code", h.Vouchers.GetByCode)
	}

	seller := auth.Group("/seller", middleware.RequireRole(service.RoleVendor))
	{
		seller.GET("/inventory", h.Seller.ListInventory)
		seller.PUT("/inventory/:productId", h.Seller.SetStock)
		seller.GET("/orders/items", h.Seller.ListItems)
		seller.PUT("/orders/items/:id/status", h.Seller.UpdateItemStatus)
		seller.PUT("/orders/:id/confirm", h.Seller.ConfirmOrder)
		seller.GET("/orders/:id/payment", h.Seller.GetOrderPayment)
		seller.PUT("/orders/:id/payment", h.Seller.UpdateOrderPayment)
		seller.PUT("/shipping/:id/status", h.Seller.UpdateShippingStatus)
	}

	admin := auth.Group("/admin", middleware.RequireRole(service.RoleAdmin))
	{
		admin.GET("/vouchers", h.Vouchers.List)
		admin.POST("/vouchers", h.Vouchers.Create)
		admin.GET("/vouchers/:id", h.Vouchers.Get)
		admin.PUT("/vouchers/:id", h.Vouchers.Update)
		admin.DELETE("/vouchers/:id", h.Vouchers.Delete)
		admin.PUT("/orders/items/:id/status", h.Admin.UpdateItemStatus)
	}

	return r
}
