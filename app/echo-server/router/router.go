package router

import (
	"beverageHub/internal/rest"

	"github.com/labstack/echo/v4"
)

func SetupAuthRoutes(api *echo.Group, handler *rest.UserHandler, authRequired echo.MiddlewareFunc) {
	auth := api.Group("/auth")

	auth.POST("/register", handler.Register)
	auth.POST("/login", handler.Login)
	auth.GET("/me", handler.Me, authRequired)
	auth.POST("/logout", handler.Logout, authRequired)
}

func SetupUserRoutes(api *echo.Group, handler *rest.UserHandler, authRequired, adminOnly, selfOrAdmin echo.MiddlewareFunc) {
	users := api.Group("/users", authRequired)

	users.GET("", handler.GetAllUsers, adminOnly)
	users.GET("/:id", handler.GetUserByID, adminOnly)
	users.PUT("/:id", handler.UpdateUser, selfOrAdmin)
	users.DELETE("/:id", handler.DeleteUser, adminOnly)
}

func SetupProductRoutes(api *echo.Group, handler *rest.ProductHandler, categoryHandler *rest.CategoryHandler, authRequired, adminOnly echo.MiddlewareFunc) {
	products := api.Group("/products")

	products.GET("", handler.GetAllProducts)
	products.GET("/meta/categories", categoryHandler.GetAllCategories)
	products.GET("/favorites", handler.GetFavorites, authRequired)
	products.GET("/:id", handler.GetProductByID)
	products.POST("/:id/favorite", handler.AddFavorite, authRequired)
	products.DELETE("/:id/favorite", handler.RemoveFavorite, authRequired)
	products.POST("/:id/reviews", handler.AddReview, authRequired)

	products.POST("", handler.CreateProduct, authRequired, adminOnly)
	products.PUT("/:id", handler.UpdateProduct, authRequired, adminOnly)
	products.DELETE("/:id", handler.DeleteProduct, authRequired, adminOnly)
}

func SetOrdersRoutes(api *echo.Group, handler *rest.OrdersHandler, authRequired, adminOnly echo.MiddlewareFunc) {
	orders := api.Group("/orders", authRequired)

	orders.POST("", handler.CreateOrder)
	orders.GET("", handler.GetOrders)
	orders.GET("/:id", handler.GetOrder)
	orders.PATCH("/:id/status", handler.UpdateOrderStatus, adminOnly)
}

func SetWalletRoutes(api *echo.Group, handler *rest.WalletHandler, authRequired, rateLimit echo.MiddlewareFunc) {
	wallet := api.Group("/wallet", authRequired)

	wallet.GET("", handler.GetWallet)
	wallet.GET("/transactions", handler.GetTransactions)
	wallet.POST("/topup", handler.TopUp, rateLimit)
	wallet.GET("/payment-status/:checkoutRequestId", handler.TopUpStatus)
	wallet.GET("/mpesa/config", handler.MpesaConfig)
}

func SetCheckoutRoutes(api *echo.Group, handler *rest.CheckoutHandler, authRequired, rateLimit echo.MiddlewareFunc) {
	checkout := api.Group("/checkout", authRequired)

	checkout.POST("/mpesa-payment", handler.InitiateMpesaPayment, rateLimit)
	checkout.GET("/order-payment-status/:orderId", handler.OrderPaymentStatus)
}

// SetWebhookRoutes registers the gateway callbacks. They are unauthenticated
// and must stay outside any group with auth middleware.
func SetWebhookRoutes(api *echo.Group, handler *rest.MpesaWebhookHandler) {
	api.POST("/mpesa/callback", handler.HandleCallback)
	api.POST("/wallet/mpesa/callback", handler.HandleCallback)
	api.POST("/orders/mpesa/callback", handler.HandleCallback)
	api.POST("/mpesa/timeout", handler.HandleTimeout)
}

func SetOperationalRoutes(api *echo.Group, health *rest.HealthHandler, seed *rest.SeedHandler) {
	api.GET("/health", health.Health)
	api.POST("/seed/products", seed.SeedProducts)
}
