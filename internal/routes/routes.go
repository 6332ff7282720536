package routes

import (
	"net/http"

	"github.com/dennis-owusu/breakfast-factory-golang/internal/handlers"
	"github.com/dennis-owusu/breakfast-factory-golang/internal/middleware"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
)

// CORSMiddleware tells the browser that the configured frontend origin is
// allowed to send credentialed requests to us.
func CORSMiddleware(origin string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		// The browser sends an empty OPTIONS request first to check
		// permissions. We must reply with "204 No Content".
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

func SetupRouter(h *handlers.Handlers, corsOrigin string) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	// CORS must be the very first thing the router uses.
	router.Use(CORSMiddleware(corsOrigin))
	router.Use(middleware.Metrics())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// --- Auth Routes ---
	authRoutes := router.Group("/api/auth")
	{
		authRoutes.POST("/create", h.Register)
		authRoutes.POST("/login", middleware.RateLimit(rate.Limit(1), 5), h.Login)
		authRoutes.POST("/create/google", h.GoogleSignIn)
		authRoutes.POST("/logout", h.Logout)

		authProtected := authRoutes.Group("/")
		authProtected.Use(middleware.AuthMiddleware(h.DB))
		{
			authProtected.PUT("/update/:id", h.UpdateProfile)
		}

		authAdmin := authRoutes.Group("/")
		authAdmin.Use(middleware.AuthMiddleware(h.DB), middleware.AdminMiddleware())
		{
			authAdmin.GET("/get-all-users", h.GetAllUsers)
			authAdmin.PUT("/role/:id", h.UpdateUserRole)
			authAdmin.DELETE("/delete/:id", h.DeleteUser)
		}
	}

	api := router.Group("/api/route")
	{
		// --- Public Catalog Routes ---
		api.GET("/allproducts", h.GetAllProducts)
		api.GET("/products/:id", h.GetProduct)

		// --- Checkout (guests allowed) ---
		api.POST("/createOrder", middleware.OptionalAuth(), h.CreateOrder)
		api.POST("/paystack/save", middleware.OptionalAuth(), h.RecordPayment)
		api.POST("/paystack/verify/:reference", middleware.OptionalAuth(), h.VerifyPaystack)
		api.POST("/mtn-momo/verify/:transactionId", h.MomoWebhook)

		// --- Protected Routes (Login Required) ---
		auth := api.Group("/")
		auth.Use(middleware.AuthMiddleware(h.DB))
		{
			auth.GET("/getOrder/:id", h.GetOrder)
			auth.GET("/getOrdersByUser/:id", h.GetOrdersByUser)

			// Stock decrement at purchase; buyers hit this, not just sellers.
			auth.PUT("/purchase/:id", h.PurchaseProduct)

			auth.GET("/notifications", h.GetMyNotifications)
			auth.PATCH("/notifications/:id/read", h.MarkNotificationAsRead)

			auth.POST("/subscriptions/create", h.CreateSubscription)
			auth.POST("/subscriptions/renew", h.RenewSubscription)
			auth.POST("/subscriptions/upgrade", h.UpgradeSubscription)
			auth.POST("/subscriptions/cancel", h.CancelSubscription)
			auth.GET("/subscriptions/user/:userId", h.GetUserSubscription)
		}

		// --- Outlet Routes (Outlet or Admin) ---
		outlet := api.Group("/")
		outlet.Use(middleware.AuthMiddleware(h.DB), middleware.OutletMiddleware())
		{
			outlet.POST("/products", h.CreateProduct)
			outlet.PUT("/update/:id", h.UpdateProduct)
			outlet.DELETE("/delete/:id", h.DeleteProduct)

			outlet.GET("/getOutletOrders/:outletId", h.GetOutletOrders)
			outlet.PUT("/updateOrder/:id", h.UpdateOrderStatus)
			outlet.GET("/payments/outlet/:outletId", h.GetOutletPayments)

			outlet.POST("/restock", h.CreateRestockRequest)
			outlet.GET("/restock/outlet/:outletId", h.GetOutletRestockRequests)

			outlet.GET("/analytics/:outletId", h.GetOutletAnalytics)
		}

		// --- Admin-Only Routes ---
		admin := api.Group("/")
		admin.Use(middleware.AuthMiddleware(h.DB), middleware.AdminMiddleware())
		{
			admin.GET("/getOrders", h.GetOrders)
			admin.DELETE("/deleteOrder/:id", h.DeleteOrder)

			admin.GET("/subscriptions", h.GetAllSubscriptions)
			admin.POST("/feature-overrides", h.GrantFeatureOverride)
			admin.DELETE("/feature-overrides", h.RevokeFeatureOverride)

			admin.GET("/restock", h.GetAllRestockRequests)
			admin.PUT("/restock/:id/process", h.ProcessRestockRequest)

			admin.GET("/analytics/admin/sales-report", h.GetAdminSalesReport)
		}
	}

	// --- AI Routes ---
	ai := router.Group("/api/ai")
	ai.Use(middleware.AuthMiddleware(h.DB))
	{
		ai.POST("/ask", h.AskAI)
	}

	return router
}
