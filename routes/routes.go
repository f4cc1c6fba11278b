package routes

import (
	"time"

	"zapagenda/handlers"
	"zapagenda/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// RegisterWebhookRoutes registers the two external entry points. They carry
// no auth middleware: the WhatsApp gateway is trusted at the instance level
// and the Stripe payload is signature-verified inside the handler.
func RegisterWebhookRoutes(r *gin.Engine) {
	api := r.Group("/api/webhooks")
	{
		api.POST("/whatsapp", handlers.WhatsAppWebhookHandler)
		api.POST("/stripe", handlers.StripeWebhookHandler)
	}
}

// RegisterAdminRoutes registers the dashboard API.
func RegisterAdminRoutes(r *gin.Engine) {
	api := r.Group("/api/admin/tenants/:tenantId")
	{
		api.Use(middleware.JWTAuthAdminMiddleware())
		api.GET("", handlers.GetTenantHandler)
		api.PUT("/settings", handlers.UpdateSettingsHandler)
		api.GET("/services", handlers.ListServicesHandler)
		api.POST("/services", handlers.CreateServiceHandler)
		api.GET("/professionals", handlers.ListProfessionalsHandler)
		api.POST("/professionals", handlers.CreateProfessionalHandler)
		api.GET("/metrics/financial", handlers.FinancialMetricsHandler)
	}
}

// RegisterHealthRoute registers a health-check endpoint.
func RegisterHealthRoute(r *gin.Engine) {
	r.GET("/health", handlers.HealthHandler)
}

// RegisterRoutes centralizes registration of all endpoints and middleware.
func RegisterRoutes(r *gin.Engine) {
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	RegisterWebhookRoutes(r)
	RegisterAdminRoutes(r)
	RegisterHealthRoute(r)
}
