package handlers

import (
	"net/http"
	"time"

	bookingRepo "zapagenda/database/repository/booking"
	"zapagenda/models"
	"zapagenda/services/assistant"
	"zapagenda/utils"

	"github.com/gin-gonic/gin"
)

var BookingRepo bookingRepo.BookingRepository

// dropCatalogCache invalidates the cached catalog after a write so the next
// turn's menus reflect it.
func dropCatalogCache(c *gin.Context, tenantID string) {
	utils.GetCacheClient().Del(c.Request.Context(), assistant.CatalogCacheKey(tenantID))
}

// GetTenantHandler returns the tenant record, settings included.
func GetTenantHandler(c *gin.Context) {
	tenant, err := TenantRepo.GetByID(c.Request.Context(), c.Param("tenantId"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "tenant not found"})
		return
	}
	c.JSON(http.StatusOK, tenant)
}

// UpdateSettingsHandler replaces the tenant's assistant settings.
func UpdateSettingsHandler(c *gin.Context) {
	var settings models.Settings
	if err := c.ShouldBindJSON(&settings); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}
	if settings.DepositPercentage < 0 || settings.DepositPercentage > 100 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "deposit percentage must be between 0 and 100"})
		return
	}
	if err := TenantRepo.UpdateSettings(c.Request.Context(), c.Param("tenantId"), settings); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update settings", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": true})
}

// ListServicesHandler returns the tenant's service catalog.
func ListServicesHandler(c *gin.Context) {
	services, err := TenantRepo.ListServices(c.Request.Context(), c.Param("tenantId"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list services", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, services)
}

// CreateServiceHandler adds a catalog item.
func CreateServiceHandler(c *gin.Context) {
	var svc models.Service
	if err := c.ShouldBindJSON(&svc); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}
	if svc.Name == "" || svc.Price <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name and positive price are required"})
		return
	}
	svc.TenantID = c.Param("tenantId")
	if err := TenantRepo.CreateService(c.Request.Context(), &svc); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create service", "details": err.Error()})
		return
	}
	dropCatalogCache(c, svc.TenantID)
	c.JSON(http.StatusCreated, svc)
}

// ListProfessionalsHandler returns the tenant's staff.
func ListProfessionalsHandler(c *gin.Context) {
	pros, err := TenantRepo.ListProfessionals(c.Request.Context(), c.Param("tenantId"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list professionals", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, pros)
}

// CreateProfessionalHandler adds a staff member.
func CreateProfessionalHandler(c *gin.Context) {
	var pro models.Professional
	if err := c.ShouldBindJSON(&pro); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}
	if pro.FullName == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "full name is required"})
		return
	}
	pro.TenantID = c.Param("tenantId")
	if err := TenantRepo.CreateProfessional(c.Request.Context(), &pro); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create professional", "details": err.Error()})
		return
	}
	dropCatalogCache(c, pro.TenantID)
	c.JSON(http.StatusCreated, pro)
}

// FinancialMetricsHandler returns the dashboard revenue summary.
func FinancialMetricsHandler(c *gin.Context) {
	metrics, err := BookingRepo.FinancialMetrics(c.Request.Context(), c.Param("tenantId"), time.Now())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to compute metrics", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, metrics)
}

// HealthHandler is the liveness probe.
func HealthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
