package tenantRepo

import (
	"context"

	"zapagenda/models"
)

// TenantRepository provides access to tenants and their bookable catalog.
type TenantRepository interface {
	GetByID(ctx context.Context, tenantID string) (*models.Tenant, error)
	GetByInstanceID(ctx context.Context, instanceID string) (*models.Tenant, error)
	UpdateSettings(ctx context.Context, tenantID string, settings models.Settings) error

	// Catalog, always ordered by display name so numbered menus are stable.
	ListServices(ctx context.Context, tenantID string) ([]models.Service, error)
	ListProfessionals(ctx context.Context, tenantID string) ([]models.Professional, error)
	GetService(ctx context.Context, tenantID, serviceID string) (*models.Service, error)
	GetProfessional(ctx context.Context, tenantID, professionalID string) (*models.Professional, error)
	FindServiceByName(ctx context.Context, tenantID, name string) (*models.Service, error)
	FindProfessionalByName(ctx context.Context, tenantID, name string) (*models.Professional, error)
	CreateService(ctx context.Context, svc *models.Service) error
	CreateProfessional(ctx context.Context, pro *models.Professional) error
}
