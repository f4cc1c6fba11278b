package tenantRepo

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"zapagenda/database"
	"zapagenda/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoTenantRepo implements TenantRepository using MongoDB.
type MongoTenantRepo struct {
	tenantColl       *mongo.Collection
	serviceColl      *mongo.Collection
	professionalColl *mongo.Collection
}

// NewMongoTenantRepo constructs a new instance of MongoTenantRepo.
func NewMongoTenantRepo() *MongoTenantRepo {
	db := database.MongoClient.Database(database.DatabaseName)
	return &MongoTenantRepo{
		tenantColl:       db.Collection("tenants"),
		serviceColl:      db.Collection("services"),
		professionalColl: db.Collection("professionals"),
	}
}

func (repo *MongoTenantRepo) GetByID(ctx context.Context, tenantID string) (*models.Tenant, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var tenant models.Tenant
	if err := repo.tenantColl.FindOne(ctx, bson.M{"id": tenantID}).Decode(&tenant); err != nil {
		return nil, fmt.Errorf("error fetching tenant with id %s: %w", tenantID, err)
	}
	return &tenant, nil
}

func (repo *MongoTenantRepo) GetByInstanceID(ctx context.Context, instanceID string) (*models.Tenant, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var tenant models.Tenant
	filter := bson.M{"whatsapp_instance_id": instanceID}
	if err := repo.tenantColl.FindOne(ctx, filter).Decode(&tenant); err != nil {
		return nil, fmt.Errorf("error fetching tenant for instance %s: %w", instanceID, err)
	}
	return &tenant, nil
}

func (repo *MongoTenantRepo) UpdateSettings(ctx context.Context, tenantID string, settings models.Settings) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	update := bson.M{"$set": bson.M{"settings": settings, "updated_at": time.Now()}}
	res, err := repo.tenantColl.UpdateOne(ctx, bson.M{"id": tenantID}, update)
	if err != nil {
		return fmt.Errorf("error updating settings for tenant %s: %w", tenantID, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("tenant %s not found", tenantID)
	}
	return nil
}

func (repo *MongoTenantRepo) ListServices(ctx context.Context, tenantID string) ([]models.Service, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})
	cursor, err := repo.serviceColl.Find(ctx, bson.M{"tenant_id": tenantID}, opts)
	if err != nil {
		return nil, fmt.Errorf("error listing services: %w", err)
	}
	defer cursor.Close(ctx)

	var services []models.Service
	if err := cursor.All(ctx, &services); err != nil {
		return nil, fmt.Errorf("error decoding services: %w", err)
	}
	return services, nil
}

func (repo *MongoTenantRepo) ListProfessionals(ctx context.Context, tenantID string) ([]models.Professional, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "full_name", Value: 1}})
	cursor, err := repo.professionalColl.Find(ctx, bson.M{"tenant_id": tenantID}, opts)
	if err != nil {
		return nil, fmt.Errorf("error listing professionals: %w", err)
	}
	defer cursor.Close(ctx)

	var pros []models.Professional
	if err := cursor.All(ctx, &pros); err != nil {
		return nil, fmt.Errorf("error decoding professionals: %w", err)
	}
	return pros, nil
}

func (repo *MongoTenantRepo) GetService(ctx context.Context, tenantID, serviceID string) (*models.Service, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var svc models.Service
	filter := bson.M{"tenant_id": tenantID, "id": serviceID}
	if err := repo.serviceColl.FindOne(ctx, filter).Decode(&svc); err != nil {
		return nil, fmt.Errorf("error fetching service %s: %w", serviceID, err)
	}
	return &svc, nil
}

func (repo *MongoTenantRepo) GetProfessional(ctx context.Context, tenantID, professionalID string) (*models.Professional, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var pro models.Professional
	filter := bson.M{"tenant_id": tenantID, "id": professionalID}
	if err := repo.professionalColl.FindOne(ctx, filter).Decode(&pro); err != nil {
		return nil, fmt.Errorf("error fetching professional %s: %w", professionalID, err)
	}
	return &pro, nil
}

// FindServiceByName does a case-insensitive partial match, the last-resort
// resolution path when only a display name made it into the booking state.
func (repo *MongoTenantRepo) FindServiceByName(ctx context.Context, tenantID, name string) (*models.Service, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{
		"tenant_id": tenantID,
		"name":      primitive.Regex{Pattern: regexp.QuoteMeta(name), Options: "i"},
	}
	var svc models.Service
	if err := repo.serviceColl.FindOne(ctx, filter).Decode(&svc); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("error finding service by name %q: %w", name, err)
	}
	return &svc, nil
}

func (repo *MongoTenantRepo) FindProfessionalByName(ctx context.Context, tenantID, name string) (*models.Professional, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{
		"tenant_id": tenantID,
		"full_name": primitive.Regex{Pattern: regexp.QuoteMeta(name), Options: "i"},
	}
	var pro models.Professional
	if err := repo.professionalColl.FindOne(ctx, filter).Decode(&pro); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("error finding professional by name %q: %w", name, err)
	}
	return &pro, nil
}

func (repo *MongoTenantRepo) CreateService(ctx context.Context, svc *models.Service) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := repo.serviceColl.InsertOne(ctx, svc); err != nil {
		return fmt.Errorf("error creating service: %w", err)
	}
	return nil
}

func (repo *MongoTenantRepo) CreateProfessional(ctx context.Context, pro *models.Professional) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := repo.professionalColl.InsertOne(ctx, pro); err != nil {
		return fmt.Errorf("error creating professional: %w", err)
	}
	return nil
}
