package bookingRepo

import (
	"context"
	"fmt"
	"time"

	"zapagenda/database"
	"zapagenda/models"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoBookingRepo implements BookingRepository using MongoDB.
type MongoBookingRepo struct {
	bookingColl *mongo.Collection
	paymentColl *mongo.Collection
}

// NewMongoBookingRepo constructs a new instance of MongoBookingRepo.
func NewMongoBookingRepo() *MongoBookingRepo {
	db := database.MongoClient.Database(database.DatabaseName)
	return &MongoBookingRepo{
		bookingColl: db.Collection("bookings"),
		paymentColl: db.Collection("payments"),
	}
}

// CreateBooking inserts a new booking document.
func (repo *MongoBookingRepo) CreateBooking(ctx context.Context, booking *models.Booking) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if booking.ID == "" {
		booking.ID = uuid.New().String()
	}
	now := time.Now()
	booking.CreatedAt = now
	booking.UpdatedAt = now
	if _, err := repo.bookingColl.InsertOne(ctx, booking); err != nil {
		return fmt.Errorf("error creating booking: %w", err)
	}
	return nil
}

// GetBookingByID retrieves a booking by its ID.
func (repo *MongoBookingRepo) GetBookingByID(ctx context.Context, bookingID string) (*models.Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var booking models.Booking
	if err := repo.bookingColl.FindOne(ctx, bson.M{"id": bookingID}).Decode(&booking); err != nil {
		return nil, fmt.Errorf("booking not found: %w", err)
	}
	return &booking, nil
}

// ConfirmBooking conditionally transitions pending -> confirmed. The filter
// on status makes it safe under repeated webhook delivery.
func (repo *MongoBookingRepo) ConfirmBooking(ctx context.Context, bookingID string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{"id": bookingID, "status": bson.M{"$ne": models.BookingConfirmed}}
	update := bson.M{"$set": bson.M{
		"status":         models.BookingConfirmed,
		"payment_status": "paid",
		"updated_at":     time.Now(),
	}}
	res, err := repo.bookingColl.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("error confirming booking %s: %w", bookingID, err)
	}
	return res.ModifiedCount > 0, nil
}

// AbandonBooking marks a still-pending hold as abandoned.
func (repo *MongoBookingRepo) AbandonBooking(ctx context.Context, bookingID string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{"id": bookingID, "status": models.BookingPending}
	update := bson.M{"$set": bson.M{
		"status":     models.BookingAbandoned,
		"updated_at": time.Now(),
	}}
	res, err := repo.bookingColl.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("error abandoning booking %s: %w", bookingID, err)
	}
	return res.ModifiedCount > 0, nil
}

// HasOverlap reports whether any live booking for the professional collides
// with the window.
func (repo *MongoBookingRepo) HasOverlap(ctx context.Context, tenantID, professionalID string, start, end time.Time) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{
		"tenant_id":       tenantID,
		"professional_id": professionalID,
		"status":          bson.M{"$ne": models.BookingAbandoned},
		"start_time":      bson.M{"$lt": end},
		"end_time":        bson.M{"$gt": start},
	}
	count, err := repo.bookingColl.CountDocuments(ctx, filter)
	if err != nil {
		return false, fmt.Errorf("error checking booking overlap: %w", err)
	}
	return count > 0, nil
}

// InsertPayment records a settled checkout session; the unique index on
// stripe_session_id rejects replays.
func (repo *MongoBookingRepo) InsertPayment(ctx context.Context, payment *models.Payment) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if payment.ID == "" {
		payment.ID = uuid.New().String()
	}
	if payment.CreatedAt.IsZero() {
		payment.CreatedAt = time.Now()
	}
	if _, err := repo.paymentColl.InsertOne(ctx, payment); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicatePayment
		}
		return fmt.Errorf("error inserting payment: %w", err)
	}
	return nil
}

// FinancialMetrics aggregates revenue over confirmed bookings for the
// dashboard summary.
func (repo *MongoBookingRepo) FinancialMetrics(ctx context.Context, tenantID string, now time.Time) (*models.FinancialMetrics, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	lastMonthStart := monthStart.AddDate(0, -1, 0)

	sumPaid := func(filter bson.M) (float64, error) {
		cursor, err := repo.bookingColl.Find(ctx, filter)
		if err != nil {
			return 0, fmt.Errorf("error querying bookings: %w", err)
		}
		defer cursor.Close(ctx)

		total := 0.0
		for cursor.Next(ctx) {
			var b models.Booking
			if err := cursor.Decode(&b); err != nil {
				return 0, fmt.Errorf("error decoding booking: %w", err)
			}
			total += b.Price
		}
		return total, cursor.Err()
	}

	paidFilter := bson.M{"tenant_id": tenantID, "payment_status": "paid"}
	total, err := sumPaid(paidFilter)
	if err != nil {
		return nil, err
	}

	currentFilter := bson.M{
		"tenant_id":      tenantID,
		"payment_status": "paid",
		"start_time":     bson.M{"$gte": monthStart},
	}
	current, err := sumPaid(currentFilter)
	if err != nil {
		return nil, err
	}

	lastFilter := bson.M{
		"tenant_id":      tenantID,
		"payment_status": "paid",
		"start_time":     bson.M{"$gte": lastMonthStart, "$lt": monthStart},
	}
	last, err := sumPaid(lastFilter)
	if err != nil {
		return nil, err
	}

	var change float64
	switch {
	case last > 0:
		change = (current - last) / last * 100
	case current > 0:
		change = 100
	}

	count, err := repo.bookingColl.CountDocuments(ctx, bson.M{
		"tenant_id":  tenantID,
		"start_time": bson.M{"$gte": monthStart},
	})
	if err != nil {
		return nil, fmt.Errorf("error counting month appointments: %w", err)
	}

	return &models.FinancialMetrics{
		TotalRevenue:        total,
		CurrentMonthRevenue: current,
		LastMonthRevenue:    last,
		PercentageChange:    change,
		MonthAppointments:   count,
	}, nil
}
