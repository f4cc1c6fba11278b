package models

import "time"

// Booking lifecycle statuses.
const (
	BookingPending   = "pending" // hold awaiting deposit
	BookingConfirmed = "confirmed"
	BookingAbandoned = "abandoned"
)

// Booking is a hold/appointment row. Created in pending as soon as every
// mandatory slot resolves to a concrete identifier; confirmed by the payment
// webhook; never hard-deleted.
type Booking struct {
	ID               string       `bson:"id" json:"id"`
	TenantID         string       `bson:"tenant_id" json:"tenantId"`
	ConversationID   string       `bson:"conversation_id" json:"conversationId"`
	ServiceID        string       `bson:"service_id" json:"serviceId"`
	ServiceName      string       `bson:"service_name" json:"serviceName"`
	ProfessionalID   string       `bson:"professional_id" json:"professionalId"`
	ProfessionalName string       `bson:"professional_name" json:"professionalName"`
	Status           string       `bson:"status" json:"status"`
	PaymentStatus    string       `bson:"payment_status" json:"paymentStatus"`
	StartTime        time.Time    `bson:"start_time" json:"startTime"`
	EndTime          time.Time    `bson:"end_time" json:"endTime"`
	Price            float64      `bson:"price" json:"price"`
	ClientName       string       `bson:"client_name" json:"clientName"`
	ClientPhone      string       `bson:"client_phone" json:"clientPhone"`
	Metadata         BookingState `bson:"metadata" json:"metadata"`
	CreatedAt        time.Time    `bson:"created_at" json:"createdAt"`
	UpdatedAt        time.Time    `bson:"updated_at" json:"updatedAt"`
}

// Payment is the record of one settled checkout session. The unique index on
// stripe_session_id makes repeated webhook delivery a no-op.
type Payment struct {
	ID              string    `bson:"id" json:"id"`
	BookingID       string    `bson:"booking_id" json:"bookingId"`
	StripeSessionID string    `bson:"stripe_session_id" json:"stripeSessionId"`
	AmountCents     int64     `bson:"amount_cents" json:"amountCents"`
	Currency        string    `bson:"currency" json:"currency"`
	Status          string    `bson:"status" json:"status"`
	CreatedAt       time.Time `bson:"created_at" json:"createdAt"`
}

// CheckoutSession is what the payment gateway hands back for a deposit.
type CheckoutSession struct {
	SessionID string `json:"sessionId"`
	URL       string `json:"url"`
	Mock      bool   `json:"mock,omitempty"`
}

// FinancialMetrics is the dashboard revenue summary.
type FinancialMetrics struct {
	TotalRevenue        float64 `json:"totalRevenue"`
	CurrentMonthRevenue float64 `json:"currentMonthRevenue"`
	LastMonthRevenue    float64 `json:"lastMonthRevenue"`
	PercentageChange    float64 `json:"percentageChange"`
	MonthAppointments   int64   `json:"monthAppointments"`
}
