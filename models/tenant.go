package models

import "time"

// Tenant is one business (barbershop, salon) served by the assistant.
// Resolved on every inbound webhook by its messaging-channel instance ID.
type Tenant struct {
	ID                 string    `bson:"id" json:"id"`
	Name               string    `bson:"name" json:"name"`
	WhatsAppInstanceID string    `bson:"whatsapp_instance_id" json:"whatsappInstanceId"`
	OwnerFCMTokens     []string  `bson:"owner_fcm_tokens,omitempty" json:"ownerFcmTokens,omitempty"`
	Settings           Settings  `bson:"settings" json:"settings"`
	CreatedAt          time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt          time.Time `bson:"updated_at" json:"updatedAt"`
}

// Settings are the tenant-tunable knobs of the assistant.
type Settings struct {
	// DepositPercentage overrides the global default when > 0.
	DepositPercentage float64 `bson:"deposit_percentage,omitempty" json:"depositPercentage,omitempty"`
	// SystemPrompt replaces the default assistant instructions when set.
	// The JSON response contract is always appended to it.
	SystemPrompt string `bson:"system_prompt,omitempty" json:"systemPrompt,omitempty"`
	// UseToolCalling switches the turn engine into its tool-calling mode.
	UseToolCalling bool           `bson:"use_tool_calling,omitempty" json:"useToolCalling,omitempty"`
	BusinessHours  []BusinessHour `bson:"business_hours,omitempty" json:"businessHours,omitempty"`
}

// BusinessHour is one weekday's opening window.
type BusinessHour struct {
	DayOfWeek int    `bson:"day_of_week" json:"dayOfWeek"` // 0 = Sunday
	StartTime string `bson:"start_time" json:"startTime"`  // HH:MM
	EndTime   string `bson:"end_time" json:"endTime"`      // HH:MM
	IsClosed  bool   `bson:"is_closed" json:"isClosed"`
}

// Service is one bookable catalog item.
type Service struct {
	ID              string    `bson:"id" json:"id"`
	TenantID        string    `bson:"tenant_id" json:"tenantId"`
	Name            string    `bson:"name" json:"name"`
	Price           float64   `bson:"price" json:"price"`
	DurationMinutes int       `bson:"duration_minutes,omitempty" json:"durationMinutes,omitempty"`
	CreatedAt       time.Time `bson:"created_at" json:"createdAt"`
}

// Professional is a staff member bookings can be assigned to.
type Professional struct {
	ID        string    `bson:"id" json:"id"`
	TenantID  string    `bson:"tenant_id" json:"tenantId"`
	FullName  string    `bson:"full_name" json:"fullName"`
	FCMToken  string    `bson:"fcm_token,omitempty" json:"-"`
	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
}

// Catalog bundles the tenant's bookable inventory, ordered by name so that
// numbered menus stay stable between turns.
type Catalog struct {
	Services      []Service
	Professionals []Professional
}
