package assistant

import "zapagenda/models"

// Mandatory slot names, as reported by ComputeMissing.
const (
	FieldService      = "service"
	FieldProfessional = "professional"
	FieldDate         = "date"
	FieldTime         = "time"
)

// ApplyUpdates merges a partial delta into base. The merge is monotonic: an
// empty field in the delta never clears a filled slot. Clearing only happens
// through ResetSlots / ResetDownstream.
func ApplyUpdates(base models.BookingState, updates models.StateUpdates) models.BookingState {
	merged := base
	if updates.ServiceID != "" {
		merged.ServiceID = updates.ServiceID
	}
	if updates.ServiceName != "" {
		merged.ServiceName = updates.ServiceName
	}
	if updates.ServiceKey != "" {
		merged.ServiceKey = updates.ServiceKey
	}
	if updates.ProfessionalID != "" {
		merged.ProfessionalID = updates.ProfessionalID
	}
	if updates.ProfessionalName != "" {
		merged.ProfessionalName = updates.ProfessionalName
	}
	if updates.Date != "" {
		merged.Date = updates.Date
	}
	if updates.Time != "" {
		merged.Time = updates.Time
	}
	if updates.ClientName != "" {
		merged.ClientName = updates.ClientName
	}
	return merged
}

// MergeOffer replaces only the keys present in the new offer, leaving the
// other key's lists intact. A new service menu must not wipe the professional
// options the counterparty may still reply to.
func MergeOffer(base *models.LastOffer, offer models.LastOffer) *models.LastOffer {
	merged := models.LastOffer{}
	if base != nil {
		merged = *base
	}
	if len(offer.ServiceIDs) > 0 || len(offer.ServiceLabels) > 0 {
		merged.ServiceIDs = offer.ServiceIDs
		merged.ServiceLabels = offer.ServiceLabels
	}
	if len(offer.ProfessionalIDs) > 0 || len(offer.ProfessionalLabels) > 0 {
		merged.ProfessionalIDs = offer.ProfessionalIDs
		merged.ProfessionalLabels = offer.ProfessionalLabels
	}
	return &merged
}

// ComputeMissing lists the mandatory slots still unfilled, in router order.
func ComputeMissing(state models.BookingState) []string {
	missing := []string{}
	if state.ServiceID == "" && state.ServiceName == "" && state.ServiceKey == "" {
		missing = append(missing, FieldService)
	}
	if state.ProfessionalID == "" && state.ProfessionalName == "" {
		missing = append(missing, FieldProfessional)
	}
	if state.Date == "" {
		missing = append(missing, FieldDate)
	}
	if state.Time == "" {
		missing = append(missing, FieldTime)
	}
	return missing
}

// ResetSlots clears every booking slot. Used when the counterparty starts
// over (bare greeting, explicit cancellation). Hold and payment identifiers
// survive so an existing reservation is never orphaned silently.
func ResetSlots(state models.BookingState) models.BookingState {
	state.ServiceID = ""
	state.ServiceName = ""
	state.ServiceKey = ""
	state.ProfessionalID = ""
	state.ProfessionalName = ""
	state.Date = ""
	state.Time = ""
	state.LastOffer = nil
	return state
}

// ResetDownstream clears everything that followed from a service choice. A
// new coarse intent means the counterparty restarted the request, and stale
// professional/date/time slots would let a hold go through with inconsistent
// data.
func ResetDownstream(state models.BookingState) models.BookingState {
	state.ServiceID = ""
	state.ServiceName = ""
	state.ProfessionalID = ""
	state.ProfessionalName = ""
	state.Date = ""
	state.Time = ""
	return state
}
