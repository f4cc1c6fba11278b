package models

// NextAction is the closed set of actions the turn engine may propose. The
// deterministic router has the final say on whether one actually runs.
type NextAction string

const (
	ActionNone           NextAction = "NONE"
	ActionAskMissing     NextAction = "ASK_MISSING"
	ActionCreateHold     NextAction = "CREATE_HOLD"
	ActionCreatePayment  NextAction = "CREATE_PAYMENT"
	ActionCheckPayment   NextAction = "CHECK_PAYMENT"
	ActionConfirmBooking NextAction = "CONFIRM_BOOKING"
)

// Valid reports whether a is one of the known actions.
func (a NextAction) Valid() bool {
	switch a {
	case ActionNone, ActionAskMissing, ActionCreateHold, ActionCreatePayment,
		ActionCheckPayment, ActionConfirmBooking:
		return true
	}
	return false
}

// StateUpdates is the partial slot delta an engine turn may report. Empty
// fields mean "no change"; the merge never lets them clear a filled slot.
type StateUpdates struct {
	ServiceID        string `json:"service_id,omitempty"`
	ServiceName      string `json:"service_name,omitempty"`
	ServiceKey       string `json:"service_key,omitempty"`
	ProfessionalID   string `json:"professional_id,omitempty"`
	ProfessionalName string `json:"professional_name,omitempty"`
	Date             string `json:"date,omitempty"`
	Time             string `json:"time,omitempty"`
	ClientName       string `json:"client_name,omitempty"`
}

// TurnResult is the structured response contract forced onto the model.
type TurnResult struct {
	Reply         string       `json:"reply"`
	StateUpdates  StateUpdates `json:"state_updates"`
	NextAction    NextAction   `json:"next_action"`
	MissingFields []string     `json:"missing_fields"`
}
