package assistant

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"zapagenda/models"
	"zapagenda/utils"

	"go.uber.org/zap"
)

var (
	datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	timePattern = regexp.MustCompile(`^\d{1,2}:\d{2}$`)
)

// Decision is the router's verdict for one turn. Reply, when set, overrides
// whatever the model said; State carries the persisted offers.
type Decision struct {
	Action          models.NextAction
	Reply           string
	LastQuestionKey string
	State           models.BookingState
}

func formatPrice(price float64) string {
	return strconv.FormatFloat(price, 'f', -1, 64)
}

// ServiceMenu renders the canonical numbered service list.
func ServiceMenu(services []models.Service) string {
	var b strings.Builder
	b.WriteString("Fechou. Qual serviço você quer?\n\n")
	for i, s := range services {
		fmt.Fprintf(&b, "%d) %s (R$%s)\n", i+1, s.Name, formatPrice(s.Price))
	}
	b.WriteString("\nResponda com o número (ex: 1).")
	return b.String()
}

// ProfessionalMenu renders the numbered professional list; 0 keeps its
// reserved "first available" meaning.
func ProfessionalMenu(pros []models.Professional) string {
	var b strings.Builder
	b.WriteString("Show. Agora escolhe o profissional:\n\n")
	b.WriteString("0) Primeiro disponível\n")
	for i, p := range pros {
		fmt.Fprintf(&b, "%d) %s\n", i+1, p.FullName)
	}
	b.WriteString("\nResponda com o número (ex: 2).")
	return b.String()
}

// UnresolvedServiceMenu is the recovery menu when a hold failed on service
// resolution.
func UnresolvedServiceMenu(services []models.Service) string {
	var b strings.Builder
	b.WriteString("Não consegui identificar o serviço com certeza 😅\n")
	b.WriteString("Me diz qual é, escolhendo na lista:\n\n")
	for i, s := range services {
		fmt.Fprintf(&b, "%d) %s (R$%s)\n", i+1, s.Name, formatPrice(s.Price))
	}
	b.WriteString("\nResponda com o número (ex: 1).")
	return b.String()
}

func serviceOffer(services []models.Service) models.LastOffer {
	offer := models.LastOffer{}
	for _, s := range services {
		offer.ServiceIDs = append(offer.ServiceIDs, s.ID)
		offer.ServiceLabels = append(offer.ServiceLabels, s.Name)
	}
	return offer
}

func professionalOffer(pros []models.Professional) models.LastOffer {
	offer := models.LastOffer{}
	for _, p := range pros {
		offer.ProfessionalIDs = append(offer.ProfessionalIDs, p.ID)
		offer.ProfessionalLabels = append(offer.ProfessionalLabels, p.FullName)
	}
	return offer
}

// missingFieldsReply names what still has to be confirmed, in natural
// language, when the model jumped to a hold too early.
func missingFieldsReply(missing []string) string {
	labels := map[string]string{
		FieldService:      "o serviço",
		FieldProfessional: "o profissional",
		FieldDate:         "o dia",
		FieldTime:         "o horário",
	}
	parts := make([]string, 0, len(missing))
	for _, m := range missing {
		if label, ok := labels[m]; ok {
			parts = append(parts, label)
		} else {
			parts = append(parts, m)
		}
	}
	return fmt.Sprintf("Opa, entendi! Para finalizar o agendamento, preciso só confirmar %s.",
		strings.Join(parts, " e "))
}

// holdReady is the strict gate for CREATE_HOLD: concrete identifiers plus
// well-formed date and time.
func holdReady(state models.BookingState) bool {
	if state.ServiceID == "" {
		return false
	}
	if state.ProfessionalID == "" {
		return false
	}
	if !datePattern.MatchString(state.Date) {
		return false
	}
	if !timePattern.MatchString(state.Time) {
		return false
	}
	return true
}

// Route is the authoritative state machine over the merged state. It decides
// what actually happens this turn; the model's proposal only survives when
// every gate it depends on holds.
func Route(state models.BookingState, result *models.TurnResult, catalog models.Catalog) Decision {
	logger := utils.GetLogger()

	// Stage 1: no service intent at all.
	if state.ServiceKey == "" && state.ServiceID == "" && state.ServiceName == "" {
		offer := serviceOffer(catalog.Services)
		state.LastOffer = MergeOffer(state.LastOffer, offer)
		logger.Debug("router: asking for service")
		return Decision{
			Action:          models.ActionAskMissing,
			Reply:           ServiceMenu(catalog.Services),
			LastQuestionKey: models.QuestionService,
			State:           state,
		}
	}

	// Stage 2: no professional. A single-professional tenant is assigned
	// silently; otherwise the numbered menu goes out.
	if state.ProfessionalID == "" && state.ProfessionalName == "" {
		if len(catalog.Professionals) == 1 {
			state.ProfessionalID = catalog.Professionals[0].ID
			state.ProfessionalName = catalog.Professionals[0].FullName
			logger.Debug("router: auto-selected single professional",
				zap.String("professional", state.ProfessionalName))
		} else {
			offer := professionalOffer(catalog.Professionals)
			state.LastOffer = MergeOffer(state.LastOffer, offer)
			logger.Debug("router: asking for professional")
			return Decision{
				Action:          models.ActionAskMissing,
				Reply:           ProfessionalMenu(catalog.Professionals),
				LastQuestionKey: models.QuestionProfessional,
				State:           state,
			}
		}
	}

	// Stage 3: coarse intent but no concrete catalog identifier yet. This
	// runs before the date/time prompt so an ambiguous key is pinned down
	// first instead of asking for a slot on an unknown service.
	if state.ServiceID == "" {
		filtered := filterByKey(catalog.Services, state.ServiceKey)
		if len(filtered) == 0 {
			filtered = catalog.Services
		}
		if len(filtered) == 1 {
			state.ServiceID = filtered[0].ID
			state.ServiceName = filtered[0].Name
			logger.Debug("router: auto-selected single filtered service",
				zap.String("service", state.ServiceName))
		} else {
			offer := serviceOffer(filtered)
			state.LastOffer = MergeOffer(state.LastOffer, offer)
			return Decision{
				Action:          models.ActionAskMissing,
				Reply:           ServiceMenu(filtered),
				LastQuestionKey: models.QuestionService,
				State:           state,
			}
		}
	}

	// Stage 4: no date or time. The model's own question is kept when it
	// asked one; otherwise a canned prompt. Either way no hold this turn.
	if state.Date == "" || state.Time == "" {
		reply := ""
		if result.NextAction != models.ActionAskMissing || strings.TrimSpace(result.Reply) == "" {
			reply = "Perfeito! Pra qual dia e horário você quer agendar?"
		}
		return Decision{
			Action: models.ActionAskMissing,
			Reply:  reply,
			State:  state,
		}
	}

	// Stage 5: everything resolved. The router decides the action itself;
	// only an explicit CREATE_PAYMENT proposal survives, since it means a
	// hold already exists and the counterparty asked to pay.
	if holdReady(state) {
		switch {
		case result.NextAction == models.ActionCreatePayment:
			return Decision{Action: models.ActionCreatePayment, State: state}
		case result.NextAction == models.ActionCheckPayment && state.HoldBookingID != "":
			return Decision{Action: models.ActionCheckPayment, State: state}
		case state.HoldBookingID != "":
			// Hold already placed; nothing left to execute this turn.
			return Decision{Action: models.ActionNone, State: state}
		default:
			if result.NextAction != models.ActionCreateHold {
				logger.Debug("router: forcing CREATE_HOLD over model proposal",
					zap.String("proposed", string(result.NextAction)))
			}
			return Decision{Action: models.ActionCreateHold, State: state}
		}
	}

	// Mandatory fields still unresolved under the strict check (unresolved
	// professional, malformed date or time): any model-proposed hold is
	// downgraded to a field-specific question.
	missing := strictMissing(state)
	if result.NextAction == models.ActionCreateHold {
		logger.Warn("router: model proposed hold with missing fields",
			zap.Strings("missing", missing))
		return Decision{
			Action: models.ActionAskMissing,
			Reply:  missingFieldsReply(missing),
			State:  state,
		}
	}
	return Decision{Action: models.ActionAskMissing, State: state}
}

// strictMissing applies the same gates as holdReady, field by field.
func strictMissing(state models.BookingState) []string {
	missing := []string{}
	if state.ServiceID == "" {
		missing = append(missing, FieldService)
	}
	if state.ProfessionalID == "" {
		missing = append(missing, FieldProfessional)
	}
	if !datePattern.MatchString(state.Date) {
		missing = append(missing, FieldDate)
	}
	if !timePattern.MatchString(state.Time) {
		missing = append(missing, FieldTime)
	}
	return missing
}

func filterByKey(services []models.Service, key string) []models.Service {
	if key == "" {
		return services
	}
	var out []models.Service
	for _, s := range services {
		if strings.Contains(Normalize(s.Name), key) {
			out = append(out, s)
		}
	}
	return out
}
