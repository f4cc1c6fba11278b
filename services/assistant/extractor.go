package assistant

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"zapagenda/models"
	"zapagenda/utils"

	"go.uber.org/zap"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// ProfessionalAny marks "no preference / first available" in the state.
const ProfessionalAny = "any"

var (
	numberPattern = regexp.MustCompile(`\b\d+\b`)

	greetings = []string{"oi", "ola", "e ai", "eai", "opa", "bom dia", "boa tarde", "boa noite"}
	cancels   = []string{"cancelar", "cancela", "desmarcar", "deixa pra la", "esquece", "comecar de novo"}

	// Coarse intent vocabulary, checked in order. Informal synonyms map onto
	// the closed service-key set.
	intentVocab = []struct {
		key   string
		terms []string
	}{
		{models.ServiceKeyCorte, []string{"corte", "cortar", "cabelo", "cabeleira"}},
		{models.ServiceKeyBarba, []string{"barba", "bigode"}},
		{models.ServiceKeySobrancelha, []string{"sobrancelha"}},
		{models.ServiceKeyHidratacao, []string{"hidratacao", "hidratar"}},
		{models.ServiceKeyCorte, []string{"pezinho", "acabamento"}},
	}
)

// Normalize lowercases, strips diacritics and trims. Both sides of every
// match go through this so "hidratação" meets "hidratacao".
func Normalize(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, strings.ToLower(s))
	if err != nil {
		return strings.TrimSpace(strings.ToLower(s))
	}
	return strings.TrimSpace(out)
}

func tokenSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range strings.Fields(Normalize(s)) {
		set[tok] = struct{}{}
	}
	return set
}

// scoreMatch rates how well a catalog display name fits the utterance: +2 per
// shared token, +3 when the candidate contains the query, +1 for the reverse.
func scoreMatch(query, candidate string) int {
	q := tokenSet(query)
	c := tokenSet(candidate)
	score := 0
	for tok := range q {
		if _, ok := c[tok]; ok {
			score += 2
		}
	}
	nq, nc := Normalize(query), Normalize(candidate)
	if nq != "" && strings.Contains(nc, nq) {
		score += 3
	}
	if nc != "" && strings.Contains(nq, nc) {
		score += 1
	}
	return score
}

// resolveService picks the best-scoring catalog service, requiring a minimum
// score of 2 so a single stray token cannot select anything.
func resolveService(services []models.Service, query string) *models.Service {
	var best *models.Service
	bestScore := 0
	for i := range services {
		if sc := scoreMatch(query, services[i].Name); sc > bestScore {
			bestScore = sc
			best = &services[i]
		}
	}
	if best != nil && bestScore >= 2 {
		return best
	}
	return nil
}

// ExtractSlots is the deterministic pre-model pass. It runs strictly on the
// current message against the loaded state and returns the snapshot the
// generative engine will see, plus whether a reset fired (so the safety net
// knows not to restore cleared slots).
func ExtractSlots(text string, state models.BookingState, lastQuestionKey string, catalog models.Catalog) (models.BookingState, bool) {
	logger := utils.GetLogger()
	normText := Normalize(text)

	// Reset triggers run first: a bare greeting or a cancellation means the
	// counterparty is starting over.
	for _, g := range greetings {
		if normText == g {
			logger.Debug("extractor: greeting reset", zap.String("text", text))
			return ResetSlots(state), true
		}
	}
	for _, c := range cancels {
		if strings.Contains(normText, c) {
			logger.Debug("extractor: cancellation reset", zap.String("text", text))
			return ResetSlots(state), true
		}
	}

	reset := false

	// Numeric selection against the recorded offer. 1-based; 0 means "first
	// available" on the professional menu. The live catalog is only a
	// fallback for states saved before the offer was recorded.
	if m := numberPattern.FindString(text); m != "" {
		n, err := strconv.Atoi(m)
		if err == nil && n >= 0 {
			switch lastQuestionKey {
			case models.QuestionService:
				if id, label, ok := pickOffer(state.LastOffer.ServiceOptions())(n); ok {
					state.ServiceID = id
					state.ServiceName = label
				} else if n >= 1 && n <= len(catalog.Services) && state.LastOffer == nil {
					picked := catalog.Services[n-1]
					state.ServiceID = picked.ID
					state.ServiceName = picked.Name
				}
			case models.QuestionProfessional:
				if n == 0 {
					state.ProfessionalID = ProfessionalAny
					state.ProfessionalName = "Primeiro disponível"
				} else if id, label, ok := pickOffer(state.LastOffer.ProfessionalOptions())(n); ok {
					state.ProfessionalID = id
					state.ProfessionalName = label
				} else if n <= len(catalog.Professionals) && state.LastOffer == nil {
					picked := catalog.Professionals[n-1]
					state.ProfessionalID = picked.ID
					state.ProfessionalName = picked.FullName
				}
			}
		}
	}

	// Coarse intent. A key different from the one already on file wipes the
	// downstream slots: the request restarted.
	detectedKey := ""
	for _, entry := range intentVocab {
		for _, term := range entry.terms {
			if strings.Contains(normText, term) {
				detectedKey = entry.key
				break
			}
		}
		if detectedKey != "" {
			break
		}
	}

	if detectedKey != "" {
		if state.ServiceKey != "" && state.ServiceKey != detectedKey {
			logger.Debug("extractor: intent changed, wiping downstream slots",
				zap.String("old", state.ServiceKey), zap.String("new", detectedKey))
			state = ResetDownstream(state)
			reset = true
		}
		state.ServiceKey = detectedKey

		if state.ServiceID == "" {
			// Combine utterance and key so short messages still score.
			if found := resolveService(catalog.Services, text+" "+detectedKey); found != nil {
				state.ServiceID = found.ID
				state.ServiceName = found.Name
			} else if detectedKey == models.ServiceKeyCorte {
				for _, s := range catalog.Services {
					if strings.Contains(Normalize(s.Name), models.ServiceKeyCorte) {
						state.ServiceID = s.ID
						state.ServiceName = s.Name
						break
					}
				}
			}
		}
	}

	// No key detected: the counterparty may have typed a service name
	// verbatim ("Degradê").
	if state.ServiceID == "" && detectedKey == "" {
		for _, s := range catalog.Services {
			if strings.Contains(normText, Normalize(s.Name)) {
				state.ServiceID = s.ID
				state.ServiceName = s.Name
				break
			}
		}
	}

	// Professional by first name. The length guard keeps two-letter names
	// from matching inside ordinary words.
	if state.ProfessionalID == "" {
		for _, p := range catalog.Professionals {
			first := Normalize(strings.SplitN(p.FullName, " ", 2)[0])
			if len(first) > 2 && strings.Contains(normText, first) {
				state.ProfessionalID = p.ID
				state.ProfessionalName = p.FullName
				break
			}
		}
	}

	return state, reset
}

// pickOffer returns a 1-based picker over positionally aligned id/label
// slices.
func pickOffer(ids, labels []string) func(n int) (string, string, bool) {
	return func(n int) (string, string, bool) {
		if n < 1 || n > len(ids) || len(ids) != len(labels) {
			return "", "", false
		}
		return ids[n-1], labels[n-1], true
	}
}
