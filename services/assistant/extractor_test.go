package assistant

import (
	"testing"

	"zapagenda/models"

	"github.com/stretchr/testify/require"
)

func testCatalog() models.Catalog {
	return models.Catalog{
		Services: []models.Service{
			{ID: "svc-barba", TenantID: "t1", Name: "Barba Completa", Price: 30},
			{ID: "svc-corte", TenantID: "t1", Name: "Corte Tradicional", Price: 50, DurationMinutes: 45},
			{ID: "svc-degrade", TenantID: "t1", Name: "Degradê", Price: 60},
		},
		Professionals: []models.Professional{
			{ID: "pro-joao", TenantID: "t1", FullName: "João Silva"},
			{ID: "pro-maria", TenantID: "t1", FullName: "Maria Santos"},
		},
	}
}

func TestNormalizeStripsDiacritics(t *testing.T) {
	require.Equal(t, "hidratacao", Normalize("Hidratação"))
	require.Equal(t, "joao", Normalize("  JOÃO "))
	require.Equal(t, "degrade", Normalize("Degradê"))
}

func TestExtractGreetingResetsSlots(t *testing.T) {
	state := models.BookingState{
		ServiceID: "svc-corte",
		Date:      "2026-09-01",
		Time:      "16:00",
	}

	out, reset := ExtractSlots("Oi", state, "", testCatalog())

	require.True(t, reset)
	require.Empty(t, out.ServiceID)
	require.Empty(t, out.Date)
	require.Empty(t, out.Time)
}

func TestExtractCancellationResetsSlots(t *testing.T) {
	state := models.BookingState{ServiceID: "svc-corte", HoldBookingID: "bk-1"}

	out, reset := ExtractSlots("quero cancelar tudo", state, "", testCatalog())

	require.True(t, reset)
	require.Empty(t, out.ServiceID)
	require.Equal(t, "bk-1", out.HoldBookingID)
}

func TestExtractNumericPickUsesRecordedOffer(t *testing.T) {
	// The recorded offer was a filtered menu whose order differs from the
	// live catalog; the reply must resolve against what was shown.
	state := models.BookingState{
		LastOffer: &models.LastOffer{
			ServiceIDs:    []string{"svc-degrade", "svc-corte"},
			ServiceLabels: []string{"Degradê", "Corte Tradicional"},
		},
	}

	out, _ := ExtractSlots("2", state, models.QuestionService, testCatalog())

	require.Equal(t, "svc-corte", out.ServiceID)
	require.Equal(t, "Corte Tradicional", out.ServiceName)
}

func TestExtractNumericPickCatalogFallbackOnlyWithoutOffer(t *testing.T) {
	out, _ := ExtractSlots("2", models.BookingState{}, models.QuestionService, testCatalog())

	require.Equal(t, "svc-corte", out.ServiceID)
	require.Equal(t, "Corte Tradicional", out.ServiceName)
}

func TestExtractNumericPickOutOfRangeIsIgnored(t *testing.T) {
	state := models.BookingState{
		LastOffer: &models.LastOffer{
			ServiceIDs:    []string{"svc-corte"},
			ServiceLabels: []string{"Corte Tradicional"},
		},
	}

	out, _ := ExtractSlots("7", state, models.QuestionService, testCatalog())

	require.Empty(t, out.ServiceID)
}

func TestExtractZeroMeansFirstAvailable(t *testing.T) {
	out, _ := ExtractSlots("0", models.BookingState{}, models.QuestionProfessional, testCatalog())

	require.Equal(t, ProfessionalAny, out.ProfessionalID)
	require.Equal(t, "Primeiro disponível", out.ProfessionalName)
}

func TestExtractNumericProfessionalFromOffer(t *testing.T) {
	state := models.BookingState{
		LastOffer: &models.LastOffer{
			ProfessionalIDs:    []string{"pro-maria", "pro-joao"},
			ProfessionalLabels: []string{"Maria Santos", "João Silva"},
		},
	}

	out, _ := ExtractSlots("1", state, models.QuestionProfessional, testCatalog())

	require.Equal(t, "pro-maria", out.ProfessionalID)
	require.Equal(t, "Maria Santos", out.ProfessionalName)
}

func TestExtractFuzzyServiceResolution(t *testing.T) {
	out, _ := ExtractSlots("quero cortar o cabelo", models.BookingState{}, "", testCatalog())

	require.Equal(t, models.ServiceKeyCorte, out.ServiceKey)
	require.Equal(t, "svc-corte", out.ServiceID)
	require.Equal(t, "Corte Tradicional", out.ServiceName)
}

func TestExtractCorteContainmentFallback(t *testing.T) {
	// No catalog name shares a token with the utterance, but one contains
	// "corte" as a substring.
	catalog := models.Catalog{
		Services: []models.Service{
			{ID: "svc-masc", Name: "Cortes Masculinos", Price: 40},
			{ID: "svc-degrade", Name: "Degradê", Price: 60},
		},
	}

	out, _ := ExtractSlots("quero cortar", models.BookingState{}, "", catalog)

	require.Equal(t, models.ServiceKeyCorte, out.ServiceKey)
	require.Equal(t, "svc-masc", out.ServiceID)
}

func TestExtractVerbatimServiceNameWithoutKey(t *testing.T) {
	out, _ := ExtractSlots("quero um degrade", models.BookingState{}, "", testCatalog())

	require.Empty(t, out.ServiceKey)
	require.Equal(t, "svc-degrade", out.ServiceID)
	require.Equal(t, "Degradê", out.ServiceName)
}

func TestExtractIntentChangeWipesDownstream(t *testing.T) {
	state := models.BookingState{
		ServiceID:        "svc-corte",
		ServiceName:      "Corte Tradicional",
		ServiceKey:       models.ServiceKeyCorte,
		ProfessionalID:   "pro-joao",
		ProfessionalName: "João Silva",
		Date:             "2026-09-01",
		Time:             "16:00",
	}

	out, reset := ExtractSlots("na verdade quero fazer a barba", state, "", testCatalog())

	require.True(t, reset)
	require.Equal(t, models.ServiceKeyBarba, out.ServiceKey)
	require.Equal(t, "svc-barba", out.ServiceID)
	require.Empty(t, out.Date)
	require.Empty(t, out.Time)
	require.Empty(t, out.ProfessionalID)
}

func TestExtractSameIntentKeepsDownstream(t *testing.T) {
	state := models.BookingState{
		ServiceID:  "svc-corte",
		ServiceKey: models.ServiceKeyCorte,
		Date:       "2026-09-01",
	}

	out, reset := ExtractSlots("o corte mesmo", state, "", testCatalog())

	require.False(t, reset)
	require.Equal(t, "svc-corte", out.ServiceID)
	require.Equal(t, "2026-09-01", out.Date)
}

func TestExtractProfessionalByFirstName(t *testing.T) {
	out, _ := ExtractSlots("pode ser com o João?", models.BookingState{}, "", testCatalog())

	require.Equal(t, "pro-joao", out.ProfessionalID)
	require.Equal(t, "João Silva", out.ProfessionalName)
}

func TestExtractShortFirstNameNeverMatchesInsideWords(t *testing.T) {
	catalog := models.Catalog{
		Professionals: []models.Professional{
			{ID: "pro-le", FullName: "Le Blanc"},
		},
	}

	out, _ := ExtractSlots("legal, pode marcar", models.BookingState{}, "", catalog)

	require.Empty(t, out.ProfessionalID)
}

func TestScoreMatch(t *testing.T) {
	require.GreaterOrEqual(t, scoreMatch("quero cortar o cabelo corte", "Corte Tradicional"), 2)
	require.Less(t, scoreMatch("bom dia", "Corte Tradicional"), 2)
	// Candidate containing the whole query scores the containment bonus.
	require.GreaterOrEqual(t, scoreMatch("barba", "Barba Completa"), 5)
}
