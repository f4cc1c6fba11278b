package assistant

import (
	"strings"
	"testing"
	"time"

	"zapagenda/models"

	"github.com/stretchr/testify/require"
)

func promptInput(tenant *models.Tenant) TurnInput {
	return TurnInput{
		Tenant:  tenant,
		Catalog: testCatalog(),
		State:   models.BookingState{ServiceKey: models.ServiceKeyCorte},
		History: []models.ConversationLog{
			{Sender: models.SenderUser, Content: "quero cortar"},
			{Sender: models.SenderAI, Content: "Fechou. Qual serviço você quer?"},
		},
		IncomingText: "o tradicional",
		Now:          time.Date(2026, 9, 1, 14, 30, 0, 0, time.Local), // a Tuesday
	}
}

func TestBuildSystemPromptDefault(t *testing.T) {
	tenant := &models.Tenant{ID: "t1", Name: "Barbearia do Zé"}

	prompt := BuildSystemPrompt(promptInput(tenant))

	require.Contains(t, prompt, "Atendente IA da Barbearia do Zé")
	require.Contains(t, prompt, "terça-feira, 01/09/2026 14:30")
	require.Contains(t, prompt, `"service_key": "corte"`)
	require.Contains(t, prompt, "- Corte Tradicional (R$50)")
	require.Contains(t, prompt, "- João Silva")
	require.Contains(t, prompt, "[user] quero cortar")
	require.Contains(t, prompt, "Você DEVE responder APENAS um JSON")
}

func TestBuildSystemPromptTenantOverrideKeepsContract(t *testing.T) {
	tenant := &models.Tenant{
		ID:   "t1",
		Name: "Studio Hair",
		Settings: models.Settings{
			SystemPrompt: "Você é a recepcionista virtual do Studio Hair. Seja formal.",
		},
	}

	prompt := BuildSystemPrompt(promptInput(tenant))

	require.True(t, strings.HasPrefix(prompt, "Você é a recepcionista virtual do Studio Hair."))
	require.NotContains(t, prompt, "Atendente IA da")
	// The structured output contract survives any override.
	require.Contains(t, prompt, "Você DEVE responder APENAS um JSON")
	require.Contains(t, prompt, "- Corte Tradicional (R$50)")
}

func TestBusinessContextRendersHours(t *testing.T) {
	tenant := &models.Tenant{
		Name: "Barbearia do Zé",
		Settings: models.Settings{
			BusinessHours: []models.BusinessHour{
				{DayOfWeek: 1, StartTime: "09:00", EndTime: "19:00"},
				{DayOfWeek: 0, IsClosed: true},
			},
		},
	}

	ctx := BusinessContext(tenant, testCatalog())

	require.Contains(t, ctx, "- segunda-feira: 09:00 às 19:00")
	require.Contains(t, ctx, "- domingo: fechado")
}

func TestBusinessContextEmptyCatalog(t *testing.T) {
	tenant := &models.Tenant{Name: "Nova"}

	ctx := BusinessContext(tenant, models.Catalog{})

	require.Contains(t, ctx, "Profissionais:\n- N/A")
	require.Contains(t, ctx, "Serviços:\n- N/A")
}
