package assistant

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"zapagenda/models"
)

// jsonContract is appended to every system prompt, including tenant-supplied
// ones. The model has no other signal of the required output shape.
const jsonContract = `
Você DEVE responder APENAS um JSON neste formato:
{
  "reply": string,
  "state_updates": object,
  "next_action": "NONE"|"ASK_MISSING"|"CREATE_HOLD"|"CREATE_PAYMENT"|"CHECK_PAYMENT"|"CONFIRM_BOOKING",
  "missing_fields": string[]
}`

// fallbackReply is sent whenever the model's output cannot be parsed.
const fallbackReply = "Desculpe, não entendi. Pode repetir?"

// defaultSystemPrompt carries the assistant's instructions. Kept as a
// template with explicit injection points so tenant free text is never
// spliced into the middle of executable instructions.
const defaultSystemPrompt = `Você é o Atendente IA da %s.
HOJE É: %s (Horário de Brasília)

ANTI-LOOP: nunca pergunte algo já presente no ESTADO ATUAL ou já dito no histórico.
Se cliente disse "pode ser", "sim", "combinado", considere CONFIRMADO a última proposta feita.

ESTADO ATUAL (O QUE JÁ SABEMOS):
%s

REGRA DE OURO (ANTI-ALUCINAÇÃO):
- O status oficial é o que está no "ESTADO ATUAL" acima.
- Se "hold_booking_id" for nulo/vazio, NÃO EXISTE RESERVA NO SISTEMA AINDA.
- Mesmo que o histórico mostre que você disse "agendado", se o ID não estiver aqui, falhou. TENTE NOVAMENTE (CREATE_HOLD).

EXTRAÇÃO INTELIGENTE (MUITO IMPORTANTE):
- O usuário fala de jeito informal ("cortar", "tapar a juba", "fazer a barba").
- Compare com a lista "Serviços" abaixo e encontre o DE MAIOR MATCH.
- SE O USUÁRIO DISSE ALGO QUE PARECE SERVIÇO, VOCÊ DEVE ESCOLHER UM DA LISTA. Não deixe vazio.
- No JSON "state_updates", use o service_name COM O NOME EXATO DA LISTA, não o texto do usuário.

PERSONALIDADE:
- Seja natural, como um humano no WhatsApp.
- Evite listar itens técnicos ("faltou serviço"). Pergunte organicamente.
- Se faltar algo, pergunte apenas o que falta.

CONTEXTO EXTRA (Use estes nomes exatos):
%s

HISTÓRICO RECENTE:
%s

INSTRUÇÕES:
1. Analise a mensagem do usuário.
2. Identifique intenções de serviço/profissional usando a lista.
3. EXTRAIA DATAS para o formato YYYY-MM-DD usando "HOJE" como referência.
   - "Amanhã" -> HOJE + 1 dia.
   - "Terça" -> Próxima terça a partir de HOJE.
   - Preencha "date" (YYYY-MM-DD) e "time" (HH:MM) no state_updates se o usuário falou.
4. Atualize o state_updates com os NOMES CANÔNICOS da lista.
5. Decida a next_action.
   - Se falta info (service, professional, date, time), next_action = "ASK_MISSING".
   - Se tem tudo e não tem hold, next_action = "CREATE_HOLD".
   - Se tem hold e o usuário pediu link/pagamento, next_action = "CREATE_PAYMENT".
   - NUNCA use CREATE_PAYMENT automaticamente, apenas quando o usuário pedir.
6. Gere uma reply curta e natural (estilo WhatsApp).`

var weekdaysPT = [...]string{"domingo", "segunda-feira", "terça-feira", "quarta-feira", "quinta-feira", "sexta-feira", "sábado"}

// TurnInput bundles everything the engine needs for one call.
type TurnInput struct {
	Tenant       *models.Tenant
	Catalog      models.Catalog
	State        models.BookingState
	History      []models.ConversationLog
	IncomingText string
	Now          time.Time
}

// BusinessContext renders the professional and service lists plus opening
// hours, using exact catalog names so the model echoes canonical labels.
func BusinessContext(tenant *models.Tenant, catalog models.Catalog) string {
	var b strings.Builder

	b.WriteString("Profissionais:\n")
	if len(catalog.Professionals) == 0 {
		b.WriteString("- N/A\n")
	}
	for _, p := range catalog.Professionals {
		fmt.Fprintf(&b, "- %s\n", p.FullName)
	}

	b.WriteString("\nServiços:\n")
	if len(catalog.Services) == 0 {
		b.WriteString("- N/A\n")
	}
	for _, s := range catalog.Services {
		fmt.Fprintf(&b, "- %s (R$%s)\n", s.Name, formatPrice(s.Price))
	}

	if len(tenant.Settings.BusinessHours) > 0 {
		b.WriteString("\nHorário de funcionamento:\n")
		for _, h := range tenant.Settings.BusinessHours {
			day := weekdaysPT[h.DayOfWeek%7]
			if h.IsClosed {
				fmt.Fprintf(&b, "- %s: fechado\n", day)
			} else {
				fmt.Fprintf(&b, "- %s: %s às %s\n", day, h.StartTime, h.EndTime)
			}
		}
	}
	return b.String()
}

// BuildSystemPrompt assembles the full system prompt for one turn. A tenant
// override replaces the default instructions wholesale but the JSON contract
// is always appended.
func BuildSystemPrompt(in TurnInput) string {
	stateJSON, err := json.MarshalIndent(in.State, "", "  ")
	if err != nil {
		stateJSON = []byte("{}")
	}

	history := make([]string, 0, len(in.History))
	for _, entry := range in.History {
		history = append(history, fmt.Sprintf("[%s] %s", entry.Sender, entry.Content))
	}
	historyJSON, err := json.Marshal(history)
	if err != nil {
		historyJSON = []byte("[]")
	}

	today := fmt.Sprintf("%s, %s", weekdaysPT[int(in.Now.Weekday())], in.Now.Format("02/01/2006 15:04"))

	var prompt string
	if custom := strings.TrimSpace(in.Tenant.Settings.SystemPrompt); custom != "" {
		prompt = fmt.Sprintf("%s\n\nHOJE É: %s\n\nESTADO ATUAL:\n%s\n\nCONTEXTO:\n%s\n\nHISTÓRICO RECENTE:\n%s",
			custom, today, stateJSON, BusinessContext(in.Tenant, in.Catalog), historyJSON)
	} else {
		prompt = fmt.Sprintf(defaultSystemPrompt,
			in.Tenant.Name, today, stateJSON, BusinessContext(in.Tenant, in.Catalog), historyJSON)
	}
	return prompt + "\n" + jsonContract
}
