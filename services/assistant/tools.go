package assistant

import (
	"context"
	"fmt"

	"zapagenda/models"
	"zapagenda/utils"

	genai "github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
)

// maxToolRounds caps the tool-calling loop.
const maxToolRounds = 6

// BookingTools are the domain functions the model may invoke in tool-calling
// mode. Each implementation handles its own failures; the loop forwards them
// to the model as tool-result payloads instead of aborting the turn.
type BookingTools interface {
	ListServices(ctx context.Context) ([]models.Service, error)
	CheckAvailability(ctx context.Context, professionalID, date, timeOfDay string) (bool, error)
	CreateHold(ctx context.Context, updates models.StateUpdates) (string, error)
	CreatePaymentLink(ctx context.Context, bookingID string) (*models.CheckoutSession, error)
	CheckPaymentStatus(ctx context.Context, bookingID string) (string, error)
	ConfirmBooking(ctx context.Context, bookingID string) error
}

func bookingToolDeclarations() []*genai.Tool {
	str := func(desc string) *genai.Schema {
		return &genai.Schema{Type: genai.TypeString, Description: desc}
	}
	return []*genai.Tool{{
		FunctionDeclarations: []*genai.FunctionDeclaration{
			{
				Name:        "list_services",
				Description: "Lista os serviços disponíveis com nome e preço.",
				Parameters:  &genai.Schema{Type: genai.TypeObject, Properties: map[string]*genai.Schema{}},
			},
			{
				Name:        "check_availability",
				Description: "Verifica se um profissional está livre em uma data e horário.",
				Parameters: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"professional_id": str("ID do profissional ou 'any'"),
						"date":            str("Data no formato YYYY-MM-DD"),
						"time":            str("Horário no formato HH:MM"),
					},
					Required: []string{"date", "time"},
				},
			},
			{
				Name:        "create_hold",
				Description: "Cria uma pré-reserva quando serviço, profissional, data e horário estão definidos.",
				Parameters: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"service_name":      str("Nome exato do serviço da lista"),
						"professional_name": str("Nome do profissional ou vazio"),
						"date":              str("Data no formato YYYY-MM-DD"),
						"time":              str("Horário no formato HH:MM"),
						"client_name":       str("Nome do cliente, se informado"),
					},
					Required: []string{"service_name", "date", "time"},
				},
			},
			{
				Name:        "create_payment_link",
				Description: "Gera o link de pagamento do sinal para uma pré-reserva existente.",
				Parameters: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"booking_id": str("ID da pré-reserva"),
					},
					Required: []string{"booking_id"},
				},
			},
			{
				Name:        "check_payment_status",
				Description: "Consulta o status de pagamento de uma reserva.",
				Parameters: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"booking_id": str("ID da reserva"),
					},
					Required: []string{"booking_id"},
				},
			},
			{
				Name:        "confirm_booking",
				Description: "Confirma uma reserva já paga.",
				Parameters: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"booking_id": str("ID da reserva"),
					},
					Required: []string{"booking_id"},
				},
			},
		},
	}}
}

// toolChat is one model conversation in tool-calling mode. It exists so the
// round loop is not welded to a live Gemini session.
type toolChat interface {
	Send(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

type genaiToolChat struct {
	session *genai.ChatSession
}

func (c genaiToolChat) Send(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error) {
	return c.session.SendMessage(ctx, parts...)
}

// ToolTurn runs the tool-calling mode: the model invokes booking functions
// until it answers with plain text or the round cap hits.
func (g *GeminiTurnEngine) ToolTurn(ctx context.Context, in TurnInput, tools BookingTools) (*models.TurnResult, error) {
	model := g.client.GenerativeModel(g.modelName)
	model.SetTemperature(0.2)
	model.Tools = bookingToolDeclarations()
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(BuildSystemPrompt(in))},
	}

	return runToolLoop(ctx, genaiToolChat{session: model.StartChat()}, in.IncomingText, tools)
}

// runToolLoop drives the tool-calling rounds over an open chat. The round cap
// is unconditional: a model that never stops calling functions gets cut off
// with the fallback reply.
func runToolLoop(ctx context.Context, chat toolChat, incomingText string, tools BookingTools) (*models.TurnResult, error) {
	logger := utils.GetLogger()

	resp, err := chat.Send(ctx, genai.Text(incomingText))
	if err != nil {
		return nil, fmt.Errorf("gemini tool turn error: %w", err)
	}

	for round := 0; round < maxToolRounds; round++ {
		calls := functionCalls(resp)
		if len(calls) == 0 {
			reply := collectText(resp)
			if reply == "" {
				reply = fallbackReply
			}
			return &models.TurnResult{
				Reply:         reply,
				NextAction:    models.ActionNone,
				MissingFields: []string{},
			}, nil
		}

		responses := make([]genai.Part, 0, len(calls))
		for _, call := range calls {
			payload := dispatchTool(ctx, tools, call)
			logger.Debug("engine: tool call",
				zap.String("tool", call.Name), zap.Any("result", payload))
			responses = append(responses, genai.FunctionResponse{
				Name:     call.Name,
				Response: payload,
			})
		}

		resp, err = chat.Send(ctx, responses...)
		if err != nil {
			return nil, fmt.Errorf("gemini tool turn error: %w", err)
		}
	}

	logger.Warn("engine: tool round cap exhausted")
	return &models.TurnResult{
		Reply:         fallbackReply,
		NextAction:    models.ActionNone,
		MissingFields: []string{},
	}, nil
}

func functionCalls(resp *genai.GenerateContentResponse) []genai.FunctionCall {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil
	}
	var calls []genai.FunctionCall
	for _, part := range resp.Candidates[0].Content.Parts {
		if call, ok := part.(genai.FunctionCall); ok {
			calls = append(calls, call)
		}
	}
	return calls
}

// dispatchTool executes one function call. Failures are reported inside the
// payload so the model can recover; the loop never aborts on a tool error.
func dispatchTool(ctx context.Context, tools BookingTools, call genai.FunctionCall) map[string]any {
	arg := func(name string) string {
		if v, ok := call.Args[name].(string); ok {
			return v
		}
		return ""
	}

	switch call.Name {
	case "list_services":
		services, err := tools.ListServices(ctx)
		if err != nil {
			return map[string]any{"error": err.Error()}
		}
		list := make([]map[string]any, 0, len(services))
		for _, s := range services {
			list = append(list, map[string]any{"name": s.Name, "price": s.Price})
		}
		return map[string]any{"services": list}

	case "check_availability":
		available, err := tools.CheckAvailability(ctx, arg("professional_id"), arg("date"), arg("time"))
		if err != nil {
			return map[string]any{"error": err.Error()}
		}
		return map[string]any{"available": available}

	case "create_hold":
		bookingID, err := tools.CreateHold(ctx, models.StateUpdates{
			ServiceName:      arg("service_name"),
			ProfessionalName: arg("professional_name"),
			Date:             arg("date"),
			Time:             arg("time"),
			ClientName:       arg("client_name"),
		})
		if err != nil {
			return map[string]any{"error": err.Error()}
		}
		return map[string]any{"booking_id": bookingID}

	case "create_payment_link":
		session, err := tools.CreatePaymentLink(ctx, arg("booking_id"))
		if err != nil {
			return map[string]any{"error": err.Error()}
		}
		return map[string]any{"url": session.URL, "session_id": session.SessionID}

	case "check_payment_status":
		status, err := tools.CheckPaymentStatus(ctx, arg("booking_id"))
		if err != nil {
			return map[string]any{"error": err.Error()}
		}
		return map[string]any{"status": status}

	case "confirm_booking":
		if err := tools.ConfirmBooking(ctx, arg("booking_id")); err != nil {
			return map[string]any{"error": err.Error()}
		}
		return map[string]any{"confirmed": true}
	}

	return map[string]any{"error": fmt.Sprintf("unknown tool %q", call.Name)}
}
