package assistant

import (
	"context"
	"errors"
	"testing"

	"zapagenda/models"

	genai "github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/require"
)

type stubTools struct {
	holdUpdates models.StateUpdates
	holdErr     error
}

func (s *stubTools) ListServices(ctx context.Context) ([]models.Service, error) {
	return []models.Service{{Name: "Corte Tradicional", Price: 50}}, nil
}

func (s *stubTools) CheckAvailability(ctx context.Context, professionalID, date, timeOfDay string) (bool, error) {
	return true, nil
}

func (s *stubTools) CreateHold(ctx context.Context, updates models.StateUpdates) (string, error) {
	s.holdUpdates = updates
	if s.holdErr != nil {
		return "", s.holdErr
	}
	return "bk-1", nil
}

func (s *stubTools) CreatePaymentLink(ctx context.Context, bookingID string) (*models.CheckoutSession, error) {
	return &models.CheckoutSession{SessionID: "cs_1", URL: "https://pay.example/cs_1"}, nil
}

func (s *stubTools) CheckPaymentStatus(ctx context.Context, bookingID string) (string, error) {
	return "paid", nil
}

func (s *stubTools) ConfirmBooking(ctx context.Context, bookingID string) error {
	return nil
}

func TestDispatchToolCreateHoldMapsArguments(t *testing.T) {
	tools := &stubTools{}
	call := genai.FunctionCall{
		Name: "create_hold",
		Args: map[string]any{
			"service_name": "Corte Tradicional",
			"date":         "2026-09-01",
			"time":         "16:00",
			"client_name":  "Ana",
		},
	}

	payload := dispatchTool(context.Background(), tools, call)

	require.Equal(t, map[string]any{"booking_id": "bk-1"}, payload)
	require.Equal(t, "Corte Tradicional", tools.holdUpdates.ServiceName)
	require.Equal(t, "2026-09-01", tools.holdUpdates.Date)
	require.Equal(t, "16:00", tools.holdUpdates.Time)
	require.Equal(t, "Ana", tools.holdUpdates.ClientName)
}

func TestDispatchToolErrorBecomesPayload(t *testing.T) {
	tools := &stubTools{holdErr: errors.New("service not found: Luzes")}
	call := genai.FunctionCall{Name: "create_hold", Args: map[string]any{}}

	payload := dispatchTool(context.Background(), tools, call)

	require.Equal(t, "service not found: Luzes", payload["error"])
}

func TestDispatchToolListServices(t *testing.T) {
	payload := dispatchTool(context.Background(), &stubTools{}, genai.FunctionCall{Name: "list_services"})

	services, ok := payload["services"].([]map[string]any)
	require.True(t, ok)
	require.Len(t, services, 1)
	require.Equal(t, "Corte Tradicional", services[0]["name"])
}

func TestDispatchToolUnknownName(t *testing.T) {
	payload := dispatchTool(context.Background(), &stubTools{}, genai.FunctionCall{Name: "drop_database"})

	require.Contains(t, payload["error"], "unknown tool")
}

// scriptedChat plays back canned model responses in order and keeps
// returning the last one once the script runs out.
type scriptedChat struct {
	responses []*genai.GenerateContentResponse
	sends     int
}

func (c *scriptedChat) Send(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error) {
	c.sends++
	if len(c.responses) > 1 {
		resp := c.responses[0]
		c.responses = c.responses[1:]
		return resp, nil
	}
	return c.responses[0], nil
}

func callResponse(name string, args map[string]any) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []genai.Part{genai.FunctionCall{Name: name, Args: args}}},
		}},
	}
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []genai.Part{genai.Text(text)}},
		}},
	}
}

func TestRunToolLoopStopsAtRoundCap(t *testing.T) {
	chat := &scriptedChat{responses: []*genai.GenerateContentResponse{
		callResponse("list_services", map[string]any{}),
	}}

	result, err := runToolLoop(context.Background(), chat, "quero marcar um horário", &stubTools{})

	require.NoError(t, err)
	require.Equal(t, fallbackReply, result.Reply)
	require.Equal(t, models.ActionNone, result.NextAction)
	// One initial send plus one per round before the cap cuts the loop off.
	require.Equal(t, maxToolRounds+1, chat.sends)
}

func TestRunToolLoopReturnsTextAfterToolRound(t *testing.T) {
	chat := &scriptedChat{responses: []*genai.GenerateContentResponse{
		callResponse("check_availability", map[string]any{
			"professional_id": "pro-joao",
			"date":            "2026-09-01",
			"time":            "16:00",
		}),
		textResponse("Tem horário livre sim! Posso reservar?"),
	}}

	result, err := runToolLoop(context.Background(), chat, "o João atende terça às 16h?", &stubTools{})

	require.NoError(t, err)
	require.Equal(t, "Tem horário livre sim! Posso reservar?", result.Reply)
	require.Equal(t, models.ActionNone, result.NextAction)
	require.Equal(t, 2, chat.sends)
}
