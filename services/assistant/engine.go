package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"zapagenda/models"
	"zapagenda/utils"

	genai "github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// TurnEngine produces one structured assistant turn. Implementations never
// surface a model parse failure to the caller; they degrade to a safe
// fallback reply instead.
type TurnEngine interface {
	// Turn is the single-shot structured-output mode: the model returns a
	// state delta and an action label for the router to execute.
	Turn(ctx context.Context, in TurnInput) (*models.TurnResult, error)
	// ToolTurn lets the model drive the booking functions itself in a
	// bounded loop; side effects happen inside the loop.
	ToolTurn(ctx context.Context, in TurnInput, tools BookingTools) (*models.TurnResult, error)
}

// GeminiTurnEngine implements TurnEngine on the Gemini API.
type GeminiTurnEngine struct {
	client    *genai.Client
	modelName string
}

func NewGeminiTurnEngine(apiKey, modelName string) (*GeminiTurnEngine, error) {
	client, err := genai.NewClient(context.Background(), option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiTurnEngine{client: client, modelName: modelName}, nil
}

func (g *GeminiTurnEngine) Turn(ctx context.Context, in TurnInput) (*models.TurnResult, error) {
	model := g.client.GenerativeModel(g.modelName)
	model.SetTemperature(0.2)
	model.ResponseMIMEType = "application/json"
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(BuildSystemPrompt(in))},
	}

	resp, err := model.GenerateContent(ctx, genai.Text(in.IncomingText))
	if err != nil {
		return nil, fmt.Errorf("gemini generate error: %w", err)
	}

	return ParseTurnResult(collectText(resp)), nil
}

// collectText concatenates the text parts of the first candidate.
func collectText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if textPart, ok := part.(genai.Text); ok {
			sb.WriteString(string(textPart))
		}
	}
	return sb.String()
}

// ParseTurnResult decodes the model output against the JSON contract.
// Malformed output becomes a generic "please repeat" turn rather than an
// error; the webhook handler must always have something to send back.
func ParseTurnResult(raw string) *models.TurnResult {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	var result models.TurnResult
	if err := json.Unmarshal([]byte(cleaned), &result); err != nil || result.Reply == "" {
		utils.GetLogger().Warn("engine: unparseable model output", zap.String("raw", raw))
		return &models.TurnResult{
			Reply:         fallbackReply,
			NextAction:    models.ActionNone,
			MissingFields: []string{},
		}
	}
	if !result.NextAction.Valid() {
		result.NextAction = models.ActionNone
	}
	return &result
}
