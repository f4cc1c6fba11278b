package messaging

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"zapagenda/config"
	"zapagenda/utils"

	"go.uber.org/zap"
)

// Sender dispatches outbound text addressed by channel instance and
// counterparty phone.
type Sender interface {
	SendText(ctx context.Context, instanceID, phone, text string) error
}

// EvolutionClient talks to an Evolution API gateway.
type EvolutionClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewEvolutionClient() *EvolutionClient {
	raw := strings.TrimSuffix(config.AppConfig.EvolutionAPIURL, "/")
	raw = strings.TrimSuffix(raw, "/manager")
	return &EvolutionClient{
		baseURL: raw,
		apiKey:  config.AppConfig.EvolutionAPIKey,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

type sendTextRequest struct {
	Number      string `json:"number"`
	Text        string `json:"text"`
	Delay       int    `json:"delay"`
	LinkPreview bool   `json:"linkPreview"`
}

// SendText posts a message to the gateway. Missing credentials are treated as
// a no-op with a warning so a half-configured environment never crashes the
// conversational path.
func (c *EvolutionClient) SendText(ctx context.Context, instanceID, phone, text string) error {
	logger := utils.GetLogger()

	if c.baseURL == "" || c.apiKey == "" {
		logger.Warn("evolution credentials not set, dropping outbound message",
			zap.String("instanceId", instanceID))
		return nil
	}

	body, err := json.Marshal(sendTextRequest{
		Number:      phone,
		Text:        text,
		Delay:       1000,
		LinkPreview: false,
	})
	if err != nil {
		return fmt.Errorf("failed to encode send-text payload: %w", err)
	}

	url := fmt.Sprintf("%s/message/sendText/%s", c.baseURL, instanceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build send-text request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send whatsapp message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("send-text returned %d: %s", resp.StatusCode, string(detail))
	}
	return nil
}
