package transcription

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"zapagenda/config"

	speech "cloud.google.com/go/speech/apiv1"
	"google.golang.org/api/option"
	speechpb "google.golang.org/genproto/googleapis/cloud/speech/v1"
)

// Transcriber turns a voice note into text.
type Transcriber interface {
	TranscribeBase64(ctx context.Context, b64Audio string) (string, error)
}

// GoogleTranscriber uses Google Cloud Speech-to-Text. WhatsApp voice notes
// arrive as Opus-in-Ogg, which the API decodes natively.
type GoogleTranscriber struct {
	language string
}

func NewGoogleTranscriber() *GoogleTranscriber {
	return &GoogleTranscriber{language: "pt-BR"}
}

func (t *GoogleTranscriber) TranscribeBase64(ctx context.Context, b64Audio string) (string, error) {
	audioData, err := base64.StdEncoding.DecodeString(b64Audio)
	if err != nil {
		return "", fmt.Errorf("invalid base64 audio payload: %w", err)
	}

	client, err := speech.NewClient(ctx, option.WithCredentialsFile(config.AppConfig.GoogleServiceAccountFile))
	if err != nil {
		return "", fmt.Errorf("failed to initialize speech client: %w", err)
	}
	defer client.Close()

	req := &speechpb.RecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:          speechpb.RecognitionConfig_OGG_OPUS,
			SampleRateHertz:   16000,
			LanguageCode:      t.language,
			AudioChannelCount: 1,
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{
				Content: audioData,
			},
		},
	}

	resp, err := client.Recognize(ctx, req)
	if err != nil {
		return "", fmt.Errorf("speech recognition failed: %w", err)
	}

	var transcript strings.Builder
	for _, result := range resp.Results {
		for _, alt := range result.Alternatives {
			transcript.WriteString(alt.Transcript + " ")
		}
	}
	return strings.TrimSpace(transcript.String()), nil
}
