package providers

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"

	"wakeel/internal/config"
)

type transcribeRequest struct {
	AudioData string `json:"audio_data"`
	Language  string `json:"language"`
}

type transcribeResponse struct {
	Success bool   `json:"success"`
	Text    string `json:"text"`
	Error   string `json:"error"`
}

// RestyTranscriber calls the speech-to-text collaborator over HTTP.
type RestyTranscriber struct {
	client *resty.Client
	logger *logrus.Logger
}

func NewRestyTranscriber(cfg config.TranscriptionConfig, logger *logrus.Logger) *RestyTranscriber {
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json")
	if cfg.APIKey != "" {
		client.SetAuthToken(cfg.APIKey)
	}
	return &RestyTranscriber{client: client, logger: logger}
}

// Transcribe converts base64 audio to text.
func (t *RestyTranscriber) Transcribe(ctx context.Context, audioBase64, language string) (string, error) {
	var result transcribeResponse
	resp, err := t.client.R().
		SetContext(ctx).
		SetBody(transcribeRequest{AudioData: audioBase64, Language: language}).
		SetResult(&result).
		Post("/v1/transcribe")
	if err != nil {
		return "", fmt.Errorf("transcription request: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("transcription service returned %s", resp.Status())
	}
	if !result.Success {
		return "", fmt.Errorf("transcription rejected: %s", result.Error)
	}
	return result.Text, nil
}
