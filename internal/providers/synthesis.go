package providers

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"

	"wakeel/internal/config"
	"wakeel/internal/services"
)

type synthesizeRequest struct {
	Text   string `json:"text"`
	Voice  string `json:"voice"`
	Rate   string `json:"rate"`
	Pitch  string `json:"pitch"`
	Volume string `json:"volume"`
}

type synthesizeResponse struct {
	Success     bool   `json:"success"`
	AudioBase64 string `json:"audio_base64"`
	Error       string `json:"error"`
}

// RestySynthesizer calls the text-to-speech collaborator over HTTP.
// Prosody is passed through as the signed rate/pitch encodings.
type RestySynthesizer struct {
	client       *resty.Client
	defaultVoice string
	volume       string
	logger       *logrus.Logger
}

func NewRestySynthesizer(cfg config.SynthesisConfig, logger *logrus.Logger) *RestySynthesizer {
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json")
	if cfg.APIKey != "" {
		client.SetAuthToken(cfg.APIKey)
	}
	return &RestySynthesizer{
		client:       client,
		defaultVoice: cfg.DefaultVoice,
		volume:       cfg.Volume,
		logger:       logger,
	}
}

// Synthesize renders text to base64 audio.
func (s *RestySynthesizer) Synthesize(ctx context.Context, text string, params services.SynthesisParams) (string, error) {
	voice := params.Voice
	if voice == "" {
		voice = s.defaultVoice
	}
	volume := params.Volume
	if volume == "" {
		volume = s.volume
	}

	var result synthesizeResponse
	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(synthesizeRequest{
			Text:   text,
			Voice:  voice,
			Rate:   params.Rate,
			Pitch:  params.Pitch,
			Volume: volume,
		}).
		SetResult(&result).
		Post("/v1/synthesize")
	if err != nil {
		return "", fmt.Errorf("synthesis request: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("synthesis service returned %s", resp.Status())
	}
	if !result.Success {
		return "", fmt.Errorf("synthesis rejected: %s", result.Error)
	}
	return result.AudioBase64, nil
}
