package providers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"wakeel/internal/config"
	"wakeel/internal/services"
)

// OpenRouterClient talks to an OpenAI-compatible chat completion API
// for both reply generation and sentiment scoring.
type OpenRouterClient struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
	logger      *logrus.Logger
}

func NewOpenRouterClient(cfg config.OpenRouterConfig, logger *logrus.Logger) *OpenRouterClient {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	clientConfig.BaseURL = cfg.BaseURL
	clientConfig.HTTPClient = &http.Client{
		Timeout:   cfg.Timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}

	return &OpenRouterClient{
		client:      openai.NewClientWithConfig(clientConfig),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		logger:      logger,
	}
}

// Generate produces the assistant's reply for the assembled
// conversation window.
func (c *OpenRouterClient) Generate(ctx context.Context, messages []services.ContextMessage, persona services.Persona) (*services.GenerationResult, error) {
	chatMessages := make([]openai.ChatCompletionMessage, 0, len(messages)+1)
	chatMessages = append(chatMessages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: buildSystemPrompt(persona),
	})
	for _, m := range messages {
		role := openai.ChatMessageRoleUser
		if m.Role == "assistant" {
			role = openai.ChatMessageRoleAssistant
		}
		chatMessages = append(chatMessages, openai.ChatCompletionMessage{
			Role:    role,
			Content: m.Content,
		})
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    chatMessages,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("chat completion returned no choices")
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return nil, fmt.Errorf("chat completion returned empty text")
	}
	return &services.GenerationResult{Text: text, Confidence: 0.85}, nil
}

// AnalyzeSentiment scores a transcript. The model is asked for a
// strict "label|score" line; anything unparseable degrades to a
// neutral zero score rather than an error.
func (c *OpenRouterClient) AnalyzeSentiment(ctx context.Context, text string) (string, float64, error) {
	if strings.TrimSpace(text) == "" {
		return "neutral", 0, nil
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: sentimentPrompt},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
		Temperature: 0,
		MaxTokens:   20,
	})
	if err != nil {
		return "", 0, fmt.Errorf("sentiment completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", 0, fmt.Errorf("sentiment completion returned no choices")
	}

	label, score, ok := parseSentiment(resp.Choices[0].Message.Content)
	if !ok {
		c.logger.WithField("raw", resp.Choices[0].Message.Content).
			Warn("unparseable sentiment reply, defaulting to neutral")
		return "neutral", 0, nil
	}
	return label, score, nil
}

const sentimentPrompt = `حلل مشاعر النص التالي. رد بسطر واحد فقط بالشكل:
label|score
حيث label واحدة من: positive, negative, neutral, angry, worried, excited
و score رقم بين -1 و 1.`

func buildSystemPrompt(persona services.Persona) string {
	var b strings.Builder
	b.WriteString("أنت مساعد شخصي ذكي تتحدث باسم المستخدم وترد على المتصلين نيابة عنه.\n")
	if persona.Tone != "" {
		fmt.Fprintf(&b, "أسلوب الرد: %s.\n", persona.Tone)
	}
	if persona.Style != "" {
		fmt.Fprintf(&b, "طريقة الكلام: %s.\n", persona.Style)
	}
	if persona.Dialect != "" {
		fmt.Fprintf(&b, "اللهجة: %s.\n", persona.Dialect)
	}
	b.WriteString("اجعل ردودك قصيرة وطبيعية كأنها مكالمة هاتفية حقيقية، ولا تكشف أنك مساعد آلي.")
	return b.String()
}

func parseSentiment(raw string) (string, float64, bool) {
	line := strings.TrimSpace(raw)
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = strings.TrimSpace(line[:i])
	}
	parts := strings.SplitN(line, "|", 2)
	if len(parts) != 2 {
		return "", 0, false
	}

	label := strings.ToLower(strings.TrimSpace(parts[0]))
	score, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return "", 0, false
	}
	if score < -1 {
		score = -1
	}
	if score > 1 {
		score = 1
	}
	return label, score, true
}
